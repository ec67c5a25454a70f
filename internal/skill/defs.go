package skill

// Request types
const (
	RequestTypeLaunch       = "LaunchRequest"
	RequestTypeIntent       = "IntentRequest"
	RequestTypeSessionEnded = "SessionEndedRequest"
)

// Built-in intents
const (
	IntentHelp     = "AMAZON.HelpIntent"
	IntentStop     = "AMAZON.StopIntent"
	IntentCancel   = "AMAZON.CancelIntent"
	IntentFallback = "AMAZON.FallbackIntent"
)

// Output speech and card types
const (
	OutputSpeechPlainText = "PlainText"
	OutputSpeechSSML      = "SSML"
	CardSimple            = "Simple"
	CardStandard          = "Standard"
	CardLinkAccount       = "LinkAccount"
)

// RequestEnvelope struct
type RequestEnvelope struct {
	Version string   `json:"version,omitempty"`
	Session *Session `json:"session,omitempty"`
	Context *Context `json:"context,omitempty"`
	Request *Request `json:"request,omitempty"`
}

// Session struct
type Session struct {
	New         bool                   `json:"new"`
	SessionID   string                 `json:"sessionId,omitempty"`
	Application *Application           `json:"application,omitempty"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	User        *User                  `json:"user,omitempty"`
}

// Application struct
type Application struct {
	ApplicationID string `json:"applicationId,omitempty"`
}

// User struct
type User struct {
	UserID      string `json:"userId,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

// Context struct
type Context struct {
	System *System `json:"System,omitempty"`
}

// System struct
type System struct {
	Application    *Application `json:"application,omitempty"`
	User           *User        `json:"user,omitempty"`
	APIEndpoint    string       `json:"apiEndpoint,omitempty"`
	APIAccessToken string       `json:"apiAccessToken,omitempty"`
}

// Request struct
type Request struct {
	Type      string        `json:"type,omitempty"`
	RequestID string        `json:"requestId,omitempty"`
	Timestamp string        `json:"timestamp,omitempty"`
	Locale    string        `json:"locale,omitempty"`
	Intent    *Intent       `json:"intent,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Error     *RequestError `json:"error,omitempty"`
}

// Intent struct
type Intent struct {
	Name               string          `json:"name,omitempty"`
	ConfirmationStatus string          `json:"confirmationStatus,omitempty"`
	Slots              map[string]Slot `json:"slots,omitempty"`
}

// Slot struct
type Slot struct {
	Name               string `json:"name,omitempty"`
	Value              string `json:"value,omitempty"`
	ConfirmationStatus string `json:"confirmationStatus,omitempty"`
}

// RequestError struct
type RequestError struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

// ResponseEnvelope struct
type ResponseEnvelope struct {
	Version           string                 `json:"version"`
	SessionAttributes map[string]interface{} `json:"sessionAttributes,omitempty"`
	Response          *Response              `json:"response"`
}

// Response struct
type Response struct {
	OutputSpeech     *OutputSpeech `json:"outputSpeech,omitempty"`
	Card             *Card         `json:"card,omitempty"`
	Reprompt         *Reprompt     `json:"reprompt,omitempty"`
	ShouldEndSession *bool         `json:"shouldEndSession,omitempty"`
}

// OutputSpeech struct
type OutputSpeech struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	SSML string `json:"ssml,omitempty"`
}

// Card struct
type Card struct {
	Type    string     `json:"type"`
	Title   string     `json:"title,omitempty"`
	Content string     `json:"content,omitempty"`
	Text    string     `json:"text,omitempty"`
	Image   *CardImage `json:"image,omitempty"`
}

// CardImage struct
type CardImage struct {
	SmallImageURL string `json:"smallImageUrl,omitempty"`
	LargeImageURL string `json:"largeImageUrl,omitempty"`
}

// Reprompt struct
type Reprompt struct {
	OutputSpeech *OutputSpeech `json:"outputSpeech,omitempty"`
}
