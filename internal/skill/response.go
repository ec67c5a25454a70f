package skill

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

var ErrInvalidImage = errors.New("invalid card image url")

func PlainTextSpeech(text string) *OutputSpeech {
	return &OutputSpeech{Type: OutputSpeechPlainText, Text: text}
}

// Speech returns SSML output when text is wrapped in <speak>, plain text otherwise.
func Speech(text string) *OutputSpeech {
	if strings.HasPrefix(strings.TrimSpace(text), "<speak>") {
		return &OutputSpeech{Type: OutputSpeechSSML, SSML: text}
	}
	return PlainTextSpeech(text)
}

func SimpleCard(title, content string) *Card {
	return &Card{Type: CardSimple, Title: title, Content: content}
}

// StandardCard returns a card with text and images. Both image urls are
// optional; a card without any is returned as a simple one.
func StandardCard(title, text, smallURL, largeURL string) (*Card, error) {
	if smallURL == "" && largeURL == "" {
		return SimpleCard(title, text), nil
	}
	for _, imageURL := range []string{smallURL, largeURL} {
		if imageURL == "" {
			continue
		}
		if err := ValidateImageURL(imageURL); err != nil {
			return nil, err
		}
	}
	return &Card{
		Type:  CardStandard,
		Title: title,
		Text:  text,
		Image: &CardImage{SmallImageURL: smallURL, LargeImageURL: largeURL},
	}, nil
}

// ValidateImageURL accepts https urls of jpeg or png images.
func ValidateImageURL(imageURL string) error {
	u, err := url.Parse(imageURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if scheme, _, _ := strings.Cut(imageURL, ":"); scheme != "https" {
		return fmt.Errorf("%w: scheme '%s'", ErrInvalidImage, scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return fmt.Errorf("%w: empty path", ErrInvalidImage)
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".jpg", ".jpeg", ".png":
		return nil
	}
	return fmt.Errorf("%w: unsupported extension '%s'", ErrInvalidImage, path.Ext(u.Path))
}

// LinkAccountCard asks the user to link their account in the companion app.
func LinkAccountCard() *Card {
	return &Card{Type: CardLinkAccount}
}

func endSession(v bool) *bool {
	return &v
}

// Responses holds the canned answers of a configured skill.
// Intent texts may reference slot values as {slotName}.
type Responses struct {
	Launch    string
	Help      string
	Stop      string
	Fallback  string
	CardTitle string
	// Card images, both optional
	SmallImageURL string
	LargeImageURL string
	// LinkAccount is spoken along with the account linking card.
	LinkAccount string
	Intents     map[string]string
}

// Respond renders the response for an authenticated request.
func (r Responses) Respond(envelope *RequestEnvelope) *ResponseEnvelope {
	response := &ResponseEnvelope{Version: "1.0"}
	if envelope.Session != nil && len(envelope.Session.Attributes) > 0 {
		response.SessionAttributes = envelope.Session.Attributes
	}

	switch envelope.Request.Type {
	case RequestTypeLaunch:
		response.Response = r.ask(r.Launch)
	case RequestTypeIntent:
		response.Response = r.intent(envelope.Request.Intent)
	case RequestTypeSessionEnded:
		response.Response = &Response{}
	default:
		response.Response = r.tell(r.Fallback)
	}
	return response
}

// LinkAccountResponse tells the user the account must be linked first.
func (r Responses) LinkAccountResponse() *ResponseEnvelope {
	response := r.tell(r.LinkAccount)
	response.Card = LinkAccountCard()
	return &ResponseEnvelope{Version: "1.0", Response: response}
}

func (r Responses) intent(intent *Intent) *Response {
	if intent == nil {
		return r.ask(r.Fallback)
	}
	switch intent.Name {
	case IntentHelp:
		return r.ask(r.Help)
	case IntentStop, IntentCancel:
		return r.tell(r.Stop)
	case IntentFallback:
		return r.ask(r.Fallback)
	}
	text, ok := r.Intents[intent.Name]
	if !ok {
		return r.ask(r.Fallback)
	}
	for name, slot := range intent.Slots {
		text = strings.ReplaceAll(text, "{"+name+"}", slot.Value)
	}
	response := r.tell(text)
	if r.CardTitle != "" {
		response.Card = r.card(text)
	}
	return response
}

func (r Responses) card(text string) *Card {
	card, err := StandardCard(r.CardTitle, text, r.SmallImageURL, r.LargeImageURL)
	if err != nil {
		return SimpleCard(r.CardTitle, text)
	}
	return card
}

// ask speaks text and keeps the session open, reprompting with the help text.
func (r Responses) ask(text string) *Response {
	response := &Response{ShouldEndSession: endSession(false)}
	if text != "" {
		response.OutputSpeech = Speech(text)
	}
	if r.Help != "" {
		response.Reprompt = &Reprompt{OutputSpeech: Speech(r.Help)}
	}
	return response
}

func (r Responses) tell(text string) *Response {
	response := &Response{ShouldEndSession: endSession(true)}
	if text != "" {
		response.OutputSpeech = Speech(text)
	}
	return response
}
