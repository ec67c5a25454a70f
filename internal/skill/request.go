// Package skill parses Alexa custom skill requests, matches them against the
// configured applications and renders canned responses. Authentication of the
// request is delegated to skillauth.
package skill

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedRequest    = errors.New("malformed skill request")
	ErrApplicationMismatch = errors.New("application id is not allowed")
)

// Parse decodes the raw body. The body itself is not kept; callers must pass
// the original bytes to the verifier.
func Parse(raw []byte) (*RequestEnvelope, error) {
	var envelope RequestEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if envelope.Request == nil {
		return nil, fmt.Errorf("%w: request does not contain field \"request\"", ErrMalformedRequest)
	}
	for _, field := range [...]struct{ name, value string }{
		{"requestId", envelope.Request.RequestID},
		{"type", envelope.Request.Type},
		{"timestamp", envelope.Request.Timestamp},
	} {
		if field.value == "" {
			return nil, fmt.Errorf("%w: request does not contain field %q", ErrMalformedRequest, field.name)
		}
	}
	return &envelope, nil
}

// ApplicationID returns the skill id from the session, or from the context
// for requests sent outside a session.
func (e *RequestEnvelope) ApplicationID() string {
	if e.Session != nil && e.Session.Application != nil && e.Session.Application.ApplicationID != "" {
		return e.Session.Application.ApplicationID
	}
	if e.Context != nil && e.Context.System != nil && e.Context.System.Application != nil {
		return e.Context.System.Application.ApplicationID
	}
	return ""
}

// AccessToken returns the account linking token, if any.
func (e *RequestEnvelope) AccessToken() string {
	if e.Context != nil && e.Context.System != nil && e.Context.System.User != nil && e.Context.System.User.AccessToken != "" {
		return e.Context.System.User.AccessToken
	}
	if e.Session != nil && e.Session.User != nil {
		return e.Session.User.AccessToken
	}
	return ""
}

// ApplicationMatcher is an allow-list of skill application ids.
// An empty matcher accepts every id.
type ApplicationMatcher struct {
	ids map[string]struct{}
}

func NewApplicationMatcher(ids ...string) *ApplicationMatcher {
	m := &ApplicationMatcher{ids: make(map[string]struct{})}
	for _, id := range ids {
		if id != "" {
			m.ids[id] = struct{}{}
		}
	}
	return m
}

func (m *ApplicationMatcher) Match(id string) error {
	if m == nil || len(m.ids) == 0 {
		return nil
	}
	if _, ok := m.ids[id]; !ok {
		return fmt.Errorf("%w: %q", ErrApplicationMismatch, id)
	}
	return nil
}
