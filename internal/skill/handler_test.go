package skill

import (
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stas-makutin/skillgate/internal/skillauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAuthenticator struct {
	calls int
	last  skillauth.VerificationRequest
	err   error
}

func (a *recordingAuthenticator) Verify(_ context.Context, req skillauth.VerificationRequest) error {
	a.calls++
	a.last = req
	return a.err
}

type tokenVerifier string

func (v tokenVerifier) VerifyAccessToken(token string) error {
	if token != string(v) {
		return errors.New("unknown token")
	}
	return nil
}

func testHeader() http.Header {
	header := http.Header{}
	header.Set(skillauth.HeaderCertificateURL, "https://s3.amazonaws.com/echo.api/echo-api-cert.pem")
	header.Set(skillauth.HeaderSignature, "c2lnbmF0dXJl")
	header.Set(skillauth.HeaderSignature256, "c2lnbmF0dXJlMjU2")
	return header
}

func TestHandlerServe(t *testing.T) {
	authenticator := &recordingAuthenticator{}
	handler := &Handler{
		Verifier:     authenticator,
		Applications: NewApplicationMatcher("amzn1.ask.skill.1"),
		Responses:    testResponses,
	}

	result := handler.Serve(context.Background(), testHeader(), []byte(launchRequest))
	require.Equal(t, http.StatusOK, result.Status, "err: %v", result.Err)
	assert.Equal(t, "amzn1.echo-api.request.1", result.RequestID)

	assert.Equal(t, 1, authenticator.calls)
	assert.Equal(t, []byte(launchRequest), authenticator.last.RawBody)
	assert.Equal(t, "c2lnbmF0dXJl", authenticator.last.Signature)
	assert.Equal(t, crypto.SHA1, authenticator.last.Hash)
	assert.Equal(t, "2026-03-14T09:26:53Z", authenticator.last.Timestamp)

	var response ResponseEnvelope
	require.NoError(t, json.Unmarshal(result.Body, &response))
	assert.Equal(t, testResponses.Launch, response.Response.OutputSpeech.Text)
}

func TestHandlerPrefersSignature256(t *testing.T) {
	authenticator := &recordingAuthenticator{}
	handler := &Handler{Verifier: authenticator, PreferSignature256: true}

	result := handler.Serve(context.Background(), testHeader(), []byte(launchRequest))
	require.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, "c2lnbmF0dXJlMjU2", authenticator.last.Signature)
	assert.Equal(t, crypto.SHA256, authenticator.last.Hash)
}

func TestHandlerRejects(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		handler   Handler
		verifyErr error
		status    int
		verified  bool
		want      error
	}{
		{
			name:   "malformed",
			body:   `{}`,
			status: http.StatusBadRequest,
			want:   ErrMalformedRequest,
		},
		{
			name:    "application mismatch",
			body:    launchRequest,
			handler: Handler{Applications: NewApplicationMatcher("amzn1.ask.skill.other")},
			status:  http.StatusBadRequest,
			want:    ErrApplicationMismatch,
		},
		{
			name:      "verification failure",
			body:      launchRequest,
			verifyErr: skillauth.ErrSignatureInvalid,
			status:    http.StatusBadRequest,
			verified:  true,
			want:      skillauth.ErrSignatureInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authenticator := &recordingAuthenticator{err: tt.verifyErr}
			handler := tt.handler
			handler.Verifier = authenticator

			result := handler.Serve(context.Background(), testHeader(), []byte(tt.body))
			assert.Equal(t, tt.status, result.Status)
			assert.True(t, errors.Is(result.Err, tt.want), "got %v", result.Err)
			assert.Equal(t, tt.verified, authenticator.calls > 0)
		})
	}
}

func TestHandlerAcceptsLinkedAccount(t *testing.T) {
	handler := &Handler{Verifier: &recordingAuthenticator{}, AccessTokens: tokenVerifier("token-1")}
	result := handler.Serve(context.Background(), testHeader(), []byte(launchRequest))
	assert.Equal(t, http.StatusOK, result.Status)
}

func TestHandlerRequestsAccountLinking(t *testing.T) {
	authenticator := &recordingAuthenticator{}
	responses := testResponses
	responses.LinkAccount = "Please link your account in the Alexa app."
	handler := &Handler{Verifier: authenticator, AccessTokens: tokenVerifier("token-2"), Responses: responses}

	result := handler.Serve(context.Background(), testHeader(), []byte(launchRequest))
	require.Equal(t, http.StatusOK, result.Status)
	assert.ErrorIs(t, result.Err, ErrAccessTokenRejected)
	assert.Equal(t, 1, authenticator.calls)
	assert.Contains(t, string(result.Body), `"card":{"type":"LinkAccount"}`)

	var response ResponseEnvelope
	require.NoError(t, json.Unmarshal(result.Body, &response))
	require.NotNil(t, response.Response.Card)
	assert.Equal(t, CardLinkAccount, response.Response.Card.Type)
	assert.Equal(t, responses.LinkAccount, response.Response.OutputSpeech.Text)
	assert.True(t, *response.Response.ShouldEndSession)

	handler.Responses = Responses{}
	result = handler.Serve(context.Background(), testHeader(), []byte(launchRequest))
	require.Equal(t, http.StatusOK, result.Status)
	assert.JSONEq(t, `{"version":"1.0","response":{"card":{"type":"LinkAccount"},"shouldEndSession":true}}`, string(result.Body))
}
