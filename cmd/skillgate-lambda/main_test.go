package main

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stas-makutin/skillgate/internal/skill"
	"github.com/stas-makutin/skillgate/internal/skillauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const launchRequest = `{"version":"1.0","session":{"application":{"applicationId":"amzn1.ask.skill.1"}},` +
	`"request":{"type":"LaunchRequest","requestId":"amzn1.echo-api.request.1","timestamp":"2026-03-14T09:26:53Z"}}`

type acceptAll struct {
	last skillauth.VerificationRequest
}

func (a *acceptAll) Verify(_ context.Context, req skillauth.VerificationRequest) error {
	a.last = req
	return nil
}

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadSettings(t *testing.T) {
	s, err := loadSettings(env(map[string]string{
		"SKILL_APPLICATION_IDS":     " amzn1.ask.skill.1, ,amzn1.ask.skill.2",
		"SKILL_PREFER_SIGNATURE256": "TRUE",
		"SKILL_TIMESTAMP_TOLERANCE": "45s",
		"SKILL_FETCH_TIMEOUT":       "1500ms",
		"SKILL_LAUNCH":              "Welcome",
		"SKILL_LARGE_IMAGE_URL":     "https://cdn.example.com/large.png",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"amzn1.ask.skill.1", "amzn1.ask.skill.2"}, s.applicationIDs)
	assert.True(t, s.preferSignature256)
	assert.Equal(t, 45*time.Second, s.timestampTolerance)
	assert.Equal(t, 1500*time.Millisecond, s.fetchTimeout)
	assert.Equal(t, "Welcome", s.responses.Launch)
	assert.Equal(t, "https://cdn.example.com/large.png", s.responses.LargeImageURL)

	_, err = loadSettings(env(map[string]string{"SKILL_FETCH_TIMEOUT": "soon"}))
	assert.Error(t, err)
	_, err = loadSettings(env(map[string]string{"SKILL_TIMESTAMP_TOLERANCE": "-1s"}))
	assert.Error(t, err)
	_, err = loadSettings(env(map[string]string{"SKILL_SMALL_IMAGE_URL": "http://cdn.example.com/small.png"}))
	assert.ErrorContains(t, err, "SKILL_SMALL_IMAGE_URL is not valid")
}

func TestRequestHeader(t *testing.T) {
	header := requestHeader(events.APIGatewayProxyRequest{
		Headers: map[string]string{
			"signaturecertchainurl": "https://s3.amazonaws.com/echo.api/echo-api-cert.pem",
			"signature":             "single",
		},
		MultiValueHeaders: map[string][]string{"Signature": {"multi"}},
	})
	assert.Equal(t, "https://s3.amazonaws.com/echo.api/echo-api-cert.pem", header.Get(skillauth.HeaderCertificateURL))
	assert.Equal(t, "multi", header.Get(skillauth.HeaderSignature))
}

func TestGatewayHandle(t *testing.T) {
	verifier := &acceptAll{}
	g := &gateway{
		handler: &skill.Handler{
			Verifier:  verifier,
			Responses: skill.Responses{Launch: "Welcome"},
			Logger:    zaptest.NewLogger(t),
		},
		logger: zaptest.NewLogger(t),
	}

	response, err := g.handle(context.Background(), events.APIGatewayProxyRequest{
		Headers:         map[string]string{"Signature": "c2ln"},
		Body:            base64.StdEncoding.EncodeToString([]byte(launchRequest)),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, response.Body, "Welcome")
	assert.Equal(t, launchRequest, string(verifier.last.RawBody))
	assert.Equal(t, "c2ln", verifier.last.Signature)

	response, err = g.handle(context.Background(), events.APIGatewayProxyRequest{Body: "!!", IsBase64Encoded: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestGatewayRejectsBeforeFetch(t *testing.T) {
	fetches := 0
	fetcher := skillauth.FetcherFunc(func(context.Context, string) ([]byte, error) {
		fetches++
		return nil, errors.New("unreachable")
	})
	g := &gateway{handler: newHandler(settings{}, fetcher, zaptest.NewLogger(t)), logger: zaptest.NewLogger(t)}

	response, err := g.handle(context.Background(), events.APIGatewayProxyRequest{
		Headers: map[string]string{
			"SignatureCertChainUrl": "https://evil.example.com/echo.api/cert.pem",
			"Signature":             "c2ln",
		},
		Body: launchRequest,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Equal(t, 0, fetches)
}
