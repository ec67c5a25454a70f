package skill

import (
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stas-makutin/skillgate/internal/skillauth"
	"go.uber.org/zap"
)

var ErrAccessTokenRejected = errors.New("access token rejected")

// Authenticator proves a request was signed by the platform.
type Authenticator interface {
	Verify(ctx context.Context, req skillauth.VerificationRequest) error
}

// AccessTokenVerifier validates account linking tokens.
type AccessTokenVerifier interface {
	VerifyAccessToken(token string) error
}

// Header is satisfied by http.Header.
type Header interface {
	Get(key string) string
}

// Result of handling one request. Err is the reason of a non-200 status, or
// of a 200 asking the user to link their account.
type Result struct {
	Status    int
	Body      []byte
	RequestID string
	Err       error
}

// Handler runs parse, application id match, signature verification and
// optional access token check before rendering the response.
type Handler struct {
	Verifier           Authenticator
	Applications       *ApplicationMatcher
	AccessTokens       AccessTokenVerifier
	Responses          Responses
	PreferSignature256 bool
	Logger             *zap.Logger
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// Serve handles one skill request given its headers and exact body bytes.
func (h *Handler) Serve(ctx context.Context, header Header, body []byte) Result {
	envelope, err := Parse(body)
	if err != nil {
		return h.fail(http.StatusBadRequest, "", err)
	}
	requestID := envelope.Request.RequestID

	if err := h.Applications.Match(envelope.ApplicationID()); err != nil {
		return h.fail(http.StatusBadRequest, requestID, err)
	}

	if err := h.Verifier.Verify(ctx, h.verificationRequest(header, body, envelope)); err != nil {
		return h.fail(http.StatusBadRequest, requestID, err)
	}

	if h.AccessTokens != nil {
		if err := h.AccessTokens.VerifyAccessToken(envelope.AccessToken()); err != nil {
			return h.linkAccount(requestID, errors.Join(ErrAccessTokenRejected, err))
		}
	}

	data, err := json.Marshal(h.Responses.Respond(envelope))
	if err != nil {
		return h.fail(http.StatusInternalServerError, requestID, err)
	}
	h.logger().Debug("skill request handled",
		zap.String("requestId", requestID),
		zap.String("type", envelope.Request.Type),
	)
	return Result{Status: http.StatusOK, Body: data, RequestID: requestID}
}

func (h *Handler) verificationRequest(header Header, body []byte, envelope *RequestEnvelope) skillauth.VerificationRequest {
	req := skillauth.VerificationRequest{
		RawBody:        body,
		CertificateURL: header.Get(skillauth.HeaderCertificateURL),
		Signature:      header.Get(skillauth.HeaderSignature),
		Timestamp:      envelope.Request.Timestamp,
		Hash:           crypto.SHA1,
	}
	if h.PreferSignature256 {
		if signature := header.Get(skillauth.HeaderSignature256); signature != "" {
			req.Signature = signature
			req.Hash = crypto.SHA256
		}
	}
	return req
}

// linkAccount answers with the account linking card, the only reply the
// platform acts on when the access token is missing or invalid.
func (h *Handler) linkAccount(requestID string, err error) Result {
	data, merr := json.Marshal(h.Responses.LinkAccountResponse())
	if merr != nil {
		return h.fail(http.StatusInternalServerError, requestID, merr)
	}
	h.logger().Info("skill request needs account linking",
		zap.String("requestId", requestID),
		zap.Error(err),
	)
	return Result{Status: http.StatusOK, Body: data, RequestID: requestID, Err: err}
}

func (h *Handler) fail(status int, requestID string, err error) Result {
	h.logger().Info("skill request failed",
		zap.Int("status", status),
		zap.String("requestId", requestID),
		zap.Error(err),
	)
	return Result{
		Status:    status,
		Body:      []byte(http.StatusText(status)),
		RequestID: requestID,
		Err:       err,
	}
}
