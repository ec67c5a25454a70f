package skillauth

import (
	"context"
	"crypto"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Header names used by the platform.
const (
	HeaderCertificateURL = "SignatureCertChainUrl"
	HeaderSignature      = "Signature"
	HeaderSignature256   = "Signature-256"
)

// VerificationRequest bundles the inputs of one verification.
// RawBody must be the exact bytes received; Hash defaults to SHA-1.
type VerificationRequest struct {
	RawBody        []byte
	CertificateURL string
	Signature      string
	Timestamp      string
	Hash           crypto.Hash
}

// Verifier runs the checks in order and stops at the first failure.
// It holds no per-request state and is safe for concurrent use.
type Verifier struct {
	config  Config
	fetcher CertificateFetcher
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets the logger used to report rejections.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier creates a verifier. A nil fetcher means a plain HTTPFetcher
// with the default timeout.
func NewVerifier(cfg Config, fetcher CertificateFetcher, options ...Option) *Verifier {
	if fetcher == nil {
		fetcher = NewHTTPFetcher(DefaultFetchTimeout)
	}
	v := &Verifier{
		config:  cfg.withDefaults(),
		fetcher: fetcher,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, option := range options {
		option(v)
	}
	return v
}

// Config returns the effective configuration.
func (v *Verifier) Config() Config {
	return v.config
}

// Verify returns nil when the request is authenticated, otherwise a *VerificationError.
func (v *Verifier) Verify(ctx context.Context, req VerificationRequest) error {
	err := v.verify(ctx, req)
	if err != nil {
		fields := []zap.Field{zap.Error(err), zap.String("certificateUrl", req.CertificateURL)}
		if kind, ok := KindOf(err); ok {
			fields = append(fields, zap.Stringer("reason", kind))
		}
		v.logger.Info("skill request rejected", fields...)
		return err
	}
	v.logger.Debug("skill request authenticated", zap.String("certificateUrl", req.CertificateURL))
	return nil
}

func (v *Verifier) verify(ctx context.Context, req VerificationRequest) error {
	certificateURL, err := ValidateOrigin(v.config, req.CertificateURL)
	if err != nil {
		return err
	}

	if err := ValidateTimestamp(v.config, req.Timestamp, v.now()); err != nil {
		return err
	}

	pemData, err := v.fetcher.Fetch(ctx, certificateURL)
	if err == nil && len(pemData) == 0 {
		err = errors.New("empty certificate")
	}
	if err != nil {
		return &VerificationError{Kind: CertificateFetchFailed, Field: "url", Got: certificateURL, Err: err}
	}

	certificate, err := ParseCertificate(pemData)
	if err != nil {
		return err
	}
	if err := ValidateCertificate(v.config, certificate, v.now()); err != nil {
		return err
	}

	return VerifySignature(certificate.PublicKey, req.RawBody, req.Signature, req.Hash)
}
