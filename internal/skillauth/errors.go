package skillauth

import (
	"fmt"
	"strings"
	"time"
)

// ErrorKind identifies the check that rejected a request.
type ErrorKind uint16

const (
	InvalidCertificateOrigin = ErrorKind(iota + 1)
	MalformedTimestamp
	StaleRequest
	CertificateFetchFailed
	CertificateParseFailed
	CertificateExpired
	InvalidSubjectAltName
	CertificateUntrusted
	SignatureInvalid
)

var errorKindNames = map[ErrorKind]string{
	InvalidCertificateOrigin: "invalid-certificate-origin",
	MalformedTimestamp:       "malformed-timestamp",
	StaleRequest:             "stale-request",
	CertificateFetchFailed:   "certificate-fetch-failed",
	CertificateParseFailed:   "certificate-parse-failed",
	CertificateExpired:       "certificate-expired",
	InvalidSubjectAltName:    "invalid-subject-alt-name",
	CertificateUntrusted:     "certificate-untrusted",
	SignatureInvalid:         "signature-invalid",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint16(k))
}

// Sentinels for errors.Is; they match any VerificationError of the same kind.
var (
	ErrInvalidCertificateOrigin = &VerificationError{Kind: InvalidCertificateOrigin}
	ErrMalformedTimestamp       = &VerificationError{Kind: MalformedTimestamp}
	ErrStaleRequest             = &VerificationError{Kind: StaleRequest}
	ErrCertificateFetchFailed   = &VerificationError{Kind: CertificateFetchFailed}
	ErrCertificateParseFailed   = &VerificationError{Kind: CertificateParseFailed}
	ErrCertificateExpired       = &VerificationError{Kind: CertificateExpired}
	ErrInvalidSubjectAltName    = &VerificationError{Kind: InvalidSubjectAltName}
	ErrCertificateUntrusted     = &VerificationError{Kind: CertificateUntrusted}
	ErrSignatureInvalid         = &VerificationError{Kind: SignatureInvalid}
)

// VerificationError is the single rejection reason produced by Verify.
// Field, Got and Want describe a mismatch; Delta is set for timestamp failures.
type VerificationError struct {
	Kind  ErrorKind
	Field string
	Got   string
	Want  string
	Delta time.Duration
	Err   error
}

func (e *VerificationError) Error() string {
	var b strings.Builder
	b.WriteString("skillauth: ")
	b.WriteString(e.Kind.String())
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
		if e.Got != "" || e.Want != "" {
			fmt.Fprintf(&b, " got %q, want %q", e.Got, e.Want)
		}
	}
	if e.Delta != 0 {
		fmt.Fprintf(&b, " (delta %v)", e.Delta)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// Is reports kind equality so that errors.Is(err, ErrStaleRequest) works for
// any stale request rejection regardless of its detail.
func (e *VerificationError) Is(target error) bool {
	t, ok := target.(*VerificationError)
	return ok && t.Kind == e.Kind
}

// KindOf returns the rejection kind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	for err != nil {
		if ve, ok := err.(*VerificationError); ok {
			return ve.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0, false
		}
		err = u.Unwrap()
	}
	return 0, false
}

func reject(kind ErrorKind, err error) *VerificationError {
	return &VerificationError{Kind: kind, Err: err}
}

func mismatch(kind ErrorKind, field, got, want string) *VerificationError {
	return &VerificationError{Kind: kind, Field: field, Got: got, Want: want}
}
