// Package skillauth authenticates inbound Alexa skill requests.
//
// A request is accepted only when its signing certificate URL points at the
// vendor's certificate bucket, its timestamp is recent, the certificate
// fetched from that URL is currently valid and issued for the vendor service
// domain, and the request signature verifies against the certificate's public
// key over the exact raw body bytes.
package skillauth

import (
	"crypto/x509"
	"time"
)

const (
	DefaultScheme             = "https"
	DefaultHost               = "s3.amazonaws.com"
	DefaultPathPrefix         = "/echo.api/"
	DefaultPort               = 443
	DefaultServiceDomain      = "echo-api.amazon.com"
	DefaultTimestampTolerance = 30 * time.Second
	DefaultFetchTimeout       = 2 * time.Second
	DefaultMaxCertificateSize = 16384
)

// Config holds the trust anchors of the verifier.
type Config struct {
	Scheme        string
	Host          string
	PathPrefix    string
	Port          int
	ServiceDomain string

	// TimestampTolerance bounds how old a request may be.
	TimestampTolerance time.Duration
	// MaxFutureSkew bounds how far in the future a request timestamp may be; 0 disables the check.
	MaxFutureSkew time.Duration

	// VerifyChain enables x509 path verification of the signing certificate
	// against Roots (system pool when nil), using the rest of the PEM as intermediates.
	VerifyChain bool
	Roots       *x509.CertPool
}

// DefaultConfig returns the vendor's published values.
func DefaultConfig() Config {
	return Config{
		Scheme:             DefaultScheme,
		Host:               DefaultHost,
		PathPrefix:         DefaultPathPrefix,
		Port:               DefaultPort,
		ServiceDomain:      DefaultServiceDomain,
		TimestampTolerance: DefaultTimestampTolerance,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Scheme == "" {
		c.Scheme = d.Scheme
	}
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.PathPrefix == "" {
		c.PathPrefix = d.PathPrefix
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.ServiceDomain == "" {
		c.ServiceDomain = d.ServiceDomain
	}
	if c.TimestampTolerance == 0 {
		c.TimestampTolerance = d.TimestampTolerance
	}
	return c
}
