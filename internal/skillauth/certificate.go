package skillauth

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
	"time"
)

// ParsedCertificate is the signing certificate extracted from the fetched chain.
type ParsedCertificate struct {
	ValidFrom       time.Time
	ValidTo         time.Time
	SubjectAltNames []string
	PublicKey       crypto.PublicKey

	signing       *x509.Certificate
	intermediates []*x509.Certificate
}

// ParseCertificate decodes a PEM chain. The first certificate is the signing
// certificate; any following ones are kept as intermediates.
func ParseCertificate(pemData []byte) (*ParsedCertificate, error) {
	var pc *ParsedCertificate
	for len(pemData) > 0 {
		block, rest := pem.Decode(pemData)
		if block == nil {
			break
		}
		pemData = rest
		if block.Type != "CERTIFICATE" {
			continue
		}
		certificate, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, reject(CertificateParseFailed, err)
		}
		if pc == nil {
			pc = &ParsedCertificate{
				ValidFrom:       certificate.NotBefore,
				ValidTo:         certificate.NotAfter,
				SubjectAltNames: subjectAltNames(certificate),
				PublicKey:       certificate.PublicKey,
				signing:         certificate,
			}
		} else {
			pc.intermediates = append(pc.intermediates, certificate)
		}
	}
	if pc == nil {
		return nil, reject(CertificateParseFailed, fmt.Errorf("no certificate found in PEM data"))
	}
	return pc, nil
}

// Certificate returns the underlying signing certificate.
func (pc *ParsedCertificate) Certificate() *x509.Certificate {
	return pc.signing
}

func subjectAltNames(c *x509.Certificate) []string {
	var names []string
	for _, v := range c.DNSNames {
		names = append(names, "DNS:"+v)
	}
	for _, v := range c.EmailAddresses {
		names = append(names, "email:"+v)
	}
	for _, v := range c.IPAddresses {
		names = append(names, "IP Address:"+v.String())
	}
	for _, v := range c.URIs {
		names = append(names, "URI:"+v.String())
	}
	return names
}

// ValidateCertificate checks the validity window, the subject alternative
// name and, when enabled, the chain of the parsed certificate.
func ValidateCertificate(cfg Config, pc *ParsedCertificate, now time.Time) error {
	cfg = cfg.withDefaults()

	if now.Before(pc.ValidFrom) || now.After(pc.ValidTo) {
		return &VerificationError{
			Kind:  CertificateExpired,
			Field: "validity",
			Got:   now.UTC().Format(time.RFC3339),
			Want:  pc.ValidFrom.UTC().Format(time.RFC3339) + " .. " + pc.ValidTo.UTC().Format(time.RFC3339),
		}
	}

	// substring match over the whole extension text
	san := strings.Join(pc.SubjectAltNames, ", ")
	if san == "" || !strings.Contains(san, cfg.ServiceDomain) {
		return mismatch(InvalidSubjectAltName, "subjectAltName", san, cfg.ServiceDomain)
	}

	if cfg.VerifyChain {
		intermediates := x509.NewCertPool()
		for _, c := range pc.intermediates {
			intermediates.AddCert(c)
		}
		opts := x509.VerifyOptions{
			DNSName:       cfg.ServiceDomain,
			Roots:         cfg.Roots,
			Intermediates: intermediates,
			CurrentTime:   now,
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		}
		if _, err := pc.signing.Verify(opts); err != nil {
			return reject(CertificateUntrusted, err)
		}
	}

	return nil
}
