package skillauth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	testCAKey   *rsa.PrivateKey
)

func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	testKeyOnce.Do(func() {
		var err error
		if testKey, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic(err)
		}
		if testCAKey, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic(err)
		}
	})
	return testKey, testCAKey
}

var testNow = time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)

type certOptions struct {
	dnsNames  []string
	notBefore time.Time
	notAfter  time.Time
	isCA      bool
	parent    *x509.Certificate
	parentKey *rsa.PrivateKey
	key       *rsa.PrivateKey
}

func defaultCertOptions() certOptions {
	return certOptions{
		dnsNames:  []string{DefaultServiceDomain},
		notBefore: testNow.Add(-24 * time.Hour),
		notAfter:  testNow.Add(30 * 24 * time.Hour),
	}
}

func newCertificate(t *testing.T, opts certOptions) (*x509.Certificate, []byte) {
	t.Helper()
	key, _ := testKeys(t)
	if opts.key != nil {
		key = opts.key
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: "echo-api.amazon.com"},
		NotBefore:             opts.notBefore,
		NotAfter:              opts.notAfter,
		DNSNames:              opts.dnsNames,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  opts.isCA,
	}
	if opts.isCA {
		template.Subject = pkix.Name{CommonName: "Test Root CA"}
		template.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature
	}

	parent, parentKey := template, key
	if opts.parent != nil {
		parent, parentKey = opts.parent, opts.parentKey
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, parentKey)
	require.NoError(t, err)
	certificate, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return certificate, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func sign(t *testing.T, body []byte, hash crypto.Hash) string {
	t.Helper()
	key, _ := testKeys(t)
	if hash == 0 {
		hash = crypto.SHA1
	}
	h := hash.New()
	h.Write(body)
	signature, err := rsa.SignPKCS1v15(rand.Reader, key, hash, h.Sum(nil))
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(signature)
}
