package skillauth

import (
	"crypto"
	"crypto/rsa"
	_ "crypto/sha1"
	_ "crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// VerifySignature checks an RSA PKCS#1 v1.5 signature over the raw body.
// hash defaults to SHA-1 (sha1WithRSAEncryption).
func VerifySignature(publicKey crypto.PublicKey, body []byte, signatureBase64 string, hash crypto.Hash) error {
	if hash == 0 {
		hash = crypto.SHA1
	}
	if !hash.Available() {
		return reject(SignatureInvalid, fmt.Errorf("hash %v is not available", hash))
	}

	signature, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signatureBase64))
	if err != nil {
		return reject(SignatureInvalid, fmt.Errorf("signature is not valid base64: %w", err))
	}
	if len(signature) == 0 {
		return reject(SignatureInvalid, fmt.Errorf("empty signature"))
	}

	key, ok := publicKey.(*rsa.PublicKey)
	if !ok {
		return reject(SignatureInvalid, fmt.Errorf("unsupported public key type %T", publicKey))
	}

	h := hash.New()
	h.Write(body)
	if err := rsa.VerifyPKCS1v15(key, hash, h.Sum(nil), signature); err != nil {
		return reject(SignatureInvalid, err)
	}
	return nil
}
