// Package webhook verifies the authenticity of inbound payment notifications
// against the processor's cached signing certificate.
package webhook

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"strings"

	"github.com/finbridge/binancepay-gateway/internal/domain"
)

// Signature headers carried by webhook requests. Lookups go through
// http.Header.Get, so sender casing does not matter.
const (
	HeaderCertificateSN = "BinancePay-Certificate-SN"
	HeaderNonce         = "BinancePay-Nonce"
	HeaderTimestamp     = "BinancePay-Timestamp"
	HeaderSignature     = "BinancePay-Signature"
)

// Verify reports whether a webhook request is authentic: all four signature
// headers present, the certificate serial matching the cached one, and the
// signature verifying over the canonical payload with the cached public key
// (RSA PKCS#1 v1.5, SHA-256 digest).
//
// It is a pure local check with no network calls, and it fails closed without
// reporting which check failed.
func Verify(headers http.Header, rawBody []byte, cert *domain.Certificate) bool {
	if cert == nil {
		return false
	}

	serial := headers.Get(HeaderCertificateSN)
	nonce := headers.Get(HeaderNonce)
	timestamp := headers.Get(HeaderTimestamp)
	signature := headers.Get(HeaderSignature)
	if serial == "" || nonce == "" || timestamp == "" || signature == "" {
		return false
	}

	// A serial mismatch means the cached certificate is stale; the processor
	// rotated it and a refetch is needed out-of-band.
	if serial != cert.Serial {
		return false
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	pub, err := parsePublicKey(cert.PublicKey)
	if err != nil {
		return false
	}

	payload := timestamp + "\n" + nonce + "\n" + string(rawBody) + "\n"
	digest := sha256.Sum256([]byte(payload))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil
}

// parsePublicKey accepts the certificate key material as PEM or as bare
// base64 DER, the two forms the processor has been seen to return.
func parsePublicKey(material string) (*rsa.PublicKey, error) {
	var der []byte
	if block, _ := pem.Decode([]byte(material)); block != nil {
		der = block.Bytes
	} else {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(material))
		if err != nil {
			return nil, fmt.Errorf("certificate public key is neither PEM nor base64 DER")
		}
		der = decoded
	}

	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unsupported public key type %T", key)
	}
	return rsaKey, nil
}
