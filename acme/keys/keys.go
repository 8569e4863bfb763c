// Package keys offers utility functions for working with crypto.Signers,
// JWKs, key authorizations and PEM serialization.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"

	jose "github.com/go-jose/go-jose/v4"
)

// SigAlgForSigner returns the JWS signature algorithm matching the signer's
// key type.
func SigAlgForSigner(signer crypto.Signer) jose.SignatureAlgorithm {
	switch signer.(type) {
	case *ecdsa.PrivateKey:
		return jose.ES256
	case *rsa.PrivateKey:
		return jose.RS256
	}
	return "unknown"
}

// JWKForSigner returns the public JWK for the signer's keypair.
func JWKForSigner(signer crypto.Signer) jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       signer.Public(),
		Algorithm: string(SigAlgForSigner(signer)),
	}
}

// SigningKeyForSigner wraps the private key as a jose.SigningKey. A non-empty
// keyID selects the JWS "kid" protected header form.
func SigningKeyForSigner(signer crypto.Signer, keyID string) jose.SigningKey {
	jwk := jose.JSONWebKey{
		Key:       signer,
		Algorithm: string(SigAlgForSigner(signer)),
		KeyID:     keyID,
	}
	return jose.SigningKey{
		Key:       jwk,
		Algorithm: SigAlgForSigner(signer),
	}
}

// JWKThumbprintBytes computes the RFC 7638 SHA-256 thumbprint of the
// signer's public JWK.
func JWKThumbprintBytes(signer crypto.Signer) []byte {
	jwk := JWKForSigner(signer)
	thumbBytes, _ := jwk.Thumbprint(crypto.SHA256)
	return thumbBytes
}

// JWKThumbprint returns the base64url encoding of the JWK thumbprint.
func JWKThumbprint(signer crypto.Signer) string {
	return base64.RawURLEncoding.EncodeToString(JWKThumbprintBytes(signer))
}

// KeyAuthorization computes the key authorization binding a challenge token
// to the account key: token "." thumbprint.
//
// See https://tools.ietf.org/html/rfc8555#section-8.1
func KeyAuthorization(signer crypto.Signer, token string) string {
	return fmt.Sprintf("%s.%s", token, JWKThumbprint(signer))
}

// DNS01KeyAuthorization computes the provisioning value for a dns-01
// challenge: the base64url SHA-256 digest of the key authorization.
//
// See https://tools.ietf.org/html/rfc8555#section-8.4
func DNS01KeyAuthorization(signer crypto.Signer, token string) string {
	digest := sha256.Sum256([]byte(KeyAuthorization(signer, token)))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}

// NewSigner generates a fresh private key of the given type ("ecdsa" for
// P-256, "rsa" for 2048 bit).
func NewSigner(keyType string) (crypto.Signer, error) {
	var randKey crypto.Signer
	var err error
	switch keyType {
	case "ecdsa":
		randKey, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case "rsa":
		randKey, err = rsa.GenerateKey(rand.Reader, 2048)
	default:
		err = fmt.Errorf("unknown key type: %q", keyType)
	}
	if err != nil {
		return nil, err
	}
	return randKey, nil
}

// SignerToPEM serializes the private key as a PEM block.
func SignerToPEM(signer crypto.Signer) ([]byte, error) {
	var keyBytes []byte
	var keyHeader string
	var err error
	switch k := signer.(type) {
	case *ecdsa.PrivateKey:
		keyBytes, err = x509.MarshalECPrivateKey(k)
		keyHeader = "EC PRIVATE KEY"
	case *rsa.PrivateKey:
		keyBytes = x509.MarshalPKCS1PrivateKey(k)
		keyHeader = "RSA PRIVATE KEY"
	default:
		err = fmt.Errorf("unknown key type: %T", k)
	}
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  keyHeader,
		Bytes: keyBytes,
	}), nil
}

// ParseSignerPEM parses a PEM-encoded EC or RSA private key.
func ParseSignerPEM(pemBytes []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}
	return nil, fmt.Errorf("unknown PEM block type %q", block.Type)
}

// LoadSigner reads a PEM-encoded private key from path.
func LoadSigner(path string) (crypto.Signer, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSignerPEM(pemBytes)
}

// SaveSigner writes the private key to path as PEM with the given mode.
func SaveSigner(path string, signer crypto.Signer, mode os.FileMode) error {
	pemBytes, err := SignerToPEM(signer)
	if err != nil {
		return err
	}
	return os.WriteFile(path, pemBytes, mode)
}

// CertificateDERFromPEM extracts the DER bytes of the first CERTIFICATE
// block in pemBytes.
func CertificateDERFromPEM(pemBytes []byte) ([]byte, error) {
	for block, rest := pem.Decode(pemBytes); block != nil; block, rest = pem.Decode(rest) {
		if block.Type == "CERTIFICATE" {
			return block.Bytes, nil
		}
	}
	return nil, fmt.Errorf("no CERTIFICATE block found")
}

// ParseCertificatePEM parses the first certificate of a PEM chain.
func ParseCertificatePEM(pemBytes []byte) (*x509.Certificate, error) {
	der, err := CertificateDERFromPEM(pemBytes)
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(der)
}
