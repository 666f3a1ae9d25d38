package jwtx

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// Signer produces signed JWTs under a single private key.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	PublicJWK() JWK
	Validate() error
}

// NewSignerEdDSA builds an Ed25519 signer from a PKCS8 PEM key.
func NewSignerEdDSA(kid string, pemKey []byte) (Signer, error) {
	return newEdDSASigner(kid, pemKey)
}

// NewSignerES256 builds an ECDSA P-256 signer from a PKCS8 PEM key.
func NewSignerES256(kid string, pemKey []byte) (Signer, error) {
	return newES256Signer(kid, pemKey)
}

// NewSignerRS256 builds an RSA signer from a PKCS1 or PKCS8 PEM key.
func NewSignerRS256(kid string, pemKey []byte) (Signer, error) {
	return newRS256Signer(kid, pemKey)
}

// parsePKCS8 decodes a PEM block and parses the PKCS8 key inside it.
// Callers type-assert the result to the key type they expect.
func parsePKCS8(pemKey []byte) (any, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: key is not valid PEM")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("jwtx: want PKCS8 PRIVATE KEY block, got %q", block.Type)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}
	return key, nil
}
