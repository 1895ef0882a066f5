/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package updatepackage

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

// ErrInvalidSignature marks a signature that fails RSA-SHA256 verification.
var ErrInvalidSignature = errors.New("invalid signature")

// ErrDecodeSignature marks a signature string that is not valid base64.
var ErrDecodeSignature = errors.New("failed to decode signature")

// Signature is an RSA-SHA256 signature over the manifest bytes.
type Signature struct {
	raw []byte
}

// SignatureFromBase64 decodes s into a Signature.
func SignatureFromBase64(s string) (Signature, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %s", ErrDecodeSignature, err)
	}
	return Signature{raw: raw}, nil
}

// Validate verifies the signature against pkg's exact manifest bytes using
// the PEM-encoded RSA public key pubKeyPEM.
func (s Signature) Validate(pubKeyPEM []byte, pkg *UpdatePackage) error {
	block, _ := pem.Decode(pubKeyPEM)
	if block == nil {
		return fmt.Errorf("%w: no PEM block found in public key", ErrInvalidSignature)
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("%w: parsing public key: %s", ErrInvalidSignature, err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: public key is not RSA", ErrInvalidSignature)
	}

	digest := sha256.Sum256(pkg.RawBytes())
	if err := rsa.VerifyPKCS1v15(rsaPub, crypto.SHA256, digest[:], s.raw); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	return nil
}
