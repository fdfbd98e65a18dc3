// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

package keys

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io/ioutil"
	"strings"
)

// ErrInvalidCertificate is returned if a certificate blob cannot be parsed.
var ErrInvalidCertificate = errors.New("invalid certificate")

const (
	certPublicField = "public-key"
	certSecretField = "secret-key"
)

// certHeader is prepended to every certificate written to disk.
const certHeader = `#   ****  Generated by go-keyboot  ****
#   Values are hex encoded. Files ending in .key_secret must never leave the
#   node they were generated on.

metadata
curve
`

// EncodeCertificate serializes a single public value into a certificate.
func EncodeCertificate(public []byte) []byte {
	buf := bytes.NewBufferString(certHeader)
	fmt.Fprintf(buf, "    %s = %q\n", certPublicField, hex.EncodeToString(public))
	return buf.Bytes()
}

// EncodeSecretCertificate serializes a public and matching secret value into a
// certificate.
func EncodeSecretCertificate(public []byte, secret []byte) []byte {
	buf := bytes.NewBuffer(EncodeCertificate(public))
	fmt.Fprintf(buf, "    %s = %q\n", certSecretField, hex.EncodeToString(secret))
	return buf.Bytes()
}

// DecodeCertificate parses a certificate, returning the public and, if present,
// the secret value. A certificate without a public value is invalid.
func DecodeCertificate(blob []byte) ([]byte, []byte, error) {
	var public, secret []byte

	scanner := bufio.NewScanner(bytes.NewReader(blob))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue // Section headers
		}
		field := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"`)

		switch field {
		case certPublicField:
			b, err := hex.DecodeString(value)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: public key: %v", ErrInvalidCertificate, err)
			}
			public = b
		case certSecretField:
			b, err := hex.DecodeString(value)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: secret key: %v", ErrInvalidCertificate, err)
			}
			secret = b
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if public == nil {
		return nil, nil, fmt.Errorf("%w: missing %s", ErrInvalidCertificate, certPublicField)
	}
	return public, secret, nil
}

// LoadCertificate reads and parses a certificate file.
func LoadCertificate(path string) ([]byte, []byte, error) {
	blob, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return DecodeCertificate(blob)
}
