// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

package keystore

import (
	"fmt"

	"github.com/coronanet/go-keyboot/keys"
	"github.com/coronanet/go-keyboot/layout"
)

// CertDirBackend stores the keys of a node as certificates segregated into four
// role directories within the node's home:
//
//	verif/<name>.key          verification key
//	public/<name>.key         public key
//	sig/<name>.key_secret     signing key
//	secret/<name>.key_secret  secret key
//
// Certificates of peers are written next to the owner's public ones.
type CertDirBackend struct {
	store
}

// Generate implements Backend, creating the role directories and writing the
// owner's four certificates into them.
func (b *CertDirBackend) Generate(home layout.Home, seed []byte, override bool) (keys.PublicKey, keys.VerifyKey, error) {
	return b.generate(home, seed, override, func(home layout.Home, key keys.SigningKey) ([]artifact, error) {
		secret := key.Secret()
		public, err := secret.Public()
		if err != nil {
			return nil, err
		}
		verkey := key.Verify()

		targets := layout.Targets(home, layout.CertDir)
		return []artifact{
			{Target: targets[0], blob: keys.EncodeCertificate(verkey)},
			{Target: targets[1], blob: keys.EncodeCertificate(public)},
			{Target: targets[2], blob: keys.EncodeSecretCertificate(verkey, key)},
			{Target: targets[3], blob: keys.EncodeSecretCertificate(public, secret)},
		}, nil
	})
}

// Load implements Backend, reading the owner's public certificates.
func (b *CertDirBackend) Load(home layout.Home) (keys.PublicKey, keys.VerifyKey, error) {
	if err := layout.ValidateName(home.Name); err != nil {
		return nil, nil, err
	}
	path := layout.Cert(home.VerifDir(), home.Name)
	verkey, _, err := keys.LoadCertificate(path)
	if err != nil {
		return nil, nil, &IOError{Op: "read", Path: path, Err: err}
	}
	path = layout.Cert(home.PublicDir(), home.Name)
	pubkey, _, err := keys.LoadCertificate(path)
	if err != nil {
		return nil, nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return keys.PublicKey(pubkey), keys.VerifyKey(verkey), nil
}

// LoadSigningKey implements Backend, reading the owner's signing certificate.
func (b *CertDirBackend) LoadSigningKey(home layout.Home) (keys.SigningKey, error) {
	pubkey, verkey, err := b.Load(home)
	if err != nil {
		return nil, err
	}
	path := layout.SecretCert(home.SigDir(), home.Name)
	_, secret, err := keys.LoadCertificate(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	if secret == nil {
		return nil, fmt.Errorf("%w: %s: missing secret key", keys.ErrInvalidCertificate, path)
	}
	key, err := keys.GenerateSigningKey(secret)
	if err != nil {
		return nil, err
	}
	if err := matchSigningKey(key, pubkey, verkey); err != nil {
		return nil, err
	}
	return key, nil
}
