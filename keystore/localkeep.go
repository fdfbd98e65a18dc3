// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

package keystore

import (
	"io/ioutil"

	"github.com/coronanet/go-keyboot/keys"
	"github.com/coronanet/go-keyboot/layout"
)

// LocalKeepBackend stores the keys of a node in a keep of two records: a public
// one with the verification and public keys, and a restricted one combining the
// signing and secret keys.
type LocalKeepBackend struct {
	store
}

// Generate implements Backend, writing the public and secret keep records.
func (b *LocalKeepBackend) Generate(home layout.Home, seed []byte, override bool) (keys.PublicKey, keys.VerifyKey, error) {
	return b.generate(home, seed, override, func(home layout.Home, key keys.SigningKey) ([]artifact, error) {
		pub, sec, err := keys.NewKeepRecords(home.Name, key)
		if err != nil {
			return nil, err
		}
		pubBlob, err := keys.Marshal(pub)
		if err != nil {
			return nil, err
		}
		secBlob, err := keys.Marshal(sec)
		if err != nil {
			return nil, err
		}
		targets := layout.Targets(home, layout.LocalKeep)
		return []artifact{
			{Target: targets[0], blob: pubBlob},
			{Target: targets[1], blob: secBlob},
		}, nil
	})
}

// Load implements Backend, reading the keep's public record.
func (b *LocalKeepBackend) Load(home layout.Home) (keys.PublicKey, keys.VerifyKey, error) {
	if err := layout.ValidateName(home.Name); err != nil {
		return nil, nil, err
	}
	blob, err := ioutil.ReadFile(home.KeepPublic())
	if err != nil {
		return nil, nil, &IOError{Op: "read", Path: home.KeepPublic(), Err: err}
	}
	verkey, pubkey, err := keys.DecodeKeepPublic(blob)
	if err != nil {
		return nil, nil, err
	}
	return pubkey, verkey, nil
}

// LoadSigningKey implements Backend, reading the keep's secret record.
func (b *LocalKeepBackend) LoadSigningKey(home layout.Home) (keys.SigningKey, error) {
	pubkey, verkey, err := b.Load(home)
	if err != nil {
		return nil, err
	}
	blob, err := ioutil.ReadFile(home.KeepSecret())
	if err != nil {
		return nil, &IOError{Op: "read", Path: home.KeepSecret(), Err: err}
	}
	key, err := keys.DecodeKeepSecret(blob)
	if err != nil {
		return nil, err
	}
	if err := matchSigningKey(key, pubkey, verkey); err != nil {
		return nil, err
	}
	return key, nil
}
