// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

package keys

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// KeepPublic is the public record of the single file local keep.
type KeepPublic struct {
	Name      string `json:"name"`
	VerifyKey string `json:"verkey"`
	PublicKey string `json:"pubkey"`
}

// KeepSecret is the secret record of the single file local keep. It combines
// both secrets of a node: the signing seed and the encryption key derived from
// it.
type KeepSecret struct {
	Name       string `json:"name"`
	SigningKey string `json:"sigkey"`
	SecretKey  string `json:"prikey"`
}

// NewKeepRecords assembles the two local keep records of a node.
func NewKeepRecords(name string, key SigningKey) (*KeepPublic, *KeepSecret, error) {
	secret := key.Secret()
	public, err := secret.Public()
	if err != nil {
		return nil, nil, err
	}
	pub := &KeepPublic{
		Name:      name,
		VerifyKey: key.Verify().String(),
		PublicKey: public.String(),
	}
	sec := &KeepSecret{
		Name:       name,
		SigningKey: hex.EncodeToString(key),
		SecretKey:  hex.EncodeToString(secret),
	}
	return pub, sec, nil
}

// DecodeKeepPublic parses a keep's public record.
func DecodeKeepPublic(blob []byte) (VerifyKey, PublicKey, error) {
	rec := new(KeepPublic)
	if err := json.Unmarshal(blob, rec); err != nil {
		return nil, nil, err
	}
	verkey, err := ParseVerifyKey(rec.VerifyKey)
	if err != nil {
		return nil, nil, err
	}
	pubkey, err := ParsePublicKey(rec.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	return verkey, pubkey, nil
}

// DecodeKeepSecret parses a keep's secret record, checking that the stored
// encryption secret matches the one derived from the signing key.
func DecodeKeepSecret(blob []byte) (SigningKey, error) {
	rec := new(KeepSecret)
	if err := json.Unmarshal(blob, rec); err != nil {
		return nil, err
	}
	seed, err := hex.DecodeString(rec.SigningKey)
	if err != nil {
		return nil, err
	}
	key, err := GenerateSigningKey(seed)
	if err != nil {
		return nil, err
	}
	if hex.EncodeToString(key.Secret()) != rec.SecretKey {
		return nil, errors.New("keep secret key mismatch")
	}
	return key, nil
}

// Marshal is a tiny helper to pretty print keep records.
func Marshal(rec interface{}) ([]byte, error) {
	blob, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode keep record: %w", err)
	}
	return blob, nil
}
