// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

// Package keystore persists the key material of nodes on disk. There are exactly
// two storage backends, a single file local keep and a role segregated
// certificate directory; both share the same contract.
package keystore

import (
	"bytes"
	"os"

	"github.com/coronanet/go-keyboot/keys"
	"github.com/coronanet/go-keyboot/layout"
	"github.com/coronanet/go-keyboot/params"
	"github.com/ethereum/go-ethereum/log"
	"github.com/facebookgo/atomicfile"
	"go.uber.org/multierr"
)

// Backend is a storage strategy for node key material. The set of backends is
// closed: LocalKeepBackend and CertDirBackend.
type Backend interface {
	// Kind returns the layout the backend stores keys in.
	Kind() layout.Kind

	// Generate creates (or derives from seed) the keys of the home's owner and
	// persists them. Existing keys are only replaced if override is set.
	Generate(home layout.Home, seed []byte, override bool) (keys.PublicKey, keys.VerifyKey, error)

	// Check reports whether Generate would be allowed to write into a home,
	// without touching the filesystem.
	Check(home layout.Home, override bool) error

	// Discard removes every key file of the home's owner. Peer certificates
	// are left alone.
	Discard(home layout.Home) error

	// IsProvisioned reports whether every file of the owner's key set exists.
	// It never fails, missing or unreadable artifacts simply yield false.
	IsProvisioned(home layout.Home) bool

	// Load reads back the public identifiers of an already provisioned owner.
	Load(home layout.Home) (keys.PublicKey, keys.VerifyKey, error)

	// LoadSigningKey reads back the signing key of an already provisioned owner,
	// checking it against the owner's public identifiers.
	LoadSigningKey(home layout.Home) (keys.SigningKey, error)

	// WriteCertificate atomically stores a peer's public value in a directory,
	// creating the directory if needed and replacing any previous certificate.
	WriteCertificate(dir string, peer string, key []byte) error

	sealed()
}

// New creates the backend of the requested kind.
func New(kind layout.Kind, logger log.Logger) Backend {
	if logger == nil {
		logger = log.Root()
	}
	if kind == layout.CertDir {
		return &CertDirBackend{store{kind: kind, logger: logger}}
	}
	return &LocalKeepBackend{store{kind: kind, logger: logger}}
}

// Detect returns the kinds of backends that have left any of the home owner's
// key artifacts on disk.
func Detect(home layout.Home) []layout.Kind {
	var kinds []layout.Kind
	for _, kind := range []layout.Kind{layout.LocalKeep, layout.CertDir} {
		for _, path := range layout.Required(home, kind) {
			if exists(path) {
				kinds = append(kinds, kind)
				break
			}
		}
	}
	return kinds
}

// artifact is a file to be written during key generation.
type artifact struct {
	layout.Target
	blob []byte
}

// store is the logic shared between the backends. Backends only differ in the
// artifacts they produce and parse.
type store struct {
	kind   layout.Kind
	logger log.Logger
}

// Kind implements Backend, returning the layout the backend stores keys in.
func (s *store) Kind() layout.Kind { return s.kind }

func (s *store) sealed() {}

// IsProvisioned implements Backend, checking that all required files exist. The
// contents are deliberately not checked.
func (s *store) IsProvisioned(home layout.Home) bool {
	if layout.ValidateName(home.Name) != nil {
		return false
	}
	for _, path := range layout.Required(home, s.kind) {
		if !exists(path) {
			return false
		}
	}
	return true
}

// WriteCertificate implements Backend, storing a peer's public value.
func (s *store) WriteCertificate(dir string, peer string, key []byte) error {
	if err := layout.ValidateName(peer); err != nil {
		return err
	}
	if err := ensureDir(dir, false); err != nil {
		return err
	}
	return writeFile(layout.Cert(dir, peer), keys.EncodeCertificate(key), false)
}

// Check implements Backend, refusing homes that already hold the owner's keys
// or the other backend's keys, unless override is set.
func (s *store) Check(home layout.Home, override bool) error {
	if err := layout.ValidateName(home.Name); err != nil {
		return err
	}
	logger := s.logger.New("node", home.Name, "backend", s.kind)

	for _, path := range layout.Required(home, s.kind) {
		if exists(path) && !override {
			logger.Warn("Keys already exist, refusing to overwrite")
			return ErrKeyConflict
		}
	}
	for _, kind := range Detect(home) {
		if kind == s.kind {
			continue
		}
		if !override {
			logger.Warn("Home contains keys of other backend", "other", kind)
			return ErrBackendMismatch
		}
		logger.Warn("Overriding keys of other backend", "other", kind)
	}
	return nil
}

// Discard implements Backend, removing all the owner's key files.
func (s *store) Discard(home layout.Home) error {
	if err := layout.ValidateName(home.Name); err != nil {
		return err
	}
	var errs error
	for _, target := range layout.Targets(home, s.kind) {
		if err := os.Remove(target.Path); err != nil && !os.IsNotExist(err) {
			errs = multierr.Append(errs, &IOError{Op: "remove", Path: target.Path, Err: err})
		}
	}
	return errs
}

// generate runs the backend independent part of key generation: conflict and
// mismatch detection, directory creation, writing the artifacts and cleaning up
// after a failure.
func (s *store) generate(home layout.Home, seed []byte, override bool, build func(layout.Home, keys.SigningKey) ([]artifact, error)) (keys.PublicKey, keys.VerifyKey, error) {
	if err := s.Check(home, override); err != nil {
		return nil, nil, err
	}
	logger := s.logger.New("node", home.Name, "backend", s.kind)

	// Generate the keys and assemble the files to write
	key, err := keys.GenerateSigningKey(seed)
	if err != nil {
		return nil, nil, err
	}
	secret := key.Secret()
	public, err := secret.Public()
	if err != nil {
		return nil, nil, err
	}
	artifacts, err := build(home, key)
	if err != nil {
		return nil, nil, err
	}
	for _, dir := range layout.Dirs(home, s.kind) {
		if err := ensureDir(dir.Path, dir.Secret); err != nil {
			return nil, nil, err
		}
	}
	for _, art := range artifacts {
		if err := writeFile(art.Path, art.blob, art.Secret); err != nil {
			// Either nothing existed, or the override discarded it. Either way
			// a partial key set must not be left behind.
			s.Discard(home)
			logger.Error("Failed to persist keys", "err", err)
			return nil, nil, err
		}
	}
	verkey := key.Verify()
	logger.Debug("Persisted node keys", "verkey", verkey.Fingerprint(), "pubkey", public.Fingerprint())
	return public, verkey, nil
}

// matchSigningKey checks that a signing key belongs to the public identifiers
// stored next to it.
func matchSigningKey(key keys.SigningKey, pubkey keys.PublicKey, verkey keys.VerifyKey) error {
	if !bytes.Equal(key.Verify(), verkey) {
		return ErrKeyMismatch
	}
	public, err := key.Secret().Public()
	if err != nil {
		return err
	}
	if !bytes.Equal(public, pubkey) {
		return ErrKeyMismatch
	}
	return nil
}

// exists reports whether a regular file exists at path.
func exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// ensureDir creates a directory (and its parents) if it does not exist yet. The
// permissions of secret directories are tightened even if they already exist.
func ensureDir(dir string, secret bool) error {
	mode := params.PublicDirMode
	if secret {
		mode = params.SecretDirMode
	}
	if err := os.MkdirAll(dir, mode); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	if secret {
		if err := os.Chmod(dir, mode); err != nil {
			return &IOError{Op: "chmod", Path: dir, Err: err}
		}
	}
	return nil
}

// writeFile atomically replaces the contents of a file. Readers either see the
// old contents or the new, never a partial write.
func writeFile(path string, blob []byte, secret bool) error {
	mode := params.PublicFileMode
	if secret {
		mode = params.SecretFileMode
	}
	file, err := atomicfile.New(path, mode)
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	if _, err := file.Write(blob); err != nil {
		file.Abort()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// PrepareCertDirs creates the home of a node along with the two directories that
// hold the certificates of its peers. Existing directories are left alone.
func PrepareCertDirs(home layout.Home) error {
	if err := layout.ValidateName(home.Name); err != nil {
		return err
	}
	for _, dir := range []string{home.Dir(), home.VerifDir(), home.PublicDir()} {
		if err := ensureDir(dir, false); err != nil {
			return err
		}
	}
	return nil
}
