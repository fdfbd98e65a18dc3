// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

// Package layout computes where the key material of a node lives on disk. It is
// pure: nothing in here touches the filesystem.
package layout

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/coronanet/go-keyboot/params"
)

// ErrInvalidName is returned if a node name cannot be safely mapped to a path.
var ErrInvalidName = errors.New("invalid node name")

// Kind is the storage strategy of a key store.
type Kind int

const (
	// LocalKeep stores all key material of a node in a single keep, one public
	// and one combined secret record.
	LocalKeep Kind = iota

	// CertDir stores key material as certificates in four role segregated
	// directories: verification, public, signing and secret.
	CertDir
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case LocalKeep:
		return "keep"
	case CertDir:
		return "certdir"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ValidateName checks that a node name is usable as a single path component.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains path separator", ErrInvalidName, name)
	}
	return nil
}

// Home is the key store home directory of a single named stack within a base
// directory shared by many.
type Home struct {
	Base string // Base directory shared by all nodes of a pool
	Name string // Name of the node (or stack) owning this home
}

// NewHome creates a home for a node within a base directory.
func NewHome(base string, name string) Home {
	return Home{Base: base, Name: name}
}

// Dir returns the home directory itself.
func (h Home) Dir() string { return filepath.Join(h.Base, h.Name) }

// VerifDir returns the directory holding verification key certificates.
func (h Home) VerifDir() string { return filepath.Join(h.Dir(), params.VerifKeysDir) }

// PublicDir returns the directory holding public key certificates.
func (h Home) PublicDir() string { return filepath.Join(h.Dir(), params.PublicKeysDir) }

// SigDir returns the directory holding the own signing key.
func (h Home) SigDir() string { return filepath.Join(h.Dir(), params.SigKeysDir) }

// SecretDir returns the directory holding the own secret key.
func (h Home) SecretDir() string { return filepath.Join(h.Dir(), params.SecretKeysDir) }

// KeepDir returns the directory of the single file local keep.
func (h Home) KeepDir() string { return filepath.Join(h.Dir(), params.KeepDir) }

// PrivateDir returns the restricted directory of the local keep.
func (h Home) PrivateDir() string { return filepath.Join(h.KeepDir(), params.KeepPrivateDir) }

// KeepPublic returns the path of the local keep's public record.
func (h Home) KeepPublic() string { return filepath.Join(h.KeepDir(), params.KeepPublicFile) }

// KeepSecret returns the path of the local keep's secret record.
func (h Home) KeepSecret() string { return filepath.Join(h.PrivateDir(), params.KeepSecretFile) }

// Cert returns the path of a peer's public certificate within a directory.
func Cert(dir string, peer string) string {
	return filepath.Join(dir, peer+params.PublicKeySuffix)
}

// SecretCert returns the path of a secret certificate within a directory.
func SecretCert(dir string, name string) string {
	return filepath.Join(dir, name+params.SecretKeySuffix)
}

// Target is a single file to be written when generating keys, along with
// whether it contains secret material.
type Target struct {
	Path   string
	Secret bool
}

// Targets returns the files a backend of the given kind writes when generating
// the home owner's keys. Public files come first.
func Targets(home Home, kind Kind) []Target {
	switch kind {
	case CertDir:
		return []Target{
			{Path: Cert(home.VerifDir(), home.Name)},
			{Path: Cert(home.PublicDir(), home.Name)},
			{Path: SecretCert(home.SigDir(), home.Name), Secret: true},
			{Path: SecretCert(home.SecretDir(), home.Name), Secret: true},
		}
	default:
		return []Target{
			{Path: home.KeepPublic()},
			{Path: home.KeepSecret(), Secret: true},
		}
	}
}

// Required returns the files that all need to exist for the home owner's keys
// to be considered provisioned.
func Required(home Home, kind Kind) []string {
	targets := Targets(home, kind)

	paths := make([]string, len(targets))
	for i, target := range targets {
		paths[i] = target.Path
	}
	return paths
}

// Dirs returns the directories a backend of the given kind needs, along with
// whether they hold secret material.
func Dirs(home Home, kind Kind) []Target {
	switch kind {
	case CertDir:
		return []Target{
			{Path: home.VerifDir()},
			{Path: home.PublicDir()},
			{Path: home.SigDir(), Secret: true},
			{Path: home.SecretDir(), Secret: true},
		}
	default:
		return []Target{
			{Path: home.KeepDir()},
			{Path: home.PrivateDir(), Secret: true},
		}
	}
}
