// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

// Package params contains constants relevant to all subsystems.
package params

import "os"

const (
	// VerifKeysDir is the directory within a node's home containing the Ed25519
	// verification keys of the node itself and all its trusted peers.
	VerifKeysDir = "verif"

	// PublicKeysDir is the directory within a node's home containing the X25519
	// public keys of the node itself and all its trusted peers.
	PublicKeysDir = "public"

	// SigKeysDir is the directory within a node's home containing the node's own
	// Ed25519 signing key. Nobody else's key is ever stored here.
	SigKeysDir = "sig"

	// SecretKeysDir is the directory within a node's home containing the node's
	// own X25519 secret key. Nobody else's key is ever stored here.
	SecretKeysDir = "secret"

	// KeepDir is the directory within a node's home used by the single file local
	// keep backend.
	KeepDir = "keep"

	// KeepPrivateDir is the restricted sub-directory of the keep holding the
	// combined secret record.
	KeepPrivateDir = "private"
)

const (
	// PublicKeySuffix is the file extension of certificates holding public data.
	PublicKeySuffix = ".key"

	// SecretKeySuffix is the file extension of certificates holding secret data.
	SecretKeySuffix = ".key_secret"

	// KeepPublicFile is the name of the local keep's public record.
	KeepPublicFile = "public.json"

	// KeepSecretFile is the name of the local keep's secret record.
	KeepSecretFile = "secret.json"
)

const (
	// ClientStackSuffix is appended to a node's name to derive the name of its
	// client facing stack.
	ClientStackSuffix = "C"
)

const (
	// PublicDirMode is the permission set of directories holding public keys.
	PublicDirMode os.FileMode = 0755

	// PublicFileMode is the permission set of files holding public keys.
	PublicFileMode os.FileMode = 0644

	// SecretDirMode is the permission set of directories holding secret keys.
	SecretDirMode os.FileMode = 0700

	// SecretFileMode is the permission set of files holding secret keys.
	SecretFileMode os.FileMode = 0600
)
