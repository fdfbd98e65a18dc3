// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

package keystore

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyConflict is returned if keys are attempted to be generated for a node
	// that already has some, without explicitly requesting an override.
	ErrKeyConflict = errors.New("keys already exist")

	// ErrBackendMismatch is returned if keys are attempted to be generated with
	// one backend, but the node's home already contains the artifacts of the
	// other one.
	ErrBackendMismatch = errors.New("key store backend mismatch")

	// ErrKeyMismatch is returned if the secret and public key files of a node
	// do not belong to the same key.
	ErrKeyMismatch = errors.New("secret and public keys mismatch")

	// ErrIOFailure is matched by every error originating from the filesystem.
	ErrIOFailure = errors.New("key store io failure")
)

// IOError is a filesystem failure annotated with the operation and path that
// caused it.
type IOError struct {
	Op   string // Operation that failed (mkdir, write, read, ...)
	Path string // Path the operation was acting upon
	Err  error  // Underlying error from the os package
}

// Error implements error.
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying filesystem error.
func (e *IOError) Unwrap() error { return e.Err }

// Is makes every IOError match ErrIOFailure.
func (e *IOError) Is(target error) bool { return target == ErrIOFailure }
