// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

// Package keyboot manages the cryptographic identity of the nodes of a
// permissioned network: generating their keys, checking whether they are
// provisioned and distributing the public halves between them so that they can
// authenticate each other before any consensus traffic flows.
package keyboot

import (
	"github.com/coronanet/go-keyboot/keys"
	"github.com/coronanet/go-keyboot/keystore"
	"github.com/coronanet/go-keyboot/layout"
	"github.com/coronanet/go-keyboot/params"
	"github.com/ethereum/go-ethereum/log"
)

// Config can be used to fine tune the key manager.
type Config struct {
	UseCertDir bool       // Whether to store keys in role segregated certificate directories
	Logger     log.Logger // Logger to allow injecting pre-existing context
}

// Manager generates, checks and distributes node keys. The storage backend is
// picked once on construction and never changes afterwards.
type Manager struct {
	backend keystore.Backend
	logger  log.Logger
}

// New creates a key manager with the backend selected by the config.
func New(config Config) *Manager {
	logger := config.Logger
	if logger == nil {
		logger = log.Root()
	}
	kind := layout.LocalKeep
	if config.UseCertDir {
		kind = layout.CertDir
	}
	return &Manager{
		backend: keystore.New(kind, logger),
		logger:  logger,
	}
}

// Kind returns the storage layout the manager operates on.
func (m *Manager) Kind() layout.Kind {
	return m.backend.Kind()
}

// InitKeys generates the keys of a node within a base directory, or derives
// them from a seed if one is given. If keys already exist, the call fails with
// keystore.ErrKeyConflict unless override is set, in which case all previous
// key material of the node is replaced.
func (m *Manager) InitKeys(name string, baseDir string, seed []byte, override bool) (keys.PublicKey, keys.VerifyKey, error) {
	pubkey, verkey, err := m.backend.Generate(layout.NewHome(baseDir, name), seed, override)
	if err != nil {
		return nil, nil, err
	}
	m.logger.Info("Public key is", "node", name, "pubkey", pubkey)
	m.logger.Info("Verification key is", "node", name, "verkey", verkey)
	return pubkey, verkey, nil
}

// InitNodeKeys generates the keys of both stacks of a node: the node facing one
// named after the node, and the client facing one with the client suffix. Both
// are derived from the same seed. Either both stacks end up provisioned, or
// neither does.
func (m *Manager) InitNodeKeys(name string, baseDir string, seed []byte, override bool) (*PoolNode, error) {
	stacks := []string{name, name + params.ClientStackSuffix}

	// Refuse upfront if either stack would be rejected
	for _, stack := range stacks {
		if err := m.backend.Check(layout.NewHome(baseDir, stack), override); err != nil {
			return nil, err
		}
	}
	node := &PoolNode{}
	for i, stack := range stacks {
		pubkey, verkey, err := m.InitKeys(stack, baseDir, seed, override)
		if err != nil {
			// The failed stack cleaned up after itself, drop the ones before it
			for _, done := range stacks[:i] {
				if derr := m.backend.Discard(layout.NewHome(baseDir, done)); derr != nil {
					m.logger.Error("Failed to discard stack keys", "node", done, "err", derr)
				}
			}
			return nil, err
		}
		identity := Stack{
			Identity: Identity{Name: stack, PublicKey: pubkey, VerifyKey: verkey},
			Home:     layout.NewHome(baseDir, stack),
		}
		if i == 0 {
			node.Node = identity
		} else {
			node.Client = identity
		}
	}
	return node, nil
}

// AreKeysSetup reports whether the keys of a node are fully provisioned within
// a base directory. It never fails and has no side effects.
func (m *Manager) AreKeysSetup(name string, baseDir string) bool {
	home := layout.NewHome(baseDir, name)
	if m.backend.IsProvisioned(home) {
		return true
	}
	for _, kind := range keystore.Detect(home) {
		if kind != m.backend.Kind() {
			m.logger.Warn("Node has keys of different backend", "node", name, "have", kind, "want", m.backend.Kind())
		}
	}
	return false
}

// Identity loads the public identity of an already provisioned node.
func (m *Manager) Identity(name string, baseDir string) (Identity, error) {
	pubkey, verkey, err := m.backend.Load(layout.NewHome(baseDir, name))
	if err != nil {
		return Identity{}, err
	}
	return Identity{Name: name, PublicKey: pubkey, VerifyKey: verkey}, nil
}

// SigningKey loads the signing key of an already provisioned node, checking that
// it matches the node's public identity.
func (m *Manager) SigningKey(name string, baseDir string) (keys.SigningKey, error) {
	return m.backend.LoadSigningKey(layout.NewHome(baseDir, name))
}

// LoadNode loads both stacks of an already provisioned node.
func (m *Manager) LoadNode(name string, baseDir string) (*PoolNode, error) {
	nodeID, err := m.Identity(name, baseDir)
	if err != nil {
		return nil, err
	}
	client := name + params.ClientStackSuffix

	clientID, err := m.Identity(client, baseDir)
	if err != nil {
		return nil, err
	}
	return &PoolNode{
		Node:   Stack{Identity: nodeID, Home: layout.NewHome(baseDir, name)},
		Client: Stack{Identity: clientID, Home: layout.NewHome(baseDir, client)},
	}, nil
}
