// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

package keyboot

import (
	"fmt"

	"github.com/coronanet/go-keyboot/keystore"
	"github.com/coronanet/go-keyboot/layout"
	"go.uber.org/multierr"
)

// DistributeCertificate writes the verification and public keys of an identity
// into the certificate directories of a key store home. Rewriting the same
// identity is a noop overwrite.
func (m *Manager) DistributeCertificate(from Identity, to layout.Home) error {
	if err := m.backend.WriteCertificate(to.VerifDir(), from.Name, from.VerifyKey); err != nil {
		return err
	}
	return m.backend.WriteCertificate(to.PublicDir(), from.Name, from.PublicKey)
}

// LearnKeysFromOthers makes a node trust all the stacks of a set of other nodes
// by storing their certificates in its own key store home.
func (m *Manager) LearnKeysFromOthers(baseDir string, name string, others []Node) error {
	home := layout.NewHome(baseDir, name)
	if err := keystore.PrepareCertDirs(home); err != nil {
		return err
	}
	logger := m.logger.New("node", name)

	var errs error
	for _, other := range others {
		for _, stack := range []Stack{other.NodeStack(), other.ClientStack()} {
			if err := m.DistributeCertificate(stack.Identity, home); err != nil {
				logger.Error("Failed to learn peer keys", "peer", stack.Name, "err", err)
				errs = multierr.Append(errs, fmt.Errorf("learn %s: %w", stack.Name, err))
				continue
			}
			logger.Debug("Learned peer keys", "peer", stack.Name, "verkey", stack.VerifyKey.Fingerprint())
		}
	}
	return errs
}

// TellKeysToOthers makes a set of other nodes trust a node by storing the node's
// certificates in their key store homes. The node facing stack is told to the
// node facing stacks and the client facing one to the client facing ones.
func (m *Manager) TellKeysToOthers(self Node, others []Node) error {
	logger := m.logger.New("node", self.NodeStack().Name)

	var errs error
	for _, other := range others {
		pairs := [][2]Stack{
			{self.NodeStack(), other.NodeStack()},
			{self.ClientStack(), other.ClientStack()},
		}
		for _, pair := range pairs {
			from, to := pair[0], pair[1]
			if err := m.DistributeCertificate(from.Identity, to.Home); err != nil {
				logger.Error("Failed to tell peer keys", "peer", to.Name, "err", err)
				errs = multierr.Append(errs, fmt.Errorf("tell %s: %w", to.Name, err))
				continue
			}
			logger.Debug("Told keys to peer", "stack", from.Name, "peer", to.Name)
		}
	}
	return errs
}

// Bootstrap runs the full mesh key exchange over a pool: every node learns the
// keys of every other one and tells its own keys to every other one.
func (m *Manager) Bootstrap(pool []Node) error {
	m.logger.Info("Bootstrapping pool trust", "nodes", len(pool))

	var errs error
	for i, self := range pool {
		others := make([]Node, 0, len(pool)-1)
		others = append(others, pool[:i]...)
		others = append(others, pool[i+1:]...)

		home := self.NodeStack().Home
		errs = multierr.Append(errs, m.LearnKeysFromOthers(home.Base, home.Name, others))
		errs = multierr.Append(errs, m.TellKeysToOthers(self, others))
	}
	return errs
}
