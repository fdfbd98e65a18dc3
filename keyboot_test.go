// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

package keyboot

import (
	"bytes"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/coronanet/go-keyboot/keystore"
	"github.com/coronanet/go-keyboot/layout"
)

// Tests the basic provisioning scenario: a fresh node gets keys, is reported
// as set up and refuses to be initialized again.
func TestInitKeysScenario(t *testing.T) {
	for _, certdir := range []bool{false, true} {
		pool := filepath.Join(t.TempDir(), "pool")
		manager := New(Config{UseCertDir: certdir})

		if manager.AreKeysSetup("Alpha", pool) {
			t.Fatalf("certdir=%v: fresh node reported set up", certdir)
		}
		pubkey, verkey, err := manager.InitKeys("Alpha", pool, nil, false)
		if err != nil {
			t.Fatalf("certdir=%v: failed to init keys: %v", certdir, err)
		}
		if len(pubkey) == 0 || len(verkey) == 0 {
			t.Fatalf("certdir=%v: empty keys returned: %x, %x", certdir, pubkey, verkey)
		}
		if !manager.AreKeysSetup("Alpha", pool) {
			t.Fatalf("certdir=%v: initialized node not set up", certdir)
		}
		if !manager.AreKeysSetup("Alpha", pool) {
			t.Fatalf("certdir=%v: presence check not idempotent", certdir)
		}
		if _, _, err := manager.InitKeys("Alpha", pool, nil, false); err != keystore.ErrKeyConflict {
			t.Fatalf("certdir=%v: reinit error mismatch: have %v, want %v", certdir, err, keystore.ErrKeyConflict)
		}
		id, err := manager.Identity("Alpha", pool)
		if err != nil {
			t.Fatalf("certdir=%v: failed to load identity: %v", certdir, err)
		}
		if !bytes.Equal(id.PublicKey, pubkey) || !bytes.Equal(id.VerifyKey, verkey) {
			t.Errorf("certdir=%v: loaded identity mismatch", certdir)
		}
	}
}

// Tests that overriding the keys of a node replaces them.
func TestInitKeysOverride(t *testing.T) {
	pool := t.TempDir()
	manager := New(Config{UseCertDir: true})

	oldPub, oldVer, err := manager.InitKeys("Alpha", pool, nil, false)
	if err != nil {
		t.Fatalf("Failed to init keys: %v", err)
	}
	newPub, newVer, err := manager.InitKeys("Alpha", pool, nil, true)
	if err != nil {
		t.Fatalf("Failed to override keys: %v", err)
	}
	if bytes.Equal(oldPub, newPub) || bytes.Equal(oldVer, newVer) {
		t.Fatalf("Override did not replace keys")
	}
	if !manager.AreKeysSetup("Alpha", pool) {
		t.Fatalf("Overridden node not set up")
	}
}

// Tests that a manager does not report keys of the other backend as set up.
func TestPresenceBackendMismatch(t *testing.T) {
	pool := t.TempDir()

	if _, _, err := New(Config{}).InitKeys("Alpha", pool, nil, false); err != nil {
		t.Fatalf("Failed to init keep keys: %v", err)
	}
	certs := New(Config{UseCertDir: true})
	if certs.AreKeysSetup("Alpha", pool) {
		t.Fatalf("Keep keys reported set up by certificate manager")
	}
	if _, _, err := certs.InitKeys("Alpha", pool, nil, false); err != keystore.ErrBackendMismatch {
		t.Fatalf("Mismatch error mismatch: have %v, want %v", err, keystore.ErrBackendMismatch)
	}
}

// Tests that both stacks of a node are derived from the same seed.
func TestInitNodeKeys(t *testing.T) {
	pool := t.TempDir()
	manager := New(Config{UseCertDir: true})

	seed := []byte("000000000000000000000000000Alpha")
	node, err := manager.InitNodeKeys("Alpha", pool, seed, false)
	if err != nil {
		t.Fatalf("Failed to init node keys: %v", err)
	}
	if node.NodeStack().Name != "Alpha" || node.ClientStack().Name != "AlphaC" {
		t.Fatalf("Stack names mismatch: have %s/%s, want Alpha/AlphaC", node.NodeStack().Name, node.ClientStack().Name)
	}
	if !bytes.Equal(node.Node.VerifyKey, node.Client.VerifyKey) {
		t.Errorf("Seeded stacks have different verification keys")
	}
	loaded, err := manager.LoadNode("Alpha", pool)
	if err != nil {
		t.Fatalf("Failed to load node: %v", err)
	}
	if !bytes.Equal(loaded.Client.PublicKey, node.Client.PublicKey) {
		t.Errorf("Loaded client key mismatch: have %x, want %x", loaded.Client.PublicKey, node.Client.PublicKey)
	}
	if loaded.Client.Home.Dir() != filepath.Join(pool, "AlphaC") {
		t.Errorf("Client home mismatch: have %s", loaded.Client.Home.Dir())
	}
}

// Tests that invalid node names are rejected instead of escaping the pool.
func TestInitKeysInvalidName(t *testing.T) {
	pool := t.TempDir()
	manager := New(Config{UseCertDir: true})

	if _, _, err := manager.InitKeys("../Alpha", pool, nil, false); err == nil {
		t.Fatalf("Traversing node name accepted")
	}
	if manager.AreKeysSetup("../Alpha", pool) {
		t.Fatalf("Traversing node name reported set up")
	}
	files, _ := ioutil.ReadDir(filepath.Dir(pool))
	for _, file := range files {
		if file.Name() == "Alpha" {
			t.Fatalf("Key store created outside of pool")
		}
	}
}

// Tests that a node is not left half provisioned if its client stack already
// has keys.
func TestInitNodeKeysClientConflict(t *testing.T) {
	pool := t.TempDir()
	manager := New(Config{UseCertDir: true})

	if _, _, err := manager.InitKeys("AlphaC", pool, nil, false); err != nil {
		t.Fatalf("Failed to init client keys: %v", err)
	}
	if _, err := manager.InitNodeKeys("Alpha", pool, nil, false); err != keystore.ErrKeyConflict {
		t.Fatalf("Client conflict error mismatch: have %v, want %v", err, keystore.ErrKeyConflict)
	}
	if manager.AreKeysSetup("Alpha", pool) {
		t.Fatalf("Node stack provisioned despite failure")
	}
	if kinds := keystore.Detect(layout.NewHome(pool, "Alpha")); len(kinds) != 0 {
		t.Fatalf("Node stack left key files behind: %v", kinds)
	}
	// Once the blocking keys are overridden, the node can be created
	if _, err := manager.InitNodeKeys("Alpha", pool, nil, true); err != nil {
		t.Fatalf("Failed to override node keys: %v", err)
	}
	if !manager.AreKeysSetup("Alpha", pool) || !manager.AreKeysSetup("AlphaC", pool) {
		t.Fatalf("Overridden node not set up")
	}
}

// Tests that a filesystem failure on the client stack rolls back the already
// written node stack.
func TestInitNodeKeysClientFailure(t *testing.T) {
	pool := t.TempDir()
	manager := New(Config{UseCertDir: true})

	// A directory in place of the client's signing key fails the write late
	client := layout.NewHome(pool, "AlphaC")
	if err := os.MkdirAll(layout.SecretCert(client.SigDir(), "AlphaC"), 0700); err != nil {
		t.Fatalf("Failed to create blocker directory: %v", err)
	}
	if _, err := manager.InitNodeKeys("Alpha", pool, nil, false); !errors.Is(err, keystore.ErrIOFailure) {
		t.Fatalf("Client failure error mismatch: have %v, want %v", err, keystore.ErrIOFailure)
	}
	if manager.AreKeysSetup("Alpha", pool) || manager.AreKeysSetup("AlphaC", pool) {
		t.Fatalf("Stacks provisioned despite failure")
	}
	if kinds := keystore.Detect(layout.NewHome(pool, "Alpha")); len(kinds) != 0 {
		t.Fatalf("Node stack left key files behind: %v", kinds)
	}
}

// Tests that the signing key of a node can be loaded and signs messages that
// verify against the node's public identity.
func TestSigningKey(t *testing.T) {
	for _, certdir := range []bool{false, true} {
		pool := t.TempDir()
		manager := New(Config{UseCertDir: certdir})

		if _, err := manager.SigningKey("Alpha", pool); err == nil {
			t.Fatalf("certdir=%v: signing key of missing node loaded", certdir)
		}
		if _, _, err := manager.InitKeys("Alpha", pool, nil, false); err != nil {
			t.Fatalf("certdir=%v: failed to init keys: %v", certdir, err)
		}
		key, err := manager.SigningKey("Alpha", pool)
		if err != nil {
			t.Fatalf("certdir=%v: failed to load signing key: %v", certdir, err)
		}
		id, err := manager.Identity("Alpha", pool)
		if err != nil {
			t.Fatalf("certdir=%v: failed to load identity: %v", certdir, err)
		}
		msg := []byte("pool trust")
		if !id.VerifyKey.Valid(msg, key.Sign(msg)) {
			t.Errorf("certdir=%v: signature does not verify against identity", certdir)
		}
	}
}
