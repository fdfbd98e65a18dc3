// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akutz/memconn"
	"github.com/coronanet/go-keyboot"
	"github.com/coronanet/go-keyboot/keys"
	"github.com/coronanet/go-keyboot/registry"
)

// newTestAPI starts an API server over an in-memory listener and returns a client
// connected to it, along with the base directory the nodes are provisioned in.
func newTestAPI(t *testing.T) (*API, string) {
	t.Helper()

	base := t.TempDir()
	pool, err := registry.Open(filepath.Join(base, "registry"))
	if err != nil {
		t.Fatalf("Failed to open registry: %v", err)
	}
	listener, err := memconn.Listen("memu", t.Name())
	if err != nil {
		t.Fatalf("Failed to open listener: %v", err)
	}
	server := &http.Server{Handler: New(keyboot.New(keyboot.Config{UseCertDir: true}), pool, filepath.Join(base, "pool"))}
	go server.Serve(listener)

	t.Cleanup(func() {
		server.Close()
		pool.Close()
	})
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return memconn.DialContext(ctx, "memu", t.Name())
			},
		},
	}
	return NewAPIWithClient("http://keyboot", client), filepath.Join(base, "pool")
}

// requireStatus checks that an API error carries a specific HTTP status.
func requireStatus(t *testing.T, err error, code int) {
	t.Helper()

	var status *StatusError
	if !errors.As(err, &status) {
		t.Fatalf("Error type mismatch: have %v, want status %d", err, code)
	}
	if status.Code != code {
		t.Fatalf("Status code mismatch: have %d, want %d", status.Code, code)
	}
}

// Tests that nodes can be provisioned and queried through the API.
func TestKeysLifecycle(t *testing.T) {
	api, _ := newTestAPI(t)

	_, err := api.Keys("Alpha")
	requireStatus(t, err, http.StatusNotFound)

	created, err := api.InitKeys("Alpha", "", false)
	if err != nil {
		t.Fatalf("Failed to init keys: %v", err)
	}
	if created.Node.Name != "Alpha" || created.Client.Name != "AlphaC" {
		t.Fatalf("Stack names mismatch: have %s/%s", created.Node.Name, created.Client.Name)
	}
	loaded, err := api.Keys("Alpha")
	if err != nil {
		t.Fatalf("Failed to retrieve keys: %v", err)
	}
	if *loaded != *created {
		t.Fatalf("Retrieved keys mismatch: have %+v, want %+v", loaded, created)
	}
	_, err = api.InitKeys("Alpha", "", false)
	requireStatus(t, err, http.StatusConflict)

	overridden, err := api.InitKeys("Alpha", "", true)
	if err != nil {
		t.Fatalf("Failed to override keys: %v", err)
	}
	if overridden.Node.VerifyKey == created.Node.VerifyKey {
		t.Fatalf("Override did not replace keys")
	}
}

// Tests that a node whose client stack is already taken is rejected without
// being provisioned.
func TestKeysClientConflict(t *testing.T) {
	api, _ := newTestAPI(t)

	if _, err := api.InitKeys("AlphaC", "", false); err != nil {
		t.Fatalf("Failed to init keys: %v", err)
	}
	_, err := api.InitKeys("Alpha", "", false)
	requireStatus(t, err, http.StatusConflict)

	_, err = api.Keys("Alpha")
	requireStatus(t, err, http.StatusNotFound)
}

// Tests that seeded provisioning is deterministic and bad inputs are rejected.
func TestKeysSeedValidation(t *testing.T) {
	api, _ := newTestAPI(t)

	seed := strings.Repeat("0", 27) + "Alpha"
	infos, err := api.InitKeys("Alpha", seed, false)
	if err != nil {
		t.Fatalf("Failed to init seeded keys: %v", err)
	}
	key, _ := keys.GenerateSigningKey([]byte(seed))
	if infos.Node.VerifyKey != key.Verify().String() {
		t.Errorf("Seeded verification key mismatch: have %s, want %s", infos.Node.VerifyKey, key.Verify().String())
	}
	_, err = api.InitKeys("Beta", "short", false)
	requireStatus(t, err, http.StatusBadRequest)

	_, err = api.Keys("..")
	requireStatus(t, err, http.StatusBadRequest)
}

// Tests that the exchange endpoint bootstraps trust between every provisioned
// node.
func TestExchange(t *testing.T) {
	api, base := newTestAPI(t)

	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		if _, err := api.InitKeys(name, "", false); err != nil {
			t.Fatalf("Failed to init %s: %v", name, err)
		}
	}
	nodes, err := api.Exchange()
	if err != nil {
		t.Fatalf("Failed to run exchange: %v", err)
	}
	if len(nodes) != 3 || nodes[0] != "Alpha" || nodes[1] != "Beta" || nodes[2] != "Gamma" {
		t.Fatalf("Exchanged nodes mismatch: have %v", nodes)
	}
	beta, err := api.Keys("Beta")
	if err != nil {
		t.Fatalf("Failed to retrieve keys: %v", err)
	}
	verkey, _, err := keys.LoadCertificate(filepath.Join(base, "Alpha", "verif", "Beta.key"))
	if err != nil {
		t.Fatalf("Failed to load exchanged certificate: %v", err)
	}
	if keys.VerifyKey(verkey).String() != beta.Node.VerifyKey {
		t.Errorf("Exchanged verification key mismatch: have %x, want %s", verkey, beta.Node.VerifyKey)
	}
}

// Tests that unknown endpoints and methods are rejected.
func TestUnknownRequests(t *testing.T) {
	api, _ := newTestAPI(t)

	requireStatus(t, api.run("GET", "/unknown", nil, nil), http.StatusNotFound)
	requireStatus(t, api.run("DELETE", "/keys/Alpha", nil, nil), http.StatusMethodNotAllowed)
	requireStatus(t, api.run("GET", "/exchange", nil, nil), http.StatusMethodNotAllowed)
}
