// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coronanet/go-keyboot"
	"github.com/coronanet/go-keyboot/keys"
	"github.com/coronanet/go-keyboot/keystore"
	"github.com/coronanet/go-keyboot/layout"
	"github.com/ethereum/go-ethereum/log"
)

// StackInfos is the public identity of a single stack of a node.
type StackInfos struct {
	Name      string `json:"name"`
	PublicKey string `json:"pubkey"`
	VerifyKey string `json:"verkey"`
}

// KeyInfos is the response struct sent back to the client when requesting the
// keys of a node.
type KeyInfos struct {
	Node   StackInfos `json:"node"`
	Client StackInfos `json:"client"`
}

// InitRequest is the request struct sent by the client when provisioning the
// keys of a node.
type InitRequest struct {
	Seed     string `json:"seed,omitempty"`
	Override bool   `json:"override,omitempty"`
}

// serveKeys serves API calls concerning the keys of a single node.
func (api *api) serveKeys(w http.ResponseWriter, r *http.Request, name string, logger log.Logger) {
	if err := layout.ValidateName(name); err != nil {
		logger.Warn("Invalid node name requested")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	switch r.Method {
	case "GET":
		// Retrieves the public identifiers of a provisioned node
		logger.Debug("Requesting node keys")
		if !api.manager.AreKeysSetup(name, api.baseDir) {
			logger.Warn("Node keys not set up")
			http.Error(w, "Node keys not set up", http.StatusNotFound)
			return
		}
		node, err := api.manager.LoadNode(name, api.baseDir)
		if err != nil {
			logger.Error("Node keys retrieval failed", "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		logger.Debug("Node keys successfully retrieved")
		w.Header().Add("Content-Type", "application/json")
		json.NewEncoder(w).Encode(newKeyInfos(node))

	case "POST":
		// Provisions a node, optionally from a seed and overriding old keys
		logger.Debug("Requesting node provisioning")
		req := new(InitRequest)
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(req); err != nil {
				logger.Error("Provided init request is invalid", "err", err)
				http.Error(w, "Provided init request is invalid: "+err.Error(), http.StatusBadRequest)
				return
			}
		}
		var seed []byte
		if req.Seed != "" {
			var err error
			if seed, err = keys.ParseSeed(req.Seed); err != nil {
				logger.Warn("Provided seed is invalid", "err", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		node, err := api.manager.InitNodeKeys(name, api.baseDir, seed, req.Override)
		switch {
		case errors.Is(err, keystore.ErrKeyConflict), errors.Is(err, keystore.ErrBackendMismatch):
			logger.Warn("Node keys already exist", "err", err)
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case err != nil:
			logger.Error("Node provisioning failed", "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := api.pool.Register(node, true); err != nil {
			logger.Error("Node registration failed", "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		logger.Debug("Node successfully provisioned")
		w.Header().Add("Content-Type", "application/json")
		json.NewEncoder(w).Encode(newKeyInfos(node))

	default:
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

// newKeyInfos converts a node into its REST representation.
func newKeyInfos(node *keyboot.PoolNode) *KeyInfos {
	return &KeyInfos{
		Node: StackInfos{
			Name:      node.Node.Name,
			PublicKey: node.Node.PublicKey.String(),
			VerifyKey: node.Node.VerifyKey.String(),
		},
		Client: StackInfos{
			Name:      node.Client.Name,
			PublicKey: node.Client.PublicKey.String(),
			VerifyKey: node.Client.VerifyKey.String(),
		},
	}
}
