// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

// Package rest implements the RESTful admin API of a key bootstrapping pool.
package rest

import (
	"net/http"
	"strings"

	"github.com/coronanet/go-keyboot"
	"github.com/coronanet/go-keyboot/registry"
	"github.com/ethereum/go-ethereum/log"
)

// New creates a REST API interface in front of a key manager, provisioning the
// nodes into baseDir and tracking them in the pool registry.
func New(manager *keyboot.Manager, pool *registry.Registry, baseDir string) http.Handler {
	return &api{
		manager: manager,
		pool:    pool,
		baseDir: baseDir,
		logger:  log.New("api", "rest"),
	}
}

// api is a REST wrapper on top of the key manager that translates the Go APIs
// into REST.
type api struct {
	manager *keyboot.Manager
	pool    *registry.Registry
	baseDir string
	logger  log.Logger
}

// ServeHTTP implements http.Handler, serving API calls from the pool operator.
func (api *api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/keys/"):
		name := strings.TrimPrefix(r.URL.Path, "/keys/")
		api.serveKeys(w, r, name, api.logger.New("node", name))
	case r.URL.Path == "/exchange":
		api.serveExchange(w, r, api.logger)
	default:
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	}
}
