// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

package rest

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
)

// ExchangeInfos is the response struct sent back to the client after running the
// key exchange over the pool.
type ExchangeInfos struct {
	Nodes []string `json:"nodes"`
}

// serveExchange serves API calls concerning the pool wide key exchange.
func (api *api) serveExchange(w http.ResponseWriter, r *http.Request, logger log.Logger) {
	switch r.Method {
	case "POST":
		// Bootstraps trust between every registered node
		logger.Debug("Requesting key exchange")
		pool, err := api.pool.Pool()
		if err != nil {
			logger.Error("Pool retrieval failed", "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := api.manager.Bootstrap(pool); err != nil {
			logger.Error("Key exchange failed", "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		infos := &ExchangeInfos{Nodes: make([]string, 0, len(pool))}
		for _, node := range pool {
			infos.Nodes = append(infos.Nodes, node.NodeStack().Name)
		}
		logger.Debug("Key exchange successfully completed", "nodes", len(pool))
		w.Header().Add("Content-Type", "application/json")
		json.NewEncoder(w).Encode(infos)

	default:
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}
