// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
)

// StatusError is returned by the API client if a request was not successful.
type StatusError struct {
	Code    int    // HTTP status code returned by the server
	Message string // Error message returned by the server
}

// Error implements error, formatting the status and message of a failure.
func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed: %d: %s", e.Code, e.Message)
}

// API is a tiny Go client for the key bootstrapping REST APIs. The purpose is to
// allow writing integration tests and operator scripts in Go.
type API struct {
	endpoint string
	client   *http.Client
}

// NewAPI creates a simplistic REST API around a key bootstrapping endpoint.
func NewAPI(endpoint string) *API {
	return NewAPIWithClient(endpoint, http.DefaultClient)
}

// NewAPIWithClient creates a REST API around an endpoint, sending the requests
// through a custom HTTP client.
func NewAPIWithClient(endpoint string, client *http.Client) *API {
	return &API{
		endpoint: endpoint,
		client:   client,
	}
}

func (api *API) Keys(name string) (*KeyInfos, error) {
	infos := new(KeyInfos)
	if err := api.run("GET", "/keys/"+name, nil, infos); err != nil {
		return nil, err
	}
	return infos, nil
}
func (api *API) InitKeys(name string, seed string, override bool) (*KeyInfos, error) {
	infos := new(KeyInfos)
	if err := api.run("POST", "/keys/"+name, &InitRequest{Seed: seed, Override: override}, infos); err != nil {
		return nil, err
	}
	return infos, nil
}

func (api *API) Exchange() ([]string, error) {
	infos := new(ExchangeInfos)
	if err := api.run("POST", "/exchange", nil, infos); err != nil {
		return nil, err
	}
	return infos.Nodes, nil
}

// run creates an API requests of the given type and sends over a JSON encoded
// request, potentially expecting a reply, and converting any failures into a
// Go error.
func (api *API) run(method string, path string, request interface{}, reply interface{}) error {
	// If a request body was specified, serialized it
	var body []byte
	if request != nil {
		blob, err := json.Marshal(request)
		if err != nil {
			return err
		}
		body = blob
	}
	// Run the request and ensure it succeeds
	req, err := http.NewRequest(method, api.endpoint+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	res, err := api.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err = ioutil.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		return &StatusError{Code: res.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	// Request seems to have succeeded, parse any expected reply
	if reply != nil {
		return json.Unmarshal(body, reply)
	}
	return nil
}
