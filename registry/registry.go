// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

// Package registry keeps track of the nodes making up a pool, so that the key
// exchange can be rerun without the operator listing every member again.
package registry

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/coronanet/go-keyboot"
	"github.com/coronanet/go-keyboot/keys"
	"github.com/coronanet/go-keyboot/layout"
	"github.com/ethereum/go-ethereum/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	// dbNodePrefix is the database key prefix for storing a pool member.
	dbNodePrefix = []byte("node-")

	// ErrNodeNotFound is returned if a node is attempted to be read from the
	// registry but it does not exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNodeExists is returned if a node is attempted to be registered but an
	// old one with the same name already exists.
	ErrNodeExists = errors.New("node already exists")
)

// identity is the database representation of a single stack of a node.
type identity struct {
	Name      string `json:"name"`
	PublicKey string `json:"pubkey"`
	VerifyKey string `json:"verkey"`
}

// record is the database representation of a pool member.
type record struct {
	BaseDir string   `json:"basedir"`
	Node    identity `json:"node"`
	Client  identity `json:"client"`
}

// Registry is a persistent record of the members of a pool.
type Registry struct {
	database *leveldb.DB // Database to avoid custom file formats for storage
	logger   log.Logger
}

// Open creates or opens a pool registry at the given path.
func Open(path string) (*Registry, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &Registry{
		database: db,
		logger:   log.New("registry", path),
	}, nil
}

// Close tears down the registry. It cannot be used afterwards.
func (r *Registry) Close() error {
	return r.database.Close()
}

// Register inserts a node into the pool. If a node with the same name already
// exists, it is only replaced if overwrite is set.
func (r *Registry) Register(node keyboot.Node, overwrite bool) error {
	stack, client := node.NodeStack(), node.ClientStack()
	if err := layout.ValidateName(stack.Name); err != nil {
		return err
	}
	key := append(append([]byte{}, dbNodePrefix...), stack.Name...)

	if !overwrite {
		if ok, err := r.database.Has(key, nil); err != nil {
			return err
		} else if ok {
			return ErrNodeExists
		}
	}
	blob, err := json.Marshal(&record{
		BaseDir: stack.Home.Base,
		Node:    identity{Name: stack.Name, PublicKey: stack.PublicKey.String(), VerifyKey: stack.VerifyKey.String()},
		Client:  identity{Name: client.Name, PublicKey: client.PublicKey.String(), VerifyKey: client.VerifyKey.String()},
	})
	if err != nil {
		return err
	}
	if err := r.database.Put(key, blob, nil); err != nil {
		return err
	}
	r.logger.Debug("Registered pool node", "node", stack.Name, "basedir", stack.Home.Base)
	return nil
}

// Unregister removes a node from the pool. The key material of the node and the
// certificates it distributed are left untouched.
func (r *Registry) Unregister(name string) error {
	key := append(append([]byte{}, dbNodePrefix...), name...)
	if ok, err := r.database.Has(key, nil); err != nil {
		return err
	} else if !ok {
		return ErrNodeNotFound
	}
	if err := r.database.Delete(key, nil); err != nil {
		return err
	}
	r.logger.Debug("Unregistered pool node", "node", name)
	return nil
}

// Node retrieves a member of the pool.
func (r *Registry) Node(name string) (*keyboot.PoolNode, error) {
	blob, err := r.database.Get(append(append([]byte{}, dbNodePrefix...), name...), nil)
	if err != nil {
		return nil, ErrNodeNotFound
	}
	return decodeNode(blob)
}

// Nodes retrieves all the members of the pool, ordered by name.
func (r *Registry) Nodes() ([]*keyboot.PoolNode, error) {
	var nodes []*keyboot.PoolNode

	it := r.database.NewIterator(util.BytesPrefix(dbNodePrefix), nil)
	defer it.Release()

	for it.Next() {
		node, err := decodeNode(it.Value())
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Node.Name < nodes[j].Node.Name
	})
	return nodes, nil
}

// Pool retrieves all the members of the pool in the shape the key exchange
// operates on.
func (r *Registry) Pool() ([]keyboot.Node, error) {
	nodes, err := r.Nodes()
	if err != nil {
		return nil, err
	}
	pool := make([]keyboot.Node, len(nodes))
	for i, node := range nodes {
		pool[i] = node
	}
	return pool, nil
}

// decodeNode parses a database record into a pool node.
func decodeNode(blob []byte) (*keyboot.PoolNode, error) {
	rec := new(record)
	if err := json.Unmarshal(blob, rec); err != nil {
		return nil, err
	}
	stack, err := decodeStack(rec.BaseDir, rec.Node)
	if err != nil {
		return nil, err
	}
	client, err := decodeStack(rec.BaseDir, rec.Client)
	if err != nil {
		return nil, err
	}
	return &keyboot.PoolNode{Node: stack, Client: client}, nil
}

// decodeStack parses a database identity into a stack rooted in a base dir.
func decodeStack(base string, id identity) (keyboot.Stack, error) {
	pubkey, err := keys.ParsePublicKey(id.PublicKey)
	if err != nil {
		return keyboot.Stack{}, err
	}
	verkey, err := keys.ParseVerifyKey(id.VerifyKey)
	if err != nil {
		return keyboot.Stack{}, err
	}
	return keyboot.Stack{
		Identity: keyboot.Identity{Name: id.Name, PublicKey: pubkey, VerifyKey: verkey},
		Home:     layout.NewHome(base, id.Name),
	}, nil
}
