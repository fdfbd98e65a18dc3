// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

package keyboot

import (
	"github.com/coronanet/go-keyboot/keys"
	"github.com/coronanet/go-keyboot/layout"
)

// Identity is the public face of a single stack of a node.
type Identity struct {
	Name      string         // Unique name of the stack within the pool
	PublicKey keys.PublicKey // Encryption key used for secure channel establishment
	VerifyKey keys.VerifyKey // Verification key used to check message signatures
}

// Stack is a logical network identity of a node, along with the key store home
// it reads its trusted peers from.
type Stack struct {
	Identity
	Home layout.Home
}

// Node is a member of a pool taking part in trust bootstrapping. Every node has
// two logical identities: one facing the other nodes and one facing clients.
type Node interface {
	NodeStack() Stack
	ClientStack() Stack
}

// PoolNode is a simple Node with both stacks known upfront.
type PoolNode struct {
	Node   Stack
	Client Stack
}

// NodeStack implements Node, returning the node facing stack.
func (n *PoolNode) NodeStack() Stack { return n.Node }

// ClientStack implements Node, returning the client facing stack.
func (n *PoolNode) ClientStack() Stack { return n.Client }
