// Package merkle records generated drafts as a content-addressed chain.
// A generation becomes system → user → assistant nodes; identical prompts share
// hashes and different drafts for the same prompt branch from that prefix.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Bucket is the hashable content of a draft node.
type Bucket struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
	Style   string `json:"style,omitempty"`
}

// Node is a single content-addressed node in the draft DAG.
type Node struct {
	// Hash is the SHA-256 of the bucket and parent hash, hex-encoded
	Hash string `json:"hash"`

	// ParentHash is nil for root nodes.
	ParentHash *string `json:"parent_hash"`

	Bucket Bucket `json:"bucket"`
}

type input struct {
	Bucket Bucket `json:"bucket"`
	Parent string `json:"parent,omitempty"`
}

// NewNode creates a node for bucket linked to parent.
func NewNode(bucket Bucket, parent *Node) *Node {
	n := &Node{
		Bucket: bucket,
	}

	if parent != nil {
		h := parent.Hash
		n.ParentHash = &h
	}

	n.Hash = n.computeHash()
	return n
}

// Verify reports whether the node's hash matches its content.
func (n *Node) Verify() bool {
	return n.Hash == n.computeHash()
}

func (n *Node) computeHash() string {
	i := &input{
		Bucket: n.Bucket,
	}

	if n.ParentHash != nil {
		i.Parent = *n.ParentHash
	}

	// Struct field order makes the encoding deterministic
	data, err := json.Marshal(i)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Chain builds linked nodes from buckets, oldest first.
func Chain(buckets ...Bucket) []*Node {
	nodes := make([]*Node, 0, len(buckets))
	var parent *Node
	for _, b := range buckets {
		n := NewNode(b, parent)
		nodes = append(nodes, n)
		parent = n
	}
	return nodes
}
