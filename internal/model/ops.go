// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import "strings"

// Operation is a single requested repository operation.
type Operation uint8

const (
	OpInit Operation = 1 << iota
	OpBackup
	OpCerts
	OpKeys
	OpPasswordHash
)

var opNames = []struct {
	op   Operation
	name string
}{
	{OpInit, "init"},
	{OpBackup, "backup"},
	{OpCerts, "certs"},
	{OpKeys, "keys"},
	{OpPasswordHash, "pwhash"},
}

// String returns the CLI flag name of the operation.
func (o Operation) String() string {
	for _, n := range opNames {
		if n.op == o {
			return n.name
		}
	}
	return "unknown"
}

// OpSet is a set of operations.
type OpSet uint8

// NewOpSet builds a set from individual operations.
func NewOpSet(ops ...Operation) OpSet {
	var s OpSet
	for _, op := range ops {
		s |= OpSet(op)
	}
	return s
}

// Has reports whether op is in the set.
func (s OpSet) Has(op Operation) bool { return s&OpSet(op) != 0 }

// With returns a copy of the set with op added.
func (s OpSet) With(op Operation) OpSet { return s | OpSet(op) }

// Empty reports whether no operation was requested.
func (s OpSet) Empty() bool { return s == 0 }

// String lists the operations in their execution order, comma-separated.
func (s OpSet) String() string {
	var names []string
	for _, n := range opNames {
		if s.Has(n.op) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
