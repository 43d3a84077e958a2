package geo

import (
	"errors"
	"strconv"
)

// ErrNotFound is returned when a lookup by name or key has no match.
var ErrNotFound = errors.New("node not found")

// Record is the payload of a GraphQL edge node.
type Record struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	StateCode   string `json:"state_code,omitempty" yaml:"state_code,omitempty"`
	CountryCode string `json:"country_code,omitempty" yaml:"country_code,omitempty"`
	ISO2        string `json:"iso2,omitempty" yaml:"iso2,omitempty"`
}

// Node is one entry of the hierarchy. Children is nil until Loaded is set;
// once loaded every child sits on Level.Next().
type Node struct {
	Level    Level  `json:"level" yaml:"level"`
	Record   Record `json:"node" yaml:"node"`
	Children []Node `json:"children,omitempty" yaml:"children,omitempty"`
	Loaded   bool   `json:"loaded" yaml:"loaded"`
}

// Key identifies the node for selection and expansion: the level plus the
// id, or the normalized name when the record has no id.
func (n Node) Key() string {
	return KeyFor(n.Level, n.Record)
}

// KeyFor builds the key a node with this level and record would have.
func KeyFor(level Level, r Record) string {
	if r.ID != 0 {
		return level.String() + ":" + strconv.FormatInt(r.ID, 10)
	}
	return level.String() + ":" + ValidateName(r.Name)
}

// DisplayName is the normalized name shown to users.
func (n Node) DisplayName() string { return ValidateName(n.Record.Name) }

// IsLeaf reports whether the node can never have children.
func (n Node) IsLeaf() bool { return n.Level == Cities }

// fieldValues lists the values FilterArr compares against.
func (n Node) fieldValues() []string {
	vals := []string{n.Record.Name, n.Record.StateCode, n.Record.CountryCode, n.Record.ISO2}
	if n.Record.ID != 0 {
		vals = append(vals, strconv.FormatInt(n.Record.ID, 10))
	}
	return vals
}

// NewChildren wraps fetched records as unloaded nodes on level.
func NewChildren(level Level, records []Record) []Node {
	out := make([]Node, len(records))
	for i, r := range records {
		out[i] = Node{Level: level, Record: r}
	}
	return out
}
