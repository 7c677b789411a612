// Copyright 2017-25 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package model contains the editable OpenStreetMap primitives shared by the
// store, the commands operating on it and the snapshot codec.
package model

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrAdjacentDuplicate is returned by Way.Validate when a node reference is
// immediately repeated.
var ErrAdjacentDuplicate = errors.New("way repeats a node in adjacent positions")

// ErrBadIdentity is returned when a textual identity cannot be parsed.
var ErrBadIdentity = errors.New("malformed primitive identity")

// UID is the primary key for a user.
type UID int32

// Info represents information common to Node, Way, and Relation primitives.
type Info struct {
	Version   int32
	UID       UID
	Timestamp time.Time
	Changeset int64
	User      string
	Visible   bool
}

// ID is the primary key of a primitive within its EntityType. Negative values
// are used for primitives created during an editing session.
type ID int64

// IsNew reports whether the id was allocated locally.
func (id ID) IsNew() bool { return id < 0 }

// EntityType is an enumeration of primitive types.
type EntityType int32

const (
	// NODE denotes that the primitive is a node.
	NODE EntityType = iota

	// WAY denotes that the primitive is a way.
	WAY

	// RELATION denotes that the primitive is a relation.
	RELATION
)

func (t EntityType) String() string {
	switch t {
	case NODE:
		return "node"
	case WAY:
		return "way"
	case RELATION:
		return "relation"
	default:
		return fmt.Sprintf("EntityType(%d)", int32(t))
	}
}

// ParseEntityType parses the names produced by EntityType.String.
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToLower(s) {
	case "node", "n":
		return NODE, nil
	case "way", "w":
		return WAY, nil
	case "relation", "r":
		return RELATION, nil
	default:
		return 0, fmt.Errorf("%w: unknown type %q", ErrBadIdentity, s)
	}
}

// PrimitiveID is the stable identity of a primitive: OSM ids are only unique
// within a type.
type PrimitiveID struct {
	Type EntityType
	ID   ID
}

// NodeID, WayID and RelationID build identities for the respective types.
func NodeID(id ID) PrimitiveID     { return PrimitiveID{Type: NODE, ID: id} }
func WayID(id ID) PrimitiveID      { return PrimitiveID{Type: WAY, ID: id} }
func RelationID(id ID) PrimitiveID { return PrimitiveID{Type: RELATION, ID: id} }

func (k PrimitiveID) String() string {
	return fmt.Sprintf("%s/%d", k.Type, k.ID)
}

// ParsePrimitiveID parses identities such as "way/10" or "n-1".
func ParsePrimitiveID(s string) (PrimitiveID, error) {
	typ, num, ok := strings.Cut(s, "/")
	if !ok {
		i := strings.IndexFunc(s, func(r rune) bool { return r == '-' || (r >= '0' && r <= '9') })
		if i <= 0 {
			return PrimitiveID{}, fmt.Errorf("%w: %q", ErrBadIdentity, s)
		}

		typ, num = s[:i], s[i:]
	}

	t, err := ParseEntityType(typ)
	if err != nil {
		return PrimitiveID{}, err
	}

	id, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return PrimitiveID{}, fmt.Errorf("%w: %q", ErrBadIdentity, s)
	}

	return PrimitiveID{Type: t, ID: ID(id)}, nil
}

// Compare orders identities by type and then by id.
func (k PrimitiveID) Compare(o PrimitiveID) int {
	if k.Type != o.Type {
		if k.Type < o.Type {
			return -1
		}

		return 1
	}

	switch {
	case k.ID < o.ID:
		return -1
	case k.ID > o.ID:
		return 1
	default:
		return 0
	}
}

// State is the lifecycle state of a primitive.
type State int8

const (
	// Normal primitives exist upstream and are unmodified or modified.
	Normal State = iota

	// New primitives were created in the current session.
	New

	// Deleted primitives are kept for undo and upload but are no longer
	// part of the visible data.
	Deleted
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case New:
		return "new"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("State(%d)", int8(s))
	}
}

// Primitive is implemented by Node, Way and Relation.
type Primitive interface {
	isPrimitive() // prevents extensions

	Key() PrimitiveID

	GetID() ID

	GetTags() map[string]string

	GetInfo() *Info

	GetState() State

	// Clone returns a deep copy that shares no mutable state.
	Clone() Primitive

	// Equal compares identity, tags, geometry, membership, info and state.
	Equal(o Primitive) bool
}

// Node represents a specific point on the earth's surface defined by its
// latitude and longitude. Each node comprises at least an id number and a
// pair of coordinates.
type Node struct {
	ID    ID
	Tags  map[string]string
	Info  *Info
	State State
	Lat   Degrees
	Lon   Degrees
}

var _ Primitive = (*Node)(nil)

func (n *Node) isPrimitive() {}

func (n *Node) Key() PrimitiveID { return NodeID(n.ID) }

func (n *Node) GetID() ID { return n.ID }

func (n *Node) GetTags() map[string]string { return n.Tags }

func (n *Node) GetInfo() *Info { return n.Info }

func (n *Node) GetState() State { return n.State }

func (n *Node) Clone() Primitive {
	c := *n
	c.Tags = cloneTags(n.Tags)
	c.Info = cloneInfo(n.Info)

	return &c
}

func (n *Node) Equal(o Primitive) bool {
	on, ok := o.(*Node)
	if !ok {
		return false
	}

	return n.ID == on.ID && n.State == on.State &&
		n.Lat == on.Lat && n.Lon == on.Lon &&
		tagsEqual(n.Tags, on.Tags) && infoEqual(n.Info, on.Info)
}

// Way is an ordered list of between 2 and 2,000 nodes that define a polyline.
type Way struct {
	ID      ID
	Tags    map[string]string
	Info    *Info
	State   State
	NodeIDs []ID
}

var _ Primitive = (*Way)(nil)

func (w *Way) isPrimitive() {}

func (w *Way) Key() PrimitiveID { return WayID(w.ID) }

func (w *Way) GetID() ID { return w.ID }

func (w *Way) GetTags() map[string]string { return w.Tags }

func (w *Way) GetInfo() *Info { return w.Info }

func (w *Way) GetState() State { return w.State }

func (w *Way) Clone() Primitive {
	c := *w
	c.Tags = cloneTags(w.Tags)
	c.Info = cloneInfo(w.Info)
	c.NodeIDs = slices.Clone(w.NodeIDs)

	return &c
}

func (w *Way) Equal(o Primitive) bool {
	ow, ok := o.(*Way)
	if !ok {
		return false
	}

	return w.ID == ow.ID && w.State == ow.State &&
		slices.Equal(w.NodeIDs, ow.NodeIDs) &&
		tagsEqual(w.Tags, ow.Tags) && infoEqual(w.Info, ow.Info)
}

// IsClosed reports whether the way ends at the node it starts with.
func (w *Way) IsClosed() bool {
	return len(w.NodeIDs) > 2 && w.NodeIDs[0] == w.NodeIDs[len(w.NodeIDs)-1]
}

// Contains reports whether the way references the node.
func (w *Way) Contains(id ID) bool {
	return slices.Contains(w.NodeIDs, id)
}

// Validate checks that no node is referenced twice in a row. A loop is closed
// by repeating the first node at the end, which is not adjacent.
func (w *Way) Validate() error {
	for i := 1; i < len(w.NodeIDs); i++ {
		if w.NodeIDs[i] == w.NodeIDs[i-1] {
			return fmt.Errorf("%w: way %d, node %d at %d", ErrAdjacentDuplicate, w.ID, w.NodeIDs[i], i)
		}
	}

	return nil
}

// Member represents a primitive referenced by a relation under a role.
type Member struct {
	ID   ID
	Type EntityType
	Role string
}

// Key returns the identity of the referenced primitive.
func (m Member) Key() PrimitiveID { return PrimitiveID{Type: m.Type, ID: m.ID} }

// Relation is a multipurpose data structure that documents a relationship
// between two or more data primitives (nodes, ways, and/or other relations).
type Relation struct {
	ID      ID
	Tags    map[string]string
	Info    *Info
	State   State
	Members []Member
}

var _ Primitive = (*Relation)(nil)

func (r *Relation) isPrimitive() {}

func (r *Relation) Key() PrimitiveID { return RelationID(r.ID) }

func (r *Relation) GetID() ID { return r.ID }

func (r *Relation) GetTags() map[string]string { return r.Tags }

func (r *Relation) GetInfo() *Info { return r.Info }

func (r *Relation) GetState() State { return r.State }

func (r *Relation) Clone() Primitive {
	c := *r
	c.Tags = cloneTags(r.Tags)
	c.Info = cloneInfo(r.Info)
	c.Members = slices.Clone(r.Members)

	return &c
}

func (r *Relation) Equal(o Primitive) bool {
	or, ok := o.(*Relation)
	if !ok {
		return false
	}

	return r.ID == or.ID && r.State == or.State &&
		slices.Equal(r.Members, or.Members) &&
		tagsEqual(r.Tags, or.Tags) && infoEqual(r.Info, or.Info)
}

// MemberKeys returns the identities of all members in order.
func (r *Relation) MemberKeys() []PrimitiveID {
	keys := make([]PrimitiveID, len(r.Members))
	for i, m := range r.Members {
		keys[i] = m.Key()
	}

	return keys
}

// References returns the identities a primitive points at: the nodes of a
// way or the members of a relation. Nodes reference nothing.
func References(p Primitive) []PrimitiveID {
	switch p := p.(type) {
	case *Way:
		keys := make([]PrimitiveID, len(p.NodeIDs))
		for i, id := range p.NodeIDs {
			keys[i] = NodeID(id)
		}

		return keys
	case *Relation:
		return p.MemberKeys()
	default:
		return nil
	}
}

// WithState returns a copy of p in the given lifecycle state.
func WithState(p Primitive, s State) Primitive {
	c := p.Clone()

	switch c := c.(type) {
	case *Node:
		c.State = s
	case *Way:
		c.State = s
	case *Relation:
		c.State = s
	}

	return c
}

// WithTags returns a copy of p carrying tags instead of its own.
func WithTags(p Primitive, tags map[string]string) Primitive {
	c := p.Clone()
	tags = cloneTags(tags)

	switch c := c.(type) {
	case *Node:
		c.Tags = tags
	case *Way:
		c.Tags = tags
	case *Relation:
		c.Tags = tags
	}

	return c
}

func cloneTags(tags map[string]string) map[string]string {
	if tags == nil {
		return nil
	}

	return maps.Clone(tags)
}

func cloneInfo(info *Info) *Info {
	if info == nil {
		return nil
	}

	c := *info

	return &c
}

// tagsEqual treats a nil and an empty tag map as equal.
func tagsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}

	return maps.Equal(a, b)
}

func infoEqual(a, b *Info) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Version == b.Version && a.UID == b.UID && a.Changeset == b.Changeset &&
		a.User == b.User && a.Visible == b.Visible && a.Timestamp.Equal(b.Timestamp)
}
