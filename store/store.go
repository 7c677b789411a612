// Copyright 2025 the original author or authors.
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

// Package store holds the primitive store that commands mutate.
//
// Primitives are kept in an arena keyed by model.PrimitiveID. Ways and
// relations refer to other primitives by identity only, and the store keeps a
// reverse index so that referential integrity can be enforced on every
// mutation:
//
//   - a live (non-deleted) way or relation may only reference live
//     primitives that exist in the same store;
//   - a primitive can only be removed once nothing references it;
//   - a primitive can only be marked deleted once no live primitive
//     references it.
package store

import (
	"errors"
	"fmt"
	"slices"

	"m4o.io/osmedit/model"
)

var (
	ErrDuplicateInsert      = errors.New("primitive already exists")
	ErrNotFound             = errors.New("primitive not found")
	ErrReferentialIntegrity = errors.New("referential integrity violated")
	ErrKeyMismatch          = errors.New("replacement has a different identity")
)

// Store is the mutation contract the commands are written against.
type Store interface {
	// Get returns a copy of the primitive with the given identity.
	Get(key model.PrimitiveID) (model.Primitive, bool)

	// Insert adds a primitive that does not exist yet.
	Insert(p model.Primitive) error

	// Remove drops a primitive nothing references anymore.
	Remove(key model.PrimitiveID) error

	// Replace swaps the full state of an existing primitive.
	Replace(key model.PrimitiveID, p model.Primitive) error

	// Referrers lists the ways and relations referencing key, sorted.
	Referrers(key model.PrimitiveID) []model.PrimitiveID

	// NewID allocates an unused negative id for a primitive of type t.
	NewID(t model.EntityType) model.ID
}

// DataSet is the in-memory Store implementation.
//
// A DataSet is not safe for concurrent use; mutations are expected to happen
// on a single goroutine (see package session).
type DataSet struct {
	primitives map[model.PrimitiveID]model.Primitive
	referrers  map[model.PrimitiveID]map[model.PrimitiveID]int
	lastNewID  map[model.EntityType]model.ID
}

var _ Store = (*DataSet)(nil)

// NewDataSet creates an empty DataSet.
func NewDataSet() *DataSet {
	return &DataSet{
		primitives: make(map[model.PrimitiveID]model.Primitive),
		referrers:  make(map[model.PrimitiveID]map[model.PrimitiveID]int),
		lastNewID:  make(map[model.EntityType]model.ID),
	}
}

func (ds *DataSet) Get(key model.PrimitiveID) (model.Primitive, bool) {
	p, ok := ds.primitives[key]
	if !ok {
		return nil, false
	}

	return p.Clone(), true
}

func (ds *DataSet) Insert(p model.Primitive) error {
	key := p.Key()
	if _, ok := ds.primitives[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateInsert, key)
	}

	if err := ds.checkReferences(p); err != nil {
		return err
	}

	ds.primitives[key] = p.Clone()
	ds.index(key, p)

	if key.ID < ds.lastNewID[key.Type] {
		ds.lastNewID[key.Type] = key.ID
	}

	return nil
}

func (ds *DataSet) Remove(key model.PrimitiveID) error {
	p, ok := ds.primitives[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if refs := ds.referrers[key]; len(refs) > 0 {
		return fmt.Errorf("%w: %s is still referenced by %s", ErrReferentialIntegrity, key, ds.Referrers(key)[0])
	}

	ds.unindex(key, p)
	delete(ds.primitives, key)

	return nil
}

func (ds *DataSet) Replace(key model.PrimitiveID, p model.Primitive) error {
	old, ok := ds.primitives[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if p.Key() != key {
		return fmt.Errorf("%w: %s replaced by %s", ErrKeyMismatch, key, p.Key())
	}

	if err := ds.checkReferences(p); err != nil {
		return err
	}

	if p.GetState() == model.Deleted && old.GetState() != model.Deleted {
		if live := ds.liveReferrers(key); len(live) > 0 {
			return fmt.Errorf("%w: %s is still used by %s", ErrReferentialIntegrity, key, live[0])
		}
	}

	ds.unindex(key, old)
	ds.primitives[key] = p.Clone()
	ds.index(key, p)

	return nil
}

func (ds *DataSet) Referrers(key model.PrimitiveID) []model.PrimitiveID {
	refs := ds.referrers[key]
	if len(refs) == 0 {
		return nil
	}

	keys := make([]model.PrimitiveID, 0, len(refs))
	for k := range refs {
		keys = append(keys, k)
	}

	slices.SortFunc(keys, model.PrimitiveID.Compare)

	return keys
}

func (ds *DataSet) NewID(t model.EntityType) model.ID {
	ds.lastNewID[t]--

	return ds.lastNewID[t]
}

// Len returns the number of primitives, deleted ones included.
func (ds *DataSet) Len() int {
	return len(ds.primitives)
}

// Counts returns the number of nodes, ways and relations.
func (ds *DataSet) Counts() (nodes, ways, relations int64) {
	for k := range ds.primitives {
		switch k.Type {
		case model.NODE:
			nodes++
		case model.WAY:
			ways++
		case model.RELATION:
			relations++
		}
	}

	return nodes, ways, relations
}

// Keys returns every identity in the store ordered by type and id.
func (ds *DataSet) Keys() []model.PrimitiveID {
	keys := make([]model.PrimitiveID, 0, len(ds.primitives))
	for k := range ds.primitives {
		keys = append(keys, k)
	}

	slices.SortFunc(keys, model.PrimitiveID.Compare)

	return keys
}

// Primitives returns copies of all primitives in Keys order.
func (ds *DataSet) Primitives() []model.Primitive {
	keys := ds.Keys()
	prims := make([]model.Primitive, len(keys))

	for i, k := range keys {
		prims[i] = ds.primitives[k].Clone()
	}

	return prims
}

// BoundingBox returns the extent of all live nodes.
func (ds *DataSet) BoundingBox() *model.BoundingBox {
	bbox := model.InitialBoundingBox()

	for _, p := range ds.primitives {
		if n, ok := p.(*model.Node); ok && n.State != model.Deleted {
			bbox.ExpandWithNode(n)
		}
	}

	return bbox
}

// Equal reports whether both stores hold equal primitives under the same
// identities.
func (ds *DataSet) Equal(o *DataSet) bool {
	if len(ds.primitives) != len(o.primitives) {
		return false
	}

	for k, p := range ds.primitives {
		op, ok := o.primitives[k]
		if !ok || !p.Equal(op) {
			return false
		}
	}

	return true
}

// Clone returns an independent copy of the store.
func (ds *DataSet) Clone() *DataSet {
	c := NewDataSet()

	for k, p := range ds.primitives {
		c.primitives[k] = p.Clone()
		c.index(k, p)
	}

	for t, id := range ds.lastNewID {
		c.lastNewID[t] = id
	}

	return c
}

// checkReferences verifies that a live primitive only points at live
// primitives of this store.
func (ds *DataSet) checkReferences(p model.Primitive) error {
	if p.GetState() == model.Deleted {
		return nil
	}

	for _, ref := range model.References(p) {
		target, ok := ds.primitives[ref]
		if !ok {
			return fmt.Errorf("%w: %s references missing %s", ErrReferentialIntegrity, p.Key(), ref)
		}

		if target.GetState() == model.Deleted {
			return fmt.Errorf("%w: %s references deleted %s", ErrReferentialIntegrity, p.Key(), ref)
		}
	}

	return nil
}

func (ds *DataSet) liveReferrers(key model.PrimitiveID) []model.PrimitiveID {
	var live []model.PrimitiveID

	for _, r := range ds.Referrers(key) {
		if ds.primitives[r].GetState() != model.Deleted {
			live = append(live, r)
		}
	}

	return live
}

func (ds *DataSet) index(key model.PrimitiveID, p model.Primitive) {
	for _, ref := range model.References(p) {
		refs, ok := ds.referrers[ref]
		if !ok {
			refs = make(map[model.PrimitiveID]int)
			ds.referrers[ref] = refs
		}

		refs[key]++
	}
}

func (ds *DataSet) unindex(key model.PrimitiveID, p model.Primitive) {
	for _, ref := range model.References(p) {
		refs := ds.referrers[ref]

		if refs[key] <= 1 {
			delete(refs, key)
		} else {
			refs[key]--
		}

		if len(refs) == 0 {
			delete(ds.referrers, ref)
		}
	}
}
