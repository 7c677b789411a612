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

package command

import (
	"errors"
	"fmt"
	"slices"

	"m4o.io/osmedit/model"
	"m4o.io/osmedit/store"
)

// PurgeCommand removes primitives from the store altogether, as if they had
// never been loaded. Unlike DeleteCommand nothing is left behind.
type PurgeCommand struct {
	lifecycle
	store  store.Store
	keys   []model.PrimitiveID
	purged []model.Primitive
	cut    map[model.PrimitiveID]struct{}
}

var _ Command = (*PurgeCommand)(nil)

// NewPurgeCommand creates a command purging keys. Every primitive still
// referencing one of them, deleted or not, must be purged as well.
func NewPurgeCommand(s store.Store, keys []model.PrimitiveID) (*PurgeCommand, error) {
	keys = uniqueKeys(keys)
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: nothing to purge", ErrPrecondition)
	}

	if err := checkClosed(s, keys); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrecondition, err)
	}

	return &PurgeCommand{store: s, keys: keys}, nil
}

func (c *PurgeCommand) Apply() error {
	if err := c.checkApply(c.Description()); err != nil {
		return err
	}

	if err := checkClosed(c.store, c.keys); err != nil {
		return err
	}

	prims, err := fetch(c.store, c.keys)
	if err != nil {
		return err
	}

	sorted, cut := topoSort(prims)

	if err := unlink(c.store, sorted, cut); err != nil {
		return err
	}

	// back to front, so nothing removed is still referenced
	for i := len(sorted) - 1; i >= 0; i-- {
		if err := c.store.Remove(sorted[i].Key()); err != nil {
			for j := i + 1; j < len(sorted); j++ {
				if ierr := c.store.Insert(detached(sorted[j], cut)); ierr != nil {
					err = errors.Join(err, ierr)
				}
			}

			return errors.Join(err, relink(c.store, sorted, cut))
		}
	}

	c.purged = sorted
	c.cut = cut
	c.applied = true

	return nil
}

func (c *PurgeCommand) Revert() error {
	if err := c.checkRevert(c.Description()); err != nil {
		return err
	}

	for i, p := range c.purged {
		if err := c.store.Insert(detached(p, c.cut)); err != nil {
			for j := i - 1; j >= 0; j-- {
				if rerr := c.store.Remove(c.purged[j].Key()); rerr != nil {
					err = errors.Join(err, rerr)
				}
			}

			return err
		}
	}

	if err := relink(c.store, c.purged, c.cut); err != nil {
		return err
	}

	c.purged = nil
	c.cut = nil
	c.applied = false

	return nil
}

func (c *PurgeCommand) Participants() []model.PrimitiveID {
	return slices.Clone(c.keys)
}

func (c *PurgeCommand) Description() string {
	return "Purge " + describeMany(c.keys)
}

// checkClosed verifies that keys exist and that all their referrers are
// among keys.
func checkClosed(s store.Store, keys []model.PrimitiveID) error {
	set := make(map[model.PrimitiveID]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}

	for _, k := range keys {
		if _, ok := s.Get(k); !ok {
			return fmt.Errorf("%w: %s", store.ErrNotFound, k)
		}

		for _, r := range s.Referrers(k) {
			if _, ok := set[r]; !ok {
				return fmt.Errorf("%w: %s is still used by %s", ErrReferentialIntegrity, k, r)
			}
		}
	}

	return nil
}

// TopoSort orders prims so that every primitive comes after the primitives
// it references that are part of prims. Without cycles, nodes come first,
// then ways, then relations; ties are broken by id. Relation cycles are cut
// at the relation holding the closing reference.
func TopoSort(prims []model.Primitive) []model.Primitive {
	sorted, _ := topoSort(prims)

	return sorted
}

// topoSort is TopoSort, also returning the relations whose references were
// cut to break a cycle.
func topoSort(prims []model.Primitive) ([]model.Primitive, map[model.PrimitiveID]struct{}) {
	byKey := make(map[model.PrimitiveID]model.Primitive, len(prims))
	for _, p := range prims {
		byKey[p.Key()] = p
	}

	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[model.PrimitiveID]int, len(byKey))
	sorted := make([]model.Primitive, 0, len(byKey))
	cut := make(map[model.PrimitiveID]struct{})

	var visit func(k model.PrimitiveID)
	visit = func(k model.PrimitiveID) {
		if state[k] != unvisited {
			return
		}

		state[k] = visiting

		for _, ref := range model.References(byKey[k]) {
			if _, ok := byKey[ref]; !ok {
				continue
			}

			if state[ref] == visiting {
				cut[k] = struct{}{}

				continue
			}

			visit(ref)
		}

		state[k] = done
		sorted = append(sorted, byKey[k])
	}

	for _, k := range sortedKeys(byKey) {
		visit(k)
	}

	return sorted, cut
}

// detached returns p without members if it is one of the cut relations.
func detached(p model.Primitive, cut map[model.PrimitiveID]struct{}) model.Primitive {
	r, ok := p.(*model.Relation)
	if !ok {
		return p
	}

	if _, ok := cut[r.Key()]; !ok {
		return p
	}

	c := r.Clone().(*model.Relation)
	c.Members = nil

	return c
}

// unlink strips the members of the cut relations among prims in the store,
// so that the remaining references form no cycle.
func unlink(s store.Store, prims []model.Primitive, cut map[model.PrimitiveID]struct{}) error {
	for i, p := range prims {
		if _, ok := cut[p.Key()]; !ok {
			continue
		}

		if err := s.Replace(p.Key(), detached(p, cut)); err != nil {
			return errors.Join(err, relink(s, prims[:i], cut))
		}
	}

	return nil
}

// relink gives the cut relations among prims their members back.
func relink(s store.Store, prims []model.Primitive, cut map[model.PrimitiveID]struct{}) error {
	var errs []error

	for _, p := range prims {
		if _, ok := cut[p.Key()]; !ok {
			continue
		}

		if err := s.Replace(p.Key(), p); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
