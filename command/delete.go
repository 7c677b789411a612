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
	"maps"
	"slices"

	"m4o.io/osmedit/model"
	"m4o.io/osmedit/store"
)

// DeleteCommand marks primitives as deleted. They stay in the store so that
// the deletion can be reverted and uploaded.
type DeleteCommand struct {
	lifecycle
	store store.Store
	keys  []model.PrimitiveID
	old   []model.Primitive
	cut   map[model.PrimitiveID]struct{}
}

var _ Command = (*DeleteCommand)(nil)

// NewDeleteCommand creates a command deleting keys. When applied, no live
// primitive outside keys may still reference any of them.
func NewDeleteCommand(s store.Store, keys []model.PrimitiveID) (*DeleteCommand, error) {
	keys = uniqueKeys(keys)
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: nothing to delete", ErrPrecondition)
	}

	for _, k := range keys {
		p, ok := s.Get(k)
		if !ok {
			return nil, fmt.Errorf("%w: %s does not exist", ErrPrecondition, k)
		}

		if p.GetState() == model.Deleted {
			return nil, fmt.Errorf("%w: %s is already deleted", ErrPrecondition, k)
		}
	}

	return &DeleteCommand{store: s, keys: keys}, nil
}

func (c *DeleteCommand) Apply() error {
	if err := c.checkApply(c.Description()); err != nil {
		return err
	}

	old, err := fetch(c.store, c.keys)
	if err != nil {
		return err
	}

	set := make(map[model.PrimitiveID]struct{}, len(c.keys))
	for _, k := range c.keys {
		set[k] = struct{}{}
	}

	for _, p := range old {
		if p.GetState() == model.Deleted {
			return fmt.Errorf("%w: %s is already deleted", ErrPrecondition, p.Key())
		}

		for _, r := range liveReferrers(c.store, p.Key()) {
			if _, ok := set[r]; !ok {
				return fmt.Errorf("%w: %s is still used by %s", ErrReferentialIntegrity, p.Key(), r)
			}
		}
	}

	// referrers are deleted before the primitives they reference
	sorted, cut := topoSort(old)
	states := make([]model.Primitive, len(sorted))
	prev := make([]model.Primitive, len(sorted))

	for i, p := range sorted {
		j := len(sorted) - 1 - i
		states[j] = model.WithState(p, model.Deleted)
		prev[j] = detached(p, cut)
	}

	if err := unlink(c.store, sorted, cut); err != nil {
		return err
	}

	if err := replaceAll(c.store, states, prev); err != nil {
		return errors.Join(err, relink(c.store, sorted, cut))
	}

	c.old = sorted
	c.cut = cut
	c.applied = true

	return nil
}

func (c *DeleteCommand) Revert() error {
	if err := c.checkRevert(c.Description()); err != nil {
		return err
	}

	current := make([]model.Primitive, len(c.old))
	restored := make([]model.Primitive, len(c.old))

	for i, p := range c.old {
		current[i] = model.WithState(p, model.Deleted)
		restored[i] = detached(p, c.cut)
	}

	if err := replaceAll(c.store, restored, current); err != nil {
		return err
	}

	if err := relink(c.store, c.old, c.cut); err != nil {
		return err
	}

	c.old = nil
	c.cut = nil
	c.applied = false

	return nil
}

func (c *DeleteCommand) Participants() []model.PrimitiveID {
	return slices.Clone(c.keys)
}

func (c *DeleteCommand) Description() string {
	return "Delete " + describeMany(c.keys)
}

// Delete builds a command deleting keys while keeping the store consistent:
//
//   - ways using a deleted node lose that node;
//   - ways left with fewer than two nodes are deleted as well;
//   - relations lose their memberships of deleted primitives;
//   - with alsoDeleteNodesInWay, untagged nodes of deleted ways that are used
//     nowhere else are deleted too.
func Delete(s store.Store, keys []model.PrimitiveID, alsoDeleteNodesInWay bool) (*SequenceCommand, error) {
	keys = uniqueKeys(keys)
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: nothing to delete", ErrPrecondition)
	}

	del := make(map[model.PrimitiveID]struct{}, len(keys))

	for _, k := range keys {
		p, ok := s.Get(k)
		if !ok || p.GetState() == model.Deleted {
			return nil, fmt.Errorf("%w: %s does not exist", ErrPrecondition, k)
		}

		del[k] = struct{}{}
	}

	if alsoDeleteNodesInWay {
		for _, k := range keys {
			if k.Type != model.WAY {
				continue
			}

			p, _ := s.Get(k)
			for _, id := range p.(*model.Way).NodeIDs {
				n, _ := s.Get(model.NodeID(id))
				if len(n.GetTags()) == 0 && allIn(liveReferrers(s, n.Key()), del) {
					del[n.Key()] = struct{}{}
				}
			}
		}
	}

	waysToChange := make(map[model.PrimitiveID]struct{})
	relationsToChange := make(map[model.PrimitiveID]map[model.PrimitiveID]struct{})

	addMembership := func(rel, member model.PrimitiveID) {
		if relationsToChange[rel] == nil {
			relationsToChange[rel] = make(map[model.PrimitiveID]struct{})
		}

		relationsToChange[rel][member] = struct{}{}
	}

	for _, k := range sortedKeys(del) {
		for _, r := range liveReferrers(s, k) {
			if _, ok := del[r]; ok {
				continue
			}

			switch r.Type {
			case model.WAY:
				waysToChange[r] = struct{}{}
			case model.RELATION:
				addMembership(r, k)
			}
		}
	}

	var cmds []Command

	for _, k := range sortedKeys(waysToChange) {
		p, _ := s.Get(k)
		w := p.(*model.Way)

		remove := make(map[model.ID]struct{})
		for _, id := range w.NodeIDs {
			if _, ok := del[model.NodeID(id)]; ok {
				remove[id] = struct{}{}
			}
		}

		remaining := removeNodes(w, remove)
		if len(remaining) < 2 {
			del[k] = struct{}{}

			for _, r := range liveReferrers(s, k) {
				if _, ok := del[r]; !ok {
					addMembership(r, k)
				}
			}

			continue
		}

		w.NodeIDs = remaining

		c, err := NewChangeCommand(s, w)
		if err != nil {
			return nil, err
		}

		cmds = append(cmds, c)
	}

	for _, k := range sortedKeys(relationsToChange) {
		if _, ok := del[k]; ok {
			continue
		}

		p, _ := s.Get(k)
		r := p.(*model.Relation)
		members := relationsToChange[k]

		r.Members = slices.DeleteFunc(r.Members, func(m model.Member) bool {
			_, ok := members[m.Key()]
			return ok
		})

		c, err := NewChangeCommand(s, r)
		if err != nil {
			return nil, err
		}

		cmds = append(cmds, c)
	}

	d, err := NewDeleteCommand(s, sortedKeys(del))
	if err != nil {
		return nil, err
	}

	cmds = append(cmds, d)

	return NewSequenceCommand(d.Description(), cmds...), nil
}

// DeleteWaySegment removes the segment between the nodes at lowerIndex and
// lowerIndex+1. Depending on where the segment is, the way is shortened,
// split in two or deleted.
func DeleteWaySegment(s store.Store, wayID model.ID, lowerIndex int) (Command, error) {
	w, err := getWay(s, wayID)
	if err != nil {
		return nil, err
	}

	if lowerIndex < 0 || lowerIndex >= len(w.NodeIDs)-1 {
		return nil, fmt.Errorf("%w: way %d has no segment %d", ErrPrecondition, wayID, lowerIndex)
	}

	n1 := slices.Clone(w.NodeIDs[:lowerIndex+1])
	n2 := slices.Clone(w.NodeIDs[lowerIndex+1:])

	switch {
	case len(n1) < 2 && len(n2) < 2:
		return Delete(s, []model.PrimitiveID{w.Key()}, false)
	case len(n1) < 2:
		w.NodeIDs = n2
		return NewChangeCommand(s, w)
	case len(n2) < 2:
		w.NodeIDs = n1
		return NewChangeCommand(s, w)
	}

	w.NodeIDs = n1

	change, err := NewChangeCommand(s, w)
	if err != nil {
		return nil, err
	}

	add, err := NewAddCommand(s, &model.Way{
		ID:      s.NewID(model.WAY),
		Tags:    maps.Clone(w.Tags),
		State:   model.New,
		NodeIDs: n2,
	})
	if err != nil {
		return nil, err
	}

	return NewSequenceCommand("Split way segment", change, add), nil
}

// liveReferrers returns the referrers of key that are not deleted.
func liveReferrers(s store.Store, key model.PrimitiveID) []model.PrimitiveID {
	var live []model.PrimitiveID

	for _, r := range s.Referrers(key) {
		if p, ok := s.Get(r); ok && p.GetState() != model.Deleted {
			live = append(live, r)
		}
	}

	return live
}

func allIn(keys []model.PrimitiveID, set map[model.PrimitiveID]struct{}) bool {
	for _, k := range keys {
		if _, ok := set[k]; !ok {
			return false
		}
	}

	return true
}

func sortedKeys[V any](m map[model.PrimitiveID]V) []model.PrimitiveID {
	keys := slices.Collect(maps.Keys(m))
	slices.SortFunc(keys, model.PrimitiveID.Compare)

	return keys
}
