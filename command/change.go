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
	"fmt"
	"maps"
	"slices"

	"m4o.io/osmedit/model"
	"m4o.io/osmedit/store"
)

// ChangeCommand swaps the complete state of one existing primitive. Both
// the old and the new state are kept, so reverting is a plain swap back.
type ChangeCommand struct {
	lifecycle
	store    store.Store
	newState model.Primitive
	oldState model.Primitive
}

var _ Command = (*ChangeCommand)(nil)

// NewChangeCommand creates a command replacing the primitive identified by
// newState.Key() with newState.
func NewChangeCommand(s store.Store, newState model.Primitive) (*ChangeCommand, error) {
	if _, ok := s.Get(newState.Key()); !ok {
		return nil, fmt.Errorf("%w: %s does not exist", ErrPrecondition, newState.Key())
	}

	if err := checkShape(newState); err != nil {
		return nil, err
	}

	return &ChangeCommand{store: s, newState: newState.Clone()}, nil
}

func (c *ChangeCommand) Apply() error {
	if err := c.checkApply(c.Description()); err != nil {
		return err
	}

	key := c.newState.Key()

	old, ok := c.store.Get(key)
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}

	if err := c.store.Replace(key, c.newState); err != nil {
		return err
	}

	c.oldState = old
	c.applied = true

	return nil
}

func (c *ChangeCommand) Revert() error {
	if err := c.checkRevert(c.Description()); err != nil {
		return err
	}

	if err := c.store.Replace(c.oldState.Key(), c.oldState); err != nil {
		return err
	}

	c.applied = false

	return nil
}

func (c *ChangeCommand) Participants() []model.PrimitiveID {
	return []model.PrimitiveID{c.newState.Key()}
}

func (c *ChangeCommand) Description() string {
	return "Change " + describe(c.newState.Key())
}

// ReverseWay builds a command reversing the node order of a way.
func ReverseWay(s store.Store, wayID model.ID) (*ChangeCommand, error) {
	w, err := getWay(s, wayID)
	if err != nil {
		return nil, err
	}

	slices.Reverse(w.NodeIDs)

	return NewChangeCommand(s, w)
}

// ChangePropertyCommand sets one tag on a number of primitives. An empty
// value removes the tag.
type ChangePropertyCommand struct {
	lifecycle
	store     store.Store
	keys      []model.PrimitiveID
	tag       string
	value     string
	oldStates []model.Primitive
}

var _ Command = (*ChangePropertyCommand)(nil)

// NewChangePropertyCommand creates a command setting tag=value on keys.
func NewChangePropertyCommand(s store.Store, keys []model.PrimitiveID, tag, value string) (*ChangePropertyCommand, error) {
	if tag == "" {
		return nil, fmt.Errorf("%w: empty tag key", ErrPrecondition)
	}

	keys = uniqueKeys(keys)
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no primitives to tag", ErrPrecondition)
	}

	if _, err := fetch(s, keys); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrecondition, err)
	}

	return &ChangePropertyCommand{store: s, keys: keys, tag: tag, value: value}, nil
}

func (c *ChangePropertyCommand) Apply() error {
	if err := c.checkApply(c.Description()); err != nil {
		return err
	}

	old, err := fetch(c.store, c.keys)
	if err != nil {
		return err
	}

	states := make([]model.Primitive, len(old))

	for i, p := range old {
		tags := maps.Clone(p.GetTags())
		if tags == nil {
			tags = make(map[string]string)
		}

		if c.value == "" {
			delete(tags, c.tag)
		} else {
			tags[c.tag] = c.value
		}

		states[i] = model.WithTags(p, tags)
	}

	if err := replaceAll(c.store, states, old); err != nil {
		return err
	}

	c.oldStates = old
	c.applied = true

	return nil
}

func (c *ChangePropertyCommand) Revert() error {
	if err := c.checkRevert(c.Description()); err != nil {
		return err
	}

	current, err := fetch(c.store, c.keys)
	if err != nil {
		return err
	}

	if err := replaceAll(c.store, c.oldStates, current); err != nil {
		return err
	}

	c.applied = false

	return nil
}

func (c *ChangePropertyCommand) Participants() []model.PrimitiveID {
	return slices.Clone(c.keys)
}

func (c *ChangePropertyCommand) Description() string {
	if c.value == "" {
		return fmt.Sprintf("Remove %q for %s", c.tag, describeMany(c.keys))
	}

	return fmt.Sprintf("Set %s=%s for %s", c.tag, c.value, describeMany(c.keys))
}

func getWay(s store.Store, wayID model.ID) (*model.Way, error) {
	p, ok := s.Get(model.WayID(wayID))
	if !ok {
		return nil, fmt.Errorf("%w: way %d does not exist", ErrPrecondition, wayID)
	}

	w := p.(*model.Way)
	if w.State == model.Deleted {
		return nil, fmt.Errorf("%w: way %d is deleted", ErrPrecondition, wayID)
	}

	return w, nil
}
