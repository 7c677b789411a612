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

	"m4o.io/osmedit/model"
	"m4o.io/osmedit/store"
)

// AddCommand inserts a new primitive into the store.
type AddCommand struct {
	lifecycle
	store     store.Store
	primitive model.Primitive
}

var _ Command = (*AddCommand)(nil)

// NewAddCommand creates a command inserting p. The primitive must not exist
// in the store yet.
func NewAddCommand(s store.Store, p model.Primitive) (*AddCommand, error) {
	if _, ok := s.Get(p.Key()); ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateInsert, p.Key())
	}

	if err := checkShape(p); err != nil {
		return nil, err
	}

	return &AddCommand{store: s, primitive: p.Clone()}, nil
}

func (c *AddCommand) Apply() error {
	if err := c.checkApply(c.Description()); err != nil {
		return err
	}

	if err := c.store.Insert(c.primitive); err != nil {
		return err
	}

	c.applied = true

	return nil
}

func (c *AddCommand) Revert() error {
	if err := c.checkRevert(c.Description()); err != nil {
		return err
	}

	if err := c.store.Remove(c.primitive.Key()); err != nil {
		return err
	}

	c.applied = false

	return nil
}

func (c *AddCommand) Participants() []model.PrimitiveID {
	return []model.PrimitiveID{c.primitive.Key()}
}

func (c *AddCommand) Description() string {
	return "Add " + describe(c.primitive.Key())
}

// Primitive returns a copy of the primitive being added.
func (c *AddCommand) Primitive() model.Primitive {
	return c.primitive.Clone()
}

// AddPrimitives builds one undo step inserting all prims. They are ordered so
// that every node is added before the ways using it and every member before
// its relation. Relations referencing each other in a cycle are added without
// members first and get them back once all of prims are in the store.
func AddPrimitives(s store.Store, prims []model.Primitive) (*SequenceCommand, error) {
	if len(prims) == 0 {
		return nil, fmt.Errorf("%w: nothing to add", ErrPrecondition)
	}

	seen := make(map[model.PrimitiveID]struct{}, len(prims))
	for _, p := range prims {
		if _, ok := seen[p.Key()]; ok {
			return nil, fmt.Errorf("%w: %s listed twice", ErrDuplicateInsert, p.Key())
		}

		seen[p.Key()] = struct{}{}
	}

	sorted, cut := topoSort(prims)
	cmds := make([]Command, 0, len(sorted)+len(cut))

	for _, p := range sorted {
		c, err := NewAddCommand(s, detached(p, cut))
		if err != nil {
			return nil, err
		}

		cmds = append(cmds, c)
	}

	// the relations do not exist yet, so NewChangeCommand cannot be used
	for _, p := range sorted {
		if _, ok := cut[p.Key()]; ok {
			cmds = append(cmds, &ChangeCommand{store: s, newState: p.Clone()})
		}
	}

	if len(sorted) == 1 {
		return NewSequenceCommand(cmds[0].Description(), cmds...), nil
	}

	return NewSequenceCommand(fmt.Sprintf("Add %d objects", len(sorted)), cmds...), nil
}
