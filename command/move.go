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
	"slices"

	"m4o.io/osmedit/model"
	"m4o.io/osmedit/store"
)

// MoveCommand translates a set of nodes. East is added to the longitude and
// north to the latitude.
//
// The coordinates the nodes had when the command was applied are kept, and
// the nodes are always placed at origin + cumulative offset. Revert restores
// the kept coordinates, so no floating point error accumulates over
// repeated MoveAgain calls.
type MoveCommand struct {
	lifecycle
	store  store.Store
	nodes  []model.PrimitiveID
	east   model.Degrees
	north  model.Degrees
	origin []*model.Node
}

var _ Command = (*MoveCommand)(nil)

// NewMoveCommand creates a command moving the nodes by (east, north).
func NewMoveCommand(s store.Store, nodeIDs []model.ID, east, north model.Degrees) (*MoveCommand, error) {
	keys := make([]model.PrimitiveID, len(nodeIDs))
	for i, id := range nodeIDs {
		keys[i] = model.NodeID(id)
	}

	keys = uniqueKeys(keys)
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no nodes to move", ErrPrecondition)
	}

	for _, k := range keys {
		p, ok := s.Get(k)
		if !ok {
			return nil, fmt.Errorf("%w: %s does not exist", ErrPrecondition, k)
		}

		if p.GetState() == model.Deleted {
			return nil, fmt.Errorf("%w: %s is deleted", ErrPrecondition, k)
		}
	}

	return &MoveCommand{store: s, nodes: keys, east: east, north: north}, nil
}

func (c *MoveCommand) Apply() error {
	if err := c.checkApply(c.Description()); err != nil {
		return err
	}

	prims, err := fetch(c.store, c.nodes)
	if err != nil {
		return err
	}

	origin := make([]*model.Node, len(prims))
	for i, p := range prims {
		origin[i] = p.(*model.Node)
	}

	if err := c.place(origin, origin, c.east, c.north); err != nil {
		return err
	}

	c.origin = origin
	c.applied = true

	return nil
}

// MoveAgain adds a further offset to an applied command without creating a
// new command. This is how continuous drags collapse into one undo step.
func (c *MoveCommand) MoveAgain(east, north model.Degrees) error {
	if !c.applied {
		return fmt.Errorf("%w: %q is not applied", ErrIllegalState, c.Description())
	}

	current, err := fetch(c.store, c.nodes)
	if err != nil {
		return err
	}

	previous := make([]*model.Node, len(current))
	for i, p := range current {
		previous[i] = p.(*model.Node)
	}

	e, n := c.east+east, c.north+north
	if err := c.place(c.origin, previous, e, n); err != nil {
		return err
	}

	c.east, c.north = e, n

	return nil
}

func (c *MoveCommand) Revert() error {
	if err := c.checkRevert(c.Description()); err != nil {
		return err
	}

	current, err := fetch(c.store, c.nodes)
	if err != nil {
		return err
	}

	states := make([]model.Primitive, len(c.origin))
	for i, n := range c.origin {
		states[i] = n
	}

	if err := replaceAll(c.store, states, current); err != nil {
		return err
	}

	c.origin = nil
	c.applied = false

	return nil
}

// place writes origin + (east, north) for every node, rolling back to
// previous if a write fails.
func (c *MoveCommand) place(origin, previous []*model.Node, east, north model.Degrees) error {
	states := make([]model.Primitive, len(origin))
	prev := make([]model.Primitive, len(previous))

	for i, o := range origin {
		n := o.Clone().(*model.Node)
		n.Lat = o.Lat + north
		n.Lon = o.Lon + east

		if err := checkShape(n); err != nil {
			return err
		}

		states[i] = n
		prev[i] = previous[i]
	}

	return replaceAll(c.store, states, prev)
}

func (c *MoveCommand) Participants() []model.PrimitiveID {
	return slices.Clone(c.nodes)
}

func (c *MoveCommand) Description() string {
	return "Move " + describeMany(c.nodes)
}

// Offset returns the cumulative translation of the command.
func (c *MoveCommand) Offset() (east, north model.Degrees) {
	return c.east, c.north
}
