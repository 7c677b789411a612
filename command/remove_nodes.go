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

// RemoveNodesCommand removes nodes from a way, keeping the relative order of
// the remaining ones. The nodes themselves stay in the store.
type RemoveNodesCommand struct {
	lifecycle
	store  store.Store
	way    model.ID
	remove map[model.ID]struct{}
	old    *model.Way
}

var _ Command = (*RemoveNodesCommand)(nil)

// NewRemoveNodesCommand creates a command removing nodeIDs from the way. It
// fails with ErrWayWouldDegenerate if fewer than two nodes would remain.
func NewRemoveNodesCommand(s store.Store, wayID model.ID, nodeIDs []model.ID) (*RemoveNodesCommand, error) {
	w, err := getWay(s, wayID)
	if err != nil {
		return nil, err
	}

	remove := make(map[model.ID]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		remove[id] = struct{}{}
	}

	remaining := removeNodes(w, remove)
	if len(remaining) == len(w.NodeIDs) {
		return nil, fmt.Errorf("%w: way %d contains none of the nodes", ErrPrecondition, wayID)
	}

	if len(remaining) < 2 {
		return nil, fmt.Errorf("%w: way %d", ErrWayWouldDegenerate, wayID)
	}

	return &RemoveNodesCommand{store: s, way: wayID, remove: remove}, nil
}

func (c *RemoveNodesCommand) Apply() error {
	if err := c.checkApply(c.Description()); err != nil {
		return err
	}

	w, err := getWay(c.store, c.way)
	if err != nil {
		return err
	}

	remaining := removeNodes(w, c.remove)
	if len(remaining) < 2 {
		return fmt.Errorf("%w: way %d", ErrWayWouldDegenerate, c.way)
	}

	nw := w.Clone().(*model.Way)
	nw.NodeIDs = remaining

	if err := c.store.Replace(nw.Key(), nw); err != nil {
		return err
	}

	c.old = w
	c.applied = true

	return nil
}

func (c *RemoveNodesCommand) Revert() error {
	if err := c.checkRevert(c.Description()); err != nil {
		return err
	}

	if err := c.store.Replace(c.old.Key(), c.old); err != nil {
		return err
	}

	c.old = nil
	c.applied = false

	return nil
}

func (c *RemoveNodesCommand) Participants() []model.PrimitiveID {
	return []model.PrimitiveID{model.WayID(c.way)}
}

func (c *RemoveNodesCommand) Description() string {
	return fmt.Sprintf("Remove %d nodes from way %d", len(c.remove), c.way)
}

// removeNodes drops every occurrence of the removed nodes. A closed way stays
// closed, and nodes that end up adjacent to themselves are collapsed.
func removeNodes(w *model.Way, remove map[model.ID]struct{}) []model.ID {
	remaining := make([]model.ID, 0, len(w.NodeIDs))

	for _, id := range w.NodeIDs {
		if _, ok := remove[id]; !ok {
			remaining = append(remaining, id)
		}
	}

	if w.IsClosed() && len(remaining) > 0 && remaining[0] != remaining[len(remaining)-1] {
		remaining = append(remaining, remaining[0])
	}

	return slices.Compact(remaining)
}
