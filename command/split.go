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

var (
	ErrSplitCircular = fmt.Errorf("%w: two or more nodes are needed to split a circular way", ErrPrecondition)
	ErrSplitEnds     = fmt.Errorf("%w: the way cannot be split at the selected nodes", ErrPrecondition)
)

// SplitWay builds a command splitting a way at the given nodes. The first
// chunk keeps the identity of the original way; the others become new ways
// carrying the same tags. Relations containing the way get the new ways
// inserted right after it, with the same role.
func SplitWay(s store.Store, wayID model.ID, atNodes []model.ID) (*SequenceCommand, error) {
	w, err := getWay(s, wayID)
	if err != nil {
		return nil, err
	}

	chunks, err := SplitChunks(w.NodeIDs, atNodes)
	if err != nil {
		return nil, fmt.Errorf("way %d: %w", wayID, err)
	}

	first := w.Clone().(*model.Way)
	first.NodeIDs = chunks[0]

	change, err := NewChangeCommand(s, first)
	if err != nil {
		return nil, err
	}

	cmds := []Command{change}
	added := make([]model.Member, 0, len(chunks)-1)

	for _, chunk := range chunks[1:] {
		nw := &model.Way{
			ID:      s.NewID(model.WAY),
			Tags:    maps.Clone(w.Tags),
			State:   model.New,
			NodeIDs: chunk,
		}

		add, err := NewAddCommand(s, nw)
		if err != nil {
			return nil, err
		}

		cmds = append(cmds, add)
		added = append(added, model.Member{ID: nw.ID, Type: model.WAY})
	}

	for _, rk := range liveReferrers(s, w.Key()) {
		if rk.Type != model.RELATION {
			continue
		}

		p, _ := s.Get(rk)
		r := p.(*model.Relation)

		members := make([]model.Member, 0, len(r.Members)+len(added))
		for _, m := range r.Members {
			members = append(members, m)

			if m.Key() != w.Key() {
				continue
			}

			for _, a := range added {
				a.Role = m.Role
				members = append(members, a)
			}
		}

		r.Members = members

		c, err := NewChangeCommand(s, r)
		if err != nil {
			return nil, err
		}

		cmds = append(cmds, c)
	}

	desc := fmt.Sprintf("Split way %d into %d parts", wayID, len(chunks))

	return NewSequenceCommand(desc, cmds...), nil
}

// SplitChunks cuts a node list at the split points. A split point at either
// end of an open way does not cut it. A closed way is only cut at the split
// points, never at its former end point, so it needs at least two of them.
func SplitChunks(nodeIDs []model.ID, splitPoints []model.ID) ([][]model.ID, error) {
	if len(nodeIDs) == 0 {
		return nil, ErrSplitEnds
	}

	at := make(map[model.ID]struct{}, len(splitPoints))
	for _, id := range splitPoints {
		at[id] = struct{}{}
	}

	current := []model.ID{}
	chunks := [][]model.ID{}

	for i, id := range nodeIDs {
		atEnd := len(current) == 0 || i == len(nodeIDs)-1
		current = append(current, id)

		if _, ok := at[id]; ok && !atEnd {
			chunks = append(chunks, current)
			current = []model.ID{id}
		}
	}

	chunks = append(chunks, current)

	last := chunks[len(chunks)-1]
	start := chunks[0][0]

	if _, split := at[start]; len(chunks) >= 2 && start == last[len(last)-1] && !split {
		if len(chunks) == 2 {
			return nil, ErrSplitCircular
		}

		joined := append(slices.Clone(last[:len(last)-1]), chunks[0]...)
		chunks = append([][]model.ID{joined}, chunks[1:len(chunks)-1]...)
	}

	if len(chunks) < 2 {
		if c := chunks[0]; c[0] == c[len(c)-1] {
			return nil, ErrSplitCircular
		}

		return nil, ErrSplitEnds
	}

	return chunks, nil
}
