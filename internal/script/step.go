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


package script

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"m4o.io/osmedit/command"
	"m4o.io/osmedit/model"
	"m4o.io/osmedit/session"
	"m4o.io/osmedit/store"
)

// Op names what a step does.
type Op string

const (
	OpAddNode       Op = "add-node"
	OpAddWay        Op = "add-way"
	OpAddRelation   Op = "add-relation"
	OpMove          Op = "move"
	OpTag           Op = "tag"
	OpChangeNodes   Op = "change-nodes"
	OpRemoveNodes   Op = "remove-nodes"
	OpDelete        Op = "delete"
	OpDeleteSegment Op = "delete-segment"
	OpPurge         Op = "purge"
	OpSplit         Op = "split"
	OpReverse       Op = "reverse"
	OpUndo          Op = "undo"
	OpRedo          Op = "redo"
)

var ErrInvalidStep = errors.New("invalid step")

// Member is a relation member as written in a script.
type Member struct {
	Type string   `yaml:"type"`
	Ref  model.ID `yaml:"ref"`
	Role string   `yaml:"role"`
}

// Step is one action of an edit script. Which fields matter depends on Op.
type Step struct {
	Op      Op                `yaml:"op"`
	ID      model.ID          `yaml:"id,omitempty"`
	Lat     model.Degrees     `yaml:"lat,omitempty"`
	Lon     model.Degrees     `yaml:"lon,omitempty"`
	Tags    map[string]string `yaml:"tags,omitempty"`
	Way     model.ID          `yaml:"way,omitempty"`
	Nodes   []model.ID        `yaml:"nodes,omitempty"`
	Members []Member          `yaml:"members,omitempty"`
	Targets []string          `yaml:"targets,omitempty"`
	Key     string            `yaml:"key,omitempty"`
	Value   string            `yaml:"value,omitempty"`
	East    model.Degrees     `yaml:"east,omitempty"`
	North   model.Degrees     `yaml:"north,omitempty"`
	Index   int               `yaml:"index,omitempty"`
	Cascade bool              `yaml:"cascade,omitempty"`
	Count   int               `yaml:"count,omitempty"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidStep, fmt.Sprintf(format, args...))
}

// Validate checks that the step carries what its operation needs. It does
// not look at any store.
func (s *Step) Validate() error {
	switch s.Op {
	case OpAddNode:
		if s.ID > 0 {
			return invalid("new node cannot have the upstream id %d", s.ID)
		}
	case OpAddWay:
		if s.ID > 0 {
			return invalid("new way cannot have the upstream id %d", s.ID)
		}

		if len(s.Nodes) < 2 {
			return invalid("a way needs at least two nodes")
		}
	case OpAddRelation:
		if s.ID > 0 {
			return invalid("new relation cannot have the upstream id %d", s.ID)
		}

		if _, err := s.members(); err != nil {
			return err
		}
	case OpMove:
		if len(s.Nodes) == 0 {
			return invalid("nothing to move")
		}
	case OpTag:
		if s.Key == "" {
			return invalid("missing tag key")
		}

		if _, err := s.keys(); err != nil {
			return err
		}
	case OpChangeNodes:
		if s.Way == 0 || len(s.Nodes) < 2 {
			return invalid("a way and at least two nodes are needed")
		}
	case OpRemoveNodes, OpSplit:
		if s.Way == 0 || len(s.Nodes) == 0 {
			return invalid("a way and at least one node are needed")
		}
	case OpDelete, OpPurge:
		if _, err := s.keys(); err != nil {
			return err
		}
	case OpDeleteSegment:
		if s.Way == 0 || s.Index < 0 {
			return invalid("a way and a segment index are needed")
		}
	case OpReverse:
		if s.Way == 0 {
			return invalid("missing way")
		}
	case OpUndo, OpRedo:
		if s.Count < 0 {
			return invalid("negative count %d", s.Count)
		}
	case "":
		return invalid("missing op")
	default:
		return invalid("unknown op %q", s.Op)
	}

	return nil
}

// IsHistory reports whether the step moves through the history instead of
// building a command.
func (s *Step) IsHistory() bool {
	return s.Op == OpUndo || s.Op == OpRedo
}

func (s *Step) count() int {
	return max(s.Count, 1)
}

func (s *Step) keys() ([]model.PrimitiveID, error) {
	if len(s.Targets) == 0 {
		return nil, invalid("no targets")
	}

	keys := make([]model.PrimitiveID, 0, len(s.Targets))
	for _, t := range s.Targets {
		k, err := model.ParsePrimitiveID(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidStep, err)
		}

		keys = append(keys, k)
	}

	return keys, nil
}

func (s *Step) members() ([]model.Member, error) {
	members := make([]model.Member, 0, len(s.Members))
	for _, m := range s.Members {
		t, err := model.ParseEntityType(m.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidStep, err)
		}

		members = append(members, model.Member{ID: m.Ref, Type: t, Role: m.Role})
	}

	return members, nil
}

func newID(st store.Store, id model.ID, t model.EntityType) model.ID {
	if id != 0 {
		return id
	}

	return st.NewID(t)
}

// Builder returns how to build the command of the step. History steps have
// no builder.
func (s *Step) Builder() (session.Builder, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	switch s.Op {
	case OpAddNode:
		return func(st store.Store) (command.Command, error) {
			return command.NewAddCommand(st, &model.Node{
				ID:    newID(st, s.ID, model.NODE),
				State: model.New,
				Tags:  maps.Clone(s.Tags),
				Lat:   s.Lat,
				Lon:   s.Lon,
			})
		}, nil
	case OpAddWay:
		return func(st store.Store) (command.Command, error) {
			return command.NewAddCommand(st, &model.Way{
				ID:      newID(st, s.ID, model.WAY),
				State:   model.New,
				Tags:    maps.Clone(s.Tags),
				NodeIDs: slices.Clone(s.Nodes),
			})
		}, nil
	case OpAddRelation:
		members, err := s.members()
		if err != nil {
			return nil, err
		}

		return func(st store.Store) (command.Command, error) {
			return command.NewAddCommand(st, &model.Relation{
				ID:      newID(st, s.ID, model.RELATION),
				State:   model.New,
				Tags:    maps.Clone(s.Tags),
				Members: members,
			})
		}, nil
	case OpMove:
		return func(st store.Store) (command.Command, error) {
			return command.NewMoveCommand(st, s.Nodes, s.East, s.North)
		}, nil
	case OpTag:
		keys, err := s.keys()
		if err != nil {
			return nil, err
		}

		return func(st store.Store) (command.Command, error) {
			return command.NewChangePropertyCommand(st, keys, s.Key, s.Value)
		}, nil
	case OpChangeNodes:
		return func(st store.Store) (command.Command, error) {
			p, ok := st.Get(model.WayID(s.Way))
			if !ok {
				return nil, fmt.Errorf("%w: %s does not exist", command.ErrPrecondition, model.WayID(s.Way))
			}

			w := p.(*model.Way)
			w.NodeIDs = slices.Clone(s.Nodes)

			return command.NewChangeCommand(st, w)
		}, nil
	case OpRemoveNodes:
		return func(st store.Store) (command.Command, error) {
			return command.NewRemoveNodesCommand(st, s.Way, s.Nodes)
		}, nil
	case OpDelete:
		keys, err := s.keys()
		if err != nil {
			return nil, err
		}

		return func(st store.Store) (command.Command, error) {
			return command.Delete(st, keys, s.Cascade)
		}, nil
	case OpDeleteSegment:
		return func(st store.Store) (command.Command, error) {
			return command.DeleteWaySegment(st, s.Way, s.Index)
		}, nil
	case OpPurge:
		keys, err := s.keys()
		if err != nil {
			return nil, err
		}

		return func(st store.Store) (command.Command, error) {
			return command.NewPurgeCommand(st, keys)
		}, nil
	case OpSplit:
		return func(st store.Store) (command.Command, error) {
			return command.SplitWay(st, s.Way, s.Nodes)
		}, nil
	case OpReverse:
		return func(st store.Store) (command.Command, error) {
			return command.ReverseWay(st, s.Way)
		}, nil
	default:
		return nil, invalid("%s does not build a command", s.Op)
	}
}
