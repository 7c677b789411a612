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

// Package command contains the reversible mutations applied to a primitive
// store.
//
// Every Command moves between two states, unapplied and applied, and only
// through Apply and Revert. Apply followed by Revert leaves the store exactly
// as it was: same tags, coordinates, node lists, members, info and lifecycle
// state. Commands validate their inputs when they are built and again when
// they are applied; a command that fails does not leave a partial mutation
// behind.
package command

import (
	"errors"
	"fmt"
	"slices"

	"m4o.io/osmedit/model"
	"m4o.io/osmedit/store"
)

var (
	// ErrPrecondition is returned when a command is built from, or applied to,
	// input that would leave the store inconsistent.
	ErrPrecondition = errors.New("precondition violated")

	// ErrWayWouldDegenerate is returned when fewer than two nodes would
	// remain in a way.
	ErrWayWouldDegenerate = fmt.Errorf("%w: way would have fewer than two nodes", ErrPrecondition)

	// ErrOutsideWorld is returned when a node would be placed beyond the
	// valid latitude or longitude range.
	ErrOutsideWorld = fmt.Errorf("%w: node outside the world", ErrPrecondition)

	// ErrIllegalState is returned when Apply or Revert are called out of
	// sequence.
	ErrIllegalState = errors.New("illegal command state")

	ErrDuplicateInsert      = store.ErrDuplicateInsert
	ErrReferentialIntegrity = store.ErrReferentialIntegrity
)

// Command is an atomic, reversible mutation of a primitive store.
type Command interface {
	// Apply performs the mutation. It fails with ErrIllegalState if the
	// command is already applied.
	Apply() error

	// Revert restores the state the store had before Apply. It fails with
	// ErrIllegalState if the command is not applied.
	Revert() error

	// Participants lists the primitives the command reads or mutates.
	Participants() []model.PrimitiveID

	// Description is a human readable label, stable across apply/revert.
	Description() string
}

// lifecycle guards the unapplied/applied state machine shared by all
// commands.
type lifecycle struct {
	applied bool
}

// Applied reports whether the command is currently applied.
func (l *lifecycle) Applied() bool { return l.applied }

func (l *lifecycle) checkApply(desc string) error {
	if l.applied {
		return fmt.Errorf("%w: %q is already applied", ErrIllegalState, desc)
	}

	return nil
}

func (l *lifecycle) checkRevert(desc string) error {
	if !l.applied {
		return fmt.Errorf("%w: %q is not applied", ErrIllegalState, desc)
	}

	return nil
}

// replaceAll writes states into the store in order. If one of the writes
// fails, the ones already written are rolled back to previous.
func replaceAll(s store.Store, states, previous []model.Primitive) error {
	for i, p := range states {
		if err := s.Replace(p.Key(), p); err != nil {
			for j := i - 1; j >= 0; j-- {
				if rerr := s.Replace(previous[j].Key(), previous[j]); rerr != nil {
					err = errors.Join(err, rerr)
				}
			}

			return err
		}
	}

	return nil
}

// fetch returns copies of the primitives for keys, failing on the first
// missing one.
func fetch(s store.Store, keys []model.PrimitiveID) ([]model.Primitive, error) {
	prims := make([]model.Primitive, len(keys))

	for i, k := range keys {
		p, ok := s.Get(k)
		if !ok {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, k)
		}

		prims[i] = p
	}

	return prims, nil
}

// uniqueKeys sorts keys and drops duplicates.
func uniqueKeys(keys []model.PrimitiveID) []model.PrimitiveID {
	keys = slices.Clone(keys)
	slices.SortFunc(keys, model.PrimitiveID.Compare)

	return slices.Compact(keys)
}

// checkShape rejects malformed ways and nodes placed outside the world.
func checkShape(p model.Primitive) error {
	switch v := p.(type) {
	case *model.Way:
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrPrecondition, err)
		}
	case *model.Node:
		if !model.InWorld(v.Lat, v.Lon) {
			return fmt.Errorf("%w: %s at %g, %g", ErrOutsideWorld, v.Key(), float64(v.Lat), float64(v.Lon))
		}
	}

	return nil
}

// describe names a single primitive, e.g. "way 10".
func describe(k model.PrimitiveID) string {
	return fmt.Sprintf("%s %d", k.Type, k.ID)
}

// describeMany names a set of primitives, e.g. "3 nodes" or "2 objects".
func describeMany(keys []model.PrimitiveID) string {
	if len(keys) == 1 {
		return describe(keys[0])
	}

	t := keys[0].Type
	for _, k := range keys[1:] {
		if k.Type != t {
			return fmt.Sprintf("%d objects", len(keys))
		}
	}

	return fmt.Sprintf("%d %ss", len(keys), t)
}
