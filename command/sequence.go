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
)

// SequenceCommand applies an ordered list of commands as one step. Children
// are applied in order and reverted in reverse order. When a child fails,
// the children already processed are rolled back before the error is
// returned, so a partially applied sequence is never visible.
type SequenceCommand struct {
	lifecycle
	description string
	children    []Command
}

var _ Command = (*SequenceCommand)(nil)

// NewSequenceCommand groups children under description.
func NewSequenceCommand(description string, children ...Command) *SequenceCommand {
	return &SequenceCommand{description: description, children: slices.Clone(children)}
}

func (c *SequenceCommand) Apply() error {
	if err := c.checkApply(c.description); err != nil {
		return err
	}

	for i, child := range c.children {
		if err := child.Apply(); err != nil {
			err = fmt.Errorf("%s: step %d (%s): %w", c.description, i+1, child.Description(), err)

			for j := i - 1; j >= 0; j-- {
				if rerr := c.children[j].Revert(); rerr != nil {
					err = errors.Join(err, fmt.Errorf("rollback of %s: %w", c.children[j].Description(), rerr))
				}
			}

			return err
		}
	}

	c.applied = true

	return nil
}

func (c *SequenceCommand) Revert() error {
	if err := c.checkRevert(c.description); err != nil {
		return err
	}

	for i := len(c.children) - 1; i >= 0; i-- {
		child := c.children[i]

		if err := child.Revert(); err != nil {
			err = fmt.Errorf("%s: undo of step %d (%s): %w", c.description, i+1, child.Description(), err)

			for j := i + 1; j < len(c.children); j++ {
				if rerr := c.children[j].Apply(); rerr != nil {
					err = errors.Join(err, fmt.Errorf("rollback of %s: %w", c.children[j].Description(), rerr))
				}
			}

			return err
		}
	}

	c.applied = false

	return nil
}

// Participants is the ordered union of the children's participants.
func (c *SequenceCommand) Participants() []model.PrimitiveID {
	seen := make(map[model.PrimitiveID]struct{})

	var keys []model.PrimitiveID

	for _, child := range c.children {
		for _, k := range child.Participants() {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}

	return keys
}

func (c *SequenceCommand) Description() string {
	return c.description
}

// Children returns the commands of the sequence in application order.
func (c *SequenceCommand) Children() []Command {
	return slices.Clone(c.children)
}

// Last returns the final child, or nil for an empty sequence.
func (c *SequenceCommand) Last() Command {
	if len(c.children) == 0 {
		return nil
	}

	return c.children[len(c.children)-1]
}
