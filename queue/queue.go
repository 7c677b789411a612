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

// Package queue keeps the linear undo/redo history of an editing session.
package queue

import (
	"fmt"
	"log/slog"
	"slices"

	"m4o.io/osmedit/command"
	"m4o.io/osmedit/model"
)

// Listener is told about the history sizes after every change of the queue.
type Listener interface {
	CommandsChanged(doneSize, redoSize int)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(doneSize, redoSize int)

func (f ListenerFunc) CommandsChanged(doneSize, redoSize int) { f(doneSize, redoSize) }

// Notifier is told which primitives were touched, once per successful
// add, undo or redo and only after the store is consistent again.
type Notifier interface {
	FireChanged(participants []model.PrimitiveID)
}

type listenerEntry struct {
	l Listener
}

// Queue is the done/redo history. Adding a command applies it and truncates
// the redo list; undo and redo move commands between the two lists.
//
// A Queue is not safe for concurrent use.
type Queue struct {
	done      []command.Command
	redo      []command.Command
	listeners []*listenerEntry
	opts      queueOptions
	log       *slog.Logger
}

// New creates an empty queue.
func New(opts ...Option) *Queue {
	o := defaultQueueConfig
	for _, opt := range opts {
		opt(&o)
	}

	log := o.logger
	if log == nil {
		log = slog.Default()
	}

	return &Queue{opts: o, log: log}
}

// AddListener registers l and returns a function removing it again.
func (q *Queue) AddListener(l Listener) (remove func()) {
	e := &listenerEntry{l: l}
	q.listeners = append(q.listeners, e)

	return func() {
		q.listeners = slices.DeleteFunc(q.listeners, func(o *listenerEntry) bool { return o == e })
	}
}

// Add applies cmd and records it. A move of exactly the nodes the last
// recorded move touched is folded into that move instead, so that a drag
// stays one undo step. On failure nothing is recorded.
func (q *Queue) Add(cmd command.Command) error {
	if err := q.add(cmd); err != nil {
		return err
	}

	q.fireCommandsChanged()

	return nil
}

// AddBatch adds cmds in order, notifying listeners only once at the end. It
// stops at the first command that fails; the ones before it stay recorded.
func (q *Queue) AddBatch(cmds ...command.Command) error {
	added := 0

	defer func() {
		if added > 0 {
			q.fireCommandsChanged()
		}
	}()

	for _, cmd := range cmds {
		if err := q.add(cmd); err != nil {
			return err
		}

		added++
	}

	return nil
}

func (q *Queue) add(cmd command.Command) error {
	if q.merge(cmd) {
		return nil
	}

	if err := cmd.Apply(); err != nil {
		q.log.Error("unable to apply command", "command", cmd.Description(), "error", err)

		return fmt.Errorf("add %q: %w", cmd.Description(), err)
	}

	q.done = append(q.done, cmd)
	if q.opts.maxUndo > 0 && len(q.done) > q.opts.maxUndo {
		q.done = slices.Delete(q.done, 0, len(q.done)-q.opts.maxUndo)
	}

	clear(q.redo)
	q.redo = q.redo[:0]

	q.fireChanged(cmd)
	q.log.Debug("command added", "command", cmd.Description(), "done", len(q.done))

	return nil
}

// merge folds a move into the last recorded move of the same nodes.
func (q *Queue) merge(cmd command.Command) bool {
	if !q.opts.mergeMoves {
		return false
	}

	mc, ok := cmd.(*command.MoveCommand)
	if !ok || mc.Applied() {
		return false
	}

	last, ok := q.Last().(*command.MoveCommand)
	if !ok || !last.Applied() || !slices.Equal(last.Participants(), mc.Participants()) {
		return false
	}

	east, north := mc.Offset()
	if err := last.MoveAgain(east, north); err != nil {
		q.log.Debug("unable to merge move", "command", last.Description(), "error", err)

		return false
	}

	clear(q.redo)
	q.redo = q.redo[:0]

	q.fireChanged(last)
	q.log.Debug("move merged", "command", last.Description())

	return true
}

// Undo reverts the last recorded command. It does nothing when there is
// nothing to undo.
func (q *Queue) Undo() error {
	return q.UndoN(1)
}

// UndoN reverts up to n commands, newest first. It stops at the first
// command that cannot be reverted, which stays on the done list.
func (q *Queue) UndoN(n int) error {
	moved := 0

	defer func() {
		if moved > 0 {
			q.fireCommandsChanged()
		}
	}()

	for ; moved < n && len(q.done) > 0; moved++ {
		cmd := q.done[len(q.done)-1]

		if err := cmd.Revert(); err != nil {
			q.log.Error("unable to undo command", "command", cmd.Description(), "error", err)

			return fmt.Errorf("undo %q: %w", cmd.Description(), err)
		}

		q.done = q.done[:len(q.done)-1]
		q.redo = append(q.redo, cmd)

		q.fireChanged(cmd)
		q.log.Debug("command undone", "command", cmd.Description())
	}

	return nil
}

// Redo re-applies the last undone command. It does nothing when there is
// nothing to redo.
func (q *Queue) Redo() error {
	return q.RedoN(1)
}

// RedoN re-applies up to n commands in the order they were undone. It stops
// at the first command that cannot be applied, which stays on the redo list.
func (q *Queue) RedoN(n int) error {
	moved := 0

	defer func() {
		if moved > 0 {
			q.fireCommandsChanged()
		}
	}()

	for ; moved < n && len(q.redo) > 0; moved++ {
		cmd := q.redo[len(q.redo)-1]

		if err := cmd.Apply(); err != nil {
			q.log.Error("unable to redo command", "command", cmd.Description(), "error", err)

			return fmt.Errorf("redo %q: %w", cmd.Description(), err)
		}

		q.redo = q.redo[:len(q.redo)-1]
		q.done = append(q.done, cmd)

		q.fireChanged(cmd)
		q.log.Debug("command redone", "command", cmd.Description())
	}

	return nil
}

// Clean forgets the whole history without touching the store.
func (q *Queue) Clean() {
	if len(q.done) == 0 && len(q.redo) == 0 {
		return
	}

	q.done = nil
	q.redo = nil

	q.fireCommandsChanged()
}

// CanUndo reports whether there is something to undo.
func (q *Queue) CanUndo() bool { return len(q.done) > 0 }

// CanRedo reports whether there is something to redo.
func (q *Queue) CanRedo() bool { return len(q.redo) > 0 }

// UndoCommands returns the done list, oldest first.
func (q *Queue) UndoCommands() []command.Command { return slices.Clone(q.done) }

// RedoCommands returns the redo list, next to redo first.
func (q *Queue) RedoCommands() []command.Command {
	cmds := slices.Clone(q.redo)
	slices.Reverse(cmds)

	return cmds
}

// Last returns the most recently recorded command, or nil.
func (q *Queue) Last() command.Command {
	if len(q.done) == 0 {
		return nil
	}

	return q.done[len(q.done)-1]
}

func (q *Queue) fireChanged(cmd command.Command) {
	if q.opts.notifier != nil {
		q.opts.notifier.FireChanged(cmd.Participants())
	}
}

func (q *Queue) fireCommandsChanged() {
	for _, e := range slices.Clone(q.listeners) {
		e.l.CommandsChanged(len(q.done), len(q.redo))
	}
}
