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

// Package session binds a primitive store to its undo/redo history and
// serializes every mutation onto one goroutine.
//
// Commands are built, applied, undone and redone only inside Run. Slow work,
// such as reading files, happens in producers on other goroutines; a producer
// hands back a Builder, and the command is built from it on the mutation
// goroutine once the slow work is done.
package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"m4o.io/osmedit/command"
	"m4o.io/osmedit/model"
	"m4o.io/osmedit/queue"
	"m4o.io/osmedit/store"
)

var (
	ErrClosed  = errors.New("session is not running")
	ErrRunning = errors.New("session is already running")
)

// Builder builds a command against the current state of the store.
type Builder func(s store.Store) (command.Command, error)

// Producer does slow work off the mutation goroutine and returns how to
// build the resulting command.
type Producer func(ctx context.Context) (Builder, error)

// ChangeEvent describes one applied, undone or redone command.
type ChangeEvent struct {
	Participants []model.PrimitiveID
	Bounds       *model.BoundingBox // the live nodes touched, after the change
}

type request struct {
	fn     func(*store.DataSet, *queue.Queue) error
	result chan error
}

type subscriber struct {
	fn func(ChangeEvent)
}

// Session is one editing context: a store, its history and the goroutine
// mutating them.
type Session struct {
	id  uuid.UUID
	log *slog.Logger
	ds  *store.DataSet
	q   *queue.Queue

	requests chan request
	running  atomic.Bool
	stopped  chan struct{}

	mu   sync.Mutex
	subs []*subscriber
}

// New creates a session. It does nothing until Run is called.
func New(opts ...Option) *Session {
	o := sessionOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.New()

	log := o.logger
	if log == nil {
		log = slog.Default()
	}

	log = log.With("session", id.String())

	ds := o.dataSet
	if ds == nil {
		ds = store.NewDataSet()
	}

	s := &Session{
		id:       id,
		log:      log,
		ds:       ds,
		requests: make(chan request),
		stopped:  make(chan struct{}),
	}

	qopts := append([]queue.Option{queue.WithLogger(log)}, o.queueOpts...)
	s.q = queue.New(append(qopts, queue.WithNotifier(s))...)

	return s
}

// ID returns the identity of the session.
func (s *Session) ID() uuid.UUID { return s.id }

// Logger returns the logger of the session, tagged with its identity.
func (s *Session) Logger() *slog.Logger { return s.log }

// Run is the mutation goroutine. It serves requests in submission order
// until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}

	defer close(s.stopped)

	s.log.Debug("session started")

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("session stopped", "reason", ctx.Err())

			return ctx.Err()
		case r := <-s.requests:
			r.result <- r.fn(s.ds, s.q)
		}
	}
}

// Do runs fn on the mutation goroutine and waits for its result. If ctx is
// done before fn starts, fn is skipped. Once fn has started, Do reports its
// outcome, whatever happens to ctx meanwhile.
func (s *Session) Do(ctx context.Context, fn func(ds *store.DataSet, q *queue.Queue) error) error {
	r := request{
		fn: func(ds *store.DataSet, q *queue.Queue) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			return fn(ds, q)
		},
		result: make(chan error, 1),
	}

	select {
	case s.requests <- r:
	case <-s.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// Run always answers an accepted request
	return <-r.result
}

// Submit records a command that is ready to apply.
func (s *Session) Submit(ctx context.Context, cmd command.Command) error {
	return s.Do(ctx, func(_ *store.DataSet, q *queue.Queue) error {
		return q.Add(cmd)
	})
}

// Edit builds a command on the mutation goroutine and records it.
func (s *Session) Edit(ctx context.Context, b Builder) error {
	return s.Do(ctx, func(ds *store.DataSet, q *queue.Queue) error {
		cmd, err := b(ds)
		if err != nil {
			return err
		}

		return q.Add(cmd)
	})
}

// Undo reverts the last recorded command.
func (s *Session) Undo(ctx context.Context) error {
	return s.Do(ctx, func(_ *store.DataSet, q *queue.Queue) error {
		return q.Undo()
	})
}

// Redo re-applies the last undone command.
func (s *Session) Redo(ctx context.Context) error {
	return s.Do(ctx, func(_ *store.DataSet, q *queue.Queue) error {
		return q.Redo()
	})
}

// Produce runs p on a new goroutine and records the command it leads to.
// If ctx is done before the command is built, nothing is recorded and the
// outcome is ctx.Err(). The
// returned channel yields the outcome once and is then closed.
func (s *Session) Produce(ctx context.Context, p Producer) <-chan error {
	errc := make(chan error, 1)

	go func() {
		defer close(errc)

		b, err := p(ctx)
		if err != nil {
			s.log.Debug("producer failed", "error", err)
			errc <- err

			return
		}

		errc <- s.Do(ctx, func(ds *store.DataSet, q *queue.Queue) error {
			cmd, err := b(ds)
			if err != nil {
				return err
			}

			return q.Add(cmd)
		})
	}()

	return errc
}

// Subscribe registers fn for change events. It is called on the mutation
// goroutine and must not call back into the session.
func (s *Session) Subscribe(fn func(ChangeEvent)) (cancel func()) {
	sub := &subscriber{fn: fn}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.subs = slices.DeleteFunc(s.subs, func(o *subscriber) bool { return o == sub })
	}
}

// Close drops the history of the session. The store keeps its state.
func (s *Session) Close(ctx context.Context) error {
	return s.Do(ctx, func(_ *store.DataSet, q *queue.Queue) error {
		q.Clean()

		return nil
	})
}

// FireChanged is called by the queue after every successful mutation.
func (s *Session) FireChanged(participants []model.PrimitiveID) {
	s.mu.Lock()
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	ev := ChangeEvent{Participants: participants, Bounds: s.bounds(participants)}
	for _, sub := range subs {
		sub.fn(ev)
	}
}

// bounds covers the live nodes among participants and the nodes of the
// live ways among them.
func (s *Session) bounds(participants []model.PrimitiveID) *model.BoundingBox {
	bbox := model.InitialBoundingBox()

	expand := func(key model.PrimitiveID) {
		if p, ok := s.ds.Get(key); ok && p.GetState() != model.Deleted {
			bbox.ExpandWithNode(p.(*model.Node))
		}
	}

	for _, k := range participants {
		switch k.Type {
		case model.NODE:
			expand(k)
		case model.WAY:
			p, ok := s.ds.Get(k)
			if !ok || p.GetState() == model.Deleted {
				continue
			}

			for _, id := range p.(*model.Way).NodeIDs {
				expand(model.NodeID(id))
			}
		}
	}

	return bbox
}
