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


// Package script reads edit scripts and plays them through a session.
//
// A script is a YAML list of steps:
//
//	- op: add-node
//	  id: -1
//	  lat: 51.5
//	  lon: -0.1
//	- op: tag
//	  targets: [node/-1]
//	  key: amenity
//	  value: cafe
//	- op: undo
//
// Every step builds one undoable command, except undo and redo which move
// through the history.
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"m4o.io/osmedit/queue"
	"m4o.io/osmedit/session"
	"m4o.io/osmedit/store"
)

// Script is a validated list of steps.
type Script struct {
	Steps []Step
}

// Parse decodes and validates a script. Unknown fields are rejected.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var steps []Step
	if err := dec.Decode(&steps); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStep, err)
	}

	for i := range steps {
		if err := steps[i].Validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	return &Script{Steps: steps}, nil
}

// Load parses the script at path.
func Load(fs afero.Fs, path string) (*Script, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	return Parse(bytes.NewReader(data))
}

// Run plays the steps through sess in order and stops at the first step that
// fails. Steps before it stay recorded in the history.
func (sc *Script) Run(ctx context.Context, sess *session.Session, opts ...Option) error {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	log := o.logger
	if log == nil {
		log = sess.Logger()
	}

	for i := range sc.Steps {
		step := &sc.Steps[i]

		log.Debug("running step", "step", i+1, "op", step.Op)

		if err := run(ctx, sess, step); err != nil {
			log.Error("step failed", "step", i+1, "op", step.Op, "error", err)

			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}

	return nil
}

func run(ctx context.Context, sess *session.Session, step *Step) error {
	switch step.Op {
	case OpUndo:
		return sess.Do(ctx, func(_ *store.DataSet, q *queue.Queue) error {
			return q.UndoN(step.count())
		})
	case OpRedo:
		return sess.Do(ctx, func(_ *store.DataSet, q *queue.Queue) error {
			return q.RedoN(step.count())
		})
	}

	b, err := step.Builder()
	if err != nil {
		return err
	}

	return sess.Edit(ctx, b)
}
