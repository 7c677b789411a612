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


// Package loader reads snapshot files in the background and turns their
// contents into a single undoable insertion.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/destel/rill"
	"github.com/spf13/afero"

	"m4o.io/osmedit/command"
	"m4o.io/osmedit/internal/snapshot"
	"m4o.io/osmedit/model"
	"m4o.io/osmedit/session"
	"m4o.io/osmedit/store"
)

var (
	ErrNoInputs = errors.New("no inputs to load")
	ErrConflict = errors.New("inputs disagree about a primitive")
)

type loaded struct {
	path  string
	prims []model.Primitive
}

// Load reads and decodes the snapshots at paths concurrently and merges
// their primitives. A primitive found in several inputs must be identical in
// all of them. The merged primitives keep the order of the inputs. If ctx is
// done before loading finishes, Load returns ctx.Err() and no primitives.
func Load(ctx context.Context, fs afero.Fs, paths []string, opts ...Option) ([]model.Primitive, error) {
	cfg := defaultConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	log := cfg.logger
	if log == nil {
		log = slog.Default()
	}

	if len(paths) == 0 {
		return nil, ErrNoInputs
	}

	files := rill.OrderedMap(rill.FromSlice(paths, nil), int(cfg.nCPU), func(path string) (loaded, error) {
		if err := ctx.Err(); err != nil {
			return loaded{}, err
		}

		prims, err := loadFile(fs, path, cfg.wrap)
		if err != nil {
			return loaded{}, fmt.Errorf("%s: %w", path, err)
		}

		log.Debug("loaded snapshot", "path", path, "primitives", len(prims))

		return loaded{path: path, prims: prims}, nil
	})

	var merged []model.Primitive

	seen := make(map[model.PrimitiveID]model.Primitive)

	err := rill.ForEach(files, 1, func(l loaded) error {
		for _, p := range l.prims {
			if other, ok := seen[p.Key()]; ok {
				if !other.Equal(p) {
					return fmt.Errorf("%w: %s differs in %s", ErrConflict, p.Key(), l.path)
				}

				continue
			}

			seen[p.Key()] = p
			merged = append(merged, p)
		}

		return nil
	})
	if err != nil {
		log.Error("unable to load snapshots", "error", err)

		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return merged, nil
}

func loadFile(fs afero.Fs, path string, wrap Wrapper) ([]model.Primitive, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}

	var r io.ReadCloser = f

	if wrap != nil {
		fi, err := f.Stat()
		if err != nil {
			f.Close()

			return nil, err
		}

		r = wrap(path, fi.Size(), f)
	}

	defer r.Close()

	_, prims, err := snapshot.Read(r, snapshot.WithNCpus(1))

	return prims, err
}

// Producer loads paths off the mutation goroutine. The command inserting the
// loaded primitives is built against the store once loading is done.
func Producer(fs afero.Fs, paths []string, opts ...Option) session.Producer {
	return func(ctx context.Context) (session.Builder, error) {
		prims, err := Load(ctx, fs, paths, opts...)
		if err != nil {
			return nil, err
		}

		return func(s store.Store) (command.Command, error) {
			return command.AddPrimitives(s, prims)
		}, nil
	}
}
