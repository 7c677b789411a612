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


// Package snapshot reads and writes the contents of a primitive store.
//
// A snapshot is laid out like an OSM PBF file: a sequence of frames, each a
// big-endian uint32 with the size of the frame header, the frame header and
// a possibly compressed blob. The first frame holds the Header, the others
// hold blocks of primitives with their own string table. Unlike PBF, the
// new/deleted state of primitives is kept, and identical stores are written
// as identical bytes.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/destel/rill"

	"m4o.io/osmedit/model"
	"m4o.io/osmedit/store"
)

var ErrUnsupportedFeature = errors.New("unsupported required feature")

// Write writes ds to wrtr.
func Write(wrtr io.Writer, ds *store.DataSet, opts ...Option) error {
	cfg := defaultConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	nodes, ways, relations := ds.Counts()

	hdr := &Header{
		BoundingBox:      ds.BoundingBox(),
		RequiredFeatures: knownFeatures,
		WritingProgram:   cfg.writingProgram,
		Source:           cfg.source,
		Timestamp:        cfg.timestamp,
		Nodes:            nodes,
		Ways:             ways,
		Relations:        relations,
	}

	hb, err := pack(encodeHeader(hdr), cfg.compression)
	if err != nil {
		return fmt.Errorf("could not pack header: %w", err)
	}

	if err := writeFrame(wrtr, headerFrame, hb); err != nil {
		return fmt.Errorf("could not write header: %w", err)
	}

	n := int(cfg.nCPU)

	batches := rill.Batch(rill.FromSlice(ds.Primitives(), nil), cfg.blockSize, -1)
	encoded := rill.OrderedMap(batches, n, encodeBlock)
	packed := rill.OrderedMap(encoded, n, func(block []byte) ([]byte, error) {
		return pack(block, cfg.compression)
	})

	err = rill.ForEach(packed, 1, func(blob []byte) error {
		return writeFrame(wrtr, dataFrame, blob)
	})
	if err != nil {
		slog.Error("unable to write snapshot", "error", err)

		return err
	}

	return nil
}

// ReadHeader reads only the header of the snapshot.
func ReadHeader(rdr io.Reader) (*Header, error) {
	f, err := readFrame(rdr)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: empty input", ErrMalformed)
		}

		return nil, err
	}

	if f.typ != headerFrame {
		return nil, fmt.Errorf("%w: expected %s frame but got %q", ErrMalformed, headerFrame, f.typ)
	}

	data, err := unpack(f.blob)
	if err != nil {
		return nil, err
	}

	return decodeHeader(data)
}

// Read reads a whole snapshot. Blocks are uncompressed and decoded
// concurrently; the primitives are returned in the order they were written.
func Read(rdr io.Reader, opts ...Option) (*Header, []model.Primitive, error) {
	cfg := defaultConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	hdr, err := ReadHeader(rdr)
	if err != nil {
		return nil, nil, err
	}

	var blobs [][]byte

	for {
		f, err := readFrame(rdr)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			slog.Error("unable to read frame", "error", err)

			return nil, nil, err
		}

		if f.typ != dataFrame {
			slog.Debug("skipping unknown frame", "type", f.typ)

			continue
		}

		blobs = append(blobs, f.blob)
	}

	decoded := rill.OrderedMap(rill.FromSlice(blobs, nil), int(cfg.nCPU), func(blob []byte) ([]model.Primitive, error) {
		data, err := unpack(blob)
		if err != nil {
			return nil, err
		}

		return decodeBlock(data)
	})

	blocks, err := rill.ToSlice(decoded)
	if err != nil {
		slog.Error("unable to decode block", "error", err)

		return nil, nil, err
	}

	var prims []model.Primitive
	for _, block := range blocks {
		prims = append(prims, block...)
	}

	return hdr, prims, nil
}
