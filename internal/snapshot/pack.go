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


package snapshot

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz/lzma"
	"google.golang.org/protobuf/encoding/protowire"

	"m4o.io/osmedit/internal/snapshot/packers"
)

// Blob fields, numbered like the blobs of an OSM PBF file.
const (
	blobRaw     protowire.Number = 1
	blobRawSize protowire.Number = 2
	blobZlib    protowire.Number = 3
	blobLzma    protowire.Number = 4
	blobLz4     protowire.Number = 6
	blobZstd    protowire.Number = 7
)

var blobFields = map[Compression]protowire.Number{
	RAW:  blobRaw,
	ZLIB: blobZlib,
	LZMA: blobLzma,
	LZ4:  blobLz4,
	ZSTD: blobZstd,
}

// pack compresses data into a blob.
func pack(data []byte, c Compression) ([]byte, error) {
	field, ok := blobFields[c]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownCompression, c)
	}

	p, err := newPackers[c]()
	if err != nil {
		return nil, fmt.Errorf("could not create packer: %w", err)
	}

	if _, err := p.Write(data); err != nil {
		return nil, fmt.Errorf("could not compress blob: %w", err)
	}

	if err := p.Close(); err != nil {
		return nil, fmt.Errorf("could not close writer: %w", err)
	}

	packed := p.Bytes()

	b := make([]byte, 0, len(packed)+16)
	b = protowire.AppendTag(b, blobRawSize, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(len(data)))
	b = protowire.AppendTag(b, field, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)

	return b, nil
}

var newPackers = map[Compression]func() (packers.Packer, error){
	RAW:  packers.Raw,
	ZLIB: packers.Zlib,
	LZMA: packers.Lzma,
	LZ4:  packers.Lz4,
	ZSTD: packers.Zstd,
}

// unpack uncompresses a blob.
//
// This is kept apart from reading frames so that blobs can be uncompressed
// concurrently.
func unpack(blob []byte) ([]byte, error) {
	var (
		rawSize int
		field   protowire.Number
		payload []byte
	)

	err := walk(blob, func(num protowire.Number, v uint64, data []byte) error {
		switch num {
		case blobRawSize:
			rawSize = int(v)
		case blobRaw, blobZlib, blobLzma, blobLz4, blobZstd:
			field, payload = num, data
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	var factory func(r io.Reader) (io.Reader, error)

	switch field {
	case blobRaw:
		if len(payload) != rawSize {
			return nil, fmt.Errorf("%w: raw blob data size %d but expected %d", ErrMalformed, len(payload), rawSize)
		}

		return payload, nil
	case blobZlib:
		factory = func(r io.Reader) (io.Reader, error) {
			return zlib.NewReader(r)
		}
	case blobLzma:
		factory = func(r io.Reader) (io.Reader, error) {
			return lzma.NewReader(r)
		}
	case blobLz4:
		factory = func(r io.Reader) (io.Reader, error) {
			return lz4.NewReader(r), nil
		}
	case blobZstd:
		factory = func(r io.Reader) (io.Reader, error) {
			d, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}

			return d.IOReadCloser(), nil
		}
	default:
		return nil, ErrUnknownCompression
	}

	rdr, err := factory(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("unpacker factory error: %w", err)
	}

	if c, ok := rdr.(io.Closer); ok {
		defer c.Close()
	}

	var buf bytes.Buffer
	buf.Grow(rawSize + bytes.MinRead)

	if n, err := buf.ReadFrom(rdr); err != nil {
		return nil, fmt.Errorf("unpacker read error: %w", err)
	} else if n != int64(rawSize) {
		return nil, fmt.Errorf("%w: raw blob data size %d but expected %d", ErrMalformed, n, rawSize)
	}

	return buf.Bytes(), nil
}
