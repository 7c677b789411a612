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


// Package packers compresses the data of snapshot blobs.
package packers

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz/lzma"
)

// Packer is written the raw contents of a blob. Once closed, Bytes returns
// the packed contents.
type Packer interface {
	io.WriteCloser

	// Bytes returns the packed contents. Only valid after Close.
	Bytes() []byte
}

type packer struct {
	io.WriteCloser
	buf *bytes.Buffer
}

func (p *packer) Bytes() []byte {
	return p.buf.Bytes()
}

func newPacker(wrap func(w io.Writer) (io.WriteCloser, error)) (Packer, error) {
	buf := &bytes.Buffer{}

	w, err := wrap(buf)
	if err != nil {
		return nil, err
	}

	return &packer{WriteCloser: w, buf: buf}, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}

// Raw stores the contents as they are.
func Raw() (Packer, error) {
	return newPacker(func(w io.Writer) (io.WriteCloser, error) {
		return nopCloser{w}, nil
	})
}

// Zlib deflates the contents with a zlib header.
func Zlib() (Packer, error) {
	return newPacker(func(w io.Writer) (io.WriteCloser, error) {
		return zlib.NewWriter(w), nil
	})
}

// Lzma compresses the contents in the classic LZMA format.
func Lzma() (Packer, error) {
	return newPacker(func(w io.Writer) (io.WriteCloser, error) {
		return lzma.NewWriter(w)
	})
}

// Lz4 compresses the contents in the LZ4 frame format.
func Lz4() (Packer, error) {
	return newPacker(func(w io.Writer) (io.WriteCloser, error) {
		return lz4.NewWriter(w), nil
	})
}

// Zstd compresses the contents with Zstandard.
func Zstd() (Packer, error) {
	return newPacker(func(w io.Writer) (io.WriteCloser, error) {
		// a single encoder goroutine keeps the output reproducible
		return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	})
}
