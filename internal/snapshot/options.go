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
	"runtime"
	"time"
)

const (
	// DefaultBlockSize is the default number of primitives per data block.
	DefaultBlockSize = 8000

	// DefaultWritingProgram is written to the header unless told otherwise.
	DefaultWritingProgram = "osmedit"
)

// DefaultNCpu provides the default number of CPUs.
func DefaultNCpu() uint16 {
	cpus := uint16(runtime.GOMAXPROCS(-1))

	return max(cpus-1, 1)
}

// options provides optional configuration parameters for reading and
// writing snapshots.
type options struct {
	compression    Compression
	nCPU           uint16 // the number of CPUs to use for background processing
	blockSize      int    // primitives per data block
	writingProgram string
	source         string
	timestamp      time.Time
}

// Option configures how snapshots are read and written.
type Option func(*options)

// WithCompression specifies the compression algorithm to use when writing
// blobs. The default is ZLIB.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithNCpus lets you set the number of CPUs to use for background processing.
func WithNCpus(n uint16) Option {
	return func(o *options) {
		o.nCPU = max(n, 1)
	}
}

// WithBlockSize lets you set the number of primitives per data block.
func WithBlockSize(n int) Option {
	return func(o *options) {
		o.blockSize = max(n, 1)
	}
}

// WithWritingProgram sets the writing program of the header.
func WithWritingProgram(program string) Option {
	return func(o *options) {
		o.writingProgram = program
	}
}

// WithSource sets the source of the header.
func WithSource(source string) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithTimestamp sets the timestamp of the header.
func WithTimestamp(ts time.Time) Option {
	return func(o *options) {
		o.timestamp = ts
	}
}

// defaultConfig provides a default configuration for snapshots.
var defaultConfig = options{
	compression:    DefaultCompression,
	nCPU:           DefaultNCpu(),
	blockSize:      DefaultBlockSize,
	writingProgram: DefaultWritingProgram,
}
