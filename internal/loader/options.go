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


package loader

import (
	"io"
	"log/slog"

	"m4o.io/osmedit/internal/snapshot"
)

// Wrapper decorates the reader of one input, for instance with a progress
// bar. size is the length of the input in bytes.
type Wrapper func(name string, size int64, r io.ReadCloser) io.ReadCloser

// options provides optional configuration parameters for loading.
type options struct {
	nCPU   uint16 // the number of inputs read at once
	wrap   Wrapper
	logger *slog.Logger
}

// Option configures how inputs are loaded.
type Option func(*options)

// WithNCpus lets you set the number of inputs read and decoded at once.
func WithNCpus(n uint16) Option {
	return func(o *options) {
		o.nCPU = max(n, 1)
	}
}

// WithWrapper lets you decorate the reader of every input.
func WithWrapper(w Wrapper) Option {
	return func(o *options) {
		o.wrap = w
	}
}

// WithLogger lets you set the logger used while loading.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// defaultConfig provides a default configuration for loading.
var defaultConfig = options{
	nCPU: snapshot.DefaultNCpu(),
}
