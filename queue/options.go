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

package queue

import (
	"log/slog"
)

// queueOptions provides optional configuration parameters for Queue construction.
type queueOptions struct {
	maxUndo    int          // the number of undo steps kept, 0 for unbounded
	mergeMoves bool         // whether consecutive moves of the same nodes collapse
	logger     *slog.Logger // where history changes are logged
	notifier   Notifier     // told about every mutation
}

// Option configures how we set up the queue.
type Option func(*queueOptions)

// WithMaxUndo bounds the number of undo steps. The oldest steps are dropped
// first. Zero or less keeps everything.
func WithMaxUndo(n int) Option {
	return func(o *queueOptions) {
		o.maxUndo = n
	}
}

// WithMoveMerging lets you turn the coalescing of consecutive moves on or off.
func WithMoveMerging(merge bool) Option {
	return func(o *queueOptions) {
		o.mergeMoves = merge
	}
}

// WithLogger lets you set the logger used for history changes.
func WithLogger(l *slog.Logger) Option {
	return func(o *queueOptions) {
		o.logger = l
	}
}

// WithNotifier lets you set who is told about the primitives each add, undo
// and redo touched.
func WithNotifier(n Notifier) Option {
	return func(o *queueOptions) {
		o.notifier = n
	}
}

// defaultQueueConfig provides a default configuration for queues.
var defaultQueueConfig = queueOptions{
	maxUndo:    0,
	mergeMoves: true,
}
