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

package session

import (
	"log/slog"

	"m4o.io/osmedit/queue"
	"m4o.io/osmedit/store"
)

// sessionOptions provides optional configuration parameters for Session construction.
type sessionOptions struct {
	logger    *slog.Logger   // the parent logger, tagged with the session id
	dataSet   *store.DataSet // the store edited, empty when nil
	queueOpts []queue.Option // passed on to the undo/redo queue
}

// Option configures how we set up the session.
type Option func(*sessionOptions)

// WithLogger lets you set the parent logger of the session.
func WithLogger(l *slog.Logger) Option {
	return func(o *sessionOptions) {
		o.logger = l
	}
}

// WithDataSet lets you edit an existing store instead of an empty one.
func WithDataSet(ds *store.DataSet) Option {
	return func(o *sessionOptions) {
		o.dataSet = ds
	}
}

// WithQueueOptions lets you configure the undo/redo queue.
func WithQueueOptions(opts ...queue.Option) Option {
	return func(o *sessionOptions) {
		o.queueOpts = append(o.queueOpts, opts...)
	}
}
