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
	"errors"
	"fmt"
	"strings"
)

// Compression is the algorithm used to pack the blobs of a snapshot.
type Compression int

const (
	RAW Compression = iota
	ZLIB
	LZMA
	LZ4
	ZSTD
)

// DefaultCompression is used when no compression is configured.
const DefaultCompression = ZLIB

var ErrUnknownCompression = errors.New("unknown blob compression type")

var compressionNames = []string{"raw", "zlib", "lzma", "lz4", "zstd"}

func (c Compression) String() string {
	if c < 0 || int(c) >= len(compressionNames) {
		return fmt.Sprintf("Compression(%d)", int(c))
	}

	return compressionNames[c]
}

// ParseCompression returns the compression with the given name, ignoring
// case.
func ParseCompression(s string) (Compression, error) {
	for i, name := range compressionNames {
		if strings.EqualFold(s, name) {
			return Compression(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
}
