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
	"slices"
)

const (
	notUsed = ""
)

// stringSet collects the strings of one block.
type stringSet struct {
	tbl map[string]struct{}
}

// stringTable maps the strings of one block to their index.
type stringTable struct {
	tbl     map[string]uint32
	strings []string
}

func newStringSet() *stringSet {
	return &stringSet{tbl: make(map[string]struct{})}
}

func (s *stringSet) add(value string) {
	s.tbl[value] = struct{}{}
}

func (s *stringSet) table() *stringTable {
	strings := make([]string, 0, len(s.tbl)+1)

	// Index 0 is kept unused, as in PBF string tables. The empty string sorts
	// first and lands there.
	strings = append(strings, notUsed)

	for k := range s.tbl {
		if k != notUsed {
			strings = append(strings, k)
		}
	}

	slices.Sort(strings)

	tbl := make(map[string]uint32, len(strings))
	for i, k := range strings {
		tbl[k] = uint32(i)
	}

	return &stringTable{tbl: tbl, strings: strings}
}

func (t *stringTable) indexOf(value string) uint32 {
	index, ok := t.tbl[value]
	if !ok {
		panic("string missing from table: " + value)
	}

	return index
}
