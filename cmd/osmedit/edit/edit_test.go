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


package edit

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmedit/cmd/osmedit/cli"
	"m4o.io/osmedit/command"
	"m4o.io/osmedit/internal/script"
	"m4o.io/osmedit/internal/snapshot"
	"m4o.io/osmedit/model"
	"m4o.io/osmedit/store"
)

func fixture(t *testing.T) afero.Fs {
	t.Helper()

	ds := store.NewDataSet()
	require.NoError(t, ds.Insert(&model.Node{ID: 1, Lat: 51.5, Lon: -0.1}))
	require.NoError(t, ds.Insert(&model.Node{ID: 2, Lat: 51.6, Lon: -0.2}))
	require.NoError(t, ds.Insert(&model.Node{ID: 3, Lat: 51.7, Lon: -0.3}))
	require.NoError(t, ds.Insert(&model.Way{ID: 10, NodeIDs: []model.ID{1, 2, 3}}))

	var buf bytes.Buffer
	require.NoError(t, snapshot.Write(&buf, ds))

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "in.snap", buf.Bytes(), 0o644))

	return fs
}

func parse(t *testing.T, text string) *script.Script {
	t.Helper()

	sc, err := script.Parse(strings.NewReader(text))
	require.NoError(t, err)

	return sc
}

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()

	buf := &bytes.Buffer{}
	saved := out
	out = buf

	t.Cleanup(func() { out = saved })

	return buf
}

func config() *cli.Config {
	return &cli.Config{MergeMoves: true, Compression: snapshot.ZSTD, NCpu: 2}
}

func TestRunEdit(t *testing.T) {
	fs := fixture(t)
	buf := capture(t)

	err := runEdit(context.Background(), &edit{
		fs:     fs,
		cfg:    config(),
		inputs: []string{"in.snap"},
		script: parse(t, `
- {op: tag, targets: [way/10], key: highway, value: service}
- {op: move, nodes: [2], east: 0.01}
- {op: move, nodes: [2], north: 0.01}
- {op: split, way: 10, nodes: [2]}
- {op: undo}
`),
		out: "out.snap",
	})
	require.NoError(t, err)

	assert.Equal(t, `History:
   1. Add 4 objects
   2. Set highway=service for way 10
   3. Move node 2
Redo:
   1. Split way 10 into 2 parts
Wrote 4 primitives to out.snap
`, buf.String())

	f, err := fs.Open("out.snap")
	require.NoError(t, err)

	defer f.Close()

	_, prims, err := snapshot.Read(f)
	require.NoError(t, err)
	require.Len(t, prims, 4)

	n2 := prims[1].(*model.Node)
	assert.True(t, n2.Lat.EqualWithin(51.61, model.E7))
	assert.True(t, n2.Lon.EqualWithin(-0.19, model.E7))
	assert.Equal(t, "service", prims[3].GetTags()["highway"])
}

func TestRunEditWithoutInputs(t *testing.T) {
	buf := capture(t)

	err := runEdit(context.Background(), &edit{
		fs:     afero.NewMemMapFs(),
		cfg:    config(),
		script: parse(t, "- {op: add-node, lat: 1, lon: 2}\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, "History:\n   1. Add node -1\n", buf.String())
}

func TestRunEditFailingStep(t *testing.T) {
	fs := fixture(t)
	capture(t)

	err := runEdit(context.Background(), &edit{
		fs:     fs,
		cfg:    config(),
		inputs: []string{"in.snap"},
		script: parse(t, "- {op: remove-nodes, way: 10, nodes: [1, 2]}\n"),
		out:    "out.snap",
	})
	assert.ErrorIs(t, err, command.ErrWayWouldDegenerate)

	exists, err := afero.Exists(fs, "out.snap")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunEditMissingInput(t *testing.T) {
	capture(t)

	err := runEdit(context.Background(), &edit{
		fs:       afero.NewMemMapFs(),
		cfg:      config(),
		inputs:   []string{"missing.snap"},
		script:   parse(t, ""),
		progress: true,
	})
	assert.Error(t, err)
}
