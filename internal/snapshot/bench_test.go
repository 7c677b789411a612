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


package snapshot_test

import (
	"bytes"
	"fmt"
	"os"
	"runtime/trace"
	"strconv"
	"testing"

	"m4o.io/osmedit/internal/snapshot"
	"m4o.io/osmedit/model"
	"m4o.io/osmedit/store"
)

// grid builds a store of side*side nodes joined into one way per row.
func grid(b *testing.B, side int) *store.DataSet {
	b.Helper()

	ds := store.NewDataSet()

	for r := range side {
		row := make([]model.ID, side)

		for c := range side {
			id := model.ID(r*side + c + 1)
			row[c] = id

			n := &model.Node{
				ID:   id,
				Lat:  model.Degrees(51 + float64(r)*1e-4),
				Lon:  model.Degrees(-0.5 + float64(c)*1e-4),
				Tags: map[string]string{"ref": strconv.Itoa(c)},
			}
			if err := ds.Insert(n); err != nil {
				b.Fatal(err)
			}
		}

		w := &model.Way{ID: model.ID(r + 1), NodeIDs: row, Tags: map[string]string{"highway": "service"}}
		if err := ds.Insert(w); err != nil {
			b.Fatal(err)
		}
	}

	return ds
}

func BenchmarkRoundTrip(b *testing.B) {
	t, err := strconv.ParseBool(os.Getenv("OSMEDIT_TRACE"))
	if err == nil && t {
		f, e := os.Create("trace.out")
		if e != nil {
			b.Errorf("Error opening trace file: %v", e)
		} else {
			defer f.Close()
			_ = trace.Start(f)
			defer trace.Stop()
		}
	}

	ncpu := snapshot.DefaultNCpu()
	if n, err := strconv.Atoi(os.Getenv("OSMEDIT_NCPU")); err == nil && n > 0 {
		ncpu = uint16(n)
	}

	ds := grid(b, 300)

	for _, c := range []snapshot.Compression{snapshot.RAW, snapshot.ZLIB, snapshot.LZ4, snapshot.ZSTD} {
		b.Run(fmt.Sprint(c), func(b *testing.B) {
			var buf bytes.Buffer

			for n := 0; n < b.N; n++ {
				buf.Reset()

				if err := snapshot.Write(&buf, ds, snapshot.WithCompression(c), snapshot.WithNCpus(ncpu)); err != nil {
					b.Fatal(err)
				}

				if _, _, err := snapshot.Read(&buf, snapshot.WithNCpus(ncpu)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
