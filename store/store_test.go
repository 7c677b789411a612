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

package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmedit/model"
	"m4o.io/osmedit/store"
)

func newFixture(t *testing.T) *store.DataSet {
	t.Helper()

	ds := store.NewDataSet()
	require.NoError(t, ds.Insert(&model.Node{ID: 1, Lat: 51.50, Lon: -0.12}))
	require.NoError(t, ds.Insert(&model.Node{ID: 2, Lat: 51.51, Lon: -0.11}))
	require.NoError(t, ds.Insert(&model.Node{ID: 3, Lat: 51.52, Lon: -0.10}))
	require.NoError(t, ds.Insert(&model.Way{ID: 10, NodeIDs: []model.ID{1, 2, 3}}))
	require.NoError(t, ds.Insert(&model.Relation{ID: 20, Members: []model.Member{{ID: 10, Type: model.WAY, Role: "outer"}}}))

	return ds
}

func TestInsertDuplicate(t *testing.T) {
	ds := newFixture(t)

	err := ds.Insert(&model.Node{ID: 1})
	assert.ErrorIs(t, err, store.ErrDuplicateInsert)
}

func TestInsertMissingReference(t *testing.T) {
	ds := newFixture(t)

	err := ds.Insert(&model.Way{ID: 11, NodeIDs: []model.ID{1, 99}})
	assert.ErrorIs(t, err, store.ErrReferentialIntegrity)

	_, ok := ds.Get(model.WayID(11))
	assert.False(t, ok)
}

func TestGetReturnsCopy(t *testing.T) {
	ds := newFixture(t)

	p, ok := ds.Get(model.WayID(10))
	require.True(t, ok)

	p.(*model.Way).NodeIDs[0] = 3

	again, _ := ds.Get(model.WayID(10))
	assert.Equal(t, []model.ID{1, 2, 3}, again.(*model.Way).NodeIDs)
}

func TestRemoveReferenced(t *testing.T) {
	ds := newFixture(t)

	assert.ErrorIs(t, ds.Remove(model.NodeID(2)), store.ErrReferentialIntegrity)
	assert.ErrorIs(t, ds.Remove(model.WayID(10)), store.ErrReferentialIntegrity)
	assert.ErrorIs(t, ds.Remove(model.NodeID(42)), store.ErrNotFound)

	require.NoError(t, ds.Remove(model.RelationID(20)))
	require.NoError(t, ds.Remove(model.WayID(10)))
	require.NoError(t, ds.Remove(model.NodeID(2)))
	assert.Equal(t, 2, ds.Len())
}

func TestReplaceUpdatesReferrers(t *testing.T) {
	ds := newFixture(t)

	assert.Equal(t, []model.PrimitiveID{model.WayID(10)}, ds.Referrers(model.NodeID(2)))

	require.NoError(t, ds.Replace(model.WayID(10), &model.Way{ID: 10, NodeIDs: []model.ID{1, 3}}))

	assert.Nil(t, ds.Referrers(model.NodeID(2)))
	require.NoError(t, ds.Remove(model.NodeID(2)))
}

func TestReplaceErrors(t *testing.T) {
	ds := newFixture(t)

	test_cases := []struct {
		name     string
		key      model.PrimitiveID
		p        model.Primitive
		expected error
	}{
		{"missing", model.NodeID(99), &model.Node{ID: 99}, store.ErrNotFound},
		{"identity", model.NodeID(1), &model.Node{ID: 2}, store.ErrKeyMismatch},
		{"dangling", model.WayID(10), &model.Way{ID: 10, NodeIDs: []model.ID{1, 77}}, store.ErrReferentialIntegrity},
		{"delete used", model.NodeID(1), &model.Node{ID: 1, State: model.Deleted}, store.ErrReferentialIntegrity},
	}

	for _, tc := range test_cases {
		t.Run(tc.name, func(t *testing.T) {
			before := ds.Clone()
			assert.ErrorIs(t, ds.Replace(tc.key, tc.p), tc.expected)
			assert.True(t, before.Equal(ds))
		})
	}
}

func TestDeletedReferrersDoNotBlockDeletion(t *testing.T) {
	ds := newFixture(t)

	require.NoError(t, ds.Replace(model.RelationID(20), &model.Relation{
		ID: 20, State: model.Deleted, Members: []model.Member{{ID: 10, Type: model.WAY, Role: "outer"}},
	}))
	require.NoError(t, ds.Replace(model.WayID(10), &model.Way{ID: 10, State: model.Deleted, NodeIDs: []model.ID{1, 2, 3}}))

	// deleted way still references the node, so it can not be purged
	assert.ErrorIs(t, ds.Remove(model.NodeID(1)), store.ErrReferentialIntegrity)

	// reviving a way whose node has been deleted is rejected
	require.NoError(t, ds.Replace(model.NodeID(1), &model.Node{ID: 1, State: model.Deleted, Lat: 51.50, Lon: -0.12}))
	err := ds.Replace(model.WayID(10), &model.Way{ID: 10, NodeIDs: []model.ID{1, 2, 3}})
	assert.ErrorIs(t, err, store.ErrReferentialIntegrity)
}

func TestNewID(t *testing.T) {
	ds := newFixture(t)

	assert.Equal(t, model.ID(-1), ds.NewID(model.NODE))
	assert.Equal(t, model.ID(-2), ds.NewID(model.NODE))
	assert.Equal(t, model.ID(-1), ds.NewID(model.WAY))

	require.NoError(t, ds.Insert(&model.Node{ID: -10, State: model.New}))
	assert.Equal(t, model.ID(-11), ds.NewID(model.NODE))
}

func TestCountsAndKeys(t *testing.T) {
	ds := newFixture(t)

	n, w, r := ds.Counts()
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int64(1), w)
	assert.Equal(t, int64(1), r)

	assert.Equal(t, []model.PrimitiveID{
		model.NodeID(1), model.NodeID(2), model.NodeID(3), model.WayID(10), model.RelationID(20),
	}, ds.Keys())
}

func TestBoundingBox(t *testing.T) {
	ds := newFixture(t)

	bbox := ds.BoundingBox()
	assert.True(t, bbox.EqualWithin(&model.BoundingBox{Top: 51.52, Left: -0.12, Bottom: 51.50, Right: -0.10}, model.E7))
}
