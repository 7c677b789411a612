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

package command_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmedit/command"
	"m4o.io/osmedit/model"
	"m4o.io/osmedit/store"
)

// newFixture builds nodes 1..4, way 10 [1 2 3] tagged highway=residential,
// and relation 20 holding way 10 as outer.
func newFixture(t *testing.T) *store.DataSet {
	t.Helper()

	ds := store.NewDataSet()
	require.NoError(t, ds.Insert(&model.Node{ID: 1, Lat: 51.50, Lon: -0.12}))
	require.NoError(t, ds.Insert(&model.Node{ID: 2, Lat: 51.51, Lon: -0.11, Tags: map[string]string{"barrier": "gate"}}))
	require.NoError(t, ds.Insert(&model.Node{ID: 3, Lat: 51.52, Lon: -0.10}))
	require.NoError(t, ds.Insert(&model.Node{ID: 4, Lat: 51.53, Lon: -0.09}))
	require.NoError(t, ds.Insert(&model.Way{
		ID:      10,
		Tags:    map[string]string{"highway": "residential"},
		NodeIDs: []model.ID{1, 2, 3},
	}))
	require.NoError(t, ds.Insert(&model.Relation{
		ID:      20,
		Tags:    map[string]string{"type": "multipolygon"},
		Members: []model.Member{{ID: 10, Type: model.WAY, Role: "outer"}},
	}))

	return ds
}

func TestApplyRevertRestoresStore(t *testing.T) {
	test_cases := []struct {
		name  string
		build func(s store.Store) (command.Command, error)
	}{
		{"add node", func(s store.Store) (command.Command, error) {
			return command.NewAddCommand(s, &model.Node{ID: -1, State: model.New, Lat: 1, Lon: 2})
		}},
		{"add way", func(s store.Store) (command.Command, error) {
			return command.NewAddCommand(s, &model.Way{ID: -1, State: model.New, NodeIDs: []model.ID{3, 4}})
		}},
		{"change way", func(s store.Store) (command.Command, error) {
			return command.NewChangeCommand(s, &model.Way{ID: 10, NodeIDs: []model.ID{1, 4, 3}})
		}},
		{"change property", func(s store.Store) (command.Command, error) {
			return command.NewChangePropertyCommand(s, []model.PrimitiveID{model.NodeID(1), model.WayID(10)}, "name", "Baker Street")
		}},
		{"remove property", func(s store.Store) (command.Command, error) {
			return command.NewChangePropertyCommand(s, []model.PrimitiveID{model.NodeID(2)}, "barrier", "")
		}},
		{"move", func(s store.Store) (command.Command, error) {
			return command.NewMoveCommand(s, []model.ID{1, 2}, 0.001, -0.002)
		}},
		{"remove nodes", func(s store.Store) (command.Command, error) {
			return command.NewRemoveNodesCommand(s, 10, []model.ID{2})
		}},
		{"reverse way", func(s store.Store) (command.Command, error) {
			return command.ReverseWay(s, 10)
		}},
		{"delete node", func(s store.Store) (command.Command, error) {
			return command.NewDeleteCommand(s, []model.PrimitiveID{model.NodeID(4)})
		}},
		{"delete cascade", func(s store.Store) (command.Command, error) {
			return command.Delete(s, []model.PrimitiveID{model.NodeID(2)}, false)
		}},
		{"delete way with nodes", func(s store.Store) (command.Command, error) {
			return command.Delete(s, []model.PrimitiveID{model.WayID(10)}, true)
		}},
		{"delete way segment", func(s store.Store) (command.Command, error) {
			return command.DeleteWaySegment(s, 10, 1)
		}},
		{"purge", func(s store.Store) (command.Command, error) {
			return command.NewPurgeCommand(s, []model.PrimitiveID{model.WayID(10), model.RelationID(20)})
		}},
		{"split way", func(s store.Store) (command.Command, error) {
			return command.SplitWay(s, 10, []model.ID{2})
		}},
		{"add primitives", func(s store.Store) (command.Command, error) {
			return command.AddPrimitives(s, []model.Primitive{
				&model.Relation{ID: -1, Members: []model.Member{{ID: -1, Type: model.WAY}}},
				&model.Way{ID: -1, NodeIDs: []model.ID{-1, 4}},
				&model.Node{ID: -1, Lat: 3, Lon: 4},
			})
		}},
	}

	for _, tc := range test_cases {
		t.Run(tc.name, func(t *testing.T) {
			ds := newFixture(t)
			before := ds.Clone()

			cmd, err := tc.build(ds)
			require.NoError(t, err)

			desc := cmd.Description()

			for range 2 {
				require.NoError(t, cmd.Apply())
				assert.False(t, before.Equal(ds), "apply changed nothing")
				require.NoError(t, cmd.Revert())
				assert.True(t, before.Equal(ds), "revert did not restore the store")
			}

			assert.Equal(t, desc, cmd.Description())
		})
	}
}

func TestIllegalState(t *testing.T) {
	ds := newFixture(t)

	cmd, err := command.NewChangePropertyCommand(ds, []model.PrimitiveID{model.NodeID(1)}, "name", "x")
	require.NoError(t, err)

	assert.ErrorIs(t, cmd.Revert(), command.ErrIllegalState)

	require.NoError(t, cmd.Apply())
	applied := ds.Clone()

	assert.ErrorIs(t, cmd.Apply(), command.ErrIllegalState)
	assert.True(t, applied.Equal(ds))
	assert.True(t, cmd.Applied())
}

func TestAddDuplicate(t *testing.T) {
	ds := newFixture(t)

	_, err := command.NewAddCommand(ds, &model.Node{ID: 1})
	assert.ErrorIs(t, err, command.ErrDuplicateInsert)

	_, err = command.AddPrimitives(ds, []model.Primitive{&model.Node{ID: -1}, &model.Node{ID: -1}})
	assert.ErrorIs(t, err, command.ErrDuplicateInsert)
}

func TestChangeRejectsMalformedWay(t *testing.T) {
	ds := newFixture(t)

	_, err := command.NewChangeCommand(ds, &model.Way{ID: 10, NodeIDs: []model.ID{1, 1, 2}})
	assert.ErrorIs(t, err, command.ErrPrecondition)

	_, err = command.NewChangeCommand(ds, &model.Way{ID: 11, NodeIDs: []model.ID{1, 2}})
	assert.ErrorIs(t, err, command.ErrPrecondition)
}

func TestRemoveNodesWouldDegenerate(t *testing.T) {
	ds := newFixture(t)
	before := ds.Clone()

	_, err := command.NewRemoveNodesCommand(ds, 10, []model.ID{1, 2})
	assert.ErrorIs(t, err, command.ErrWayWouldDegenerate)
	assert.ErrorIs(t, err, command.ErrPrecondition)
	assert.True(t, before.Equal(ds))
}

func TestRemoveNodesCheckedAgainAtApply(t *testing.T) {
	ds := newFixture(t)

	cmd, err := command.NewRemoveNodesCommand(ds, 10, []model.ID{1})
	require.NoError(t, err)

	shrink, err := command.NewChangeCommand(ds, &model.Way{ID: 10, NodeIDs: []model.ID{1, 2}})
	require.NoError(t, err)
	require.NoError(t, shrink.Apply())

	before := ds.Clone()

	assert.ErrorIs(t, cmd.Apply(), command.ErrWayWouldDegenerate)
	assert.False(t, cmd.Applied())
	assert.True(t, before.Equal(ds))
}

func TestRemoveNodesKeepsClosedWayClosed(t *testing.T) {
	ds := newFixture(t)
	require.NoError(t, ds.Insert(&model.Way{ID: 11, NodeIDs: []model.ID{1, 2, 3, 4, 1}}))

	cmd, err := command.NewRemoveNodesCommand(ds, 11, []model.ID{1})
	require.NoError(t, err)
	require.NoError(t, cmd.Apply())

	p, _ := ds.Get(model.WayID(11))
	assert.Equal(t, []model.ID{2, 3, 4, 2}, p.(*model.Way).NodeIDs)
	assert.Equal(t, []model.PrimitiveID{model.WayID(11)}, cmd.Participants())
}

func TestMoveAgain(t *testing.T) {
	ds := newFixture(t)
	before := ds.Clone()

	cmd, err := command.NewMoveCommand(ds, []model.ID{2, 1, 2}, 0.5, 0.25)
	require.NoError(t, err)
	assert.Equal(t, []model.PrimitiveID{model.NodeID(1), model.NodeID(2)}, cmd.Participants())

	assert.ErrorIs(t, cmd.MoveAgain(1, 1), command.ErrIllegalState)

	require.NoError(t, cmd.Apply())
	require.NoError(t, cmd.MoveAgain(0.5, 0.25))

	east, north := cmd.Offset()
	assert.Equal(t, model.Degrees(1), east)
	assert.Equal(t, model.Degrees(0.5), north)

	p, _ := ds.Get(model.NodeID(1))
	n := p.(*model.Node)
	assert.InDelta(t, 51.50+0.5, float64(n.Lat), 1e-9)
	assert.InDelta(t, -0.12+1, float64(n.Lon), 1e-9)

	require.NoError(t, cmd.Revert())
	assert.True(t, before.Equal(ds))
}

func TestMoveRejectsMissingNodes(t *testing.T) {
	ds := newFixture(t)

	_, err := command.NewMoveCommand(ds, nil, 1, 1)
	assert.ErrorIs(t, err, command.ErrPrecondition)

	_, err = command.NewMoveCommand(ds, []model.ID{1, 99}, 1, 1)
	assert.ErrorIs(t, err, command.ErrPrecondition)
}

func TestMoveOutsideWorld(t *testing.T) {
	ds := newFixture(t)
	before := ds.Clone()

	cmd, err := command.NewMoveCommand(ds, []model.ID{1, 2}, 0, 50)
	require.NoError(t, err)
	assert.ErrorIs(t, cmd.Apply(), command.ErrOutsideWorld)
	assert.True(t, before.Equal(ds))

	cmd, err = command.NewMoveCommand(ds, []model.ID{1}, 1, 1)
	require.NoError(t, err)
	require.NoError(t, cmd.Apply())
	assert.ErrorIs(t, cmd.MoveAgain(200, 0), command.ErrOutsideWorld)

	east, north := cmd.Offset()
	assert.Equal(t, model.Degrees(1), east)
	assert.Equal(t, model.Degrees(1), north)
}

func TestAddOutsideWorld(t *testing.T) {
	ds := newFixture(t)

	_, err := command.NewAddCommand(ds, &model.Node{ID: -1, State: model.New, Lat: 91, Lon: 0})
	assert.ErrorIs(t, err, command.ErrOutsideWorld)
	assert.ErrorIs(t, err, command.ErrPrecondition)
}

// recorder is a command that logs its calls and can be told to fail.
type recorder struct {
	name string
	log  *[]string
	fail bool
}

func (r *recorder) Apply() error {
	if r.fail {
		return errors.New("boom")
	}

	*r.log = append(*r.log, "apply "+r.name)

	return nil
}

func (r *recorder) Revert() error {
	*r.log = append(*r.log, "revert "+r.name)

	return nil
}

func (r *recorder) Participants() []model.PrimitiveID {
	return []model.PrimitiveID{model.NodeID(1)}
}

func (r *recorder) Description() string { return r.name }

func TestSequenceOrder(t *testing.T) {
	var log []string

	seq := command.NewSequenceCommand("abc",
		&recorder{name: "a", log: &log},
		&recorder{name: "b", log: &log},
		&recorder{name: "c", log: &log},
	)

	require.NoError(t, seq.Apply())
	require.NoError(t, seq.Revert())

	assert.Equal(t, []string{
		"apply a", "apply b", "apply c",
		"revert c", "revert b", "revert a",
	}, log)
	assert.Equal(t, []model.PrimitiveID{model.NodeID(1)}, seq.Participants())
	assert.Equal(t, "c", seq.Last().Description())
	assert.Len(t, seq.Children(), 3)
}

func TestSequenceRollsBackOnFailure(t *testing.T) {
	var log []string

	seq := command.NewSequenceCommand("abc",
		&recorder{name: "a", log: &log},
		&recorder{name: "b", log: &log},
		&recorder{name: "c", log: &log, fail: true},
	)

	err := seq.Apply()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 3")
	assert.False(t, seq.Applied())
	assert.Equal(t, []string{"apply a", "apply b", "revert b", "revert a"}, log)
}

func TestSequenceRollsBackStore(t *testing.T) {
	ds := newFixture(t)
	before := ds.Clone()

	add, err := command.NewAddCommand(ds, &model.Node{ID: -1, State: model.New})
	require.NoError(t, err)

	// node 2 is still used by way 10
	del, err := command.NewDeleteCommand(ds, []model.PrimitiveID{model.NodeID(2)})
	require.NoError(t, err)

	err = command.NewSequenceCommand("broken", add, del).Apply()
	assert.ErrorIs(t, err, command.ErrReferentialIntegrity)
	assert.True(t, before.Equal(ds))
}

func TestDeleteCommandRefusesLiveReferrers(t *testing.T) {
	ds := newFixture(t)
	before := ds.Clone()

	cmd, err := command.NewDeleteCommand(ds, []model.PrimitiveID{model.WayID(10)})
	require.NoError(t, err)

	assert.ErrorIs(t, cmd.Apply(), command.ErrReferentialIntegrity)
	assert.True(t, before.Equal(ds))

	cmd, err = command.NewDeleteCommand(ds, []model.PrimitiveID{model.WayID(10), model.RelationID(20)})
	require.NoError(t, err)
	require.NoError(t, cmd.Apply())

	p, _ := ds.Get(model.WayID(10))
	assert.Equal(t, model.Deleted, p.GetState())

	_, err = command.NewDeleteCommand(ds, []model.PrimitiveID{model.WayID(10)})
	assert.ErrorIs(t, err, command.ErrPrecondition)
}

func TestDeleteCascade(t *testing.T) {
	test_cases := []struct {
		name        string
		keys        []model.PrimitiveID
		withNodes   bool
		deleted     []model.PrimitiveID
		wayNodes    []model.ID
		relMembers  int
		description string
	}{
		{
			name:        "node leaves way",
			keys:        []model.PrimitiveID{model.NodeID(2)},
			deleted:     []model.PrimitiveID{model.NodeID(2)},
			wayNodes:    []model.ID{1, 3},
			relMembers:  1,
			description: "Delete node 2",
		},
		{
			name:        "way degenerates",
			keys:        []model.PrimitiveID{model.NodeID(1), model.NodeID(2)},
			deleted:     []model.PrimitiveID{model.NodeID(1), model.NodeID(2), model.WayID(10)},
			relMembers:  0,
			description: "Delete 3 objects",
		},
		{
			name:        "way with untagged nodes",
			keys:        []model.PrimitiveID{model.WayID(10)},
			withNodes:   true,
			deleted:     []model.PrimitiveID{model.NodeID(1), model.NodeID(3), model.WayID(10)},
			relMembers:  0,
			description: "Delete 3 objects",
		},
	}

	for _, tc := range test_cases {
		t.Run(tc.name, func(t *testing.T) {
			ds := newFixture(t)

			cmd, err := command.Delete(ds, tc.keys, tc.withNodes)
			require.NoError(t, err)
			require.NoError(t, cmd.Apply())

			assert.Equal(t, tc.description, cmd.Description())

			for _, k := range tc.deleted {
				p, ok := ds.Get(k)
				require.True(t, ok)
				assert.Equal(t, model.Deleted, p.GetState(), k.String())
			}

			if tc.wayNodes != nil {
				p, _ := ds.Get(model.WayID(10))
				assert.Equal(t, tc.wayNodes, p.(*model.Way).NodeIDs)
			}

			p, _ := ds.Get(model.RelationID(20))
			assert.Len(t, p.(*model.Relation).Members, tc.relMembers)
		})
	}
}

func TestDeleteWaySegment(t *testing.T) {
	test_cases := []struct {
		name   string
		index  int
		way10  []model.ID
		newWay []model.ID
	}{
		{"first segment", 0, []model.ID{2, 3, 4}, nil},
		{"middle segment", 1, []model.ID{1, 2}, []model.ID{3, 4}},
		{"last segment", 2, []model.ID{1, 2, 3}, nil},
	}

	for _, tc := range test_cases {
		t.Run(tc.name, func(t *testing.T) {
			ds := newFixture(t)

			extend, err := command.NewChangeCommand(ds, &model.Way{ID: 10, NodeIDs: []model.ID{1, 2, 3, 4}})
			require.NoError(t, err)
			require.NoError(t, extend.Apply())

			cmd, err := command.DeleteWaySegment(ds, 10, tc.index)
			require.NoError(t, err)
			require.NoError(t, cmd.Apply())

			p, _ := ds.Get(model.WayID(10))
			assert.Equal(t, tc.way10, p.(*model.Way).NodeIDs)

			nw, ok := ds.Get(model.WayID(-1))
			if tc.newWay == nil {
				assert.False(t, ok)
				return
			}

			require.True(t, ok)
			assert.Equal(t, tc.newWay, nw.(*model.Way).NodeIDs)
			assert.Equal(t, model.New, nw.GetState())
		})
	}

	ds := newFixture(t)
	_, err := command.DeleteWaySegment(ds, 10, 2)
	assert.ErrorIs(t, err, command.ErrPrecondition)
}

func TestSplitChunks(t *testing.T) {
	test_cases := []struct {
		name   string
		nodes  []model.ID
		at     []model.ID
		chunks [][]model.ID
		err    error
	}{
		{"open way", []model.ID{1, 2, 3, 4, 5}, []model.ID{3}, [][]model.ID{{1, 2, 3}, {3, 4, 5}}, nil},
		{"open way twice", []model.ID{1, 2, 3, 4, 5}, []model.ID{2, 4}, [][]model.ID{{1, 2}, {2, 3, 4}, {4, 5}}, nil},
		{"open way end", []model.ID{1, 2, 3}, []model.ID{1, 3}, nil, command.ErrSplitEnds},
		{"unknown node", []model.ID{1, 2, 3}, []model.ID{9}, nil, command.ErrSplitEnds},
		{"closed way once", []model.ID{1, 2, 3, 4, 1}, []model.ID{3}, nil, command.ErrSplitCircular},
		{"closed way at start", []model.ID{1, 2, 3, 1}, []model.ID{1}, nil, command.ErrSplitCircular},
		{"closed way twice", []model.ID{1, 2, 3, 4, 1}, []model.ID{2, 4}, [][]model.ID{{4, 1, 2}, {2, 3, 4}}, nil},
		{"closed way at start and middle", []model.ID{1, 2, 3, 4, 1}, []model.ID{1, 3}, [][]model.ID{{1, 2, 3}, {3, 4, 1}}, nil},
	}

	for _, tc := range test_cases {
		t.Run(tc.name, func(t *testing.T) {
			chunks, err := command.SplitChunks(tc.nodes, tc.at)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				assert.ErrorIs(t, err, command.ErrPrecondition)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.chunks, chunks)
		})
	}
}

func TestSplitWay(t *testing.T) {
	ds := newFixture(t)

	cmd, err := command.SplitWay(ds, 10, []model.ID{2})
	require.NoError(t, err)
	require.NoError(t, cmd.Apply())
	assert.Equal(t, "Split way 10 into 2 parts", cmd.Description())

	p, _ := ds.Get(model.WayID(10))
	assert.Equal(t, []model.ID{1, 2}, p.(*model.Way).NodeIDs)

	p, ok := ds.Get(model.WayID(-1))
	require.True(t, ok)

	nw := p.(*model.Way)
	assert.Equal(t, []model.ID{2, 3}, nw.NodeIDs)
	assert.Equal(t, map[string]string{"highway": "residential"}, nw.Tags)
	assert.Equal(t, model.New, nw.State)

	p, _ = ds.Get(model.RelationID(20))
	assert.Equal(t, []model.Member{
		{ID: 10, Type: model.WAY, Role: "outer"},
		{ID: -1, Type: model.WAY, Role: "outer"},
	}, p.(*model.Relation).Members)
}

func TestPurgeNeedsAllReferrers(t *testing.T) {
	ds := newFixture(t)

	_, err := command.NewPurgeCommand(ds, []model.PrimitiveID{model.WayID(10)})
	assert.ErrorIs(t, err, command.ErrPrecondition)

	cmd, err := command.NewPurgeCommand(ds, []model.PrimitiveID{
		model.RelationID(20), model.WayID(10), model.NodeID(1), model.NodeID(2), model.NodeID(3),
	})
	require.NoError(t, err)
	require.NoError(t, cmd.Apply())

	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, "Purge 5 objects", cmd.Description())
}

func TestTopoSort(t *testing.T) {
	prims := []model.Primitive{
		&model.Relation{ID: 2, Members: []model.Member{{ID: 1, Type: model.RELATION}}},
		&model.Relation{ID: 1, Members: []model.Member{{ID: 5, Type: model.WAY}, {ID: 9, Type: model.NODE}}},
		&model.Way{ID: 5, NodeIDs: []model.ID{8, 9}},
		&model.Node{ID: 9},
		&model.Node{ID: 8},
	}

	var keys []model.PrimitiveID
	for _, p := range command.TopoSort(prims) {
		keys = append(keys, p.Key())
	}

	assert.Equal(t, []model.PrimitiveID{
		model.NodeID(8), model.NodeID(9), model.WayID(5), model.RelationID(1), model.RelationID(2),
	}, keys)
}

// newCycle adds relation 30 holding node 4 and relation 31 holding relation
// 30 to the fixture, then makes relation 31 a member of relation 30.
func newCycle(t *testing.T) *store.DataSet {
	t.Helper()

	ds := newFixture(t)
	require.NoError(t, ds.Insert(&model.Relation{ID: 30, Members: []model.Member{{ID: 4, Type: model.NODE}}}))
	require.NoError(t, ds.Insert(&model.Relation{ID: 31, Members: []model.Member{{ID: 30, Type: model.RELATION}}}))

	c, err := command.NewChangeCommand(ds, &model.Relation{ID: 30, Members: []model.Member{
		{ID: 4, Type: model.NODE},
		{ID: 31, Type: model.RELATION, Role: "subarea"},
	}})
	require.NoError(t, err)
	require.NoError(t, c.Apply())

	return ds
}

func TestAddPrimitivesRelationCycle(t *testing.T) {
	ds := newCycle(t)
	fresh := store.NewDataSet()

	cmd, err := command.AddPrimitives(fresh, ds.Primitives())
	require.NoError(t, err)
	assert.Equal(t, "Add 8 objects", cmd.Description())

	require.NoError(t, cmd.Apply())
	assert.True(t, ds.Equal(fresh))
	assert.Equal(t, []model.PrimitiveID{model.RelationID(31)}, fresh.Referrers(model.RelationID(30)))
	assert.Equal(t, []model.PrimitiveID{model.RelationID(30)}, fresh.Referrers(model.RelationID(31)))

	require.NoError(t, cmd.Revert())
	assert.Zero(t, fresh.Len())

	require.NoError(t, cmd.Apply())
	assert.True(t, ds.Equal(fresh))
}

func TestAddPrimitivesSelfReference(t *testing.T) {
	fresh := store.NewDataSet()
	r := &model.Relation{ID: -1, State: model.New, Members: []model.Member{{ID: -1, Type: model.RELATION}}}

	cmd, err := command.AddPrimitives(fresh, []model.Primitive{r})
	require.NoError(t, err)
	require.NoError(t, cmd.Apply())

	p, ok := fresh.Get(model.RelationID(-1))
	require.True(t, ok)
	assert.True(t, r.Equal(p))

	require.NoError(t, cmd.Revert())
	assert.Zero(t, fresh.Len())
}

func TestRelationCycle(t *testing.T) {
	cycle := []model.PrimitiveID{model.RelationID(30), model.RelationID(31)}

	test_cases := []struct {
		name  string
		build func(s store.Store) (command.Command, error)
		check func(t *testing.T, ds *store.DataSet)
	}{
		{"purge", func(s store.Store) (command.Command, error) {
			return command.NewPurgeCommand(s, cycle)
		}, func(t *testing.T, ds *store.DataSet) {
			assert.Equal(t, 6, ds.Len())
			assert.Empty(t, ds.Referrers(model.NodeID(4)))
		}},
		{"delete", func(s store.Store) (command.Command, error) {
			return command.NewDeleteCommand(s, cycle)
		}, func(t *testing.T, ds *store.DataSet) {
			for _, k := range cycle {
				p, ok := ds.Get(k)
				require.True(t, ok)
				assert.Equal(t, model.Deleted, p.GetState())
				assert.NotEmpty(t, p.(*model.Relation).Members)
			}
		}},
	}

	for _, tc := range test_cases {
		t.Run(tc.name, func(t *testing.T) {
			ds := newCycle(t)
			before := ds.Clone()

			cmd, err := tc.build(ds)
			require.NoError(t, err)
			require.NoError(t, cmd.Apply())
			tc.check(t, ds)

			require.NoError(t, cmd.Revert())
			assert.True(t, before.Equal(ds))
			assert.Equal(t, []model.PrimitiveID{model.RelationID(31)}, ds.Referrers(model.RelationID(30)))
		})
	}
}
