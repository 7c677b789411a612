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
	"fmt"
	"maps"
	"slices"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"m4o.io/osmedit/model"
)

// Block fields.
const (
	blockStrings   protowire.Number = 1
	blockNodes     protowire.Number = 2
	blockWays      protowire.Number = 3
	blockRelations protowire.Number = 4

	stringEntry protowire.Number = 1
)

// Primitive fields. Fields 1 to 5 are shared by all primitive types.
const (
	primID    protowire.Number = 1
	primKeys  protowire.Number = 2
	primVals  protowire.Number = 3
	primInfo  protowire.Number = 4
	primState protowire.Number = 5

	nodeLat protowire.Number = 8
	nodeLon protowire.Number = 9

	wayRefs protowire.Number = 8

	relRoles  protowire.Number = 8
	relMemIDs protowire.Number = 9
	relTypes  protowire.Number = 10

	infoVersion   protowire.Number = 1
	infoTimestamp protowire.Number = 2
	infoChangeset protowire.Number = 3
	infoUID       protowire.Number = 4
	infoUser      protowire.Number = 5
	infoVisible   protowire.Number = 6
)

// encodeBlock encodes a batch of primitives, with its own string table.
func encodeBlock(prims []model.Primitive) ([]byte, error) {
	set := newStringSet()

	for _, p := range prims {
		for k, v := range p.GetTags() {
			set.add(k)
			set.add(v)
		}

		if info := p.GetInfo(); info != nil {
			set.add(info.User)
		}

		if r, ok := p.(*model.Relation); ok {
			for _, m := range r.Members {
				set.add(m.Role)
			}
		}
	}

	tbl := set.table()

	var st []byte
	for _, s := range tbl.strings {
		st = appendString(st, stringEntry, s)
	}

	b := appendMessage(nil, blockStrings, st)

	for _, p := range prims {
		switch p := p.(type) {
		case *model.Node:
			b = appendMessage(b, blockNodes, encodeNode(p, tbl))
		case *model.Way:
			b = appendMessage(b, blockWays, encodeWay(p, tbl))
		case *model.Relation:
			b = appendMessage(b, blockRelations, encodeRelation(p, tbl))
		default:
			return nil, fmt.Errorf("cannot encode %T", p)
		}
	}

	return b, nil
}

func encodeCommon(p model.Primitive, tbl *stringTable) []byte {
	b := appendSint(nil, primID, int64(p.GetID()))

	tags := p.GetTags()
	keys := slices.Sorted(maps.Keys(tags))
	kk := make([]uint64, len(keys))
	vv := make([]uint64, len(keys))

	for i, k := range keys {
		kk[i] = uint64(tbl.indexOf(k))
		vv[i] = uint64(tbl.indexOf(tags[k]))
	}

	b = appendPacked(b, primKeys, kk)
	b = appendPacked(b, primVals, vv)

	if info := p.GetInfo(); info != nil {
		b = appendMessage(b, primInfo, encodeInfo(info, tbl))
	}

	if s := p.GetState(); s != model.Normal {
		b = appendVarint(b, primState, uint64(s))
	}

	return b
}

func encodeInfo(info *model.Info, tbl *stringTable) []byte {
	var b []byte
	b = appendVarint(b, infoVersion, uint64(info.Version))

	if !info.Timestamp.IsZero() {
		b = appendSint(b, infoTimestamp, info.Timestamp.UnixMilli())
	}

	b = appendVarint(b, infoChangeset, uint64(info.Changeset))
	b = appendVarint(b, infoUID, uint64(info.UID))
	b = appendVarint(b, infoUser, uint64(tbl.indexOf(info.User)))
	b = appendVarint(b, infoVisible, protowire.EncodeBool(info.Visible))

	return b
}

func encodeNode(n *model.Node, tbl *stringTable) []byte {
	b := encodeCommon(n, tbl)
	b = appendSint(b, nodeLat, int64(n.Lat.E7()))

	return appendSint(b, nodeLon, int64(n.Lon.E7()))
}

func encodeWay(w *model.Way, tbl *stringTable) []byte {
	b := encodeCommon(w, tbl)

	return appendPacked(b, wayRefs, deltas(w.NodeIDs))
}

func encodeRelation(r *model.Relation, tbl *stringTable) []byte {
	b := encodeCommon(r, tbl)

	roles := make([]uint64, len(r.Members))
	ids := make([]model.ID, len(r.Members))
	types := make([]uint64, len(r.Members))

	for i, m := range r.Members {
		roles[i] = uint64(tbl.indexOf(m.Role))
		ids[i] = m.ID
		types[i] = uint64(m.Type)
	}

	b = appendPacked(b, relRoles, roles)
	b = appendPacked(b, relMemIDs, deltas(ids))

	return appendPacked(b, relTypes, types)
}

// deltas delta-codes ids as zigzag varints.
func deltas(ids []model.ID) []uint64 {
	out := make([]uint64, len(ids))

	var prev model.ID
	for i, id := range ids {
		out[i] = protowire.EncodeZigZag(int64(id - prev))
		prev = id
	}

	return out
}

func undeltas(values []uint64) []model.ID {
	ids := make([]model.ID, len(values))

	var prev model.ID
	for i, v := range values {
		prev += model.ID(protowire.DecodeZigZag(v))
		ids[i] = prev
	}

	return ids
}

// decodeBlock decodes a block written by encodeBlock.
func decodeBlock(b []byte) ([]model.Primitive, error) {
	var (
		strings []string
		msgs    [][]byte
		types   []model.EntityType
	)

	err := walk(b, func(num protowire.Number, _ uint64, data []byte) error {
		switch num {
		case blockStrings:
			return walk(data, func(num protowire.Number, _ uint64, s []byte) error {
				if num == stringEntry {
					strings = append(strings, string(s))
				}

				return nil
			})
		case blockNodes:
			msgs, types = append(msgs, data), append(types, model.NODE)
		case blockWays:
			msgs, types = append(msgs, data), append(types, model.WAY)
		case blockRelations:
			msgs, types = append(msgs, data), append(types, model.RELATION)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	d := blockDecoder{strings: strings}
	prims := make([]model.Primitive, len(msgs))

	for i, msg := range msgs {
		p, err := d.primitive(types[i], msg)
		if err != nil {
			return nil, err
		}

		prims[i] = p
	}

	return prims, nil
}

type blockDecoder struct {
	strings []string
}

func (d blockDecoder) str(i uint64) (string, error) {
	if i >= uint64(len(d.strings)) {
		return "", fmt.Errorf("%w: string index %d out of range", ErrMalformed, i)
	}

	return d.strings[i], nil
}

func (d blockDecoder) primitive(t model.EntityType, msg []byte) (model.Primitive, error) {
	var (
		id         model.ID
		keys, vals []uint64
		info       *model.Info
		state      model.State
		lat, lon   int64
		refs       []uint64
		roles      []uint64
		memIDs     []uint64
		memTypes   []uint64
	)

	err := walk(msg, func(num protowire.Number, v uint64, data []byte) error {
		var err error

		switch {
		case num == primID:
			id = model.ID(protowire.DecodeZigZag(v))
		case num == primKeys:
			keys, err = unpackVarints(data)
		case num == primVals:
			vals, err = unpackVarints(data)
		case num == primInfo:
			info, err = d.info(data)
		case num == primState:
			state = model.State(v)
		case t == model.NODE && num == nodeLat:
			lat = protowire.DecodeZigZag(v)
		case t == model.NODE && num == nodeLon:
			lon = protowire.DecodeZigZag(v)
		case t == model.WAY && num == wayRefs:
			refs, err = unpackVarints(data)
		case t == model.RELATION && num == relRoles:
			roles, err = unpackVarints(data)
		case t == model.RELATION && num == relMemIDs:
			memIDs, err = unpackVarints(data)
		case t == model.RELATION && num == relTypes:
			memTypes, err = unpackVarints(data)
		}

		return err
	})
	if err != nil {
		return nil, err
	}

	tags, err := d.tags(keys, vals)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", model.PrimitiveID{Type: t, ID: id}, err)
	}

	switch t {
	case model.NODE:
		return &model.Node{
			ID: id, Tags: tags, Info: info, State: state,
			Lat: model.FromE7(int32(lat)), Lon: model.FromE7(int32(lon)),
		}, nil
	case model.WAY:
		return &model.Way{ID: id, Tags: tags, Info: info, State: state, NodeIDs: undeltas(refs)}, nil
	default:
		if len(roles) != len(memIDs) || len(memTypes) != len(memIDs) {
			return nil, fmt.Errorf("%w: relation %d member arrays differ in length", ErrMalformed, id)
		}

		ids := undeltas(memIDs)
		members := make([]model.Member, len(ids))

		for i := range ids {
			role, err := d.str(roles[i])
			if err != nil {
				return nil, err
			}

			members[i] = model.Member{ID: ids[i], Type: model.EntityType(memTypes[i]), Role: role}
		}

		return &model.Relation{ID: id, Tags: tags, Info: info, State: state, Members: members}, nil
	}
}

func (d blockDecoder) tags(keys, vals []uint64) (map[string]string, error) {
	if len(keys) != len(vals) {
		return nil, fmt.Errorf("%w: %d keys but %d values", ErrMalformed, len(keys), len(vals))
	}

	if len(keys) == 0 {
		return nil, nil
	}

	tags := make(map[string]string, len(keys))

	for i := range keys {
		k, err := d.str(keys[i])
		if err != nil {
			return nil, err
		}

		v, err := d.str(vals[i])
		if err != nil {
			return nil, err
		}

		tags[k] = v
	}

	return tags, nil
}

func (d blockDecoder) info(b []byte) (*model.Info, error) {
	info := &model.Info{}

	err := walk(b, func(num protowire.Number, v uint64, _ []byte) error {
		switch num {
		case infoVersion:
			info.Version = int32(v)
		case infoTimestamp:
			info.Timestamp = time.UnixMilli(protowire.DecodeZigZag(v)).UTC()
		case infoChangeset:
			info.Changeset = int64(v)
		case infoUID:
			info.UID = model.UID(v)
		case infoUser:
			user, err := d.str(v)
			if err != nil {
				return err
			}

			info.User = user
		case infoVisible:
			info.Visible = protowire.DecodeBool(v)
		}

		return nil
	})

	return info, err
}
