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
	"slices"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"m4o.io/osmedit/model"
)

const (
	// FeatureSchema is the OSM data model version of the primitives.
	FeatureSchema = "OsmSchema-V0.6"

	// FeatureEditState marks snapshots that keep the new/deleted state of
	// primitives.
	FeatureEditState = "OsmEdit-State"
)

var knownFeatures = []string{FeatureSchema, FeatureEditState}

// Header block fields.
const (
	headerBBox             protowire.Number = 1
	headerRequiredFeatures protowire.Number = 4
	headerWritingProgram   protowire.Number = 16
	headerSource           protowire.Number = 17
	headerTimestamp        protowire.Number = 32
	headerNodes            protowire.Number = 33
	headerWays             protowire.Number = 34
	headerRelations        protowire.Number = 35

	bboxLeft   protowire.Number = 1
	bboxRight  protowire.Number = 2
	bboxTop    protowire.Number = 3
	bboxBottom protowire.Number = 4
)

// Header describes the contents of a snapshot.
type Header struct {
	BoundingBox      *model.BoundingBox
	RequiredFeatures []string
	WritingProgram   string
	Source           string
	Timestamp        time.Time
	Nodes            int64
	Ways             int64
	Relations        int64
}

func encodeHeader(hdr *Header) []byte {
	var b []byte

	if bbox := hdr.BoundingBox; bbox != nil && !bbox.IsEmpty() {
		var bb []byte
		bb = appendSint(bb, bboxLeft, int64(bbox.Left.E7()))
		bb = appendSint(bb, bboxRight, int64(bbox.Right.E7()))
		bb = appendSint(bb, bboxTop, int64(bbox.Top.E7()))
		bb = appendSint(bb, bboxBottom, int64(bbox.Bottom.E7()))
		b = appendMessage(b, headerBBox, bb)
	}

	for _, f := range hdr.RequiredFeatures {
		b = appendString(b, headerRequiredFeatures, f)
	}

	if hdr.WritingProgram != "" {
		b = appendString(b, headerWritingProgram, hdr.WritingProgram)
	}

	if hdr.Source != "" {
		b = appendString(b, headerSource, hdr.Source)
	}

	if !hdr.Timestamp.IsZero() {
		b = appendSint(b, headerTimestamp, hdr.Timestamp.Unix())
	}

	b = appendVarint(b, headerNodes, uint64(hdr.Nodes))
	b = appendVarint(b, headerWays, uint64(hdr.Ways))
	b = appendVarint(b, headerRelations, uint64(hdr.Relations))

	return b
}

func decodeHeader(b []byte) (*Header, error) {
	hdr := &Header{}

	err := walk(b, func(num protowire.Number, v uint64, data []byte) error {
		switch num {
		case headerBBox:
			bbox, err := decodeBBox(data)
			if err != nil {
				return err
			}

			hdr.BoundingBox = bbox
		case headerRequiredFeatures:
			hdr.RequiredFeatures = append(hdr.RequiredFeatures, string(data))
		case headerWritingProgram:
			hdr.WritingProgram = string(data)
		case headerSource:
			hdr.Source = string(data)
		case headerTimestamp:
			hdr.Timestamp = time.Unix(protowire.DecodeZigZag(v), 0).UTC()
		case headerNodes:
			hdr.Nodes = int64(v)
		case headerWays:
			hdr.Ways = int64(v)
		case headerRelations:
			hdr.Relations = int64(v)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error decoding header: %w", err)
	}

	for _, f := range hdr.RequiredFeatures {
		if !slices.Contains(knownFeatures, f) {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFeature, f)
		}
	}

	return hdr, nil
}

func decodeBBox(b []byte) (*model.BoundingBox, error) {
	bbox := &model.BoundingBox{}

	err := walk(b, func(num protowire.Number, v uint64, _ []byte) error {
		d := model.FromE7(int32(protowire.DecodeZigZag(v)))

		switch num {
		case bboxLeft:
			bbox.Left = d
		case bboxRight:
			bbox.Right = d
		case bboxTop:
			bbox.Top = d
		case bboxBottom:
			bbox.Bottom = d
		}

		return nil
	})

	return bbox, err
}
