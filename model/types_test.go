// Copyright 2017-25 the original author or authors.
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

package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"m4o.io/osmedit/model"
)

func TestDegreesAngle(t *testing.T) {
	a := model.Degrees(45.0).Angle()

	assert.InDelta(t, 0.78539816, float64(a), 1e-8)
	assert.True(t, a.Degrees().EqualWithin(45, model.E7))
}

func TestE7(t *testing.T) {
	test_cases := []struct {
		name string
		in   model.Degrees
		e7   int32
	}{
		{"positive", 53.123456789, 531234568},
		{"negative", -0.1234567, -1234567},
		{"rounds away from zero", -0.00000005, -1},
		{"zero", 0, 0},
		{"antimeridian", 180, 1800000000},
	}

	for _, tc := range test_cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.e7, tc.in.E7())
			assert.True(t, model.FromE7(tc.e7).EqualWithin(tc.in, model.E7))
		})
	}
}

func TestDegreesEqualWithin(t *testing.T) {
	assert.True(t, model.Degrees(53.123450).EqualWithin(model.Degrees(53.123454), model.E5))
	assert.False(t, model.Degrees(53.123450).EqualWithin(model.Degrees(53.123455), model.E5))
	assert.True(t, model.Degrees(-0.1).EqualWithin(model.FromE7(-1000000), model.E7))
}

func TestInWorld(t *testing.T) {
	test_cases := []struct {
		name     string
		lat, lon model.Degrees
		want     bool
	}{
		{"london", 51.5, -0.12, true},
		{"north pole", 90, 0, true},
		{"too far north", 90.5, 0, false},
		{"too far south", -91, 0, false},
		{"too far east", 0, 181, false},
		{"too far west", 0, -180.5, false},
	}

	for _, tc := range test_cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, model.InWorld(tc.lat, tc.lon))
		})
	}
}

func TestDegreesString(t *testing.T) {
	assert.Equal(t, "53° 7' 24.42\"", model.Degrees(53.123450).String())
	assert.Equal(t, "-0° 6' 0\"", model.Degrees(-0.1).String())
}
