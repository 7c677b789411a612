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

package model

import (
	"fmt"
	"math"
	"strconv"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Degrees is the decimal degree representation of a longitude or latitude.
type Degrees float64

// Angle represents a 1D angle in radians.
type Angle s1.Angle

// Epsilon is an enumeration of precisions that can be used when comparing Degrees.
type Epsilon float64

// Degrees units.
const (
	Degree           Degrees = 1
	MinutesPerDegree         = 60
	SecondsPerDegree         = 3600

	E5 Epsilon = 1e-5
	E6 Epsilon = 1e-6
	E7 Epsilon = 1e-7

	// TenMillionths is the fixed point scale coordinates are stored with.
	TenMillionths = 10_000_000

	half = 0.5
)

// Angle returns the equivalent s1.Angle.
func (d Degrees) Angle() Angle { return Angle(float64(d) * float64(s1.Degree)) }

// Degrees converts the angle back into decimal degrees.
func (a Angle) Degrees() Degrees { return Degrees(s1.Angle(a).Degrees()) }

// String formats the value as degrees, minutes and seconds.
func (d Degrees) String() string {
	var sign string
	if d < 0 {
		sign = "-"
	}

	val := math.Abs(float64(d))
	degrees := int(math.Floor(val))
	minutes := int(math.Floor(MinutesPerDegree * (val - float64(degrees))))
	seconds := SecondsPerDegree * (val - float64(degrees) - (float64(minutes) / MinutesPerDegree))

	return fmt.Sprintf("%s%d° %d' %s\"", sign, degrees, minutes, ftoa(seconds))
}

// EqualWithin checks if two degrees are within a specific epsilon.
func (d Degrees) EqualWithin(o Degrees, eps Epsilon) bool {
	return round(float64(d)/float64(eps))-round(float64(o)/float64(eps)) == 0
}

// E7 returns the angle in ten millionths of degrees, the precision
// snapshots store coordinates with.
func (d Degrees) E7() int32 { return round(float64(d * TenMillionths)) }

// FromE7 converts a coordinate in ten millionths of degrees into Degrees.
func FromE7(v int32) Degrees { return Degrees(v) / TenMillionths }

// LatLng returns the position as an s2.LatLng.
func LatLng(lat, lon Degrees) s2.LatLng {
	return s2.LatLng{Lat: s1.Angle(lat.Angle()), Lng: s1.Angle(lon.Angle())}
}

// InWorld reports whether lat and lon lie within [-90, 90] and [-180, 180].
func InWorld(lat, lon Degrees) bool {
	return LatLng(lat, lon).IsValid()
}

// round returns the value rounded to nearest as an int32.
func round(val float64) int32 {
	if val < 0 {
		return int32(val - half)
	}

	return int32(val + half)
}

// ftoa formats with the shortest representation that survives a float32
// round trip, which keeps printed coordinates free of binary noise.
func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 32)
}
