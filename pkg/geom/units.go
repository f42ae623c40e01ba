package geom

import "math"

// DefaultUnitsPerMeter matches the engine convention of one unit per centimeter.
const DefaultUnitsPerMeter = 100

// Scale converts between meters and engine units.
type Scale float32

// unitPrecision is the finest engine unit step a converted distance keeps.
const unitPrecision = 1e-3

func (s Scale) perMeter() float64 {
	if s <= 0 {
		return DefaultUnitsPerMeter
	}
	return float64(s)
}

// ToUnits converts a metric distance to engine units. The product is computed
// in float64 and snapped to unitPrecision so 0.3 m at 100 units/m is exactly 30.
func (s Scale) ToUnits(meters float32) float32 {
	v := float64(meters) * s.perMeter()
	return float32(math.Round(v/unitPrecision) * unitPrecision)
}

// ToMeters converts engine units to meters.
func (s Scale) ToMeters(units float32) float32 {
	return float32(float64(units) / s.perMeter())
}
