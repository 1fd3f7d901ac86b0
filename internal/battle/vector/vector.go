package vector

import (
	"encoding/json"
	"fmt"
	"math"
)

// Vector3 is a point or direction in battle space.
// It serializes as a three element array, [x, y, z].
type Vector3 struct {
	X float64
	Y float64
	Z float64
}

// Zero is the zero vector.
var Zero = Vector3{}

func New(x, y, z float64) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vector3) Scale(f float64) Vector3 {
	return Vector3{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

// Length returns the magnitude of the vector without intermediate overflow.
func (v Vector3) Length() float64 {
	return math.Hypot(math.Hypot(v.X, v.Y), v.Z)
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vector3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%g,%g,%g)", v.X, v.Y, v.Z)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vector3) float64 {
	return b.Sub(a).Length()
}

// Normalize returns the unit vector pointing along v. The second result is
// false for a zero-length input, which has no direction.
func Normalize(v Vector3) (Vector3, bool) {
	l := v.Length()
	if l == 0 {
		return Zero, false
	}
	return Vector3{X: v.X / l, Y: v.Y / l, Z: v.Z / l}, true
}

// DirectionToAngle converts a direction into a yaw in the horizontal plane.
// Only used for facing, never for physics.
func DirectionToAngle(v Vector3) float64 {
	return math.Atan2(v.X, v.Z)
}

func (v Vector3) MarshalJSON() ([]byte, error) {
	if !v.IsFinite() {
		return nil, fmt.Errorf("vector %s is not finite", v)
	}
	return json.Marshal([3]float64{v.X, v.Y, v.Z})
}

func (v *Vector3) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("vector must be an array of three numbers: %w", err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("vector must have 3 components, got %d", len(raw))
	}
	v.X, v.Y, v.Z = raw[0], raw[1], raw[2]
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
