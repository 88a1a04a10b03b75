package geometry

import "math"

// Point is a target location in field coordinates (meters).
type Point struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Pose is the robot's position and heading. The JSON shape matches the
// bridge's /odom response.
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Bearing returns the heading from one point toward another, in radians.
func Bearing(from, to Point) float64 {
	return math.Atan2(to.Y-from.Y, to.X-from.X)
}

// NormalizeAngle wraps an angle into [-π, π].
func NormalizeAngle(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// PathLength returns the total length of the polyline through the points.
func PathLength(path []Point) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += Dist(path[i-1], path[i])
	}
	return total
}
