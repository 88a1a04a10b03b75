// Package planner orders a set of cone placement points into a visiting
// sequence using a greedy nearest-neighbor heuristic. The output is the
// official visit order consumed by the simulation engine and the robot
// bridge; it is recomputed from scratch on every call and never mutated.
package planner

import "conepilot/geometry"

// Plan returns a permutation of points ordered by greedy nearest-neighbor
// selection starting from origin. The origin itself is not included in the
// output. Ties on distance resolve to the earlier point in the current
// remaining order, so repeated calls on the same input produce identical
// output. O(n²), which is fine for the double-digit point counts a field
// session holds.
func Plan(points []geometry.Point, origin geometry.Point) []geometry.Point {
	if len(points) == 0 {
		return []geometry.Point{}
	}

	remaining := make([]geometry.Point, len(points))
	copy(remaining, points)

	ordered := make([]geometry.Point, 0, len(points))
	current := origin

	for len(remaining) > 0 {
		best := 0
		bestDist := geometry.Dist(current, remaining[0])
		for i := 1; i < len(remaining); i++ {
			// Strict < keeps the left-most candidate on equal distance.
			if d := geometry.Dist(current, remaining[i]); d < bestDist {
				best = i
				bestDist = d
			}
		}
		current = remaining[best]
		ordered = append(ordered, current)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return ordered
}
