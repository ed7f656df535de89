// SPDX-License-Identifier: GPL-2.0-or-later

package tjunc

import "gobsp/math/vec"

// nextBlocked reports whether the vertex after end lies on the closing
// edge v2-v0, which would make the next fan triangle invalid.
func (fx *fixer) nextBlocked(input []uint32, v0, v2 uint32, end int) bool {
	d := vec.Sub(fx.w.Vertexes[v0], fx.w.Vertexes[v2])
	dir, length := d.NormalizeLength()
	next := fx.w.Vertexes[input[(end+1)%len(input)]]
	_, on := pointOnEdge(next, fx.w.Vertexes[v2], dir, 0, length)
	return on
}

// retopologizeFace splits a superface that cannot be fixed by rotation
// into several triangle fans. It grows a fan from a valid seed triangle
// until blocked, clips the consumed span out of the ring and repeats.
// Returns nil if no valid tessellation is found.
func (fx *fixer) retopologizeFace(vertices []uint32) [][]uint32 {
	var result [][]uint32
	input := append([]uint32(nil), vertices...)

	for len(input) > 0 {
		// a degenerated ring means failure
		if len(input) < 3 {
			return nil
		}

		n := len(input)
		seed := 0
		end := 0

		// find a seed triangle, allowing wrap around since only the
		// last two triangles may be valid
		for ; seed < n; seed++ {
			v0 := input[seed]
			v1 := input[(seed+1)%n]
			end = (seed + 2) % n
			v2 := input[end]

			if !fx.triangleIsValid(v0, v1, v2, angleEpsilon) {
				continue
			}
			if fx.nextBlocked(input, v0, v2, end) {
				continue
			}
			break
		}
		if seed == n {
			// no non-zero-area triangle anywhere
			return nil
		}

		// wind on from the seed until a following vertex lands on
		// the closing edge
		wrap := end
		for end = (end + 1) % n; end != wrap; end = (end + 1) % n {
			v0 := input[seed]
			v2 := input[end]
			if fx.nextBlocked(input, v0, v2, end) {
				// back up and stop
				end--
				if end < 0 {
					end = n - 1
				}
				break
			}
		}

		// emit the fan from seed to end and clip the consumed span
		// out of the ring
		switch {
		case seed == end:
			result = append(result, input)
			return result
		case end == wrap:
			// full wrap with the seed mid-ring, rotate it to the front
			fan := make([]uint32, 0, n)
			fan = append(fan, input[seed:]...)
			fan = append(fan, input[:seed]...)
			result = append(result, fan)
			return result
		}

		var fan []uint32
		if end < seed {
			// the span wraps past the ring start
			x := seed
			first := true
			for x != end || first {
				fan = append(fan, input[x])
				x = (x + 1) % n
				first = false
			}
			fan = append(fan, input[end])
			result = append(result, fan)

			// keep end..seed as the reduced ring
			input = append(input[:0], input[end:seed+1]...)
		} else {
			fan = append(fan, input[seed:end+1]...)
			result = append(result, fan)

			// collapse the consumed interior, keeping seed and end
			input = append(input[:seed+1], input[end:]...)
		}
	}

	return result
}
