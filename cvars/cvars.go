// SPDX-License-Identifier: GPL-2.0-or-later

// Package cvars declares the configuration variables of the geometry
// pipeline.
package cvars

import (
	"gobsp/cvar"
)

var (
	// Epsilon is the base on-plane distance tolerance.
	Epsilon *cvar.Cvar
	// WorldExtent bounds the coordinates a node volume may reach.
	WorldExtent *cvar.Cvar
	// MaxEdges caps the edge count of merged faces and resolved
	// fragments; 0 disables the limit.
	MaxEdges *cvar.Cvar
	// TJunc selects the crack resolution tier (0 none, 1 rotate,
	// 2 retopologize, 3 mwt).
	TJunc *cvar.Cvar
	// TransWater/TransSky let visibility flood through water and sky
	// contents.
	TransWater *cvar.Cvar
	TransSky   *cvar.Cvar
	// SideSpace pads the portal volume around the tree bounds.
	SideSpace *cvar.Cvar
)

func init() {
	Epsilon = cvar.MustRegister("epsilon", "0.001", cvar.NONE)
	WorldExtent = cvar.MustRegister("worldextent", "65536", cvar.NONE)
	MaxEdges = cvar.MustRegister("maxedges", "64", cvar.NONE)
	TJunc = cvar.MustRegister("tjunc", "3", cvar.NONE)
	// clamp to the tiers the resolver knows about
	TJunc.SetCallback(func(cv *cvar.Cvar) {
		if cv.Int() < 0 {
			cv.SetValue(0)
		} else if cv.Int() > 3 {
			cv.SetValue(3)
		}
	})
	TransWater = cvar.MustRegister("transwater", "0", cvar.NONE)
	TransSky = cvar.MustRegister("transsky", "0", cvar.NONE)
	SideSpace = cvar.MustRegister("sidespace", "24", cvar.NONE)
}
