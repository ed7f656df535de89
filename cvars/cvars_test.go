// SPDX-License-Identifier: GPL-2.0-or-later

package cvars

import (
	"testing"

	"gobsp/cvar"
)

func TestDefaults(t *testing.T) {
	if v := MaxEdges.Int(); v != 64 {
		t.Errorf("maxedges default %d, want 64", v)
	}
	if v := TJunc.Int(); v != 3 {
		t.Errorf("tjunc default %d, want 3", v)
	}
	if v := WorldExtent.Value(); v != 65536 {
		t.Errorf("worldextent default %v, want 65536", v)
	}
	if TransWater.Bool() || TransSky.Bool() {
		t.Errorf("translucent flood enabled by default")
	}
}

func TestRegistry(t *testing.T) {
	cv, ok := cvar.Get("tjunc")
	if !ok {
		t.Fatalf("tjunc not registered")
	}
	if cv != TJunc {
		t.Errorf("registry returned a different variable")
	}
	if cv.Name() != "tjunc" {
		t.Errorf("name %q, want tjunc", cv.Name())
	}
}

func TestTJuncClamp(t *testing.T) {
	defer cvar.ResetAll()

	TJunc.SetValue(9)
	if v := TJunc.Int(); v != 3 {
		t.Errorf("tjunc 9 clamped to %d, want 3", v)
	}
	TJunc.SetValue(-1)
	if v := TJunc.Int(); v != 0 {
		t.Errorf("tjunc -1 clamped to %d, want 0", v)
	}

	cvar.ResetAll()
	if v := TJunc.Int(); v != 3 {
		t.Errorf("tjunc %d after reset, want 3", v)
	}
}
