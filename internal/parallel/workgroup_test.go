package parallel

import (
	"sync/atomic"
	"testing"
)

func TestWorkgroupPhaseOrder(t *testing.T) {
	wg := Workgroup{Size: Grid{X: 4, Y: 2}}

	var seen []Grid
	wg.Phase(func(local Grid) { seen = append(seen, local) })

	if len(seen) != 8 {
		t.Fatalf("Phase visited %d lanes, want 8", len(seen))
	}
	if seen[0] != (Grid{0, 0}) || seen[4] != (Grid{0, 1}) || seen[7] != (Grid{3, 1}) {
		t.Errorf("unexpected lane order %v", seen)
	}
}

// TestWorkgroupBarrier runs a doubling scan with a read phase and a write
// phase per step; without the phase boundary the result would be wrong.
func TestWorkgroupBarrier(t *testing.T) {
	const n = 16
	wg := Workgroup{Size: Grid{X: n, Y: 1}}

	scratch := make([]int, n)
	tmp := make([]int, n)
	wg.Phase(func(l Grid) { scratch[l.X] = 1 })
	for offset := uint32(1); offset < n; offset *= 2 {
		wg.Phase(func(l Grid) {
			tmp[l.X] = scratch[l.X]
			if l.X >= offset {
				tmp[l.X] += scratch[l.X-offset]
			}
		})
		wg.Phase(func(l Grid) { scratch[l.X] = tmp[l.X] })
	}

	for i, v := range scratch {
		if v != i+1 {
			t.Fatalf("scratch[%d] = %d, want %d", i, v, i+1)
		}
	}
}

func TestWorkgroupGlobal(t *testing.T) {
	wg := Workgroup{ID: Grid{X: 2, Y: 3}, Size: Grid{X: 16, Y: 16}}
	got := wg.Global(Grid{X: 5, Y: 7})
	want := Grid{X: 37, Y: 55}
	if got != want {
		t.Errorf("Global = %v, want %v", got, want)
	}
}

func TestDispatchWorkgroups(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	groups := Grid{X: 5, Y: 3}
	size := Grid{X: 4, Y: 4}
	visits := make([]int32, groups.Count()*size.Count())

	err := pool.DispatchWorkgroups(groups, size, func(wg *Workgroup) {
		wg.Phase(func(l Grid) {
			g := wg.Global(l)
			atomic.AddInt32(&visits[g.Y*groups.X*size.X+g.X], 1)
		})
	})
	if err != nil {
		t.Fatalf("DispatchWorkgroups: %v", err)
	}
	for i, v := range visits {
		if v != 1 {
			t.Fatalf("invocation %d ran %d times, want 1", i, v)
		}
	}
}

func TestDispatchWorkgroupsEmptyGrid(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Close()

	if err := pool.DispatchWorkgroups(Grid{X: 0, Y: 4}, Grid{X: 1, Y: 1}, func(*Workgroup) {
		t.Error("kernel ran for empty grid")
	}); err != nil {
		t.Fatalf("DispatchWorkgroups: %v", err)
	}
}
