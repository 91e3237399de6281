package parallel

// Grid is a two-dimensional dispatch size, in workgroups or in lanes.
type Grid struct {
	X, Y uint32
}

// Count returns X*Y.
func (g Grid) Count() int {
	return int(g.X) * int(g.Y)
}

// Workgroup emulates one compute workgroup on the CPU.
//
// Lanes of a workgroup execute in lock-step phases. Phase k completes for
// every lane before phase k+1 starts for any lane, so the boundary between
// two Phase calls behaves like workgroupBarrier(). Within one phase a lane
// must not read a scratch slot that another lane writes in the same phase.
type Workgroup struct {
	// ID is the workgroup id within the dispatch grid.
	ID Grid
	// Size is the number of lanes along each axis.
	Size Grid
}

// Phase runs fn once per lane, in lane order.
func (w *Workgroup) Phase(fn func(local Grid)) {
	for y := uint32(0); y < w.Size.Y; y++ {
		for x := uint32(0); x < w.Size.X; x++ {
			fn(Grid{X: x, Y: y})
		}
	}
}

// Global returns the global invocation id of a lane.
func (w *Workgroup) Global(local Grid) Grid {
	return Grid{X: w.ID.X*w.Size.X + local.X, Y: w.ID.Y*w.Size.Y + local.Y}
}

// DispatchWorkgroups runs kernel once per workgroup of groups on the pool.
// Workgroups run concurrently; the call returns after all of them finished.
func (p *WorkerPool) DispatchWorkgroups(groups, size Grid, kernel func(wg *Workgroup)) error {
	if groups.X == 0 || groups.Y == 0 {
		return nil
	}
	return p.Dispatch(groups.Count(), func(i int) {
		wg := Workgroup{
			ID:   Grid{X: uint32(i) % groups.X, Y: uint32(i) / groups.X},
			Size: size,
		}
		kernel(&wg)
	})
}
