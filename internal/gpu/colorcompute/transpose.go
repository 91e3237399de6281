package colorcompute

import "github.com/gogpu/colorize/internal/parallel"

// transposeKernel mirrors transpose.wgsl: out[pos*lines + line] = in[line*lineLen + pos].
func transposeKernel(wg *parallel.Workgroup, sp ScanParams, in, out []Pixel) {
	lineLen := sp.LineLength()
	lines := sp.Lines()
	wg.Phase(func(local parallel.Grid) {
		g := wg.Global(local)
		pos, line := g.X, g.Y
		if pos >= lineLen || line >= lines {
			return
		}
		out[pos*lines+line] = in[line*lineLen+pos]
	})
}
