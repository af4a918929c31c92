package geo

import (
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/athena2/fleeteval/internal/combat"
	"github.com/athena2/fleeteval/pkg/core"
)

// TRACES
// An engagement trace is stored as an XY LineString where X is elapsed
// simulated time and Y is the separation between fleet centres. SQLite has
// no spatial types, so the geometry round-trips through WKB.

// TraceRecorder samples the separation between two fleets while a battle
// runs. It implements combat.Observer.
type TraceRecorder struct {
	every  int
	points []core.TracePoint
	last   core.TracePoint
	seen   int
}

// NewTraceRecorder keeps every n-th tick. The final tick is always kept.
func NewTraceRecorder(every int) *TraceRecorder {
	if every < 1 {
		every = 1
	}
	return &TraceRecorder{every: every}
}

// ObserveTick records a sample.
func (r *TraceRecorder) ObserveTick(s combat.TickSnapshot) {
	p := core.TracePoint{Elapsed: s.Elapsed, Separation: s.Separation()}
	if r.seen%r.every == 0 {
		r.points = append(r.points, p)
	}
	r.last = p
	r.seen++
}

// Points returns the samples, ending with the final observed tick.
func (r *TraceRecorder) Points() []core.TracePoint {
	if r.seen == 0 {
		return nil
	}
	points := r.points
	if (r.seen-1)%r.every != 0 {
		points = append(points, r.last)
	}
	return points
}

// TraceLineString converts samples into a LineString. Fewer than two
// samples give an empty LineString.
func TraceLineString(points []core.TracePoint) geom.LineString {
	if len(points) < 2 {
		return geom.LineString{}
	}
	coords := make([]float64, 0, len(points)*2)
	for _, p := range points {
		coords = append(coords, p.Elapsed, p.Separation)
	}
	seq := geom.NewSequence(coords, geom.DimXY)
	return geom.NewLineString(seq)
}

// TracePoints converts a LineString back into samples.
func TracePoints(ls geom.LineString) []core.TracePoint {
	seq := ls.Coordinates()
	n := seq.Length()
	if n == 0 {
		return nil
	}
	points := make([]core.TracePoint, n)
	for i := 0; i < n; i++ {
		xy := seq.GetXY(i)
		points[i] = core.TracePoint{Elapsed: xy.X, Separation: xy.Y}
	}
	return points
}

// ClosestApproach returns the smallest separation in the trace.
func ClosestApproach(points []core.TracePoint) (float64, bool) {
	if len(points) == 0 {
		return 0, false
	}
	closest := points[0].Separation
	for _, p := range points[1:] {
		closest = min(closest, p.Separation)
	}
	return closest, true
}
