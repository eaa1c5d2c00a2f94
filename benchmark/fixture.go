// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package benchmark

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/Query-farm/arrowcodec/conformance"
)

// Event is a flat row with one column of each common kind.
type Event struct {
	ID       int64             `arrow:"id"`
	Name     string            `arrow:"name"`
	Score    float64           `arrow:"score"`
	Active   bool              `arrow:"active"`
	Color    string            `arrow:"color,enum"`
	Parent   *int64            `arrow:"parent"`
	Tags     []string          `arrow:"tags"`
	Attrs    map[string]int64  `arrow:"attrs"`
	Location conformance.Point `arrow:"location"`
	At       time.Time         `arrow:"at"`
}

var colors = []string{"red", "green", "blue", "cyan", "magenta"}

// Events returns n deterministic rows for seed.
func Events(seed uint64, n int) []Event {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Event, n)
	for i := range out {
		e := Event{
			ID:       int64(i),
			Name:     fmt.Sprintf("event-%d", r.IntN(1_000_000)),
			Score:    r.NormFloat64(),
			Active:   r.IntN(2) == 0,
			Color:    colors[r.IntN(len(colors))],
			Tags:     make([]string, r.IntN(4)),
			Attrs:    make(map[string]int64, 2),
			Location: conformance.Point{X: r.Float64() * 360, Y: r.Float64()*180 - 90},
			At:       base.Add(time.Duration(r.Int64N(int64(365 * 24 * time.Hour)))),
		}
		if i > 0 && r.IntN(3) != 0 {
			p := int64(r.IntN(i))
			e.Parent = &p
		}
		for j := range e.Tags {
			e.Tags[j] = colors[r.IntN(len(colors))]
		}
		e.Attrs["a"] = r.Int64N(100)
		e.Attrs["b"] = r.Int64N(100)
		out[i] = e
	}
	return out
}

// Shapes returns n deterministic union rows for seed, one in ten null.
func Shapes(seed uint64, n int) []conformance.Shape {
	r := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]conformance.Shape, n)
	for i := range out {
		switch k := r.IntN(10); {
		case k == 0:
			out[i] = nil
		case k < 3:
			out[i] = conformance.Empty{}
		case k < 6:
			out[i] = conformance.Circle{Center: conformance.Point{X: r.Float64(), Y: r.Float64()}, Radius: r.Float64()}
		case k < 8:
			verts := make([]conformance.Point, 3+r.IntN(4))
			for j := range verts {
				verts[j] = conformance.Point{X: r.Float64(), Y: r.Float64()}
			}
			out[i] = conformance.Polygon{Vertices: verts}
		default:
			out[i] = conformance.Tag(colors[r.IntN(len(colors))])
		}
	}
	return out
}
