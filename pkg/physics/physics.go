// Package physics is a small force-directed simulator.
//
// The viewer treats it as a black box: every frame it hands over the live
// bodies and springs and gets new positions back. Repulsion acts between every
// pair of bodies, springs pull connected bodies towards a rest length, and
// velocity is damped each step so the system settles. Bodies with Enabled
// unset still push others away but never move themselves.
package physics

import (
	"math"
	"math/rand/v2"

	"github.com/matzehuels/tracelane/pkg/graph"
	"github.com/matzehuels/tracelane/pkg/layout"
)

// Body is one simulated node.
type Body struct {
	ID      graph.NodeID
	Pos     layout.Point
	Vel     layout.Point
	Enabled bool
}

// Spring connects two bodies.
type Spring struct {
	From, To graph.NodeID
}

// Simulator advances a set of bodies by one step and returns the kinetic
// energy left in the system.
type Simulator interface {
	Step(bodies []*Body, springs []Spring) float64
}

// Params tunes the force model.
type Params struct {
	Repulsion    float64 `toml:"repulsion"`
	SpringLength float64 `toml:"spring_length"`
	SpringK      float64 `toml:"spring_k"`
	Damping      float64 `toml:"damping"`
	MaxSpeed     float64 `toml:"max_speed"`
	Timestep     float64 `toml:"timestep"`
}

// DefaultParams returns parameters that suit lanes a few hundred pixels wide.
func DefaultParams() Params {
	return Params{
		Repulsion:    4000,
		SpringLength: 120,
		SpringK:      0.04,
		Damping:      0.85,
		MaxSpeed:     40,
		Timestep:     1,
	}
}

// ForceSim is the default Simulator.
type ForceSim struct {
	p Params
}

// New creates a ForceSim. Zero fields in p fall back to DefaultParams.
func New(p Params) *ForceSim {
	d := DefaultParams()
	if p.Repulsion <= 0 {
		p.Repulsion = d.Repulsion
	}
	if p.SpringLength <= 0 {
		p.SpringLength = d.SpringLength
	}
	if p.SpringK <= 0 {
		p.SpringK = d.SpringK
	}
	if p.Damping <= 0 || p.Damping >= 1 {
		p.Damping = d.Damping
	}
	if p.MaxSpeed <= 0 {
		p.MaxSpeed = d.MaxSpeed
	}
	if p.Timestep <= 0 {
		p.Timestep = d.Timestep
	}
	return &ForceSim{p: p}
}

// Params returns the effective parameters.
func (s *ForceSim) Params() Params { return s.p }

// Step implements Simulator.
func (s *ForceSim) Step(bodies []*Body, springs []Spring) float64 {
	forces := make([]layout.Point, len(bodies))
	index := make(map[graph.NodeID]int, len(bodies))
	for i, b := range bodies {
		index[b.ID] = i
	}

	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			f := s.repulse(bodies[i].Pos, bodies[j].Pos, i, j)
			forces[i] = forces[i].Add(f)
			forces[j] = forces[j].Sub(f)
		}
	}

	for _, sp := range springs {
		i, ok1 := index[sp.From]
		j, ok2 := index[sp.To]
		if !ok1 || !ok2 || i == j {
			continue
		}
		d := bodies[j].Pos.Sub(bodies[i].Pos)
		dist := d.Len()
		if dist == 0 {
			continue
		}
		f := d.Scale(s.p.SpringK * (dist - s.p.SpringLength) / dist)
		forces[i] = forces[i].Add(f)
		forces[j] = forces[j].Sub(f)
	}

	var energy float64
	for i, b := range bodies {
		if !b.Enabled {
			b.Vel = layout.Point{}
			continue
		}
		v := b.Vel.Add(forces[i].Scale(s.p.Timestep)).Scale(s.p.Damping)
		if speed := v.Len(); speed > s.p.MaxSpeed {
			v = v.Scale(s.p.MaxSpeed / speed)
		}
		b.Vel = v
		b.Pos = b.Pos.Add(v.Scale(s.p.Timestep))
		energy += 0.5 * (v.X*v.X + v.Y*v.Y)
	}
	return energy
}

// repulse returns the force a body at q exerts on a body at p. Coincident
// bodies are split along a direction derived from their indices so the
// result stays deterministic.
func (s *ForceSim) repulse(p, q layout.Point, i, j int) layout.Point {
	d := p.Sub(q)
	dist2 := d.X*d.X + d.Y*d.Y
	if dist2 < 1e-6 {
		angle := float64(i*31+j*17) * 0.618
		return layout.Point{X: math.Cos(angle), Y: math.Sin(angle)}.Scale(s.p.Repulsion)
	}
	dist := math.Sqrt(dist2)
	return d.Scale(s.p.Repulsion / (dist2 * dist))
}

// Seed returns a starting position scattered around center within spread.
func Seed(center layout.Point, spread float64, r *rand.Rand) layout.Point {
	if r == nil || spread <= 0 {
		return center
	}
	return layout.Point{
		X: center.X + (r.Float64()*2-1)*spread,
		Y: center.Y + (r.Float64()*2-1)*spread,
	}
}
