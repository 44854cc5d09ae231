// Package pdg models the dynamic program dependence graph the backend serves.
//
// A dynamic PDG is the static dependence graph of a hardware design unrolled
// over simulation time: every vertex is one statement at one timestamp,
// annotated with the value its signal carried in the waveform dump. Edges
// point from a vertex to the vertices it depends on.
//
// The package loads the JSON export produced by the instrumentation
// pipeline, validates it, and builds the indices needed to answer time-window
// queries: vertices per timestamp, edges per dependent and edges per
// provider. [Graph.Reachable] computes the dependency cone used when the
// viewer moves the head.
package pdg
