// Package workflow implements the company workflow: the three-stage state
// machine runDataAgents -> runResearchAgents -> finalize that fans out over
// a configurable pool of agents at each stage and streams progress over an
// event bus.
//
// Grounded on the teacher's internal/agent/warpp.go RunWARPP, generalized
// from its two fixed roles (Authenticator/Personalizer) to an arbitrary-size
// pool of named agents per stage, and on the teacher's
// internal/agent/engine.go step-loop logging idiom.
package workflow

// Config bounds per-stage fan-out concurrency. A zero value in either field
// means "unbounded" (one goroutine per agent), matching spec.md §4.1's
// default of "count of agents".
type Config struct {
	DataAgentConcurrency     int
	ResearchAgentConcurrency int
}

// WithDefaults fills in "unbounded" (0) as the meaningful default; callers
// who want spec.md's literal default of "count of agents" can simply leave
// these at zero, since a non-positive concurrency means runStage never
// calls errgroup.SetLimit and every agent in the pool runs concurrently.
func (c Config) WithDefaults() Config {
	return c
}
