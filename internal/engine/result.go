package engine

import "time"

// State is the run's lifecycle state.
type State string

const (
	StateRunning State = "RUNNING"
	StateEnded   State = "ENDED"
)

// Status says why AdvanceYear returned what it did.
type Status string

const (
	StatusContinuing   Status = "CONTINUING"
	StatusEndedNoHeir  Status = "ENDED_NO_HEIR"
	StatusEndedHorizon Status = "ENDED_HORIZON"
	StatusAlreadyEnded Status = "ALREADY_ENDED"
)

// End reasons carried on results and SIMULATION_END events.
const (
	ReasonNoHeir       = "No heir found. Simulation ends."
	ReasonHorizon      = "Reached the final year of the simulation."
	ReasonAlreadyEnded = "Simulation has already ended."
)

// Result is the outcome of one simulated year.
type Result struct {
	Year     int     `json:"year"`
	Continue bool    `json:"continue"`
	Status   Status  `json:"status"`
	Reason   string  `json:"reason,omitempty"`
	Events   []Event `json:"events"`

	// Elapsed is the time spent simulating the year. Runner sets it;
	// pauses between years are not included.
	Elapsed time.Duration `json:"-"`
}

// Ended reports whether the run is over after this result.
func (r Result) Ended() bool {
	return !r.Continue
}

// Count returns how many events of type t the year produced.
func (r Result) Count(t EventType) int {
	n := 0
	for _, e := range r.Events {
		if e.Type == t {
			n++
		}
	}
	return n
}
