package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OutcomeState is the state of a field produced by an external collaborator.
type OutcomeState int

const (
	StatePending OutcomeState = iota
	StateSucceeded
	StateFailed
)

func (s OutcomeState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("OutcomeState(%d)", int(s))
}

// outcomeTransitions lists every allowed (from -> to) pair. Succeeded and
// Failed are terminal.
var outcomeTransitions = map[OutcomeState][]OutcomeState{
	StatePending: {StateSucceeded, StateFailed},
}

// CanTransition reports whether an outcome may move from one state to another.
func CanTransition(from, to OutcomeState) bool {
	for _, s := range outcomeTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Outcome is a tagged result: Pending, Succeeded(value) or Failed(reason).
//
// On disk Pending is the literal false, Succeeded is a plain string and Failed
// is {"error": "..."}. Snapshots that predate the tagged form (false or string)
// decode unchanged.
type Outcome struct {
	State OutcomeState
	Value string // the text on success, the reason on failure
}

// Pending returns an outcome that has not been produced yet.
func Pending() Outcome { return Outcome{State: StatePending} }

// Succeeded returns a successful outcome carrying value.
func Succeeded(value string) Outcome { return Outcome{State: StateSucceeded, Value: value} }

// Failed returns a failed outcome carrying reason.
func Failed(reason string) Outcome { return Outcome{State: StateFailed, Value: reason} }

func (o Outcome) IsPending() bool   { return o.State == StatePending }
func (o Outcome) IsSucceeded() bool { return o.State == StateSucceeded }
func (o Outcome) IsFailed() bool    { return o.State == StateFailed }

// Text returns the value for display: the success text, or the failure reason.
func (o Outcome) Text() string {
	return o.Value
}

type failedOutcome struct {
	Error string `json:"error"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	switch o.State {
	case StatePending:
		return []byte("false"), nil
	case StateSucceeded:
		return json.Marshal(o.Value)
	case StateFailed:
		return json.Marshal(failedOutcome{Error: o.Value})
	}
	return nil, fmt.Errorf("marshal outcome: unknown state %d", int(o.State))
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("false")), bytes.Equal(data, []byte("null")):
		*o = Pending()
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("unmarshal outcome: %w", err)
		}
		*o = Succeeded(s)
		return nil
	case len(data) > 0 && data[0] == '{':
		var f failedOutcome
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("unmarshal outcome: %w", err)
		}
		*o = Failed(f.Error)
		return nil
	}
	return fmt.Errorf("unmarshal outcome: unexpected value %s", data)
}
