package output

import (
	"errors"
	"fmt"
)

// Sink receives lifecycle events of a harvest run.
type Sink interface {
	Write(e Event) error
	Close() error
}

// Manager stamps events with the run ID and fans them out to sinks.
// A nil *Manager discards events.
type Manager struct {
	runID string
	sinks []Sink
}

func NewManager(runID string, sinks ...Sink) (*Manager, error) {
	for i, s := range sinks {
		if s == nil {
			return nil, fmt.Errorf("sink %d is nil", i)
		}
	}
	return &Manager{runID: runID, sinks: sinks}, nil
}

func (m *Manager) RunID() string {
	if m == nil {
		return ""
	}
	return m.runID
}

// Emit delivers e to every sink; a failing sink does not stop delivery to the
// rest. Events without a run ID get the manager's.
func (m *Manager) Emit(e Event) error {
	if m == nil {
		return nil
	}
	if e.RunID == "" {
		e.RunID = m.runID
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(e); err != nil {
			errs = append(errs, fmt.Errorf("%s to %T: %w", e.Type, s, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}
