package health

import "context"

// Checker represents a dependency health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// DependencyStatus — состояние одной зависимости в отчёте readiness.
type DependencyStatus struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ReadinessUseCase describes readiness verification.
type ReadinessUseCase interface {
	Ready(ctx context.Context) error
	Report(ctx context.Context) []DependencyStatus
}

type service struct {
	checkers []Checker
}

// NewService aggregates dependency checkers.
func NewService(checkers ...Checker) ReadinessUseCase {
	return &service{checkers: checkers}
}

func (s *service) Ready(ctx context.Context) error {
	for _, ch := range s.checkers {
		if err := ch.Check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Report опрашивает все зависимости, не останавливаясь на первой ошибке.
func (s *service) Report(ctx context.Context) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(s.checkers))
	for _, ch := range s.checkers {
		st := DependencyStatus{Name: ch.Name(), OK: true}
		if err := ch.Check(ctx); err != nil {
			st.OK = false
			st.Error = err.Error()
		}
		out = append(out, st)
	}
	return out
}
