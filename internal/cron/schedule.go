package cron

import (
	"fmt"
	"strings"
	"time"

	robfig "github.com/robfig/cron/v3"
)

// Schedule yields the next activation after a given time.
type Schedule interface {
	Next(time.Time) time.Time
}

// ParseSchedule accepts a five-field cron expression or a descriptor such as
// "@daily" or "@every 1h".
func ParseSchedule(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("schedule expression is required")
	}
	sched, err := robfig.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return sched, nil
}

type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.every)
}
