package app

import (
	"context"
	"fmt"
	"time"

	"orgsim/internal/config"
	"orgsim/internal/domain"
	"orgsim/internal/engine"
)

// DefaultMaxTicks bounds a run whose config never lets every unit finish.
const DefaultMaxTicks = 10000

// LoadAndInitialize reads the config at path and initializes eng with it.
func LoadAndInitialize(eng *engine.Engine, path string) (*config.SimulationConfig, error) {
	cfg, err := config.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := eng.Initialize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunOptions control how Run drives an engine.
type RunOptions struct {
	// MaxTicks stops the run early; zero means DefaultMaxTicks.
	MaxTicks int
	// Interval paces ticks in wall-clock time; zero runs flat out.
	Interval time.Duration
	// OnTick receives a snapshot after every successful tick.
	OnTick func(domain.TickState, domain.SimulationState) error
}

// Report summarizes a finished run.
type Report struct {
	Seed           uint64           `json:"seed"`
	Status         domain.TickState `json:"status"`
	Ticks          int              `json:"ticks"`
	Done           int              `json:"done"`
	Total          int              `json:"total"`
	MeanThroughput float64          `json:"meanThroughput"`
	PeakRate       int              `json:"peakRate"`
}

// Completed reports whether every work unit finished.
func (r Report) Completed() bool {
	return r.Status == domain.TickCompleted
}

// Run ticks eng until every unit is done, MaxTicks is reached or ctx is
// cancelled. Cancellation is only observed between ticks.
func Run(ctx context.Context, eng *engine.Engine, opts RunOptions) (Report, error) {
	maxTicks := opts.MaxTicks
	if maxTicks <= 0 {
		maxTicks = DefaultMaxTicks
	}
	var pace <-chan time.Time
	if opts.Interval > 0 {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		pace = ticker.C
	}

	status := domain.TickRunning
	for i := 0; i < maxTicks; i++ {
		if pace != nil {
			select {
			case <-ctx.Done():
				return report(eng, status), ctx.Err()
			case <-pace:
			}
		} else if err := ctx.Err(); err != nil {
			return report(eng, status), err
		}
		st, err := eng.Tick()
		if err != nil {
			return report(eng, status), err
		}
		status = st
		if opts.OnTick != nil {
			if err := opts.OnTick(st, eng.State()); err != nil {
				return report(eng, status), err
			}
		}
		if st != domain.TickRunning {
			break
		}
	}
	return report(eng, status), nil
}

func report(eng *engine.Engine, status domain.TickState) Report {
	history := eng.Throughput()
	r := Report{Status: status, MeanThroughput: engine.MeanThroughput(history)}
	if n := len(history); n > 0 {
		r.Ticks = n - 1
		r.Done = history[n-1]
	}
	r.Total = len(eng.State().WorkUnits)
	for _, v := range engine.Rate(history, engine.DefaultRateWindow) {
		if v > r.PeakRate {
			r.PeakRate = v
		}
	}
	return r
}

// TeamLoad is a per-team view of a snapshot.
type TeamLoad struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Customer bool   `json:"customer,omitempty"`
	Members  int    `json:"members"`
	Busy     int    `json:"busy"`
	Backlog  int    `json:"backlog"`
}

// TeamLoads counts busy members and backlog size per team.
func TeamLoads(s domain.SimulationState) []TeamLoad {
	backlog := map[string]int{}
	for _, wu := range s.WorkUnits {
		if wu.InBacklog() {
			backlog[wu.CurrentTeamOwnerID]++
		}
	}
	out := make([]TeamLoad, 0, len(s.Teams))
	for _, t := range s.Teams {
		l := TeamLoad{ID: t.ID, Name: t.Name, Customer: t.IsCustomerTeam, Members: len(t.Members), Backlog: backlog[t.ID]}
		for _, m := range t.Members {
			if !m.Idle() {
				l.Busy++
			}
		}
		out = append(out, l)
	}
	return out
}

// Unassigned counts unfinished units that no team owns.
func Unassigned(s domain.SimulationState) int {
	n := 0
	for _, wu := range s.WorkUnits {
		if !wu.Done() && wu.CurrentTeamOwnerID == "" {
			n++
		}
	}
	return n
}
