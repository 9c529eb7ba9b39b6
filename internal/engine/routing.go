package engine

import (
	"fmt"

	"orgsim/internal/domain"
)

// route finds a home for a unit that just changed type, trying in order:
// an idle match in the completer's team, the completer's team backlog when it
// has the discipline at all, an idle match in another team (declaration
// order), and the smallest backlog among other teams with the discipline.
func (e *Engine) route(w *world, wu *domain.WorkUnit, fromTeamID string) error {
	d := wu.Discipline
	home, ok := e.plan.teams[fromTeamID]
	if !ok {
		home = -1
	}
	if home >= 0 {
		team := w.state.Teams[home]
		if mi := firstIdle(team, d); mi >= 0 {
			return e.assign(w, wu, memberRef{team: home, member: mi})
		}
		if team.HasDiscipline(d) {
			w.toBacklog(wu, home)
			return nil
		}
	}
	for ti, team := range w.state.Teams {
		if ti == home {
			continue
		}
		if mi := firstIdle(team, d); mi >= 0 {
			return e.assign(w, wu, memberRef{team: ti, member: mi})
		}
	}
	best, bestCount := -1, 0
	for ti, team := range w.state.Teams {
		if ti == home || !team.HasDiscipline(d) {
			continue
		}
		n := w.backlogSize(team.ID, "")
		if best < 0 || n < bestCount {
			best, bestCount = ti, n
		}
	}
	if best >= 0 {
		w.toBacklog(wu, best)
		return nil
	}
	w.log.Warn(w.tick(), "No team has a member of discipline %q for work unit %s; it stays unassigned.", d, wu.ID)
	return nil
}

// assign gives wu to the referenced person and starts their countdown.
func (e *Engine) assign(w *world, wu *domain.WorkUnit, ref memberRef) error {
	p := w.member(ref)
	ticks, err := e.duration(p.Discipline, wu.Type)
	if err != nil {
		return fmt.Errorf("assign work unit %s to %s: %w", wu.ID, p.ID, err)
	}
	p.CurrentWorkUnitID = wu.ID
	p.WorkRemainingTicks = ticks
	wu.CurrentOwnerID = p.ID
	wu.CurrentTeamOwnerID = p.TeamID
	wu.History = append(wu.History, domain.HistoryEntry{
		PersonID: p.ID,
		TeamID:   p.TeamID,
		Tick:     w.tick(),
		Action:   fmt.Sprintf("Assigned to %s (%s)", p.Name, p.Discipline),
	})
	w.log.Append(w.tick(), "Work unit %s (%s) assigned to %s in %s.", wu.ID, wu.Type, p.Name, w.state.Teams[ref.team].Name)
	return nil
}

// duration is the configured base ticks plus jitter in [0, MaxJitter].
func (e *Engine) duration(discipline, wuType string) (int, error) {
	base, ok := e.plan.durations[discipline][wuType]
	if !ok {
		return 0, fmt.Errorf("%w: discipline %q has no duration for type %q", ErrMissingDuration, discipline, wuType)
	}
	if e.opts.MaxJitter > 0 {
		base += e.rng.IntN(e.opts.MaxJitter + 1)
	}
	return base, nil
}

func (e *Engine) unit(w *world, id string) *domain.WorkUnit {
	i, ok := e.plan.units[id]
	if !ok {
		return nil
	}
	return &w.state.WorkUnits[i]
}

func (w *world) member(ref memberRef) *domain.Person {
	return &w.state.Teams[ref.team].Members[ref.member]
}

func (w *world) toBacklog(wu *domain.WorkUnit, team int) {
	t := w.state.Teams[team]
	wu.CurrentOwnerID = ""
	wu.CurrentTeamOwnerID = t.ID
	wu.History = append(wu.History, domain.HistoryEntry{
		TeamID: t.ID,
		Tick:   w.tick(),
		Action: "Placed in backlog of " + t.Name,
	})
	w.log.Append(w.tick(), "Work unit %s (%s) placed in backlog of %s.", wu.ID, wu.Type, t.Name)
}

// backlogSize counts units waiting in the team's backlog, restricted to one
// discipline unless discipline is empty.
func (w *world) backlogSize(teamID, discipline string) int {
	n := 0
	for _, wu := range w.state.WorkUnits {
		if !wu.InBacklog() || wu.CurrentTeamOwnerID != teamID {
			continue
		}
		if discipline != "" && wu.Discipline != discipline {
			continue
		}
		n++
	}
	return n
}

func firstIdle(team domain.Team, discipline string) int {
	for i, m := range team.Members {
		if m.Discipline == discipline && m.Idle() {
			return i
		}
	}
	return -1
}
