package engine

import (
	"fmt"

	"orgsim/internal/domain"
)

// Tick advances the simulation by one time step. It reports paused before
// the first successful Initialize and completed once every work unit is done.
// A returned error leaves the state as it was before the call.
func (e *Engine) Tick() (domain.TickState, error) {
	if !e.initialized {
		e.cur.log.Warn(e.cur.tick(), "Simulation not initialized. Cannot tick.")
		return domain.TickPaused, nil
	}
	next := e.cur.clone()
	next.state.CurrentTimeTick++
	tick := next.tick()

	finished := e.progress(next)
	if err := e.transition(next, finished); err != nil {
		return e.fail(tick, err)
	}
	if err := e.drainBacklogs(next); err != nil {
		return e.fail(tick, err)
	}

	done := next.state.DoneCount()
	next.state.DoneHistory = append(next.state.DoneHistory, done)
	state := domain.TickRunning
	if done == len(next.state.WorkUnits) {
		state = domain.TickCompleted
		if !next.completed {
			next.completed = true
			next.log.Append(tick, "All %d work units are done.", done)
		}
	}
	e.cur = next
	return state, nil
}

func (e *Engine) fail(tick int, err error) (domain.TickState, error) {
	e.cur.log.Error(tick, "Tick %d failed: %v", tick, err)
	return "", fmt.Errorf("tick %d: %w", tick, err)
}

// progress counts down every busy person and returns those who finished
// this tick, in team then member order.
func (e *Engine) progress(w *world) []memberRef {
	var finished []memberRef
	for ti := range w.state.Teams {
		members := w.state.Teams[ti].Members
		for mi := range members {
			p := &members[mi]
			if p.Idle() || p.WorkRemainingTicks <= 0 {
				continue
			}
			p.WorkRemainingTicks--
			if p.WorkRemainingTicks == 0 {
				finished = append(finished, memberRef{team: ti, member: mi})
			}
		}
	}
	return finished
}

// transition releases every finished unit, moves it along the workflow and
// finds it a new home.
func (e *Engine) transition(w *world, finished []memberRef) error {
	tick := w.tick()
	for _, ref := range finished {
		p := w.member(ref)
		wu := e.unit(w, p.CurrentWorkUnitID)
		p.CurrentWorkUnitID = ""
		p.WorkRemainingTicks = 0
		if wu == nil {
			continue
		}
		wu.CurrentOwnerID = ""
		wu.CurrentTeamOwnerID = ""
		wu.History = append(wu.History, domain.HistoryEntry{
			PersonID: p.ID,
			TeamID:   p.TeamID,
			Tick:     tick,
			Action:   "Completed " + wu.Type,
		})
		w.log.Append(tick, "%s completed %s on work unit %s.", p.Name, wu.Type, wu.ID)

		tr, ok := e.plan.workflow[wu.Type]
		if !ok {
			wu.Discipline = ""
			if !wu.Done() {
				w.log.Warn(tick, "Work unit %s has type %s with no workflow entry; it stays unassigned.", wu.ID, wu.Type)
			}
			continue
		}
		wu.Type = tr.NextType
		wu.History = append(wu.History, domain.HistoryEntry{Tick: tick, Action: "Became " + wu.Type})
		if wu.Done() {
			wu.Discipline = ""
			w.log.Append(tick, "Work unit %s is done.", wu.ID)
			continue
		}
		d := tr.Discipline()
		if d == "" {
			d = e.plan.typeDiscipline[wu.Type]
		}
		wu.Discipline = d
		if d == "" {
			w.log.Warn(tick, "No discipline works on type %s; work unit %s stays unassigned.", wu.Type, wu.ID)
			continue
		}
		if err := e.route(w, wu, p.TeamID); err != nil {
			return err
		}
	}
	return nil
}

// drainBacklogs hands backlogged units, in work unit order, to the first idle
// member of the owning team with the required discipline. Assigned people are
// busy afterwards, so nobody takes two units in one pass.
func (e *Engine) drainBacklogs(w *world) error {
	for i := range w.state.WorkUnits {
		wu := &w.state.WorkUnits[i]
		if !wu.InBacklog() || wu.Done() {
			continue
		}
		ti, ok := e.plan.teams[wu.CurrentTeamOwnerID]
		if !ok {
			continue
		}
		mi := firstIdle(w.state.Teams[ti], wu.Discipline)
		if mi < 0 {
			continue
		}
		if err := e.assign(w, wu, memberRef{team: ti, member: mi}); err != nil {
			return err
		}
	}
	return nil
}
