package engine_test

import (
	"testing"

	"orgsim/internal/domain"
	"orgsim/internal/engine"
	"orgsim/internal/generate"
)

// checkInvariants verifies ownership consistency of a snapshot.
func checkInvariants(t *testing.T, s domain.SimulationState) {
	t.Helper()
	people := map[string]domain.Person{}
	for _, team := range s.Teams {
		for _, p := range team.Members {
			if p.TeamID != team.ID {
				t.Fatalf("tick %d: %s listed in %s but belongs to %s", s.CurrentTimeTick, p.ID, team.ID, p.TeamID)
			}
			people[p.ID] = p
		}
	}
	owned := map[string]string{}
	for _, wu := range s.WorkUnits {
		if wu.CurrentOwnerID == "" {
			continue
		}
		if prev, ok := owned[wu.CurrentOwnerID]; ok {
			t.Fatalf("tick %d: %s owns both %s and %s", s.CurrentTimeTick, wu.CurrentOwnerID, prev, wu.ID)
		}
		owned[wu.CurrentOwnerID] = wu.ID
		p, ok := people[wu.CurrentOwnerID]
		if !ok {
			t.Fatalf("tick %d: %s owned by unknown person %s", s.CurrentTimeTick, wu.ID, wu.CurrentOwnerID)
		}
		if wu.CurrentTeamOwnerID != p.TeamID {
			t.Fatalf("tick %d: %s team owner %s, owner's team %s", s.CurrentTimeTick, wu.ID, wu.CurrentTeamOwnerID, p.TeamID)
		}
		if p.CurrentWorkUnitID != wu.ID || p.WorkRemainingTicks < 1 {
			t.Fatalf("tick %d: %s does not track %s (%q, %d ticks)", s.CurrentTimeTick, p.ID, wu.ID, p.CurrentWorkUnitID, p.WorkRemainingTicks)
		}
	}
	for id, p := range people {
		if p.CurrentWorkUnitID != "" && owned[id] != p.CurrentWorkUnitID {
			t.Fatalf("tick %d: %s claims %s which names another owner", s.CurrentTimeTick, id, p.CurrentWorkUnitID)
		}
	}
}

func TestInvariantsOnGeneratedOrganizations(t *testing.T) {
	for seed := uint64(1); seed <= 8; seed++ {
		cfg, err := generate.Config(generate.Options{Teams: 4, WorkUnits: 15, Seed: seed})
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		eng := engine.New(engine.Options{MaxJitter: 2, Seed: seed})
		if err := eng.Initialize(cfg); err != nil {
			t.Fatalf("seed %d: initialize: %v", seed, err)
		}
		prev := eng.State()
		checkInvariants(t, prev)
		for i := 0; i < 600; i++ {
			st, err := eng.Tick()
			if err != nil {
				t.Fatalf("seed %d: tick: %v", seed, err)
			}
			s := eng.State()
			if s.CurrentTimeTick != prev.CurrentTimeTick+1 {
				t.Fatalf("seed %d: tick went %d -> %d", seed, prev.CurrentTimeTick, s.CurrentTimeTick)
			}
			checkInvariants(t, s)
			for j, wu := range prev.WorkUnits {
				if wu.Done() && (s.WorkUnits[j].Type != domain.TerminalType || s.WorkUnits[j].CurrentOwnerID != "" || s.WorkUnits[j].CurrentTeamOwnerID != "") {
					t.Fatalf("seed %d: done unit %s changed: %+v", seed, wu.ID, s.WorkUnits[j])
				}
			}
			if len(s.DoneHistory) != s.CurrentTimeTick+1 {
				t.Fatalf("seed %d: done history has %d points at tick %d", seed, len(s.DoneHistory), s.CurrentTimeTick)
			}
			if st == domain.TickCompleted && s.DoneCount() != len(s.WorkUnits) {
				t.Fatalf("seed %d: completed with %d/%d done", seed, s.DoneCount(), len(s.WorkUnits))
			}
			prev = s
		}
	}
}

func TestRate(t *testing.T) {
	got := engine.Rate([]int{0, 0, 1, 3, 3, 4, 6, 6}, 5)
	want := []int{0, 0, 1, 3, 3, 4, 6, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Rate = %v, want %v", got, want)
		}
	}
	if m := engine.MeanThroughput([]int{0, 2, 4}); m != 2 {
		t.Fatalf("MeanThroughput = %v, want 2", m)
	}
	if m := engine.MeanThroughput(nil); m != 0 {
		t.Fatalf("MeanThroughput(nil) = %v", m)
	}
}
