package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"

	"orgsim/internal/config"
	"orgsim/internal/domain"
	"orgsim/internal/events"
)

// DefaultMaxJitter is the jitter bound used by DefaultOptions.
const DefaultMaxJitter = 2

// ErrMissingDuration is returned by Tick when a person is assigned a work unit
// type their discipline has no configured duration for.
var ErrMissingDuration = errors.New("missing work duration")

// Rand is the jitter source. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Options tune an Engine. The zero value disables jitter and the seeding cap.
type Options struct {
	// MaxJitter is the inclusive upper bound of the random ticks added to
	// every assignment's base duration.
	MaxJitter int
	// BacklogCap limits how many units seeding may place into a single team
	// backlog. Zero means unlimited.
	BacklogCap int
	// Seed seeds the default jitter source when Rand is nil.
	Seed   uint64
	Rand   Rand
	Logger *slog.Logger
}

// DefaultOptions returns options with the stock jitter bound.
func DefaultOptions() Options {
	return Options{MaxJitter: DefaultMaxJitter}
}

// Engine owns a simulation's state and is its only mutator. It is not safe
// for concurrent use; callers must serialize Initialize, Tick and State.
type Engine struct {
	opts        Options
	rng         Rand
	plan        *plan
	cur         *world
	initialized bool
}

// plan holds the read-only tables derived from a config at Initialize time.
type plan struct {
	durations      map[string]map[string]int
	workflow       map[string]config.WorkflowTransition
	typeDiscipline map[string]string
	teams          map[string]int
	people         map[string]memberRef
	units          map[string]int
}

type memberRef struct {
	team, member int
}

// world is the mutable part of the simulation. Ticks run on a clone and
// replace the live world only on success.
type world struct {
	state     domain.SimulationState
	log       *events.Log
	completed bool
}

func (w *world) clone() *world {
	return &world{state: w.state.Clone(), log: w.log.Clone(), completed: w.completed}
}

func (w *world) tick() int {
	return w.state.CurrentTimeTick
}

func New(opts Options) *Engine {
	if opts.MaxJitter < 0 {
		opts.MaxJitter = 0
	}
	return &Engine{
		opts: opts,
		rng:  newRand(opts),
		cur:  newWorld(opts.Logger),
	}
}

func newRand(opts Options) Rand {
	if opts.Rand != nil {
		return opts.Rand
	}
	return rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
}

func newWorld(logger *slog.Logger) *world {
	return &world{
		state: domain.SimulationState{Teams: []domain.Team{}, WorkUnits: []domain.WorkUnit{}},
		log:   &events.Log{Logger: logger},
	}
}

// Initialized reports whether Initialize has succeeded at least once.
func (e *Engine) Initialized() bool {
	return e.initialized
}

// Initialize discards any previous state and builds a fresh organization
// from cfg. Only structurally invalid configs fail; dangling references are
// logged as warnings.
func (e *Engine) Initialize(cfg *config.SimulationConfig) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid simulation config: %w", err)
	}
	p := newPlan(cfg)
	w := newWorld(e.opts.Logger)
	w.log.Append(0, "Simulation initialized.")

	byName := map[string]int{}
	byID := map[string]int{}
	for i, tc := range cfg.Teams {
		w.state.Teams = append(w.state.Teams, domain.Team{
			ID:             tc.ID,
			Name:           tc.Name,
			IsCustomerTeam: tc.IsCustomerTeam,
			Members:        []domain.Person{},
		})
		byName[tc.Name] = i
		byID[tc.ID] = i
		p.teams[tc.ID] = i
	}
	for _, pc := range cfg.People {
		ti, ok := byName[pc.InitialTeamName]
		if !ok {
			ti, ok = byID[pc.InitialTeamName]
		}
		if !ok {
			w.log.Warn(0, "Team %q not found for person %q; person dropped.", pc.InitialTeamName, pc.Name)
			continue
		}
		team := &w.state.Teams[ti]
		team.Members = append(team.Members, domain.Person{
			ID:         pc.ID,
			Name:       pc.Name,
			Discipline: pc.Discipline,
			TeamID:     team.ID,
		})
		p.people[pc.ID] = memberRef{team: ti, member: len(team.Members) - 1}
	}

	for i, uc := range cfg.InitialWorkUnits {
		id := uc.ID
		if id == "" {
			id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d|%s", i, uc.Type))).String()
		}
		if _, dup := p.units[id]; dup {
			return fmt.Errorf("invalid simulation config: duplicate work unit id %s", id)
		}
		wu := domain.WorkUnit{
			ID:      id,
			Type:    uc.Type,
			History: []domain.HistoryEntry{{Tick: 0, Action: "Created with type " + uc.Type}},
		}
		e.seed(p, w, &wu)
		w.state.WorkUnits = append(w.state.WorkUnits, wu)
		p.units[id] = len(w.state.WorkUnits) - 1
	}

	prevPlan, prevRand := e.plan, e.rng
	e.plan, e.rng = p, newRand(e.opts)
	if err := e.drainBacklogs(w); err != nil {
		e.plan, e.rng = prevPlan, prevRand
		return err
	}
	w.state.DoneHistory = []int{w.state.DoneCount()}
	w.completed = w.state.DoneCount() == len(w.state.WorkUnits)
	w.log.Append(0, "Teams, people, and initial work units processed.")
	e.cur = w
	e.initialized = true
	return nil
}

func newPlan(cfg *config.SimulationConfig) *plan {
	p := &plan{
		durations:      map[string]map[string]int{},
		workflow:       map[string]config.WorkflowTransition{},
		typeDiscipline: map[string]string{},
		teams:          map[string]int{},
		people:         map[string]memberRef{},
		units:          map[string]int{},
	}
	disciplines := make([]string, 0, len(cfg.PersonWorkTicks))
	for d, byType := range cfg.PersonWorkTicks {
		disciplines = append(disciplines, d)
		p.durations[d] = map[string]int{}
		for t, n := range byType {
			p.durations[d][t] = n
		}
	}
	// Sorted so a type listed under several disciplines resolves the same way every run.
	sort.Strings(disciplines)
	for _, d := range disciplines {
		for t := range p.durations[d] {
			if _, ok := p.typeDiscipline[t]; !ok {
				p.typeDiscipline[t] = d
			}
		}
	}
	for t, tr := range cfg.WorkFlow {
		p.workflow[t] = tr
	}
	return p
}

// seed places a freshly created unit into the backlog of the team best suited
// to start it.
func (e *Engine) seed(p *plan, w *world, wu *domain.WorkUnit) {
	if wu.Done() {
		return
	}
	if _, ok := p.workflow[wu.Type]; !ok {
		w.log.Warn(0, "Work unit %s has type %s with no workflow entry; it is left unassigned.", wu.ID, wu.Type)
		return
	}
	d := p.typeDiscipline[wu.Type]
	if d == "" {
		w.log.Warn(0, "No discipline works on type %s; work unit %s is left unassigned.", wu.Type, wu.ID)
		return
	}
	wu.Discipline = d
	best, bestCount, capped := -1, 0, false
	for ti, team := range w.state.Teams {
		if !team.HasDiscipline(d) {
			continue
		}
		if e.opts.BacklogCap > 0 && w.backlogSize(team.ID, "") >= e.opts.BacklogCap {
			capped = true
			continue
		}
		n := w.backlogSize(team.ID, d)
		if best < 0 || n < bestCount {
			best, bestCount = ti, n
		}
	}
	if best < 0 {
		if capped {
			w.log.Warn(0, "Every %s backlog is at the cap of %d; work unit %s is left unassigned.", d, e.opts.BacklogCap, wu.ID)
		} else {
			w.log.Warn(0, "No team has a member of discipline %q for work unit %s; it is left unassigned.", d, wu.ID)
		}
		return
	}
	w.toBacklog(wu, best)
}

// State returns a deep copy of the current simulation state.
func (e *Engine) State() domain.SimulationState {
	s := e.cur.state.Clone()
	s.EventLog = e.cur.log.Entries()
	return s
}

// EventTail returns up to n of the most recent event log entries.
func (e *Engine) EventTail(n int) []string {
	return e.cur.log.Tail(n)
}
