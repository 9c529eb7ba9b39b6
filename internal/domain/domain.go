package domain

// TerminalType is the work unit type after which no further transition occurs.
const TerminalType = "done"

// TickState reports the outcome of a single tick.
type TickState string

const (
	TickRunning   TickState = "running"
	TickPaused    TickState = "paused"
	TickCompleted TickState = "completed"
)

type Person struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Discipline         string `json:"discipline"`
	TeamID             string `json:"teamId"`
	CurrentWorkUnitID  string `json:"currentWorkUnitId,omitempty"`
	WorkRemainingTicks int    `json:"workRemainingTicks"`
}

// Idle reports whether the person owns no work unit.
func (p Person) Idle() bool {
	return p.CurrentWorkUnitID == ""
}

type Team struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	IsCustomerTeam bool     `json:"isCustomerTeam,omitempty"`
	Members        []Person `json:"members"`
}

// HasDiscipline reports whether any member practises the discipline.
func (t Team) HasDiscipline(discipline string) bool {
	for _, m := range t.Members {
		if m.Discipline == discipline {
			return true
		}
	}
	return false
}

type HistoryEntry struct {
	PersonID string `json:"personId,omitempty"`
	TeamID   string `json:"teamId,omitempty"`
	Tick     int    `json:"tick"`
	Action   string `json:"action"`
}

// WorkUnit is a ticket flowing through the organization. Discipline is the
// discipline required for the current type; it is empty once the unit is done
// or when nobody can work on it.
type WorkUnit struct {
	ID                 string         `json:"id"`
	Type               string         `json:"type"`
	Discipline         string         `json:"discipline,omitempty"`
	CurrentOwnerID     string         `json:"currentOwnerId,omitempty"`
	CurrentTeamOwnerID string         `json:"currentTeamOwnerId,omitempty"`
	History            []HistoryEntry `json:"history"`
}

// Done reports whether the unit reached the terminal type.
func (w WorkUnit) Done() bool {
	return w.Type == TerminalType
}

// InBacklog reports whether the unit waits in a team backlog.
func (w WorkUnit) InBacklog() bool {
	return w.CurrentOwnerID == "" && w.CurrentTeamOwnerID != ""
}

// SimulationState is the externally visible snapshot of a simulation.
type SimulationState struct {
	Teams           []Team     `json:"teams"`
	WorkUnits       []WorkUnit `json:"workUnits"`
	CurrentTimeTick int        `json:"currentTimeTick"`
	EventLog        []string   `json:"eventLog"`
	DoneHistory     []int      `json:"doneHistory"`
}

// DoneCount returns how many work units reached the terminal type.
func (s SimulationState) DoneCount() int {
	n := 0
	for _, wu := range s.WorkUnits {
		if wu.Done() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy that shares no mutable memory with s.
func (s SimulationState) Clone() SimulationState {
	out := SimulationState{
		CurrentTimeTick: s.CurrentTimeTick,
		EventLog:        append([]string(nil), s.EventLog...),
		DoneHistory:     append([]int(nil), s.DoneHistory...),
	}
	if s.Teams != nil {
		out.Teams = make([]Team, len(s.Teams))
		for i, t := range s.Teams {
			t.Members = append([]Person(nil), t.Members...)
			out.Teams[i] = t
		}
	}
	if s.WorkUnits != nil {
		out.WorkUnits = make([]WorkUnit, len(s.WorkUnits))
		for i, wu := range s.WorkUnits {
			wu.History = append([]HistoryEntry(nil), wu.History...)
			out.WorkUnits[i] = wu
		}
	}
	return out
}
