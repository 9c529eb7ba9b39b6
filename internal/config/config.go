package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// TerminalType mirrors domain.TerminalType; configs must not route out of it.
const TerminalType = "done"

// SimulationConfig models an organization simulation file (JSON or YAML).
type SimulationConfig struct {
	Teams            []TeamConfig                  `json:"teams" yaml:"teams"`
	People           []PersonConfig                `json:"people" yaml:"people"`
	InitialWorkUnits []WorkUnitConfig              `json:"initialWorkUnits" yaml:"initialWorkUnits"`
	PersonWorkTicks  map[string]map[string]int     `json:"personWorkTicks" yaml:"personWorkTicks"`
	WorkFlow         map[string]WorkflowTransition `json:"workFlow" yaml:"workFlow"`
}

type TeamConfig struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	IsCustomerTeam bool   `json:"isCustomerTeam,omitempty" yaml:"isCustomerTeam,omitempty"`
}

type PersonConfig struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	Discipline      string `json:"discipline" yaml:"discipline"`
	InitialTeamName string `json:"initialTeamName" yaml:"initialTeamName"`
}

type WorkUnitConfig struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	Type string `json:"type" yaml:"type"`
}

// WorkflowTransition moves a unit to NextType once its current type is
// finished. NextDiscipline names who works on NextType; TargetDiscipline is an
// accepted alias.
type WorkflowTransition struct {
	NextType         string `json:"nextType" yaml:"nextType"`
	NextDiscipline   string `json:"nextDiscipline,omitempty" yaml:"nextDiscipline,omitempty"`
	TargetDiscipline string `json:"targetDiscipline,omitempty" yaml:"targetDiscipline,omitempty"`
}

// Discipline returns the explicit discipline for NextType, if any.
func (t WorkflowTransition) Discipline() string {
	if t.NextDiscipline != "" {
		return t.NextDiscipline
	}
	return t.TargetDiscipline
}

// Validate ensures the config is structurally sound. Dangling references
// (unknown teams, disciplines nobody has) are not errors; the engine degrades
// around them and Lint reports them.
func (c *SimulationConfig) Validate() error {
	teamIDs := map[string]bool{}
	teamNames := map[string]bool{}
	for i, t := range c.Teams {
		if t.ID == "" {
			return fmt.Errorf("teams[%d].id is required", i)
		}
		if t.Name == "" {
			return fmt.Errorf("team %s: name is required", t.ID)
		}
		if teamIDs[t.ID] {
			return fmt.Errorf("duplicate team id %s", t.ID)
		}
		if teamNames[t.Name] {
			return fmt.Errorf("duplicate team name %s", t.Name)
		}
		teamIDs[t.ID] = true
		teamNames[t.Name] = true
	}
	personIDs := map[string]bool{}
	for i, p := range c.People {
		if p.ID == "" {
			return fmt.Errorf("people[%d].id is required", i)
		}
		if personIDs[p.ID] {
			return fmt.Errorf("duplicate person id %s", p.ID)
		}
		if p.Discipline == "" {
			return fmt.Errorf("person %s: discipline is required", p.ID)
		}
		personIDs[p.ID] = true
	}
	unitIDs := map[string]bool{}
	for i, wu := range c.InitialWorkUnits {
		if wu.Type == "" {
			return fmt.Errorf("initialWorkUnits[%d].type is required", i)
		}
		if wu.ID == "" {
			continue
		}
		if unitIDs[wu.ID] {
			return fmt.Errorf("duplicate work unit id %s", wu.ID)
		}
		unitIDs[wu.ID] = true
	}
	for discipline, byType := range c.PersonWorkTicks {
		if discipline == "" {
			return fmt.Errorf("personWorkTicks has empty discipline")
		}
		for wuType, ticks := range byType {
			if wuType == "" {
				return fmt.Errorf("personWorkTicks.%s has empty work unit type", discipline)
			}
			if ticks < 1 {
				return fmt.Errorf("personWorkTicks.%s.%s must be at least 1, got %d", discipline, wuType, ticks)
			}
		}
	}
	for wuType, tr := range c.WorkFlow {
		if wuType == "" {
			return fmt.Errorf("workFlow has empty work unit type")
		}
		if wuType == TerminalType {
			return fmt.Errorf("workFlow.%s: terminal type cannot transition", TerminalType)
		}
		if tr.NextType == "" {
			return fmt.Errorf("workFlow.%s.nextType is required", wuType)
		}
		if tr.NextDiscipline != "" && tr.TargetDiscipline != "" && tr.NextDiscipline != tr.TargetDiscipline {
			return fmt.Errorf("workFlow.%s: nextDiscipline %s conflicts with targetDiscipline %s", wuType, tr.NextDiscipline, tr.TargetDiscipline)
		}
	}
	return nil
}

// Lint reports configuration problems the engine tolerates at runtime but
// that usually indicate a mistake. Findings are sorted for stable output.
func (c *SimulationConfig) Lint() []string {
	var findings []string
	teams := map[string]bool{}
	for _, t := range c.Teams {
		teams[t.Name] = true
		teams[t.ID] = true
	}
	staffed := map[string]bool{}
	for _, p := range c.People {
		if !teams[p.InitialTeamName] {
			findings = append(findings, fmt.Sprintf("person %s references unknown team %q", p.ID, p.InitialTeamName))
			continue
		}
		staffed[p.Discipline] = true
	}
	owners := map[string][]string{}
	for discipline, byType := range c.PersonWorkTicks {
		for wuType := range byType {
			owners[wuType] = append(owners[wuType], discipline)
		}
	}
	for wuType, ds := range owners {
		if len(ds) > 1 {
			sort.Strings(ds)
			findings = append(findings, fmt.Sprintf("type %s has durations for several disciplines (%s); %s is used", wuType, strings.Join(ds, ", "), ds[0]))
		}
	}
	for wuType, tr := range c.WorkFlow {
		if tr.NextType == TerminalType {
			continue
		}
		if _, ok := c.WorkFlow[tr.NextType]; !ok {
			findings = append(findings, fmt.Sprintf("type %s has no workflow entry and is not %s; units reaching it never finish", tr.NextType, TerminalType))
		}
		d := tr.Discipline()
		if d == "" {
			if len(owners[tr.NextType]) == 0 {
				findings = append(findings, fmt.Sprintf("workFlow.%s: no discipline works on %s", wuType, tr.NextType))
			}
			continue
		}
		if _, ok := c.PersonWorkTicks[d][tr.NextType]; !ok {
			findings = append(findings, fmt.Sprintf("workFlow.%s: discipline %s has no duration for %s", wuType, d, tr.NextType))
		}
		if !staffed[d] {
			findings = append(findings, fmt.Sprintf("workFlow.%s: no person has discipline %s", wuType, d))
		}
	}
	sort.Strings(findings)
	return dedupe(findings)
}

func dedupe(items []string) []string {
	out := items[:0]
	for i, s := range items {
		if i > 0 && s == items[i-1] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Disciplines returns the sorted set of disciplines named by people or durations.
func (c *SimulationConfig) Disciplines() []string {
	seen := map[string]bool{}
	for _, p := range c.People {
		seen[p.Discipline] = true
	}
	for d := range c.PersonWorkTicks {
		seen[d] = true
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Path returns the default config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "orgsim.yml")
}

// Load reads and validates the default config file of a workspace.
func Load(workspace string) (*SimulationConfig, error) {
	path := Path(workspace)
	cfg, err := FromFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with orgsim config init", path)
		}
		return nil, err
	}
	return cfg, nil
}

// FromFile reads a config, choosing the decoder by file extension.
func FromFile(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FromJSON(data)
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*SimulationConfig, error) {
	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromJSON parses and validates config from raw JSON bytes.
func FromJSON(data []byte) (*SimulationConfig, error) {
	var cfg SimulationConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config json: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Write encodes cfg to path, JSON for .json files and YAML otherwise.
func Write(path string, cfg *SimulationConfig) error {
	data, err := Encode(cfg, filepath.Ext(path))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Encode renders cfg as JSON when ext is ".json", YAML otherwise.
func Encode(cfg *SimulationConfig, ext string) ([]byte, error) {
	if strings.EqualFold(ext, ".json") {
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default config struct.
func Default() *SimulationConfig {
	var cfg SimulationConfig
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// DefaultPersonWorkTicks returns a fresh copy of the stock duration table.
func DefaultPersonWorkTicks() map[string]map[string]int {
	out := map[string]map[string]int{}
	for d, byType := range Default().PersonWorkTicks {
		out[d] = map[string]int{}
		for t, n := range byType {
			out[d][t] = n
		}
	}
	return out
}

// DefaultWorkFlow returns a fresh copy of the stock workflow.
func DefaultWorkFlow() map[string]WorkflowTransition {
	out := map[string]WorkflowTransition{}
	for t, tr := range Default().WorkFlow {
		out[t] = tr
	}
	return out
}

const defaultTemplate = `teams:
  - id: team_customer
    name: Customer
    isCustomerTeam: true
  - id: team_1
    name: Team A
  - id: team_2
    name: Team B

people:
  - {id: person_1, name: Client Rep 1, discipline: customer_representative, initialTeamName: Customer}
  - {id: person_2, name: Designer_2_Team_A, discipline: designer, initialTeamName: Team A}
  - {id: person_3, name: Product_3_Team_A, discipline: product manager, initialTeamName: Team A}
  - {id: person_4, name: Software_4_Team_A, discipline: software developer, initialTeamName: Team A}
  - {id: person_5, name: Software_5_Team_A, discipline: software developer, initialTeamName: Team A}
  - {id: person_6, name: Tester_6_Team_A, discipline: tester, initialTeamName: Team A}
  - {id: person_7, name: Designer_7_Team_B, discipline: designer, initialTeamName: Team B}
  - {id: person_8, name: Software_8_Team_B, discipline: software developer, initialTeamName: Team B}
  - {id: person_9, name: Tester_9_Team_B, discipline: tester, initialTeamName: Team B}

initialWorkUnits:
  - {id: wu_1, type: idea}
  - {id: wu_2, type: idea}
  - {id: wu_3, type: idea}
  - {id: wu_4, type: idea}
  - {id: wu_5, type: idea}
  - {id: wu_6, type: idea}

# discipline -> work unit type -> base ticks
personWorkTicks:
  customer_representative: {idea: 3, release: 4}
  designer: {need: 3}
  product manager: {design: 2}
  software developer: {task: 5}
  tester: {code: 2}

# nextDiscipline works on nextType
workFlow:
  idea: {nextType: need, nextDiscipline: designer}
  need: {nextType: design, nextDiscipline: product manager}
  design: {nextType: task, nextDiscipline: software developer}
  task: {nextType: code, nextDiscipline: tester}
  code: {nextType: release, nextDiscipline: customer_representative}
  release: {nextType: done}
`
