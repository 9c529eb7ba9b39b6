package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgsim/internal/config"
)

func TestDefaultIsClean(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.Lint())
	assert.Len(t, cfg.Teams, 3)
	assert.Len(t, cfg.People, 9)
	assert.Len(t, cfg.InitialWorkUnits, 6)
	assert.Equal(t, "need", cfg.WorkFlow["idea"].NextType)
	assert.Equal(t, "designer", cfg.WorkFlow["idea"].Discipline())
	assert.Equal(t, config.TerminalType, cfg.WorkFlow["release"].NextType)
}

func TestDefaultTablesAreCopies(t *testing.T) {
	ticks := config.DefaultPersonWorkTicks()
	ticks["designer"]["need"] = 99
	flow := config.DefaultWorkFlow()
	delete(flow, "idea")
	assert.Equal(t, 3, config.DefaultPersonWorkTicks()["designer"]["need"])
	assert.Contains(t, config.DefaultWorkFlow(), "idea")
}

func TestFromJSONAcceptsOriginalShape(t *testing.T) {
	data := []byte(`{
  "teams": [{"id": "t1", "name": "Alpha"}],
  "people": [{"id": "p1", "name": "Ann", "discipline": "dev", "initialTeamName": "Alpha"}],
  "initialWorkUnits": [{"id": "w1", "type": "task", "payload": {"title": "x"}}],
  "personWorkTicks": {"dev": {"task": 2}},
  "workFlow": {"task": {"nextType": "done", "targetDiscipline": "dev"}}
}`)
	cfg, err := config.FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", cfg.People[0].InitialTeamName)
	assert.Equal(t, "dev", cfg.WorkFlow["task"].Discipline())
}

func TestFileRoundTrip(t *testing.T) {
	for _, name := range []string{"org.yml", "org.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, config.Write(path, config.Default()))
			got, err := config.FromFile(path)
			require.NoError(t, err)
			assert.Equal(t, config.Default(), got)
		})
	}
}

func TestLoadMissingWorkspaceConfig(t *testing.T) {
	_, err := config.Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config init")
}

func TestLoadWorkspaceConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(config.Path(dir), []byte(config.GenerateDefault()), 0o644))
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Len(t, cfg.Teams, 3)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]struct {
		mutate func(*config.SimulationConfig)
		want   string
	}{
		"team without id": {
			func(c *config.SimulationConfig) { c.Teams[0].ID = "" },
			"teams[0].id is required",
		},
		"duplicate team name": {
			func(c *config.SimulationConfig) { c.Teams[1].Name = c.Teams[2].Name },
			"duplicate team name",
		},
		"duplicate person": {
			func(c *config.SimulationConfig) { c.People[1].ID = c.People[0].ID },
			"duplicate person id",
		},
		"person without discipline": {
			func(c *config.SimulationConfig) { c.People[0].Discipline = "" },
			"discipline is required",
		},
		"untyped unit": {
			func(c *config.SimulationConfig) { c.InitialWorkUnits[2].Type = "" },
			"initialWorkUnits[2].type is required",
		},
		"duplicate unit": {
			func(c *config.SimulationConfig) { c.InitialWorkUnits[1].ID = "wu_1" },
			"duplicate work unit id",
		},
		"zero ticks": {
			func(c *config.SimulationConfig) { c.PersonWorkTicks["designer"]["need"] = 0 },
			"must be at least 1",
		},
		"terminal transition": {
			func(c *config.SimulationConfig) {
				c.WorkFlow[config.TerminalType] = config.WorkflowTransition{NextType: "idea"}
			},
			"terminal type cannot transition",
		},
		"missing next type": {
			func(c *config.SimulationConfig) { c.WorkFlow["idea"] = config.WorkflowTransition{} },
			"nextType is required",
		},
		"conflicting disciplines": {
			func(c *config.SimulationConfig) {
				c.WorkFlow["idea"] = config.WorkflowTransition{NextType: "need", NextDiscipline: "designer", TargetDiscipline: "tester"}
			},
			"conflicts with",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidateAllowsUnitsWithoutID(t *testing.T) {
	cfg := config.Default()
	cfg.InitialWorkUnits = append(cfg.InitialWorkUnits, config.WorkUnitConfig{Type: "idea"}, config.WorkUnitConfig{Type: "idea"})
	assert.NoError(t, cfg.Validate())
}

func TestLintFindings(t *testing.T) {
	cfg := config.Default()
	cfg.People = append(cfg.People, config.PersonConfig{ID: "person_x", Name: "X", Discipline: "designer", InitialTeamName: "Team Z"})
	cfg.PersonWorkTicks["tester"]["need"] = 1
	cfg.WorkFlow["code"] = config.WorkflowTransition{NextType: "review", NextDiscipline: "auditor"}

	findings := cfg.Lint()
	want := []string{
		`person person_x references unknown team "Team Z"`,
		"type need has durations for several disciplines (designer, tester); designer is used",
		"type review has no workflow entry and is not done; units reaching it never finish",
		"workFlow.code: discipline auditor has no duration for review",
		"workFlow.code: no person has discipline auditor",
	}
	assert.Equal(t, want, findings)
}

func TestLintNoDisciplineForType(t *testing.T) {
	cfg := config.Default()
	delete(cfg.PersonWorkTicks, "designer")
	cfg.WorkFlow["idea"] = config.WorkflowTransition{NextType: "need"}
	findings := cfg.Lint()
	require.Len(t, findings, 1)
	assert.True(t, strings.HasPrefix(findings[0], "workFlow.idea: no discipline works on need"))
}

func TestDisciplines(t *testing.T) {
	assert.Equal(t, []string{
		"customer_representative",
		"designer",
		"product manager",
		"software developer",
		"tester",
	}, config.Default().Disciplines())
}

func TestEncodeYAMLIsReadable(t *testing.T) {
	data, err := config.Encode(config.Default(), ".yaml")
	require.NoError(t, err)
	got, err := config.FromYAML(data)
	require.NoError(t, err)
	assert.Equal(t, config.Default().WorkFlow, got.WorkFlow)
}
