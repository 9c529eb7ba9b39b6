// Package generate builds random organization configs: one customer team with
// a single customer representative plus regular teams staffed with a random
// mix of disciplines, all working on the stock duration table and workflow.
package generate

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"orgsim/internal/config"
)

// CustomerDiscipline staffs the customer team.
const CustomerDiscipline = "customer_representative"

// InitialType is the type of every generated work unit.
const InitialType = "idea"

// Disciplines available to regular team members.
var Disciplines = []string{"designer", "product manager", "software developer", "tester"}

type Options struct {
	// Teams counts every team including the customer team; at least 1.
	Teams     int
	WorkUnits int
	Seed      uint64
	// MinPeople and MaxPeople bound regular team sizes; zero means 5 and 10.
	MinPeople int
	MaxPeople int
}

// Config generates a validated simulation config.
func Config(opts Options) (*config.SimulationConfig, error) {
	if opts.Teams < 1 {
		return nil, errors.New("teams must be at least 1 to include the customer team")
	}
	if opts.WorkUnits < 0 {
		return nil, errors.New("work units cannot be negative")
	}
	if opts.MinPeople == 0 {
		opts.MinPeople = 5
	}
	if opts.MaxPeople == 0 {
		opts.MaxPeople = 10
	}
	if opts.MinPeople < 1 || opts.MaxPeople < opts.MinPeople {
		return nil, fmt.Errorf("invalid team size range %d-%d", opts.MinPeople, opts.MaxPeople)
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed+1))

	cfg := &config.SimulationConfig{
		PersonWorkTicks: config.DefaultPersonWorkTicks(),
		WorkFlow:        config.DefaultWorkFlow(),
	}
	cfg.Teams = append(cfg.Teams, config.TeamConfig{ID: "team_customer", Name: "Customer", IsCustomerTeam: true})
	for i := 0; i < opts.Teams-1; i++ {
		cfg.Teams = append(cfg.Teams, config.TeamConfig{
			ID:   fmt.Sprintf("team_%d", i+1),
			Name: "Team " + teamLetter(i),
		})
	}

	n := 1
	cfg.People = append(cfg.People, config.PersonConfig{
		ID:              fmt.Sprintf("person_%d", n),
		Name:            fmt.Sprintf("Client Rep %d", n),
		Discipline:      CustomerDiscipline,
		InitialTeamName: "Customer",
	})
	n++
	for _, team := range cfg.Teams[1:] {
		size := opts.MinPeople + rng.IntN(opts.MaxPeople-opts.MinPeople+1)
		for j := 0; j < size; j++ {
			d := Disciplines[rng.IntN(len(Disciplines))]
			prefix := strings.Fields(d)[0]
			cfg.People = append(cfg.People, config.PersonConfig{
				ID:              fmt.Sprintf("person_%d", n),
				Name:            fmt.Sprintf("%s_%d_%s", strings.ToUpper(prefix[:1])+prefix[1:], n, strings.ReplaceAll(team.Name, " ", "_")),
				Discipline:      d,
				InitialTeamName: team.Name,
			})
			n++
		}
	}

	for i := 0; i < opts.WorkUnits; i++ {
		cfg.InitialWorkUnits = append(cfg.InitialWorkUnits, config.WorkUnitConfig{
			ID:   fmt.Sprintf("wu_%d", i+1),
			Type: InitialType,
		})
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("generated config: %w", err)
	}
	return cfg, nil
}

// teamLetter names teams A..Z, then AA, AB, ...
func teamLetter(i int) string {
	s := ""
	for i >= 0 {
		s = string(rune('A'+i%26)) + s
		i = i/26 - 1
	}
	return s
}
