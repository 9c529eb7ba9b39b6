package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"orgsim/internal/app"
	"orgsim/internal/config"
	"orgsim/internal/domain"
	"orgsim/internal/engine"
	"orgsim/internal/generate"
)

var rootCmd = &cobra.Command{
	Use:   "orgsim",
	Short: "Organization work-routing simulator",
	Long: `orgsim simulates how work units flow through an organization.
- Teams hold people; each person has one discipline and works on one unit at a time.
- Work units move through a workflow of types (idea -> need -> ... -> done).
- Each type is worked by one discipline for a configured number of ticks plus jitter.
- Finished units go to an idle colleague first, then to a team backlog.
- The run ends when every unit reaches done.`,
	SilenceUsage: true,
}

var logger = slog.New(slog.DiscardHandler)

func main() {
	_ = godotenv.Load()
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ORGSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		level = slog.LevelWarn
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "simulation config file (YAML or JSON, default ./orgsim.yml)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(configCmd())
}

// addEngineFlags registers the engine tuning flags shared by run and sweep.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64("seed", 1, "jitter seed")
	cmd.Flags().Int("jitter", engine.DefaultMaxJitter, "maximum random ticks added to each assignment")
	cmd.Flags().Int("backlog-cap", 0, "maximum units seeded into one team backlog (0 = unlimited)")
	cmd.Flags().Int("max-ticks", app.DefaultMaxTicks, "stop after this many ticks")
}

// bindFlags binds a command's local flags to viper. It runs from PreRunE so
// commands sharing flag names do not override each other's bindings.
func bindFlags(cmd *cobra.Command, _ []string) error {
	return viper.BindPFlags(cmd.Flags())
}

func engineOptions() engine.Options {
	return engine.Options{
		MaxJitter:  viper.GetInt("jitter"),
		BacklogCap: viper.GetInt("backlog-cap"),
		Seed:       viper.GetUint64("seed"),
		Logger:     logger,
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run a simulation to completion",
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON := viper.GetBool("json")
			every := viper.GetInt("every")
			eng := engine.New(engineOptions())
			cfg, err := app.LoadAndInitialize(eng, configPath())
			if err != nil {
				return err
			}
			for _, f := range cfg.Lint() {
				logger.Warn("config", "finding", f)
			}
			r, err := app.Run(cmd.Context(), eng, app.RunOptions{
				MaxTicks: viper.GetInt("max-ticks"),
				Interval: viper.GetDuration("interval"),
				OnTick: func(st domain.TickState, s domain.SimulationState) error {
					if asJSON || every <= 0 || s.CurrentTimeTick%every != 0 {
						return nil
					}
					fmt.Printf("T-%d  %d/%d done\n", s.CurrentTimeTick, s.DoneCount(), len(s.WorkUnits))
					renderTeams(s)
					return nil
				},
			})
			r.Seed = viper.GetUint64("seed")
			if err != nil {
				return err
			}
			s := eng.State()
			tail := eng.EventTail(viper.GetInt("events"))
			if asJSON {
				if err := printJSON(map[string]any{
					"report":     r,
					"teams":      app.TeamLoads(s),
					"unassigned": app.Unassigned(s),
					"events":     tail,
				}); err != nil {
					return err
				}
			} else {
				renderTeams(s)
				renderReports([]app.Report{r})
				for _, e := range tail {
					fmt.Println(e)
				}
			}
			if !r.Completed() {
				return fmt.Errorf("stopped after %d ticks with %d of %d work units done", r.Ticks, r.Done, r.Total)
			}
			return nil
		},
	}
	addEngineFlags(cmd)
	cmd.Flags().Duration("interval", 0, "wall-clock delay between ticks")
	cmd.Flags().Int("every", 0, "print the team table every N ticks (0 = only at the end)")
	cmd.Flags().Int("events", 20, "number of trailing events to print")
	return cmd
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sweep",
		Short:   "Run one config under many seeds",
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(configPath())
			if err != nil {
				return err
			}
			opts := engineOptions()
			opts.Logger = nil
			reports, err := app.Sweep(cmd.Context(), cfg, app.SweepOptions{
				Runs:      viper.GetInt("runs"),
				FirstSeed: viper.GetUint64("seed"),
				Parallel:  viper.GetInt("parallel"),
				Engine:    opts,
				MaxTicks:  viper.GetInt("max-ticks"),
			})
			if err != nil {
				return err
			}
			sum := app.Summarize(reports)
			if viper.GetBool("json") {
				return printJSON(map[string]any{"runs": reports, "summary": sum})
			}
			renderReports(reports)
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Runs", "Completed", "Min Ticks", "Mean Ticks", "Max Ticks"})
			tw.AppendRow(table.Row{sum.Runs, sum.Completed, sum.MinTicks, fmt.Sprintf("%.1f", sum.MeanTicks), sum.MaxTicks})
			tw.Render()
			return nil
		},
	}
	addEngineFlags(cmd)
	cmd.Flags().Int("runs", 10, "number of seeds to run, starting at --seed")
	cmd.Flags().Int("parallel", 0, "maximum concurrent runs (0 = unbounded)")
	return cmd
}

func generateCmd() *cobra.Command {
	var opts generate.Options
	var output string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random organization config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := generate.Config(opts)
			if err != nil {
				return err
			}
			if output != "" {
				if err := config.Write(output, cfg); err != nil {
					return err
				}
				fmt.Printf("wrote %s (%d teams, %d people, %d work units)\n", output, len(cfg.Teams), len(cfg.People), len(cfg.InitialWorkUnits))
				return nil
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			data, err := config.Encode(cfg, ".yaml")
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
	cmd.Flags().IntVar(&opts.Teams, "teams", 3, "number of teams including the customer team")
	cmd.Flags().IntVar(&opts.WorkUnits, "work-units", 10, "number of initial work units")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "generator seed")
	cmd.Flags().IntVar(&opts.MinPeople, "min-people", 5, "minimum people per regular team")
	cmd.Flags().IntVar(&opts.MaxPeople, "max-people", 10, "maximum people per regular team")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file (.json or .yml) instead of stdout")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Create and inspect simulation configs",
		Long:  "A simulation config lists teams, people, initial work units, the per-discipline duration table and the workflow.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var file string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = config.Path(".")
			}
			if _, err := os.Stat(file); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", file)
			}
			if strings.EqualFold(filepath.Ext(file), ".json") {
				if err := config.Write(file, config.Default()); err != nil {
					return err
				}
			} else if err := os.WriteFile(file, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "output file (default ./orgsim.yml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the parsed config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(configPath())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			data, err := config.Encode(cfg, ".yaml")
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config and list suspicious references",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(configPath())
			var findings []string
			if err == nil {
				findings = cfg.Lint()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err), "warnings": findings})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			for _, f := range findings {
				fmt.Println("warning:", f)
			}
			return nil
		},
	}
	return cmd
}

// --- helpers ---

func configPath() string {
	if p := viper.GetString("config"); p != "" {
		return p
	}
	return config.Path(".")
}

func renderTeams(s domain.SimulationState) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Team", "Members", "Busy", "Backlog"})
	for _, l := range app.TeamLoads(s) {
		name := l.Name
		if l.Customer {
			name += " (customer)"
		}
		tw.AppendRow(table.Row{name, l.Members, l.Busy, l.Backlog})
	}
	if n := app.Unassigned(s); n > 0 {
		tw.AppendFooter(table.Row{"unassigned", "", "", n})
	}
	tw.Render()
}

func renderReports(reports []app.Report) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Seed", "Status", "Ticks", "Done", "Throughput", "Peak Rate"})
	for _, r := range reports {
		tw.AppendRow(table.Row{
			r.Seed,
			r.Status,
			r.Ticks,
			fmt.Sprintf("%d/%d", r.Done, r.Total),
			fmt.Sprintf("%.2f/tick", r.MeanThroughput),
			fmt.Sprintf("%d per %d ticks", r.PeakRate, engine.DefaultRateWindow),
		})
	}
	tw.Render()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
