package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/turnforge/grimdark/lib"
)

var (
	cfgFile      string
	tilesetPath  string
	templatePath string
	seed         uint64
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "grimdark",
	Short:        "Grimdark - deterministic grid-tactics battle engine",
	SilenceUsage: true,
	Long: `Grimdark runs tactical battles on a timeline scheduler: weighted
actions, area attacks with friendly-fire checks, spreading hazards, and
prepared interrupts.

Examples:
  grimdark run assets/scenarios/riverside.yaml       Run a battle headless
  grimdark run --seed 7 --max-ticks 5000 battle.yaml Deterministic replay
  grimdark play assets/scenarios/riverside.yaml      Interactive session

Global Flags:
  --tileset string     Tileset document (env: GRIMDARK_TILESET)
  --units string       Unit template document (env: GRIMDARK_UNITS)
  --seed uint          Engine seed; identical seeds replay identically
  --verbose            Show engine debug logging`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.grimdark.yaml)")
	rootCmd.PersistentFlags().StringVar(&tilesetPath, "tileset", "", "tileset document (env: GRIMDARK_TILESET)")
	rootCmd.PersistentFlags().StringVar(&templatePath, "units", "", "unit template document (env: GRIMDARK_UNITS)")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 42, "engine seed")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "show engine debug logging")

	viper.BindPFlag("tileset", rootCmd.PersistentFlags().Lookup("tileset"))
	viper.BindPFlag("units", rootCmd.PersistentFlags().Lookup("units"))
	viper.BindPFlag("seed", rootCmd.PersistentFlags().Lookup("seed"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".grimdark")
	}

	viper.SetEnvPrefix("GRIMDARK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI logger per the verbose flag.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadRules resolves the tileset and template documents from flags, env, or
// the built-in defaults.
func loadRules() (*lib.TilesetConfig, map[lib.UnitClass]lib.UnitTemplate, error) {
	tileset := lib.DefaultTilesetConfig()
	if path := viper.GetString("tileset"); path != "" {
		loaded, err := lib.LoadTileset(path)
		if err != nil {
			return nil, nil, err
		}
		tileset = loaded
	}

	var templates map[lib.UnitClass]lib.UnitTemplate
	if path := viper.GetString("units"); path != "" {
		loaded, err := lib.LoadUnitTemplates(path)
		if err != nil {
			return nil, nil, err
		}
		templates = loaded
	}
	return tileset, templates, nil
}
