package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/turnforge/grimdark/lib"
)

var (
	maxTicks            uint64
	confirmFriendlyFire bool
	showMap             bool
)

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a scenario headless until a terminal objective",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scn, err := lib.LoadScenario(args[0])
		if err != nil {
			return err
		}
		tileset, templates, err := loadRules()
		if err != nil {
			return err
		}

		g, err := lib.BuildGame(scn, tileset, templates, viper.GetUint64("seed"), newLogger())
		if err != nil {
			return err
		}

		bold := color.New(color.Bold)
		bold.Printf("%s", scn.Name)
		if scn.Description != "" {
			fmt.Printf(" - %s", scn.Description)
		}
		fmt.Println()

		steps := 0
		for g.Tick() < maxTicks {
			result := g.Advance()
			steps++

			// Headless runs follow a standing order on friendly fire
			// instead of prompting; the engine itself never auto-confirms.
			if g.PendingAttack() != nil {
				if confirmFriendlyFire {
					if err := g.ConfirmPendingAttack(); err != nil {
						return err
					}
				} else {
					g.CancelPendingAttack()
				}
				continue
			}
			if result.Done {
				break
			}
		}

		if showMap {
			printBattlefield(g.BuildRenderContext(lib.RenderOptions{}))
		}
		printOutcome(g, steps)
		return nil
	},
}

func printOutcome(g *lib.Game, steps int) {
	fmt.Println()
	switch g.Phase {
	case lib.PhaseVictory:
		color.Green("VICTORY at tick %d (%d activations)", g.Tick(), steps)
	case lib.PhaseDefeat:
		color.Red("DEFEAT at tick %d (%d activations)", g.Tick(), steps)
	default:
		color.Yellow("Battle unresolved at tick %d (%d activations)", g.Tick(), steps)
	}
	fmt.Printf("Survivors: player %d, enemy %d\n",
		g.Map.CountAliveByTeam(lib.TeamPlayer), g.Map.CountAliveByTeam(lib.TeamEnemy))

	for _, entry := range g.Log.Recent(8) {
		fmt.Printf("  [%5d] %-9s %s\n", entry.Time, entry.Category, entry.Message)
	}
}

func init() {
	runCmd.Flags().Uint64Var(&maxTicks, "max-ticks", 100000, "stop the battle after this many ticks")
	runCmd.Flags().BoolVar(&confirmFriendlyFire, "confirm-friendly-fire", true, "standing order for friendly-fire confirmations")
	runCmd.Flags().BoolVar(&showMap, "show-map", false, "print the final battlefield")
	rootCmd.AddCommand(runCmd)
}
