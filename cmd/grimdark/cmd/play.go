package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/turnforge/grimdark/lib"
)

var playCmd = &cobra.Command{
	Use:   "play <scenario.yaml>",
	Short: "Play a scenario interactively",
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

		session := &playSession{game: g}
		return session.loop(scn)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}

type playSession struct {
	game *lib.Game
}

func (s *playSession) loop(scn *lib.Scenario) error {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("map"),
		readline.PcItem("units"),
		readline.PcItem("timeline"),
		readline.PcItem("log"),
		readline.PcItem("advance"),
		readline.PcItem("order"),
		readline.PcItem("forecast"),
		readline.PcItem("hazard"),
		readline.PcItem("confirm"),
		readline.PcItem("cancel"),
		readline.PcItem("status"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "grimdark> ",
		HistoryFile:     "/tmp/grimdark_history",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	color.New(color.Bold).Printf("%s\n", scn.Name)
	if scn.Description != "" {
		fmt.Println(scn.Description)
	}
	fmt.Println(`Type "help" for commands.`)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}
		if quit := s.dispatch(fields); quit {
			return nil
		}
	}
}

func (s *playSession) dispatch(fields []string) bool {
	g := s.game
	switch fields[0] {
	case "quit", "exit":
		return true
	case "help":
		s.printHelp()
	case "map":
		printBattlefield(g.BuildRenderContext(lib.RenderOptions{}))
	case "units":
		printUnits(g.BuildRenderContext(lib.RenderOptions{}))
	case "timeline":
		printTimeline(g.BuildRenderContext(lib.RenderOptions{}))
	case "log":
		printMessages(g.BuildRenderContext(lib.RenderOptions{}))
	case "status":
		fmt.Printf("phase %v, tick %d, turn %d, player %d vs enemy %d\n",
			g.Phase, g.Tick(), g.Turn(),
			g.Map.CountAliveByTeam(lib.TeamPlayer), g.Map.CountAliveByTeam(lib.TeamEnemy))
	case "advance":
		s.advance(fields[1:])
	case "order":
		s.order(fields[1:])
	case "forecast":
		s.forecast(fields[1:])
	case "hazard":
		s.hazard(fields[1:])
	case "confirm":
		if err := g.ConfirmPendingAttack(); err != nil {
			fmt.Println("nothing to confirm")
		}
	case "cancel":
		g.CancelPendingAttack()
	default:
		fmt.Printf("unknown command %q, try help\n", fields[0])
	}
	return false
}

func (s *playSession) printHelp() {
	fmt.Println(`Commands:
  map                          Draw the battlefield
  units                        List all units
  timeline                     Show the initiative ladder
  log                          Show recent battle messages
  status                       One-line battle status
  advance [n]                  Resolve the next n timeline entries (default 1)
  order <unit> <action> [x y]  Queue a decision for a unit's next activation
                               e.g. order unit-1 Attack 3 2
  forecast <attacker> <defender>
  hazard <fire|poison|ice|collapse> <x> <y>
  confirm / cancel             Resolve a pending friendly-fire attack
  quit`)
}

func (s *playSession) advance(args []string) {
	count := 1
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			count = n
		}
	}
	for range count {
		result := s.game.Advance()
		if s.game.PendingAttack() != nil {
			pending := s.game.PendingAttack()
			color.Yellow("Friendly fire! This attack also hits:")
			for _, hit := range pending.FriendlyFire {
				fmt.Printf("  %s for %d damage\n", hit.Name, hit.Damage)
			}
			fmt.Println(`"confirm" to strike anyway, "cancel" to hold`)
			return
		}
		if result.ActorName != "" {
			fmt.Printf("t=%d %s: %s\n", result.Tick, result.ActorName, result.ActionName)
		}
		if result.Done {
			switch s.game.Phase {
			case lib.PhaseVictory:
				color.Green("VICTORY")
			case lib.PhaseDefeat:
				color.Red("DEFEAT")
			}
			return
		}
	}
}

func (s *playSession) order(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: order <unit> <action> [x y]")
		return
	}
	unit := s.findUnit(args[0])
	if unit == nil {
		fmt.Printf("no unit %q\n", args[0])
		return
	}
	// Action names may be two words (Quick Strike, Power Attack, ...); the
	// trailing pair of integers, when present, is the target.
	actionWords := args[1:]
	target := lib.NoTarget()
	if len(actionWords) >= 2 {
		x, errX := strconv.Atoi(actionWords[len(actionWords)-2])
		y, errY := strconv.Atoi(actionWords[len(actionWords)-1])
		if errX == nil && errY == nil {
			target = lib.PositionTarget(lib.Vec(y, x))
			actionWords = actionWords[:len(actionWords)-2]
		}
	}
	actionName := strings.Join(actionWords, " ")
	if _, ok := s.game.Actions[actionName]; !ok {
		fmt.Printf("unknown action %q\n", actionName)
		return
	}
	s.game.QueueDecision(unit.ID, actionName, target)
	fmt.Printf("%s will %s on its next activation\n", unit.Name(), actionName)
}

func (s *playSession) forecast(args []string) {
	if len(args) != 2 {
		fmt.Println("usage: forecast <attacker> <defender>")
		return
	}
	attacker := s.findUnit(args[0])
	defender := s.findUnit(args[1])
	if attacker == nil || defender == nil {
		fmt.Println("unit not found")
		return
	}
	distance := attacker.Position().ManhattanDistance(defender.Position())
	f := lib.CalculateForecast(attacker, defender, distance)
	fmt.Printf("%s -> %s: %d dmg (%d-%d), crit %d%%\n",
		attacker.Name(), defender.Name(), f.Damage, f.MinDamage, f.MaxDamage, f.CritChance)
	if f.CanCounter {
		fmt.Printf("counter: %d dmg (%d-%d)\n", f.CounterDamage, f.CounterMin, f.CounterMax)
	}
}

func (s *playSession) hazard(args []string) {
	if len(args) != 3 {
		fmt.Println("usage: hazard <fire|poison|ice|collapse> <x> <y>")
		return
	}
	kinds := map[string]lib.HazardKind{
		"fire":     lib.HazardFire,
		"poison":   lib.HazardPoisonCloud,
		"ice":      lib.HazardIce,
		"collapse": lib.HazardCollapsingGround,
	}
	kind, ok := kinds[args[0]]
	if !ok {
		fmt.Printf("unknown hazard %q\n", args[0])
		return
	}
	x, errX := strconv.Atoi(args[1])
	y, errY := strconv.Atoi(args[2])
	if errX != nil || errY != nil {
		fmt.Println("coordinates must be integers")
		return
	}
	h, err := s.game.CreateHazard(kind, lib.Vec(y, x), 1, "")
	if err != nil {
		fmt.Printf("cannot place hazard: %v\n", err)
		return
	}
	if h == nil {
		fmt.Println("the hazard neutralized what was there")
		return
	}
	fmt.Printf("%s placed at (%d,%d)\n", h.Props.Name, y, x)
}

// findUnit resolves a unit by exact id, or else by name, case-insensitively.
func (s *playSession) findUnit(key string) *lib.Unit {
	if unit, ok := s.game.Map.UnitByID(key); ok {
		return unit
	}
	lower := strings.ToLower(key)
	for _, unit := range s.game.Map.Units() {
		if strings.ToLower(unit.Name()) == lower {
			return unit
		}
	}
	return nil
}
