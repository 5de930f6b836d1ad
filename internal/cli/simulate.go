package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibealong/vibealong/internal/clock"
	"github.com/vibealong/vibealong/internal/models"
	"github.com/vibealong/vibealong/internal/scripts"
	"github.com/vibealong/vibealong/internal/sequencer"
)

var (
	simulateAuto      bool
	simulateAutoDelay time.Duration
	simulateVars      []string
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().BoolVar(&simulateAuto, "auto", false, "advance manual steps automatically")
	simulateCmd.Flags().DurationVar(&simulateAutoDelay, "auto-delay", time.Second, "pause before an automatic advance")
	simulateCmd.Flags().StringSliceVar(&simulateVars, "var", nil, "template variable key=value (repeatable)")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario>",
	Short: "Play a scenario in the terminal",
	Long: `Play a scenario as plain text. Messages appear on their schedule; when the
conversation waits for you, press Enter to continue.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := loadScripts()
		if err != nil {
			return err
		}
		script := scripts.Find(items, args[0])
		if script == nil {
			return &PreflightError{
				Message:  fmt.Sprintf("scenario %q not found", args[0]),
				NextStep: "vibealong scripts list",
			}
		}
		vars, err := scripts.ParseVars(simulateVars)
		if err != nil {
			return err
		}
		messages, err := scripts.Render(script, vars)
		if err != nil {
			return err
		}

		auto := simulateAuto
		if !auto && IsNonInteractive() {
			auto = true
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		seq := sequencer.New(sequencer.Config{TickInterval: GetConfig().Sequencer.TickInterval}, nil)
		return runSimulation(ctx, seq, messages, simulation{
			in:        os.Stdin,
			out:       os.Stdout,
			auto:      auto,
			autoDelay: simulateAutoDelay,
			clock:     clock.Real(),
		})
	},
}

// simulation holds the I/O of a terminal playback.
type simulation struct {
	in        io.Reader
	out       io.Writer
	auto      bool
	autoDelay time.Duration
	clock     clock.Clock
}

// runSimulation plays messages until the scenario completes or ctx ends.
func runSimulation(ctx context.Context, seq *sequencer.Sequencer, messages []models.ScriptedMessage, sim simulation) error {
	done := make(chan struct{})
	seq.SetHooks(sequencer.Hooks{
		OnReveal: func(msg models.ScriptedMessage, _ int) {
			fmt.Fprintf(sim.out, "[%s] %s\n", msg.Sender, msg.Content)
		},
		OnComplete: func(sequencer.State) {
			close(done)
		},
	})
	defer seq.Reset()

	lines := make(chan struct{})
	if !sim.auto && sim.in != nil {
		go func() {
			scanner := bufio.NewScanner(sim.in)
			for scanner.Scan() {
				select {
				case lines <- struct{}{}:
				case <-done:
					return
				}
			}
		}()
	}

	if err := seq.Start(messages); err != nil {
		return err
	}

	// Each manual wait is keyed by the cursor of the message it gates.
	lastPrompt := -1
	var lastProgress int
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(sim.out, "\nstopped.")
			return nil
		case <-done:
			fmt.Fprintln(sim.out, "-- scenario complete --")
			return nil
		case <-lines:
			seq.Advance()
		case state := <-seq.Updates():
			switch state.Phase {
			case sequencer.PhaseAwaitingManual:
				if state.Cursor == lastPrompt {
					continue
				}
				lastPrompt = state.Cursor
				next, _ := state.Pending()
				label := next.Action
				if label == "" {
					label = "Continue"
				}
				if sim.auto {
					fmt.Fprintf(sim.out, "  > %s\n", label)
					sim.clock.AfterFunc(sim.autoDelay, func() { seq.Advance() })
				} else {
					fmt.Fprintf(sim.out, "  > %s (press Enter)\n", label)
				}
			case sequencer.PhaseCounting:
				pct := int(state.Progress()) / 25 * 25
				if pct != lastProgress && pct > 0 {
					fmt.Fprintf(sim.out, "  ... %d%%\n", pct)
				}
				lastProgress = pct
			default:
				lastProgress = 0
			}
		}
	}
}
