package cli

import (
	"github.com/spf13/cobra"

	"github.com/vibealong/vibealong/internal/scripts"
	"github.com/vibealong/vibealong/internal/tui"
)

var uiVars []string

func init() {
	rootCmd.AddCommand(uiCmd)
	uiCmd.Flags().StringSliceVar(&uiVars, "var", nil, "template variable key=value (repeatable)")
}

var uiCmd = &cobra.Command{
	Use:   "ui [scenario]",
	Short: "Launch the chat simulator",
	Long:  "Launch the terminal chat simulator. Enter advances, r resets, tab switches scenario.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if IsNonInteractive() {
			return &PreflightError{
				Message:  "the chat simulator requires an interactive terminal",
				Hint:     "Run without --non-interactive and with a TTY, or use simulate --auto",
				NextStep: "vibealong simulate <scenario> --auto",
			}
		}

		items, err := loadScripts()
		if err != nil {
			return err
		}
		vars, err := scripts.ParseVars(uiVars)
		if err != nil {
			return err
		}

		cfg := GetConfig()
		opts := tui.Options{
			Scripts:      items,
			Vars:         vars,
			Theme:        cfg.TUI.Theme,
			TickInterval: cfg.Sequencer.TickInterval,
		}
		if len(args) == 1 {
			opts.Scenario = args[0]
		}
		return tui.Run(opts)
	},
}
