package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vibealong/vibealong/internal/models"
	"github.com/vibealong/vibealong/internal/scripts"
)

var (
	scriptsListTags []string
	scriptsShowVars []string
)

func init() {
	rootCmd.AddCommand(scriptsCmd)
	scriptsCmd.AddCommand(scriptsListCmd)
	scriptsCmd.AddCommand(scriptsShowCmd)

	scriptsListCmd.Flags().StringSliceVar(&scriptsListTags, "tag", nil, "only scripts with any of these tags")
	scriptsShowCmd.Flags().StringSliceVar(&scriptsShowVars, "var", nil, "template variable key=value (repeatable)")
}

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "Inspect scenario scripts",
}

var scriptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := loadScripts()
		if err != nil {
			return err
		}
		items = scripts.FilterByTags(items, scriptsListTags)

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, items)
		}
		if len(items) == 0 {
			fmt.Println("No scripts found.")
			return nil
		}

		rows := make([][]string, 0, len(items))
		for _, s := range items {
			rows = append(rows, []string{
				s.Name,
				truncate(s.Title, 40),
				strconv.Itoa(len(s.Messages)),
				strings.Join(s.Tags, ","),
				s.Source,
			})
		}
		return writeTable(os.Stdout, []string{"NAME", "TITLE", "MESSAGES", "TAGS", "SOURCE"}, rows)
	},
}

var scriptsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a scenario's messages and timing",
	Args:  cobra.ExactArgs(1),
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
		vars, err := scripts.ParseVars(scriptsShowVars)
		if err != nil {
			return err
		}
		messages, err := scripts.Render(script, vars)
		if err != nil {
			return err
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, messages)
		}

		fmt.Printf("%s (%s)\n", script.Title, script.Name)
		if script.Description != "" {
			fmt.Println(script.Description)
		}
		fmt.Println()
		return writeTable(os.Stdout, []string{"ID", "SENDER", "DELAY", "DURATION", "MANUAL", "CONTENT"}, messageRows(messages))
	},
}

func messageRows(messages []models.ScriptedMessage) [][]string {
	rows := make([][]string, 0, len(messages))
	for _, m := range messages {
		duration := "-"
		if m.HasCountdown() {
			duration = m.Duration.String()
		}
		manual := formatYesNo(m.Manual())
		if m.Action != "" {
			manual = m.Action
		}
		rows = append(rows, []string{
			strconv.Itoa(m.ID),
			string(m.Sender),
			m.Delay.String(),
			duration,
			manual,
			truncate(m.Content, 60),
		})
	}
	return rows
}
