// Package cli implements the vibealong command line.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vibealong/vibealong/internal/catalog"
	"github.com/vibealong/vibealong/internal/config"
	"github.com/vibealong/vibealong/internal/db"
	"github.com/vibealong/vibealong/internal/logging"
	"github.com/vibealong/vibealong/internal/scripts"
)

var (
	configFile     string
	logLevel       string
	jsonOutput     bool
	jsonlOutput    bool
	nonInteractive bool
	noProgress     bool
	yesFlag        bool
	scriptsDir     string

	appConfig *config.Config
	version   = "dev"
)

var rootCmd = &cobra.Command{
	Use:           "vibealong",
	Short:         "Scripted chat playback, signup and marketplace fixtures",
	Long:          "vibealong plays scripted VibeAlong conversations, runs the signup wizard and serves the demo API.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return &PreflightError{
				Message:  err.Error(),
				Hint:     "Check the config file and VIBEALONG_* environment variables",
				NextStep: "vibealong --config ./vibealong.yaml",
			}
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if scriptsDir != "" {
			cfg.Scripts.Dir = scriptsDir
		}
		logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		appConfig = cfg
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: ./vibealong.yaml or the user config dir)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&jsonOutput, "json", false, "print JSON output")
	flags.BoolVar(&jsonlOutput, "jsonl", false, "print one JSON object per line")
	flags.BoolVar(&nonInteractive, "non-interactive", false, "never prompt; use defaults and flags")
	flags.BoolVar(&noProgress, "no-progress", false, "hide progress output")
	flags.BoolVarP(&yesFlag, "yes", "y", false, "answer yes to confirmations")
	flags.StringVar(&scriptsDir, "scripts-dir", "", "extra directory of scenario scripts")
}

// Execute runs the root command.
func Execute(v string) error {
	if v != "" {
		version = v
		rootCmd.Version = v
	}
	err := rootCmd.Execute()
	var pre *PreflightError
	if errors.As(err, &pre) {
		fmt.Fprintln(os.Stderr, pre.Render())
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// GetConfig returns the loaded configuration, or defaults before load.
func GetConfig() *config.Config {
	if appConfig == nil {
		return config.Default()
	}
	return appConfig
}

// PreflightError is a user-facing error with a fix.
type PreflightError struct {
	Message  string
	Hint     string
	NextStep string
}

func (e *PreflightError) Error() string {
	return e.Message
}

// Render formats the error with its hint and next step.
func (e *PreflightError) Render() string {
	lines := []string{"Error: " + e.Message}
	if e.Hint != "" {
		lines = append(lines, "Hint: "+e.Hint)
	}
	if e.NextStep != "" {
		lines = append(lines, "Next: "+e.NextStep)
	}
	return strings.Join(lines, "\n")
}

// IsJSONOutput reports whether --json was given.
func IsJSONOutput() bool { return jsonOutput }

// IsJSONLOutput reports whether --jsonl was given.
func IsJSONLOutput() bool { return jsonlOutput }

// WriteOutput encodes v as JSON, or as JSON lines when v is a slice and
// --jsonl is set.
func WriteOutput(out io.Writer, v any) error {
	if IsJSONLOutput() {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var items []json.RawMessage
		if json.Unmarshal(data, &items) == nil {
			for _, item := range items {
				if _, err := fmt.Fprintln(out, string(item)); err != nil {
					return err
				}
			}
			return nil
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SkipConfirmation reports whether confirmations are auto-accepted.
func SkipConfirmation() bool {
	return yesFlag || IsNonInteractive()
}

func confirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret(in *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(data), err
	}
	return readLine(in)
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// openDatabase opens and migrates the configured sqlite database.
func openDatabase() (*db.DB, error) {
	return openDatabaseStep(startProgress("Opening database"))
}

// openDatabaseStep is openDatabase reporting on a caller's progress step.
func openDatabaseStep(step *progressStep) (*db.DB, error) {
	cfg := GetConfig()
	database, err := db.Open(db.Config{Path: cfg.Database.Path})
	if err != nil {
		step.Fail(err)
		return nil, &PreflightError{
			Message:  fmt.Sprintf("failed to open database: %v", err),
			Hint:     "Check database.path and directory permissions",
			NextStep: "vibealong migrate",
		}
	}
	if err := database.Migrate(context.Background()); err != nil {
		step.Fail(err)
		_ = database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	step.Done()
	return database, nil
}

// loadScripts loads builtin, user and project scripts.
func loadScripts() ([]*scripts.Script, error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	items, err := scripts.LoadFromSearchPaths(cwd, GetConfig().Scripts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load scripts: %w", err)
	}
	return items, nil
}

// seedListings copies the builtin fixtures into the database.
func seedListings(ctx context.Context, repo *db.ListingRepository) (int, error) {
	builtin, err := catalog.Builtin()
	if err != nil {
		return 0, err
	}
	return repo.Seed(ctx, builtin.All())
}
