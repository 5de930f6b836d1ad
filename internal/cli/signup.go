package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vibealong/vibealong/internal/db"
	"github.com/vibealong/vibealong/internal/events"
	"github.com/vibealong/vibealong/internal/models"
	"github.com/vibealong/vibealong/internal/wizard"
)

// backCommand typed at any prompt returns to the previous step.
const backCommand = ":back"

var (
	signupSet    []string
	signupResume bool
	signupLimit  int
)

func init() {
	rootCmd.AddCommand(signupCmd)
	signupCmd.AddCommand(signupListCmd)

	signupCmd.Flags().StringArrayVar(&signupSet, "set", nil, "field value name=value (repeatable); skips prompts")
	signupCmd.Flags().BoolVar(&signupResume, "resume", true, "resume a saved draft")
	signupListCmd.Flags().IntVar(&signupLimit, "limit", 20, "maximum signups to show")
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Run the signup wizard",
	Long: `Run the two-step signup wizard. Values are validated per step and the
draft is saved between steps (passwords are never saved). Type :back at any
prompt to return to the previous step.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		store, closeStore, err := openDraftStore(ctx, GetConfig().Store, database)
		if err != nil {
			return err
		}
		defer closeStore()

		wcfg := wizard.DefaultConfig()
		wcfg.Store = store
		w := wizard.New(wcfg, db.NewSignupRepository(database))

		var note wizard.Notification
		if len(signupSet) > 0 || IsNonInteractive() {
			values, err := parseAssignments(signupSet)
			if err != nil {
				return err
			}
			note = submitValues(ctx, w, values)
			if note.Kind != wizard.NotifySuccess {
				printFieldErrors(os.Stderr, w.Errors())
			}
		} else {
			if signupResume {
				if ok, err := w.LoadDraft(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
				} else if ok {
					fmt.Printf("Resuming your saved draft at step %d.\n", w.Step()+1)
				}
			}
			in := bufio.NewReader(os.Stdin)
			note, err = runWizardPrompts(ctx, w, in, os.Stdout, func() (string, error) { return readSecret(in) })
			if err != nil {
				return err
			}
		}

		recordSignup(ctx, db.NewEventRepository(database), w, note)

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, note)
		}
		fmt.Println(note.Message)
		if note.Kind != wizard.NotifySuccess {
			return errors.New("signup failed")
		}
		fmt.Printf("Account ID: %s\n", note.ID)
		return nil
	},
}

var signupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent signups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		signups, err := db.NewSignupRepository(database).List(ctx, signupLimit)
		if err != nil {
			return err
		}
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, signups)
		}
		if len(signups) == 0 {
			fmt.Println("No signups yet.")
			return nil
		}
		rows := make([][]string, 0, len(signups))
		for _, s := range signups {
			rate := "-"
			if s.HourlyRate != nil {
				rate = strconv.FormatFloat(*s.HourlyRate, 'f', -1, 64)
			}
			rows = append(rows, []string{
				s.ID,
				s.FullName,
				s.Email,
				string(s.Role),
				rate,
				s.CreatedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		return writeTable(os.Stdout, []string{"ID", "NAME", "EMAIL", "ROLE", "RATE", "CREATED"}, rows)
	},
}

// submitValues fills every step from values and submits.
func submitValues(ctx context.Context, w *wizard.Wizard, values map[string]string) wizard.Notification {
	for field, value := range values {
		w.Set(field, value)
	}
	for w.Next() {
	}
	return w.Submit(ctx)
}

// runWizardPrompts asks for each field of each step until the wizard submits
// successfully or the persister fails.
func runWizardPrompts(ctx context.Context, w *wizard.Wizard, in *bufio.Reader, out io.Writer, secret func() (string, error)) (wizard.Notification, error) {
steps:
	for {
		step := w.Current()
		fmt.Fprintf(out, "\nStep %d of %d: %s\n", w.Step()+1, w.StepCount(), step.Title)
		printFieldErrors(out, w.Errors())

		for _, field := range step.Fields {
			current := w.Value(field.Name)
			prompt := field.Label
			if len(field.Choices) > 0 {
				prompt += " (" + strings.Join(field.Choices, "/") + ")"
			}
			if field.Kind == wizard.FieldList {
				prompt += " (comma separated)"
			}
			if current != "" && field.Kind != wizard.FieldSecret {
				prompt += " [" + current + "]"
			}
			fmt.Fprintf(out, "%s: ", prompt)

			var value string
			var err error
			if field.Kind == wizard.FieldSecret {
				value, err = secret()
			} else {
				value, err = readLine(in)
			}
			if err != nil {
				return wizard.Notification{}, fmt.Errorf("read %s: %w", field.Name, err)
			}

			value = strings.TrimSpace(value)
			if value == backCommand {
				w.Back()
				continue steps
			}
			if value == "" && current != "" {
				continue
			}
			w.Set(field.Name, value)
		}

		if w.IsLast() {
			note := w.Submit(ctx)
			if note.Kind == wizard.NotifySuccess || w.SubmitFailed() {
				return note, nil
			}
			fmt.Fprintln(out, note.Message)
			continue
		}
		if !w.Next() {
			fmt.Fprintln(out, "Please fix the fields below.")
			continue
		}
		if err := w.SaveDraft(ctx); err != nil {
			fmt.Fprintf(out, "Warning: %v\n", err)
		}
	}
}

func printFieldErrors(out io.Writer, errs map[string]string) {
	if len(errs) == 0 {
		return
	}
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  ! %s: %s\n", name, errs[name])
	}
}

func recordSignup(ctx context.Context, repo events.Repository, w *wizard.Wizard, note wizard.Notification) {
	var err error
	if note.Kind == wizard.NotifySuccess {
		err = events.LogSignupSubmitted(ctx, repo, note.ID, models.Role(w.Value(wizard.FieldRole)))
	} else {
		err = events.LogSignupFailed(ctx, repo, uuid.NewString(), errors.New(note.Message))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record signup event: %v\n", err)
	}
}

// parseAssignments reads name=value pairs. Values may contain commas.
func parseAssignments(items []string) (map[string]string, error) {
	out := make(map[string]string, len(items))
	for _, item := range items {
		name, value, ok := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q: expected name=value", item)
		}
		out[name] = value
	}
	return out, nil
}
