// Package wizard implements the multi-step signup form: per-step validation,
// linear navigation, draft persistence and submission through a Persister.
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vibealong/vibealong/internal/kvstore"
	"github.com/vibealong/vibealong/internal/logging"
	"github.com/vibealong/vibealong/internal/models"
)

// Values holds raw field input keyed by field name.
type Values map[string]string

// Clone returns an independent copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Status is the wizard lifecycle state.
type Status string

const (
	StatusStep       Status = "step"
	StatusSubmitting Status = "submitting"
	StatusDone       Status = "done"
)

// NotificationKind classifies a submit outcome.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyFailure NotificationKind = "failure"
)

// Notification is the user-facing outcome of Submit.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
	ID      string           `json:"id,omitempty"`
}

// Persister stores a completed signup and returns its identifier.
type Persister interface {
	Persist(ctx context.Context, req models.SignupRequest) (string, error)
}

// Config contains wizard configuration.
type Config struct {
	// Store keeps drafts between sessions. Nil disables drafts.
	Store kvstore.Store

	// DraftKey identifies this wizard's draft in Store.
	// Default: "signup:draft".
	DraftKey string

	// DraftTTL bounds how long a draft survives. Zero keeps it forever.
	DraftTTL time.Duration
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{DraftKey: "signup:draft", DraftTTL: 7 * 24 * time.Hour}
}

// Wizard is a single user's pass through the signup form. It is not safe for
// concurrent use.
type Wizard struct {
	config    Config
	persister Persister
	logger    zerolog.Logger

	step         int
	values       Values
	errors       map[string]string
	status       Status
	submitFailed bool
	resultID     string
}

// New creates a wizard at the first step. With a nil persister the wizard
// still validates and keeps drafts, but Submit reports a failure.
func New(config Config, persister Persister) *Wizard {
	if config.DraftKey == "" {
		config.DraftKey = DefaultConfig().DraftKey
	}
	return &Wizard{
		config:    config,
		persister: persister,
		logger:    logging.Component("wizard"),
		values:    make(Values),
		errors:    make(map[string]string),
		status:    StatusStep,
	}
}

// Step returns the zero-based index of the current step.
func (w *Wizard) Step() int { return w.step }

// StepCount returns how many steps the flow has.
func (w *Wizard) StepCount() int { return len(Steps) }

// Current returns the current step definition.
func (w *Wizard) Current() Step { return Steps[w.step] }

// IsLast reports whether the current step is the final one.
func (w *Wizard) IsLast() bool { return w.step == len(Steps)-1 }

// Status returns the lifecycle state.
func (w *Wizard) Status() Status { return w.status }

// SubmitFailed reports whether the last Submit failed in the persister.
func (w *Wizard) SubmitFailed() bool { return w.submitFailed }

// ResultID returns the identifier of a successful submission.
func (w *Wizard) ResultID() string { return w.resultID }

// Value returns the raw value of a field.
func (w *Wizard) Value(field string) string { return w.values[field] }

// Values returns a copy of every entered value.
func (w *Wizard) Values() Values { return w.values.Clone() }

// Errors returns a copy of the current field errors.
func (w *Wizard) Errors() map[string]string {
	out := make(map[string]string, len(w.errors))
	for k, v := range w.errors {
		out[k] = v
	}
	return out
}

// Set stores a value and clears that field's error.
func (w *Wizard) Set(field, value string) {
	if w.status != StatusStep {
		return
	}
	w.values[field] = value
	delete(w.errors, field)
}

// Next validates the current step and moves forward when it is valid. It
// reports whether the step changed. The last step never advances; use Submit.
func (w *Wizard) Next() bool {
	if w.status != StatusStep {
		return false
	}
	errs := ValidateStep(w.step, w.values)
	w.errors = errs
	if len(errs) > 0 {
		w.logger.Debug().Int("step", w.step).Int("errors", len(errs)).Msg("step invalid")
		return false
	}
	if w.IsLast() {
		return false
	}
	w.step++
	return true
}

// Back moves to the previous step without validating. Values are kept.
func (w *Wizard) Back() bool {
	if w.status != StatusStep || w.step == 0 {
		return false
	}
	w.step--
	w.errors = make(map[string]string)
	return true
}

// Submit validates the whole form and hands it to the persister. It is only
// accepted on the last step; elsewhere it returns a failure and changes
// nothing.
func (w *Wizard) Submit(ctx context.Context) Notification {
	if w.status == StatusDone {
		return Notification{Kind: NotifySuccess, Message: "Signup already submitted", ID: w.resultID}
	}
	if w.status != StatusStep || !w.IsLast() {
		return Notification{Kind: NotifyFailure, Message: "Complete every step before submitting"}
	}

	if step, errs := ValidateAll(w.values); step >= 0 {
		w.step = step
		w.errors = errs
		return Notification{Kind: NotifyFailure, Message: "Please fix the highlighted fields"}
	}
	w.errors = make(map[string]string)

	req, err := BuildRequest(w.values)
	if err != nil {
		return Notification{Kind: NotifyFailure, Message: err.Error()}
	}

	if w.persister == nil {
		w.submitFailed = true
		w.logger.Warn().Msg("signup submit without a persister")
		return Notification{Kind: NotifyFailure, Message: "Signups are not available right now."}
	}

	w.status = StatusSubmitting
	w.submitFailed = false
	id, err := w.persister.Persist(ctx, req)
	if err != nil {
		w.status = StatusStep
		w.submitFailed = true
		w.logger.Warn().Err(err).Str("role", string(req.Role)).Msg("signup submit failed")
		return Notification{Kind: NotifyFailure, Message: "We could not create your account. Please try again."}
	}

	w.status = StatusDone
	w.resultID = id
	if w.config.Store != nil {
		if err := w.config.Store.Delete(ctx, w.config.DraftKey); err != nil {
			w.logger.Warn().Err(err).Msg("failed to clear draft")
		}
	}
	w.logger.Info().Str("signup_id", id).Str("role", string(req.Role)).Msg("signup submitted")
	return Notification{Kind: NotifySuccess, Message: "Welcome to VibeAlong!", ID: id}
}

// draft is the stored form of an in-progress wizard.
type draft struct {
	Step   int    `json:"step"`
	Values Values `json:"values"`
}

// SaveDraft stores the current step and values. Secret fields are never
// written.
func (w *Wizard) SaveDraft(ctx context.Context) error {
	if w.config.Store == nil {
		return nil
	}
	d := draft{Step: w.step, Values: make(Values, len(w.values))}
	for k, v := range w.values {
		if isSecret(k) {
			continue
		}
		d.Values[k] = v
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := w.config.Store.Set(ctx, w.config.DraftKey, data, w.config.DraftTTL); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// LoadDraft restores a saved draft. It reports false when none exists.
func (w *Wizard) LoadDraft(ctx context.Context) (bool, error) {
	if w.config.Store == nil {
		return false, nil
	}
	data, err := w.config.Store.Get(ctx, w.config.DraftKey)
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load draft: %w", err)
	}

	var d draft
	if err := json.Unmarshal(data, &d); err != nil {
		return false, fmt.Errorf("decode draft: %w", err)
	}
	if d.Step < 0 || d.Step >= len(Steps) {
		d.Step = 0
	}
	w.step = d.Step
	w.values = make(Values, len(d.Values))
	for k, v := range d.Values {
		if !isSecret(k) {
			w.values[k] = v
		}
	}
	w.errors = make(map[string]string)
	w.status = StatusStep
	return true, nil
}

// BuildRequest converts valid values into a persistence request.
func BuildRequest(values Values) (models.SignupRequest, error) {
	req := models.SignupRequest{
		FullName: strings.TrimSpace(values[FieldFullName]),
		Email:    strings.ToLower(strings.TrimSpace(values[FieldEmail])),
		Password: values[FieldPassword],
		Role:     models.Role(strings.TrimSpace(values[FieldRole])),
		Headline: strings.TrimSpace(values[FieldHeadline]),
		Skills:   SplitList(values[FieldSkills]),
	}
	if raw := strings.TrimSpace(values[FieldHourlyRate]); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.SignupRequest{}, fmt.Errorf("hourly rate: %w", err)
		}
		req.HourlyRate = &rate
	}
	return req, nil
}

func isSecret(name string) bool {
	for _, step := range Steps {
		for _, f := range step.Fields {
			if f.Name == name {
				return f.Kind == FieldSecret
			}
		}
	}
	return false
}
