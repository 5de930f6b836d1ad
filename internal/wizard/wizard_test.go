package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibealong/vibealong/internal/kvstore"
	"github.com/vibealong/vibealong/internal/models"
)

type fakePersister struct {
	calls []models.SignupRequest
	id    string
	err   error
}

func (f *fakePersister) Persist(_ context.Context, req models.SignupRequest) (string, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

func validAccount() Values {
	return Values{
		FieldFullName: "Ada Lovelace",
		FieldEmail:    "ada@example.com",
		FieldPassword: "analytical",
	}
}

func validProfile() Values {
	return Values{
		FieldRole:       "provider",
		FieldHeadline:   "Go developer who ships",
		FieldSkills:     "go, sql",
		FieldHourlyRate: "85",
	}
}

func fill(w *Wizard, values Values) {
	for k, v := range values {
		w.Set(k, v)
	}
}

func TestValidateStep(t *testing.T) {
	tests := []struct {
		name   string
		step   int
		values Values
		want   map[string]string
	}{
		{name: "account valid", step: 0, values: validAccount(), want: map[string]string{}},
		{
			name:   "account empty",
			step:   0,
			values: Values{},
			want: map[string]string{
				FieldFullName: "Full name is required",
				FieldEmail:    "Email is required",
				FieldPassword: "Password is required",
			},
		},
		{
			name:   "bad email and short password",
			step:   0,
			values: Values{FieldFullName: "Al", FieldEmail: "not-an-email", FieldPassword: "short"},
			want: map[string]string{
				FieldEmail:    "Enter a valid email address",
				FieldPassword: "Password must be at least 8 characters",
			},
		},
		{name: "profile valid", step: 1, values: validProfile(), want: map[string]string{}},
		{
			name:   "profile invalid",
			step:   1,
			values: Values{FieldRole: "admin", FieldHeadline: "short", FieldSkills: " , ", FieldHourlyRate: "abc"},
			want: map[string]string{
				FieldRole:       "Role must be one of: requester, provider",
				FieldHeadline:   "Headline must be at least 10 characters",
				FieldSkills:     "Skills is required",
				FieldHourlyRate: "Hourly rate must be a number",
			},
		},
		{
			name:   "rate out of range",
			step:   1,
			values: Values{FieldRole: "requester", FieldHeadline: "Need a landing page", FieldSkills: "design", FieldHourlyRate: "1500"},
			want:   map[string]string{FieldHourlyRate: "Hourly rate must be at most 1000"},
		},
		{name: "unknown step", step: 7, values: Values{}, want: map[string]string{"step": "unknown step 7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateStep(tt.step, tt.values)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, ValidateStep(tt.step, tt.values), "validation must be idempotent")
		})
	}
}

func TestNextWithEmptyEmailStays(t *testing.T) {
	w := New(DefaultConfig(), &fakePersister{})
	fill(w, validAccount())
	w.Set(FieldEmail, "")

	require.False(t, w.Next())
	require.Equal(t, 0, w.Step())
	require.Contains(t, w.Errors(), FieldEmail)

	w.Set(FieldEmail, "ada@example.com")
	require.NotContains(t, w.Errors(), FieldEmail, "Set clears the field error")
	require.True(t, w.Next())
	require.Equal(t, 1, w.Step())
}

func TestBackKeepsValues(t *testing.T) {
	w := New(DefaultConfig(), &fakePersister{})
	require.False(t, w.Back(), "back from the first step is a no-op")

	fill(w, validAccount())
	require.True(t, w.Next())
	w.Set(FieldHeadline, "partially typed")

	require.True(t, w.Back())
	require.Equal(t, 0, w.Step())
	assert.Equal(t, "Ada Lovelace", w.Value(FieldFullName))
	assert.Equal(t, "partially typed", w.Value(FieldHeadline))
}

func TestSubmitSuccess(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	cfg := DefaultConfig()
	cfg.Store = store
	persister := &fakePersister{id: "signup-1"}
	w := New(cfg, persister)

	fill(w, validAccount())
	require.True(t, w.Next())
	fill(w, validProfile())
	require.NoError(t, w.SaveDraft(ctx))

	note := w.Submit(ctx)
	require.Equal(t, NotifySuccess, note.Kind)
	require.Equal(t, "signup-1", note.ID)
	require.Equal(t, StatusDone, w.Status())
	require.Equal(t, "signup-1", w.ResultID())

	require.Len(t, persister.calls, 1)
	req := persister.calls[0]
	assert.Equal(t, "ada@example.com", req.Email)
	assert.Equal(t, []string{"go", "sql"}, req.Skills)
	require.NotNil(t, req.HourlyRate)
	assert.Equal(t, 85.0, *req.HourlyRate)

	_, err := store.Get(ctx, cfg.DraftKey)
	require.ErrorIs(t, err, kvstore.ErrKeyNotFound, "draft is cleared after submit")

	again := w.Submit(ctx)
	assert.Equal(t, NotifySuccess, again.Kind)
	assert.Len(t, persister.calls, 1)
}

func TestSubmitFailureReturnsToLastStep(t *testing.T) {
	persister := &fakePersister{err: errors.New("db down")}
	w := New(DefaultConfig(), persister)
	fill(w, validAccount())
	require.True(t, w.Next())
	fill(w, validProfile())

	note := w.Submit(context.Background())
	require.Equal(t, NotifyFailure, note.Kind)
	require.Equal(t, StatusStep, w.Status())
	require.True(t, w.SubmitFailed())
	require.Equal(t, 1, w.Step())
	require.Equal(t, "Go developer who ships", w.Value(FieldHeadline))
}

func TestSubmitWithoutPersisterFails(t *testing.T) {
	w := New(DefaultConfig(), nil)
	fill(w, validAccount())
	require.True(t, w.Next())
	fill(w, validProfile())

	var note Notification
	require.NotPanics(t, func() { note = w.Submit(context.Background()) })
	require.Equal(t, NotifyFailure, note.Kind)
	require.Equal(t, StatusStep, w.Status())
	require.True(t, w.SubmitFailed())
	require.Equal(t, 1, w.Step())
	require.Empty(t, w.ResultID())
}

func TestSubmitFromFirstStepIsRejected(t *testing.T) {
	persister := &fakePersister{id: "x"}
	w := New(DefaultConfig(), persister)
	fill(w, validAccount())

	note := w.Submit(context.Background())
	require.Equal(t, NotifyFailure, note.Kind)
	require.Equal(t, 0, w.Step())
	require.Empty(t, persister.calls)
}

func TestSubmitRevalidatesEarlierSteps(t *testing.T) {
	persister := &fakePersister{id: "x"}
	w := New(DefaultConfig(), persister)
	fill(w, validAccount())
	require.True(t, w.Next())
	fill(w, validProfile())
	w.values[FieldEmail] = "broken"

	note := w.Submit(context.Background())
	require.Equal(t, NotifyFailure, note.Kind)
	require.Equal(t, 0, w.Step())
	require.Contains(t, w.Errors(), FieldEmail)
	require.Empty(t, persister.calls)
}

func TestDraftNeverStoresPassword(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	cfg := DefaultConfig()
	cfg.Store = store

	w := New(cfg, &fakePersister{})
	fill(w, validAccount())
	require.True(t, w.Next())
	w.Set(FieldHeadline, "Draft headline here")
	require.NoError(t, w.SaveDraft(ctx))

	raw, err := store.Get(ctx, cfg.DraftKey)
	require.NoError(t, err)
	var stored draft
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.NotContains(t, stored.Values, FieldPassword)

	restored := New(cfg, &fakePersister{})
	ok, err := restored.LoadDraft(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, restored.Step())
	assert.Equal(t, "Draft headline here", restored.Value(FieldHeadline))
	assert.Empty(t, restored.Value(FieldPassword))
}

func TestLoadDraftMissing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store = kvstore.NewMemory()
	ok, err := New(cfg, &fakePersister{}).LoadDraft(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = New(DefaultConfig(), &fakePersister{}).LoadDraft(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}
