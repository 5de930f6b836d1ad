package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vibealong/vibealong/internal/models"
)

// Signup repository errors.
var (
	ErrSignupNotFound     = errors.New("signup not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// SignupRepository stores completed signups. It satisfies the wizard's
// persistence collaborator.
type SignupRepository struct {
	db   *DB
	cost int
	now  func() time.Time
}

// NewSignupRepository creates a new SignupRepository.
func NewSignupRepository(db *DB) *SignupRepository {
	return &SignupRepository{db: db, cost: bcrypt.DefaultCost, now: time.Now}
}

// Persist hashes the password, stores the signup and returns its ID.
func (r *SignupRepository) Persist(ctx context.Context, req models.SignupRequest) (string, error) {
	signup, err := r.Create(ctx, req)
	if err != nil {
		return "", err
	}
	return signup.ID, nil
}

// Create hashes the password and inserts the signup.
func (r *SignupRepository) Create(ctx context.Context, req models.SignupRequest) (*models.Signup, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), r.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	skills := req.Skills
	if skills == nil {
		skills = []string{}
	}
	skillsJSON, err := json.Marshal(skills)
	if err != nil {
		return nil, fmt.Errorf("marshal skills: %w", err)
	}

	signup := &models.Signup{
		ID:           uuid.New().String(),
		FullName:     req.FullName,
		Email:        email,
		Role:         req.Role,
		Headline:     req.Headline,
		Skills:       skills,
		HourlyRate:   req.HourlyRate,
		PasswordHash: hash,
		CreatedAt:    r.now().UTC(),
	}

	var rate sql.NullFloat64
	if req.HourlyRate != nil {
		rate = sql.NullFloat64{Float64: *req.HourlyRate, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO signups (
			id, full_name, email, role, headline, skills_json, hourly_rate, password_hash, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		signup.ID,
		signup.FullName,
		signup.Email,
		string(signup.Role),
		signup.Headline,
		string(skillsJSON),
		rate,
		signup.PasswordHash,
		formatTime(signup.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to insert signup: %w", err)
	}
	return signup, nil
}

const signupColumns = `id, full_name, email, role, headline, skills_json, hourly_rate, password_hash, created_at`

// Get retrieves a signup by ID.
func (r *SignupRepository) Get(ctx context.Context, id string) (*models.Signup, error) {
	return r.scan(r.db.QueryRowContext(ctx, `SELECT `+signupColumns+` FROM signups WHERE id = ?`, id))
}

// GetByEmail retrieves a signup by email, ignoring case.
func (r *SignupRepository) GetByEmail(ctx context.Context, email string) (*models.Signup, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scan(r.db.QueryRowContext(ctx, `SELECT `+signupColumns+` FROM signups WHERE email = ?`, email))
}

// Authenticate checks a password against the stored hash.
func (r *SignupRepository) Authenticate(ctx context.Context, email, password string) (*models.Signup, error) {
	signup, err := r.GetByEmail(ctx, email)
	if errors.Is(err, ErrSignupNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(signup.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return signup, nil
}

// List returns signups newest first.
func (r *SignupRepository) List(ctx context.Context, limit int) ([]*models.Signup, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+signupColumns+` FROM signups ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signups: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Signup, 0)
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountByRole returns signup totals per role.
func (r *SignupRepository) CountByRole(ctx context.Context) (map[models.Role]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role, COUNT(*) FROM signups GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("failed to count signups: %w", err)
	}
	defer rows.Close()

	out := make(map[models.Role]int)
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("failed to scan signup count: %w", err)
		}
		out[models.Role(role)] = n
	}
	return out, rows.Err()
}

func (r *SignupRepository) scan(row rowScanner) (*models.Signup, error) {
	var s models.Signup
	var role, skillsJSON, createdAt string
	var rate sql.NullFloat64

	err := row.Scan(&s.ID, &s.FullName, &s.Email, &role, &s.Headline, &skillsJSON, &rate, &s.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSignupNotFound
		}
		return nil, fmt.Errorf("failed to scan signup: %w", err)
	}

	s.Role = models.Role(role)
	s.CreatedAt = parseTime(createdAt)
	if rate.Valid {
		v := rate.Float64
		s.HourlyRate = &v
	}
	if err := json.Unmarshal([]byte(skillsJSON), &s.Skills); err != nil {
		r.db.logger.Warn().Err(err).Str("signup_id", s.ID).Msg("failed to parse signup skills")
	}
	return &s, nil
}
