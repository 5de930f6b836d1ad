package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vibealong/vibealong/internal/auth"
	"github.com/vibealong/vibealong/internal/catalog"
	"github.com/vibealong/vibealong/internal/db"
	"github.com/vibealong/vibealong/internal/events"
	"github.com/vibealong/vibealong/internal/filter"
	"github.com/vibealong/vibealong/internal/models"
	"github.com/vibealong/vibealong/internal/wizard"
)

const identityKey = "identity"

// queryFromRequest reads ?q= and ?facet.<name>= parameters.
func queryFromRequest(c *gin.Context) filter.Query {
	q := filter.Query{Text: c.Query("q"), Facets: map[string]string{}}
	for key, values := range c.Request.URL.Query() {
		name, ok := strings.CutPrefix(key, "facet.")
		if !ok || name == "" || len(values) == 0 {
			continue
		}
		q.Facets[name] = values[0]
	}
	return q
}

func (s *Server) listings(ctx context.Context, kind models.ListingKind, q filter.Query) (gin.H, error) {
	items, err := s.deps.Listings.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	facets := gin.H{}
	for _, name := range catalog.Facets(kind) {
		facets[name] = filter.Distinct(items, name)
	}
	matched := filter.Apply(items, q)
	return gin.H{
		"kind":   kind,
		"facets": facets,
		"total":  len(items),
		"items":  matched,
	}, nil
}

func (s *Server) handleListings(c *gin.Context) {
	kind, err := models.ParseListingKind(c.Param("kind"))
	if err != nil {
		abortError(c, http.StatusNotFound, err)
		return
	}
	body, err := s.listings(c.Request.Context(), kind, queryFromRequest(c))
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

type validateRequest struct {
	Step   int           `json:"step"`
	Values wizard.Values `json:"values"`
}

func (s *Server) handleValidateSignup(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	errs := wizard.ValidateStep(req.Step, req.Values)
	c.JSON(http.StatusOK, gin.H{"valid": len(errs) == 0, "errors": errs})
}

type submitRequest struct {
	Values wizard.Values `json:"values"`
}

// capturePersister remembers the persister's error so the handler can map
// it to a status code; the wizard only reports a notification.
type capturePersister struct {
	next wizard.Persister
	err  error
	req  models.SignupRequest
}

func (p *capturePersister) Persist(ctx context.Context, req models.SignupRequest) (string, error) {
	p.req = req
	id, err := p.next.Persist(ctx, req)
	p.err = err
	return id, err
}

func (s *Server) handleSubmitSignup(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	if step, errs := wizard.ValidateAll(req.Values); step >= 0 {
		signupsTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"step": step, "errors": errs})
		return
	}

	ctx := c.Request.Context()
	persister := &capturePersister{next: s.deps.Signups}
	w := wizard.New(wizard.Config{}, persister)
	for field, value := range req.Values {
		w.Set(field, value)
	}
	for w.Next() {
	}
	note := w.Submit(ctx)

	if note.Kind != wizard.NotifySuccess {
		signupsTotal.WithLabelValues("failed").Inc()
		if s.deps.Events != nil {
			if err := events.LogSignupFailed(ctx, s.deps.Events, uuid.New().String(), persister.err); err != nil {
				s.logger.Warn().Err(err).Msg("failed to record signup failure")
			}
		}
		code := http.StatusInternalServerError
		if errors.Is(persister.err, db.ErrEmailTaken) {
			code = http.StatusConflict
		}
		c.JSON(code, note)
		return
	}

	signupsTotal.WithLabelValues("created").Inc()
	if s.deps.Events != nil {
		if err := events.LogSignupSubmitted(ctx, s.deps.Events, note.ID, persister.req.Role); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record signup")
		}
	}
	c.JSON(http.StatusCreated, note)
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.Verifier == nil {
			abortError(c, http.StatusUnauthorized, auth.ErrUnauthenticated)
			return
		}
		identity, err := s.deps.Verifier.VerifyHeader(c.GetHeader("Authorization"))
		if err != nil {
			code := http.StatusUnauthorized
			if errors.Is(err, auth.ErrInvalidRole) {
				code = http.StatusForbidden
			}
			abortError(c, code, err)
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func identityFrom(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(auth.Identity); ok {
			return identity
		}
	}
	return auth.Anonymous
}

func (s *Server) handleDashboard(c *gin.Context) {
	identity := identityFrom(c)
	kind := auth.DashboardKind(identity.Role)
	body, err := s.listings(c.Request.Context(), kind, queryFromRequest(c))
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	body["identity"] = identity
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleDashboardEvents(c *gin.Context) {
	if s.deps.Events == nil {
		abortError(c, http.StatusNotFound, errors.New("event log is disabled"))
		return
	}

	q := db.EventQuery{Cursor: c.Query("cursor")}
	if v := c.Query("type"); v != "" {
		t := models.EventType(v)
		q.Type = &t
	}
	if v := c.Query("entity_type"); v != "" {
		t := models.EntityType(v)
		q.EntityType = &t
	}
	if v := c.Query("entity_id"); v != "" {
		q.EntityID = &v
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			abortError(c, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		q.Limit = limit
	}

	page, err := s.deps.Events.Query(c.Request.Context(), q)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
