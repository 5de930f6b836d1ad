package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vibealong/vibealong/internal/models"
	"github.com/vibealong/vibealong/internal/playback"
	"github.com/vibealong/vibealong/internal/scripts"
	"github.com/vibealong/vibealong/internal/sequencer"
)

type scriptSummary struct {
	Name        string          `json:"name"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Messages    int             `json:"messages"`
	Senders     []models.Sender `json:"senders"`
	Source      string          `json:"source"`
}

func summarize(s *scripts.Script) scriptSummary {
	return scriptSummary{
		Name:        s.Name,
		Title:       s.Title,
		Description: s.Description,
		Tags:        s.Tags,
		Messages:    len(s.Messages),
		Senders:     s.Senders(),
		Source:      s.Source,
	}
}

func (s *Server) handleListScripts(c *gin.Context) {
	items := scripts.FilterByTags(s.deps.Playback.Scripts(), c.QueryArray("tag"))
	out := make([]scriptSummary, 0, len(items))
	for _, item := range items {
		out = append(out, summarize(item))
	}
	c.JSON(http.StatusOK, gin.H{"scripts": out})
}

func (s *Server) handleGetScript(c *gin.Context) {
	script := scripts.Find(s.deps.Playback.Scripts(), c.Param("name"))
	if script == nil {
		abortError(c, http.StatusNotFound, playback.ErrScenarioNotFound)
		return
	}
	messages, err := scripts.Render(script, nil)
	if err != nil {
		abortError(c, http.StatusUnprocessableEntity, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"script": summarize(script), "messages": messages})
}

type scenarioRequest struct {
	Scenario string `json:"scenario" binding:"required"`
}

func (s *Server) handleListSessions(c *gin.Context) {
	sessions := s.deps.Playback.List()
	out := make([]playback.View, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, session.View())
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (s *Server) handleStartSession(c *gin.Context) {
	var req scenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	session, err := s.deps.Playback.Start(c.Request.Context(), req.Scenario)
	if err != nil {
		s.playbackError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session.View())
}

func (s *Server) handleGetSession(c *gin.Context) {
	session, err := s.deps.Playback.Get(c.Param("id"))
	if err != nil {
		s.playbackError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

func (s *Server) handleAdvance(c *gin.Context) {
	id := c.Param("id")
	accepted, err := s.deps.Playback.Advance(c.Request.Context(), id)
	if err != nil {
		s.playbackError(c, err)
		return
	}
	session, err := s.deps.Playback.Get(id)
	if err != nil {
		s.playbackError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": accepted, "session": session.View()})
}

func (s *Server) handleReset(c *gin.Context) {
	id := c.Param("id")
	if err := s.deps.Playback.Reset(c.Request.Context(), id); err != nil {
		s.playbackError(c, err)
		return
	}
	s.respondSession(c, id)
}

func (s *Server) handleSwitch(c *gin.Context) {
	var req scenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	id := c.Param("id")
	if err := s.deps.Playback.Switch(c.Request.Context(), id, req.Scenario); err != nil {
		s.playbackError(c, err)
		return
	}
	s.respondSession(c, id)
}

func (s *Server) handleCloseSession(c *gin.Context) {
	if err := s.deps.Playback.Close(c.Param("id")); err != nil {
		s.playbackError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) respondSession(c *gin.Context, id string) {
	session, err := s.deps.Playback.Get(id)
	if err != nil {
		s.playbackError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

func (s *Server) playbackError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, playback.ErrSessionNotFound), errors.Is(err, playback.ErrScenarioNotFound):
		abortError(c, http.StatusNotFound, err)
	case errors.Is(err, playback.ErrTooManySessions):
		abortError(c, http.StatusServiceUnavailable, err)
	case errors.Is(err, sequencer.ErrAlreadyRunning):
		abortError(c, http.StatusConflict, err)
	default:
		s.logger.Error().Err(err).Msg("playback request failed")
		abortError(c, http.StatusInternalServerError, err)
	}
}
