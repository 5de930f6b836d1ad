package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vibealong/vibealong/internal/playback"
	"github.com/vibealong/vibealong/internal/sequencer"
)

const (
	writeWait      = 10 * time.Second
	commandTimeout = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// streamCommand is a client message on the session stream.
type streamCommand struct {
	Type     string `json:"type"` // advance | reset | restart | switch
	Scenario string `json:"scenario,omitempty"`
}

// streamReply acknowledges a command.
type streamReply struct {
	Type     string `json:"type"`
	Command  string `json:"command"`
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) upgrader() websocket.Upgrader {
	allowed := make(map[string]struct{}, len(s.opts.CORSOrigins))
	for _, origin := range s.opts.CORSOrigins {
		allowed[origin] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowed) == 0 {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// handleStream sends the session view on every state change and accepts
// playback commands from the client.
func (s *Server) handleStream(c *gin.Context) {
	id := c.Param("id")
	session, err := s.deps.Playback.Get(id)
	if err != nil {
		s.playbackError(c, err)
		return
	}
	updates, cancel, err := s.deps.Playback.Subscribe(id)
	if err != nil {
		s.playbackError(c, err)
		return
	}

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cancel()
		s.logger.Warn().Err(err).Str("session_id", id).Msg("websocket upgrade failed")
		return
	}
	streamsActive.Inc()
	s.logger.Debug().Str("session_id", id).Msg("stream opened")

	replies := make(chan streamReply, 8)
	done := make(chan struct{})
	stop := make(chan struct{})
	go s.readPump(conn, id, replies, done, stop)
	s.writePump(conn, session.View, updates, replies, done)

	close(stop)
	cancel()
	_ = conn.Close()
	streamsActive.Dec()
	s.logger.Debug().Str("session_id", id).Msg("stream closed")
}

func (s *Server) readPump(conn *websocket.Conn, id string, replies chan<- streamReply, done chan<- struct{}, stop <-chan struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Str("session_id", id).Msg("stream read failed")
			}
			return
		}

		var reply streamReply
		var cmd streamCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			reply = streamReply{Type: "ack", Error: "malformed command"}
		} else {
			reply = s.runCommand(id, cmd)
		}
		select {
		case replies <- reply:
		case <-stop:
			return
		}
	}
}

func (s *Server) runCommand(id string, cmd streamCommand) streamReply {
	reply := streamReply{Type: "ack", Command: cmd.Type}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch cmd.Type {
	case "advance":
		reply.Accepted, err = s.deps.Playback.Advance(ctx, id)
	case "reset":
		err = s.deps.Playback.Reset(ctx, id)
		reply.Accepted = err == nil
	case "restart":
		err = s.deps.Playback.Restart(ctx, id)
		reply.Accepted = err == nil
	case "switch":
		err = s.deps.Playback.Switch(ctx, id, cmd.Scenario)
		reply.Accepted = err == nil
	default:
		reply.Error = "unknown command"
		return reply
	}
	if err != nil {
		reply.Error = err.Error()
	}
	return reply
}

func (s *Server) writePump(conn *websocket.Conn, view func() playback.View, updates <-chan sequencer.State, replies <-chan streamReply, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v) == nil
	}

	if !write(gin.H{"type": "state", "session": view()}) {
		return
	}
	for {
		select {
		case <-done:
			return
		case _, ok := <-updates:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if !write(gin.H{"type": "state", "session": view()}) {
				return
			}
		case reply := <-replies:
			if !write(reply) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
