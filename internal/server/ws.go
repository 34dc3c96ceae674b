package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hetulpatel/crossarb/internal/logging"
	"github.com/hetulpatel/crossarb/internal/progress"
	"github.com/hetulpatel/crossarb/internal/service"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// command is a client request on /ws/status. Absent fields keep the server
// defaults.
type command struct {
	Type           string   `json:"type"`
	Limit          *int     `json:"limit"`
	Category       *string  `json:"category"`
	EventMinScore  *float64 `json:"event_min_score"`
	MarketMinScore *float64 `json:"market_min_score"`
	MinProfit      *float64 `json:"min_profit"`
	MaxDays        *int     `json:"max_days"`
	RefreshCache   *bool    `json:"refresh_cache"`
	UseEmbeddings  *bool    `json:"use_embeddings"`
}

func (c command) request(defaults service.Request) service.Request {
	req := defaults
	if c.Limit != nil && *c.Limit > 0 {
		req.Limit = *c.Limit
	}
	if c.Category != nil {
		req.Category = *c.Category
	}
	if c.EventMinScore != nil {
		req.EventMinScore = *c.EventMinScore
	}
	if c.MarketMinScore != nil {
		req.MarketMinScore = *c.MarketMinScore
	}
	if c.MinProfit != nil {
		req.MinProfit = *c.MinProfit
	}
	if c.MaxDays != nil {
		req.MaxDays = c.MaxDays
	}
	if c.RefreshCache != nil {
		req.RefreshCache = *c.RefreshCache
	}
	if c.UseEmbeddings != nil {
		req.UseEmbeddings = *c.UseEmbeddings
	}
	return req
}

// GET /ws/status
//
// Client sends {"type": "arb"|"compare", ...options}; the server streams
// {"type": "progress", "msg": ...} frames, then one "done" frame carrying the
// result or one "error" frame. Commands on one connection run one at a time.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Errorf("[server] ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	send := func(m progress.Message) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(m)
	}

	// Runs outlive the connection: a client that leaves mid-run stops
	// receiving frames but the scan still completes and fills the cache.
	runCtx := context.WithoutCancel(r.Context())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warnf("[server] ws read error: %v", err)
			}
			return
		}
		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			if send(progress.Message{Type: progress.TypeError, Msg: fmt.Sprintf("invalid command: %v", err)}) != nil {
				return
			}
			continue
		}

		fn, ok := s.job(cmd)
		if !ok {
			if send(progress.Message{Type: progress.TypeError, Msg: fmt.Sprintf("unknown WS command: %s", cmd.Type)}) != nil {
				return
			}
			continue
		}
		runID := uuid.NewString()
		logging.Infof("[server] run %s: %s", runID, cmd.Type)
		if err := progress.Stream(runCtx, runID, progress.DefaultBuffer, fn, send); err != nil {
			logging.Warnf("[server] run %s: client disconnected: %v", runID, err)
			return
		}
	}
}

func (s *Server) job(cmd command) (progress.Func, bool) {
	req := cmd.request(s.cfg.Defaults)
	switch cmd.Type {
	case "arb":
		return func(ctx context.Context, report func(string)) (any, error) {
			return s.runner.Arb(ctx, req, report)
		}, true
	case "compare":
		return func(ctx context.Context, report func(string)) (any, error) {
			return s.runner.Compare(ctx, req, report)
		}, true
	default:
		return nil, false
	}
}
