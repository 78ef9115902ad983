package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dex-swaps-lab/internal/ingestion"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
)

// Stream message types.
const (
	MessageProgress = "progress"
	MessageResult   = "result"
	MessageError    = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ProgressMessage reports one finished source.
type ProgressMessage struct {
	Type      string `json:"type"`
	Source    string `json:"source"`
	Rows      int    `json:"rows"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// ResultMessage carries the final table.
type ResultMessage struct {
	Type string `json:"type"`
	SwapsResponse
}

// ErrorMessage ends a stream that produced no table.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handleStream upgrades to a WebSocket, sends one progress message per
// completed source, then one result message, then closes.
func (s *Server) handleStream(c *gin.Context) {
	wallets, err := parseWallets(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := func(v interface{}) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v)
	}

	// The progress callback is never invoked concurrently, so writes are serialized.
	var writeErr error
	progress := func(o ingestion.SourceOutcome) {
		if writeErr != nil {
			return
		}
		msg := ProgressMessage{
			Type:      MessageProgress,
			Source:    string(o.Source),
			Rows:      o.Rows,
			ElapsedMS: o.Elapsed.Milliseconds(),
		}
		if o.Err != nil {
			msg.Error = o.Err.Error()
		}
		writeErr = send(msg)
	}

	ctx := c.Request.Context()
	table, err := s.service.GetSwapsWithProgress(ctx, wallets, progress)
	if err != nil {
		_ = send(ErrorMessage{Type: MessageError, Error: err.Error()})
		closeNormal(conn)
		return
	}
	if writeErr != nil {
		s.logger.Warn("websocket client went away", zap.Error(writeErr))
		return
	}

	if err := send(ResultMessage{Type: MessageResult, SwapsResponse: s.respond(ctx, table)}); err != nil {
		s.logger.Warn("failed to send result", zap.Error(err))
		return
	}
	closeNormal(conn)
}

func closeNormal(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
