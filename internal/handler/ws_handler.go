package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/classware/cbt-backend/internal/middleware"
	"github.com/classware/cbt-backend/internal/service"
	"github.com/classware/cbt-backend/internal/session"
	ws "github.com/classware/cbt-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// wsConn serializes writes: the reader loop and the timer pusher share one
// gorilla connection, which is not safe for concurrent writers.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) send(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ws.WriteTyped(w.conn, v)
}

func (w *wsConn) sendError(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = ws.WriteError(w.conn, msg)
}

// WSHandler drives a live exam session over WebSocket.
type WSHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ExamWebSocketStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Upgrades to WebSocket and binds the connection to the student's live
// session: answers, navigation, flags and the submit path flow through
// here, while the server pushes the countdown and a forced-submit notice
// when time expires.
func (h *WSHandler) ExamWebSocketStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer raw.Close()

	conn := &wsConn{conn: raw}
	studentID := claims.UserID

	sess, err := h.sessionService.GetSession(studentID, examID)
	if err != nil {
		conn.sendError("no active session for this exam")
		return
	}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	// submittedSent keeps the confirm reply and the forced-submit push from
	// both announcing the terminal state.
	var submittedSent atomic.Bool

	pusherCtx, stopPusher := context.WithCancel(context.Background())
	defer stopPusher()
	go h.pushTimer(pusherCtx, conn, sess, &submittedSent, wsLog)

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(raw, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, sess, &msg)
		case ws.ActionFlag:
			h.handleFlag(conn, sess, &msg)
		case ws.ActionNavigate:
			h.handleNavigate(conn, sess, &msg)
		case ws.ActionJump:
			conn.send(ws.CursorResponse{Event: ws.EventCursor, Cursor: sess.JumpTo(msg.Index)})
		case ws.ActionSubmit:
			summary := sess.RequestSubmit()
			conn.send(ws.SummaryResponse{
				Event:      ws.EventSummary,
				Unanswered: summary.Unanswered,
				Flagged:    summary.Flagged,
			})
		case ws.ActionConfirm:
			h.handleConfirm(c.Request.Context(), conn, sess, &submittedSent, wsLog)
		case ws.ActionRetry:
			h.handleRetry(c.Request.Context(), conn, sess)
		case ws.ActionPing:
			conn.send(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.sendError("unknown action: " + string(msg.Action))
		}
	}
}

// pushTimer streams the countdown once a second and announces the forced
// submit if the clock fires while the student is connected.
func (h *WSHandler) pushTimer(ctx context.Context, conn *wsConn, sess *session.Session, submittedSent *atomic.Bool, wsLog zerolog.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state := sess.State()
			if err := conn.send(ws.TimerResponse{
				Event:     ws.EventTimer,
				Remaining: sess.Remaining(),
				State:     state,
			}); err != nil {
				return
			}

			if state == session.StateFinished {
				if submittedSent.CompareAndSwap(false, true) {
					wsLog.Info().Bool("forced", sess.Forced()).Msg("Pushing submit notice")
					conn.send(ws.SubmittedResponse{
						Event:     ws.EventSubmitted,
						Score:     sess.Score(),
						Forced:    sess.Forced(),
						Persisted: sess.SubmitError() == nil,
					})
				}
				return
			}
		}
	}
}

func (h *WSHandler) handleAnswer(conn *wsConn, sess *session.Session, msg *ws.RequestPayload) {
	qid, err := uuid.Parse(msg.QID)
	if err != nil {
		conn.sendError("invalid q_id format")
		return
	}
	if err := sess.SelectAnswer(qid, msg.Value); err != nil {
		conn.sendError("session is not active")
		return
	}
	h.sessionService.AutosaveAnswers(context.Background(), sess)
	conn.send(ws.SavedResponse{Event: ws.EventSaved, QID: msg.QID})
}

func (h *WSHandler) handleFlag(conn *wsConn, sess *session.Session, msg *ws.RequestPayload) {
	qid, err := uuid.Parse(msg.QID)
	if err != nil {
		conn.sendError("invalid q_id format")
		return
	}
	flagged := sess.ToggleReview(qid)
	conn.send(ws.FlaggedResponse{Event: ws.EventFlagged, QID: msg.QID, Flagged: flagged})
}

func (h *WSHandler) handleNavigate(conn *wsConn, sess *session.Session, msg *ws.RequestPayload) {
	var d session.Direction
	switch msg.Direction {
	case "prev":
		d = session.Prev
	case "next":
		d = session.Next
	default:
		conn.sendError("direction must be prev or next")
		return
	}
	conn.send(ws.CursorResponse{Event: ws.EventCursor, Cursor: sess.Navigate(d)})
}

// handleConfirm finalizes the submission. A confirm that races the clock's
// forced submit is a no-op; the reply always reflects the session's actual
// terminal state.
func (h *WSHandler) handleConfirm(ctx context.Context, conn *wsConn, sess *session.Session, submittedSent *atomic.Bool, wsLog zerolog.Logger) {
	if err := sess.ConfirmSubmit(ctx); err != nil {
		wsLog.Error().Err(err).Msg("Submission persistence failed")
	}

	if sess.State() != session.StateFinished {
		conn.sendError("session is not active")
		return
	}

	if submittedSent.CompareAndSwap(false, true) {
		conn.send(ws.SubmittedResponse{
			Event:     ws.EventSubmitted,
			Score:     sess.Score(),
			Forced:    sess.Forced(),
			Persisted: sess.SubmitError() == nil,
		})
	}
}

func (h *WSHandler) handleRetry(ctx context.Context, conn *wsConn, sess *session.Session) {
	err := sess.RetrySubmit(ctx)
	if errors.Is(err, session.ErrNothingToRetry) {
		conn.sendError("no failed submission to retry")
		return
	}
	conn.send(ws.SubmittedResponse{
		Event:     ws.EventSubmitted,
		Score:     sess.Score(),
		Forced:    sess.Forced(),
		Persisted: err == nil,
	})
}
