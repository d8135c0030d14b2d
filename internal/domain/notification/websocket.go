package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"buildhub/internal/middleware"
	"buildhub/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 256
)

var errSessionClosed = errors.New("session closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// the token check in JWTAuth runs before the upgrade
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler runs one engine per websocket connection.
type WSHandler struct {
	baseCtx context.Context
	store   *Service
	feed    realtime.Subscriber
	admins  AdminDirectory
	metrics Metrics
	opts    Options
	log     *zap.Logger
}

// NewWSHandler builds the session endpoint. Sessions end when baseCtx is
// cancelled or the client disconnects.
func NewWSHandler(baseCtx context.Context, store *Service, feed realtime.Subscriber, admins AdminDirectory, metrics Metrics, opts Options, log *zap.Logger) *WSHandler {
	return &WSHandler{
		baseCtx: baseCtx,
		store:   store,
		feed:    feed,
		admins:  admins,
		metrics: metrics,
		opts:    opts,
		log:     log,
	}
}

// Serve upgrades the request. Expects JWTAuth to have run.
func (h *WSHandler) Serve(c *gin.Context) {
	userID := middleware.UserID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	log := h.log.With(zap.String("user_id", userID))
	s := newSession(conn, log)

	var op *Operator
	if userID != "" {
		op = &Operator{ID: userID, Email: c.GetString(middleware.CtxEmail)}
	}
	engine := NewEngine(Deps{
		Store:    h.store,
		Feed:     h.feed,
		Admins:   h.admins,
		Operator: op,
		Output:   s,
		Metrics:  h.metrics,
		Log:      log,
	}, h.opts)

	ctx, cancel := context.WithCancel(h.baseCtx)
	defer cancel()

	go func() {
		if err := engine.Run(ctx); err != nil {
			log.Error("notification engine exited", zap.Error(err))
		}
	}()
	go s.writePump(ctx)

	log.Info("notification session opened")
	s.readPump(ctx, engine) // blocks until disconnect
	log.Info("notification session closed")
}

// session is the engine's Output for one websocket client.
type session struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	log  *zap.Logger
}

func newSession(conn *websocket.Conn, log *zap.Logger) *session {
	return &session{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		log:  log,
	}
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// enqueue never blocks; a full buffer drops the frame.
func (s *session) enqueue(msg *WSServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return errSessionClosed
	default:
	}
	select {
	case s.send <- data:
		return nil
	default:
		return errors.New("client too slow")
	}
}

func (s *session) PlaySound(cue SoundCue) error {
	return s.enqueue(NewSoundEvent(cue))
}

func (s *session) ShowToast(t Toast) {
	if err := s.enqueue(NewToastEvent(t)); err != nil {
		s.log.Debug("dropping toast", zap.Error(err))
	}
}

func (s *session) StateChanged(st State) {
	if err := s.enqueue(NewStateEvent(st)); err != nil {
		s.log.Debug("dropping state frame", zap.Error(err))
	}
}

func (s *session) readPump(ctx context.Context, engine *Engine) {
	defer s.close()

	s.conn.SetReadLimit(maxMsgSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var msg WSClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			_ = s.enqueue(NewErrorEvent("BAD_FRAME", "Frame is not valid JSON"))
			continue
		}

		if err := s.dispatch(ctx, engine, msg); err != nil {
			if errors.Is(err, ErrEngineStopped) || errors.Is(err, context.Canceled) {
				return
			}
			s.log.Warn("notification command failed", zap.String("type", msg.Type), zap.Error(err))
		}
	}
}

func (s *session) dispatch(ctx context.Context, engine *Engine, msg WSClientMessage) error {
	switch msg.Type {
	case WSPing:
		return s.enqueue(NewPongEvent())
	case WSMarkRead:
		if msg.ID == "" {
			return s.enqueue(NewErrorEvent("INVALID_ID", "id is required"))
		}
		return engine.MarkAsRead(ctx, msg.ID)
	case WSMarkAllRead:
		if err := engine.MarkAllAsRead(ctx); err != nil {
			_ = s.enqueue(NewErrorEvent("UPDATE_FAILED", "Failed to mark all as read"))
			return err
		}
		return nil
	case WSDelete:
		if msg.ID == "" {
			return s.enqueue(NewErrorEvent("INVALID_ID", "id is required"))
		}
		if err := engine.DeleteNotification(ctx, msg.ID); err != nil {
			code := "DELETE_FAILED"
			if errors.Is(err, ErrNotificationNotFound) {
				code = "NOT_FOUND"
			}
			_ = s.enqueue(NewErrorEvent(code, "Failed to delete notification"))
			return err
		}
		return nil
	case WSClear:
		return engine.ClearNotifications(ctx)
	case WSToggleSound:
		_, err := engine.ToggleSound(ctx)
		return err
	case WSTestSound:
		return engine.TestSound(ctx, msg.Cue)
	case WSTestNotification:
		n, err := engine.TriggerTestNotification(ctx)
		if err != nil {
			_ = s.enqueue(NewErrorEvent("CREATE_FAILED", "Failed to create test notification"))
			return err
		}
		return s.enqueue(NewCreatedEvent(n))
	}
	return s.enqueue(NewErrorEvent("UNKNOWN_TYPE", "Unknown frame type"))
}

func (s *session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-s.done:
			return
		}
	}
}
