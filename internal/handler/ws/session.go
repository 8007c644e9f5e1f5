package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"StockDash/internal/domain"
	"StockDash/internal/handler/api"
	smetrics "StockDash/internal/service/metrics"
	"StockDash/internal/usecase"
	xlogger "StockDash/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait   = 10 * time.Second
	readLimit   = 4 << 10
	outboxDepth = 64
)

type inbound struct {
	Input string          `json:"input"`
	Value json.RawMessage `json:"value"`
}

type outbound struct {
	Output string      `json:"output"`
	Seq    uint64      `json:"seq"`
	Data   interface{} `json:"data,omitempty"`
	Error  *wireError  `json:"error,omitempty"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionHandler bridges one WebSocket connection to one dashboard session.
type SessionHandler struct {
	logger       *xlogger.Logger
	source       usecase.SeriesSource
	defaults     func() usecase.SessionDefaults
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

// NewSessionHandler builds the handler. defaults is called once per connection.
func NewSessionHandler(logger *xlogger.Logger, source usecase.SeriesSource, defaults func() usecase.SessionDefaults, pingInterval time.Duration) *SessionHandler {
	smetrics.Register()
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &SessionHandler{
		logger:   logger,
		source:   source,
		defaults: defaults,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingInterval: pingInterval,
	}
}

func (h *SessionHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Serve upgrades the request and runs the session until the client goes away.
func (h *SessionHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	smetrics.SessionsActive.Inc()
	defer smetrics.SessionsActive.Dec()

	outbox := make(chan usecase.Output, outboxDepth)
	emit := func(o usecase.Output) {
		select {
		case outbox <- o:
		default:
			// client is not keeping up
			h.logger.Warn("websocket outbox full, closing session", xlogger.String("remote", c.RealIP()))
			cancel()
		}
	}

	session := usecase.NewSession(h.source, h.defaults(), emit, h.logger)
	session.OnSupersede(smetrics.SessionSuperseded.Inc)
	defer session.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(ctx, conn, outbox)
		cancel()
		// unblocks readLoop
		_ = conn.Close()
	}()

	session.Start(ctx)
	h.readLoop(ctx, conn, session)
	cancel()
	<-done
	return nil
}

func (h *SessionHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *usecase.Session) {
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})

	for ctx.Err() == nil {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read", xlogger.Error(err))
			}
			return
		}
		smetrics.SessionInputs.WithLabelValues(inputLabel(msg.Input)).Inc()
		// rejected inputs are already reported to the client as an error output
		_ = session.Handle(ctx, msg.Input, msg.Value)
	}
}

func (h *SessionHandler) writeLoop(ctx context.Context, conn *websocket.Conn, outbox <-chan usecase.Output) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case o := <-outbox:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(toWire(o)); err != nil {
				h.logger.Debug("websocket write", xlogger.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func toWire(o usecase.Output) outbound {
	msg := outbound{Output: o.Name, Seq: o.Seq, Data: o.Data}
	if o.Err != nil {
		msg.Output = usecase.OutputError
		msg.Data = nil
		msg.Error = &wireError{Code: domain.Code(o.Err), Message: api.ToAppError(o.Err).Message}
	}
	return msg
}

func inputLabel(name string) string {
	switch name {
	case usecase.InputSecurity, usecase.InputDateRange, usecase.InputTrendToggle:
		return name
	default:
		return "unknown"
	}
}
