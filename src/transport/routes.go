package transport

import (
	"strings"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/pulsegrid/realtime/config"
	"github.com/pulsegrid/realtime/src/realtime"
)

// controlFrame is the inbound client message shape: clients may manage
// their own topic subscriptions over the socket.
type controlFrame struct {
	Type   string `json:"type"`
	Target string `json:"target"`
}

// Handler serves the WebSocket endpoint and the info routes for one
// realtime service.
type Handler struct {
	svc      *realtime.Service
	cfg      *config.Config
	upgrader websocket.FastHTTPUpgrader
	logger   zerolog.Logger
}

// NewHandler creates a Handler dispatching into svc, with buffer sizes
// and keep-alive intervals taken from cfg.
func NewHandler(svc *realtime.Service, cfg *config.Config, logger zerolog.Logger) *Handler {
	return &Handler{
		svc: svc,
		cfg: cfg,
		upgrader: websocket.FastHTTPUpgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
		},
		logger: logger,
	}
}

// RegisterRoutes registers the info routes via Fiber. The actual
// WebSocket upgrade uses FastHTTPHandler, registered at the app level
// since Fiber v3 does not expose *fasthttp.RequestCtx.
func (h *Handler) RegisterRoutes(group fiber.Router) {
	group.Get("/ws/info", h.handleInfo)
}

func (h *Handler) handleInfo(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"websocket":   true,
		"endpoint":    "/ws",
		"connections": h.svc.ConnectionCount(),
		"topics":      len(h.svc.Topics()),
	})
}

// FastHTTPHandler returns a raw fasthttp handler for WebSocket upgrades.
// Register this on the fasthttp server at the "/ws" path. Authentication
// uses the "token" query parameter; an unauthorized request is refused
// before the session is registered.
func (h *Handler) FastHTTPHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		upgrade := string(ctx.Request.Header.Peek("Upgrade"))
		if !strings.EqualFold(upgrade, "websocket") {
			ctx.SetStatusCode(fasthttp.StatusUpgradeRequired)
			ctx.SetBodyString(`{"error":"upgrade_required","message":"WebSocket upgrade required"}`)
			return
		}

		query := map[string]string{
			"token": string(ctx.QueryArgs().Peek("token")),
		}

		err := h.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
			h.serve(&wsConn{conn}, query)
		})
		if err != nil {
			h.logger.Error().Err(err).Msg("websocket upgrade failed")
		}
	}
}

// serve runs one connection: authenticate, pump writes, then read
// control frames until the socket drops.
func (h *Handler) serve(conn Conn, query map[string]string) {
	t := NewWSTransport(conn).WithDeadlines(
		time.Duration(h.cfg.PingInterval)*time.Second,
		time.Duration(h.cfg.WriteTimeout)*time.Second,
	)
	connID, err := h.svc.Connect(t, query)
	if err != nil {
		conn.Close()
		return
	}
	t.Bind(connID)

	go t.WritePump()
	h.readLoop(connID, conn)
	h.svc.Disconnect(connID)
}

// readLoop handles inbound control frames. Anything other than
// subscribe/unsubscribe is ignored.
func (h *Handler) readLoop(connID string, conn Conn) {
	for {
		var frame controlFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		switch frame.Type {
		case "subscribe":
			if err := h.svc.Subscribe(connID, frame.Target); err != nil {
				h.logger.Debug().Err(err).Str("connection_id", connID).Msg("subscribe refused")
			}
		case "unsubscribe":
			h.svc.Unsubscribe(connID, frame.Target)
		default:
			h.logger.Debug().
				Str("connection_id", connID).
				Str("type", frame.Type).
				Msg("unknown control frame")
		}
	}
}

// wsConn wraps fasthttp/websocket.Conn to satisfy Conn.
type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) WriteJSON(v any) error { return w.conn.WriteJSON(v) }
func (w *wsConn) ReadJSON(v any) error  { return w.conn.ReadJSON(v) }
func (w *wsConn) Close() error          { return w.conn.Close() }

func (w *wsConn) SetWriteDeadline(t time.Time) error { return w.conn.SetWriteDeadline(t) }

func (w *wsConn) Ping(deadline time.Time) error {
	return w.conn.WriteControl(websocket.PingMessage, nil, deadline)
}
