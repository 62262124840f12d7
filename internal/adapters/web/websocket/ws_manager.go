package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/imedaveo16/imed-dz/internal/adapters/web/middleware"
	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
	"github.com/imedaveo16/imed-dz/internal/core/services/session"
)

var (
	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "imed",
		Subsystem: "ws",
		Name:      "connections_active",
		Help:      "The number of open WebSocket connections.",
	})
	wsInbound = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imed",
		Subsystem: "ws",
		Name:      "inbound_messages_total",
		Help:      "The total number of inbound WebSocket messages by type.",
	}, []string{"type"})
)

// Inbound message types.
const (
	MsgHello         = "hello"
	MsgLocate        = "locate"
	MsgManualRequest = "manual_request"
	MsgMapTap        = "map_tap"
	MsgUseDefault    = "use_default"
	MsgPositionFix   = "position_fix"
	MsgPositionError = "position_error"
)

// Outbound message types. Position requests and map effects are pushed by
// the bridge through the same connection and keep their own type names.
const (
	MsgState           = "state"
	MsgLocationSelect  = "location_select"
	MsgAddress         = "address"
	MsgAlert           = "alert"
	MsgDegradedWarning = "degraded_warning"
	MsgReportCreated   = "report_created"
	MsgReportUpdated   = "report_updated"
)

const (
	writeTimeout    = 5 * time.Second
	maxInboundBytes = 32 << 10
)

// WSMessage is the envelope for every outbound frame.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type helloPayload struct {
	SessionID string `json:"session_id"`
}

type tapPayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type fixPayload struct {
	AttemptID string  `json:"attempt_id"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy"`
}

type errorPayload struct {
	AttemptID string `json:"attempt_id"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
}

type selectionPayload struct {
	Lat    float64       `json:"lat"`
	Lng    float64       `json:"lng"`
	Source domain.Source `json:"source"`
}

type addressPayload struct {
	Address string `json:"address"`
}

type noticePayload struct {
	Message string `json:"message"`
}

// SessionGateway is the slice of the session manager the WebSocket layer
// drives. *session.Manager satisfies it.
type SessionGateway interface {
	Info(id string) (domain.SessionInfo, error)
	Locate(id string) error
	RequestManual(id string) error
	Tap(id string, coord domain.Coordinate) error
	UseDefault(id string) error
	DrainNotices(id string) []domain.Notice
	Touch(id string)
}

// client is one WebSocket connection. Citizen connections bind to a form
// session on hello; connections carrying a valid operator token also
// receive the report feed.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex

	sessionID string
	user      *domain.User
}

// write marshals and sends one frame. Safe for concurrent use; the bridge
// uses it as the session's send func.
func (c *client) write(msgType string, payload interface{}) error {
	data, err := json.Marshal(WSMessage{Type: msgType, Payload: payload})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSManager upgrades connections, routes inbound commands to the session
// manager and the positioning bridge, and pushes session events back out.
type WSManager struct {
	sessions SessionGateway
	bridge   ports.ClientBridge
	auth     ports.AuthService
	upgrader websocket.Upgrader

	mu        sync.Mutex
	clients   map[*client]struct{}
	bySession map[string]*client
}

// NewWSManager creates a manager. allowedOrigins lists the Origin values
// accepted on upgrade; same-origin requests (no Origin header) always pass.
// auth may be nil when no operator feed is wanted.
func NewWSManager(sessions SessionGateway, bridge ports.ClientBridge, auth ports.AuthService, allowedOrigins []string) *WSManager {
	return &WSManager{
		sessions: sessions,
		bridge:   bridge,
		auth:     auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				log.Printf("[WS] Rejected origin: %s", origin)
				return false
			},
		},
		clients:   make(map[*client]struct{}),
		bySession: make(map[string]*client),
	}
}

// HandleWebSocket upgrades the request. The endpoint is public; citizen
// clients identify their session with a hello message after connecting.
func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user := m.operatorFor(r)

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, user: user}

	m.mu.Lock()
	m.clients[c] = struct{}{}
	total := len(m.clients)
	m.mu.Unlock()
	wsConnections.Set(float64(total))

	if user != nil {
		log.Printf("[WS] Operator connected: user=%s role=%s", user.Username, user.Role)
	}

	go m.readLoop(c)
}

// operatorFor resolves the authenticated user of an upgrade request, if
// any. Citizens connect without a token.
func (m *WSManager) operatorFor(r *http.Request) *domain.User {
	if m.auth == nil {
		return nil
	}
	cookie, err := r.Cookie(middleware.AuthCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	user, err := m.auth.ValidateToken(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return user
}

func (m *WSManager) readLoop(c *client) {
	defer c.conn.Close()
	defer m.removeClient(c)

	c.conn.SetReadLimit(maxInboundBytes)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		m.dispatch(c, data)
	}
}

func (m *WSManager) removeClient(c *client) {
	m.mu.Lock()
	delete(m.clients, c)
	// Only the session's current client unbinds the bridge; a reloaded
	// page may already have taken over with a fresh connection.
	wasCurrent := c.sessionID != "" && m.bySession[c.sessionID] == c
	if wasCurrent {
		delete(m.bySession, c.sessionID)
	}
	total := len(m.clients)
	m.mu.Unlock()

	wsConnections.Set(float64(total))
	if wasCurrent {
		m.bridge.Detach(c.sessionID)
		log.Printf("[WS] Session client disconnected: %s", c.sessionID)
	}
}

func (m *WSManager) dispatch(c *client, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("[WS] Malformed message: %v", err)
		return
	}
	wsInbound.WithLabelValues(msg.Type).Inc()

	if msg.Type == MsgHello {
		m.handleHello(c, msg.Payload)
		return
	}

	sid := c.sessionID
	if sid == "" {
		log.Printf("[WS] %s before hello, dropping", msg.Type)
		return
	}
	m.sessions.Touch(sid)

	switch msg.Type {
	case MsgLocate:
		if err := m.sessions.Locate(sid); err != nil {
			log.Printf("[WS] Locate failed for %s: %v", sid, err)
		}

	case MsgManualRequest:
		if err := m.sessions.RequestManual(sid); err != nil {
			log.Printf("[WS] Manual request failed for %s: %v", sid, err)
		}

	case MsgMapTap:
		var tap tapPayload
		if err := json.Unmarshal(msg.Payload, &tap); err != nil {
			log.Printf("[WS] Malformed map_tap: %v", err)
			return
		}
		if err := m.sessions.Tap(sid, domain.Coordinate{Lat: tap.Lat, Lng: tap.Lng}); err != nil {
			log.Printf("[WS] Tap rejected for %s: %v", sid, err)
		}

	case MsgUseDefault:
		if err := m.sessions.UseDefault(sid); err != nil {
			log.Printf("[WS] Use default failed for %s: %v", sid, err)
		}

	case MsgPositionFix:
		var fix fixPayload
		if err := json.Unmarshal(msg.Payload, &fix); err != nil {
			log.Printf("[WS] Malformed position_fix: %v", err)
			return
		}
		coord := domain.Coordinate{Lat: fix.Lat, Lng: fix.Lng}
		m.bridge.Deliver(sid, domain.PositionResult{
			AttemptID:  fix.AttemptID,
			Coordinate: &coord,
			Accuracy:   fix.Accuracy,
		})

	case MsgPositionError:
		var perr errorPayload
		if err := json.Unmarshal(msg.Payload, &perr); err != nil {
			log.Printf("[WS] Malformed position_error: %v", err)
			return
		}
		m.bridge.Deliver(sid, domain.PositionResult{
			AttemptID: perr.AttemptID,
			Err: &domain.PositionError{
				Code:    domain.PositionErrorCode(perr.Code),
				Message: perr.Message,
			},
		})

	default:
		log.Printf("[WS] Unknown message type: %s", msg.Type)
	}
}

// handleHello binds the connection to its form session, replays the current
// state and any buffered notices, and attaches the positioning bridge so
// outstanding requests reach the client.
func (m *WSManager) handleHello(c *client, payload json.RawMessage) {
	var hello helloPayload
	if err := json.Unmarshal(payload, &hello); err != nil || hello.SessionID == "" {
		log.Printf("[WS] Malformed hello")
		return
	}

	info, err := m.sessions.Info(hello.SessionID)
	if err != nil {
		log.Printf("[WS] Hello for unknown session %s", hello.SessionID)
		_ = c.write(MsgAlert, noticePayload{Message: "session expired, please reload the form"})
		return
	}

	m.mu.Lock()
	if c.sessionID != "" && c.sessionID != info.ID && m.bySession[c.sessionID] == c {
		delete(m.bySession, c.sessionID)
	}
	c.sessionID = info.ID
	m.bySession[info.ID] = c
	m.mu.Unlock()

	m.sessions.Touch(info.ID)
	log.Printf("[WS] Session client connected: %s", info.ID)

	if err := c.write(MsgState, info.State); err != nil {
		log.Printf("[WS] State snapshot write failed for %s: %v", info.ID, err)
		return
	}
	if info.Address != "" {
		_ = c.write(MsgAddress, addressPayload{Address: info.Address})
	}
	m.flushNotices(info.ID)

	m.bridge.Attach(info.ID, c.write)
}

// flushNotices drains the session's notice buffer into the bound client.
// The buffer is the single source; live notices pass through it too, so a
// notice is shown exactly once whether or not a client was connected when
// it fired.
func (m *WSManager) flushNotices(sessionID string) {
	c := m.sessionClient(sessionID)
	if c == nil {
		return
	}
	for _, notice := range m.sessions.DrainNotices(sessionID) {
		msgType := MsgAlert
		if notice.Level == domain.NoticeWarning {
			msgType = MsgDegradedWarning
		}
		if err := c.write(msgType, noticePayload{Message: notice.Message}); err != nil {
			log.Printf("[WS] Notice write failed for %s: %v", sessionID, err)
			return
		}
	}
}

func (m *WSManager) sessionClient(sessionID string) *client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bySession[sessionID]
}

// OnStateChanged pushes the new acquisition state to the session's client.
func (m *WSManager) OnStateChanged(ctx context.Context, sessionID string, state domain.AcquisitionState) {
	m.sendToSession(sessionID, MsgState, state)
}

// OnLocationSelected pushes the final coordinate choice.
func (m *WSManager) OnLocationSelected(ctx context.Context, sessionID string, sel domain.Selection) {
	m.sendToSession(sessionID, MsgLocationSelect, selectionPayload{
		Lat:    sel.Coordinate.Lat,
		Lng:    sel.Coordinate.Lng,
		Source: sel.Source,
	})
}

// OnNotice flushes the notice buffer. Without a bound client the notice
// stays buffered for the next hello.
func (m *WSManager) OnNotice(ctx context.Context, sessionID string, notice domain.Notice) {
	m.flushNotices(sessionID)
}

// OnAddressResolved pushes the resolved address label.
func (m *WSManager) OnAddressResolved(ctx context.Context, sessionID string, address string) {
	m.sendToSession(sessionID, MsgAddress, addressPayload{Address: address})
}

// OnReportCreated feeds new reports to connected operators.
func (m *WSManager) OnReportCreated(ctx context.Context, report domain.Report) {
	m.broadcastOperators(MsgReportCreated, report)
}

// OnReportUpdated feeds status changes to connected operators.
func (m *WSManager) OnReportUpdated(ctx context.Context, report domain.Report) {
	m.broadcastOperators(MsgReportUpdated, report)
}

func (m *WSManager) sendToSession(sessionID, msgType string, payload interface{}) {
	c := m.sessionClient(sessionID)
	if c == nil {
		return
	}
	if err := c.write(msgType, payload); err != nil {
		log.Printf("[WS] Write failed for session %s: %v", sessionID, err)
	}
}

func (m *WSManager) broadcastOperators(msgType string, payload interface{}) {
	m.mu.Lock()
	operators := make([]*client, 0, len(m.clients))
	for c := range m.clients {
		if c.user != nil {
			operators = append(operators, c)
		}
	}
	m.mu.Unlock()

	for _, c := range operators {
		if err := c.write(msgType, payload); err != nil {
			log.Printf("[WS] Operator write failed for %s: %v", c.user.Username, err)
		}
	}
}

var _ session.Observer = (*WSManager)(nil)
var _ ports.ReportObserver = (*WSManager)(nil)
