package wsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/mohamedkhairy/trading-bot/internal/config"
	"github.com/mohamedkhairy/trading-bot/internal/models"
	"github.com/mohamedkhairy/trading-bot/pkg/logger"
)

// Hub fans trade decisions out to every connected subscriber. Decisions are
// handed to Broadcast in-process by the bot loop.
type Hub struct {
	cfg       config.WSFeedConfig
	jwtSecret []byte
	upgrader  websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*Connection

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a decision feed hub. An empty jwtSecret disables
// authentication.
func NewHub(cfg config.WSFeedConfig, jwtSecret string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:       cfg,
		jwtSecret: []byte(jwtSecret),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns:  make(map[string]*Connection),
		ctx:    ctx,
		cancel: cancel,
	}
}

// HandleWS upgrades the request and registers the subscriber. The token is
// taken from the Authorization header or a "token" query parameter.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticate(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	h.mu.RLock()
	count := len(h.conns)
	h.mu.RUnlock()
	if h.cfg.MaxConnections > 0 && count >= h.cfg.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", logger.ErrorField(err))
		return
	}

	conn := NewConnection(ws, userID, 64)
	h.register(conn)
}

// Broadcast delivers one decision to every subscriber. Slow clients drop
// the message rather than stalling the bot.
func (h *Hub) Broadcast(d *models.TradeDecision) {
	payload, err := json.Marshal(d)
	if err != nil {
		logger.Error("Failed to marshal decision for feed", logger.ErrorField(err))
		return
	}

	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	dropped := 0
	for _, c := range conns {
		if err := c.Enqueue(payload); err != nil {
			dropped++
		}
	}
	if dropped > 0 {
		logger.Debug("Dropped decision for slow subscribers",
			logger.String("decision_id", d.ID),
			logger.Int("dropped", dropped),
		)
	}
}

// Count returns the number of active subscribers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close disconnects every subscriber and stops the hub
func (h *Hub) Close() {
	h.cancel()

	h.mu.Lock()
	for _, c := range h.conns {
		c.Close()
	}
	h.conns = make(map[string]*Connection)
	h.mu.Unlock()

	h.wg.Wait()
}

func (h *Hub) register(conn *Connection) {
	h.mu.Lock()
	h.conns[conn.ID] = conn
	total := len(h.conns)
	h.mu.Unlock()

	logger.Info("Feed subscriber connected",
		logger.String("connection_id", conn.ID),
		logger.String("user_id", conn.UserID),
		logger.Int("total_connections", total),
	)

	h.wg.Add(2)
	go h.writePump(conn)
	go h.readPump(conn)
}

func (h *Hub) unregister(conn *Connection) {
	h.mu.Lock()
	_, present := h.conns[conn.ID]
	delete(h.conns, conn.ID)
	h.mu.Unlock()

	if present {
		conn.Close()
		logger.Info("Feed subscriber disconnected",
			logger.String("connection_id", conn.ID),
			logger.String("user_id", conn.UserID),
		)
	}
}

func (h *Hub) writePump(conn *Connection) {
	defer h.wg.Done()
	defer h.unregister(conn)

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames to keep pong handling alive; the feed
// ignores anything the client sends
func (h *Hub) readPump(conn *Connection) {
	defer h.wg.Done()
	defer h.unregister(conn)

	readTimeout := h.cfg.PingInterval * 2
	conn.Conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.UpdateLastPong()
		conn.Conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket read error",
					logger.ErrorField(err),
					logger.String("connection_id", conn.ID),
				)
			}
			return
		}
	}
}

// authenticate resolves the user behind the request. With no secret
// configured every client is the default user.
func (h *Hub) authenticate(r *http.Request) (string, error) {
	if len(h.jwtSecret) == 0 {
		return "default", nil
	}

	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		authHeader := r.Header.Get("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			tokenString = parts[1]
		} else if len(parts) == 1 {
			tokenString = parts[0]
		}
	}
	if tokenString == "" {
		return "", fmt.Errorf("no token provided")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	if userID, ok := claims["user_id"].(string); ok {
		return userID, nil
	}
	if sub, ok := claims["sub"].(string); ok {
		return sub, nil
	}
	return "", fmt.Errorf("user_id not found in token")
}
