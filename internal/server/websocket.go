package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

type wsHub struct {
	mu      sync.Mutex
	groups  map[string]map[*websocket.Conn]struct{}
	hosts   map[string]map[*websocket.Conn]struct{}
	players map[*websocket.Conn]string
}

func newWSHub() *wsHub {
	return &wsHub{
		groups:  make(map[string]map[*websocket.Conn]struct{}),
		hosts:   make(map[string]map[*websocket.Conn]struct{}),
		players: make(map[*websocket.Conn]string),
	}
}

func (h *wsHub) Add(gameCode string, conn *websocket.Conn, role, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[gameCode]
	if group == nil {
		group = make(map[*websocket.Conn]struct{})
		h.groups[gameCode] = group
	}
	group[conn] = struct{}{}
	if role == wsRoleHost {
		hostGroup := h.hosts[gameCode]
		if hostGroup == nil {
			hostGroup = make(map[*websocket.Conn]struct{})
			h.hosts[gameCode] = hostGroup
		}
		hostGroup[conn] = struct{}{}
	}
	if playerID != "" {
		h.players[conn] = playerID
	}
}

func (h *wsHub) Remove(gameCode string, conn *websocket.Conn, role string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[gameCode]
	if group == nil {
		return
	}
	delete(group, conn)
	delete(h.players, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.groups, gameCode)
	}
	if role == wsRoleHost {
		hostGroup := h.hosts[gameCode]
		if hostGroup != nil {
			delete(hostGroup, conn)
			if len(hostGroup) == 0 {
				delete(h.hosts, gameCode)
			}
		}
	}
}

// HostCount reports how many host connections a room currently has. The first
// host connection owns the room; later ones are read-only spectators.
func (h *wsHub) HostCount(gameCode string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hosts[gameCode])
}

func (h *wsHub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *wsHub) Broadcast(gameCode string, payload any) {
	h.mu.Lock()
	group := h.groups[gameCode]
	conns := make([]*websocket.Conn, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(gameCode, conn, "")
		}
	}
}

// BroadcastHosts delivers a payload only to host connections. Grading results
// carry the correct answer; players get their own trimmed view.
func (h *wsHub) BroadcastHosts(gameCode string, payload any) {
	h.mu.Lock()
	group := h.hosts[gameCode]
	conns := make([]*websocket.Conn, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(gameCode, conn, wsRoleHost)
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	gameCode, ok := parseWebsocketPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if _, exists := s.store.GetGame(gameCode); !exists {
		if restored, err := s.restoreGameFromDB(gameCode); err != nil || restored == nil {
			http.NotFound(w, r)
			return
		}
	}
	role := r.URL.Query().Get("role")
	if role != wsRoleHost {
		role = wsRolePlayer
	}
	playerID := r.URL.Query().Get("player_id")
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected game_code=%s role=%s remote=%s", gameCode, role, r.RemoteAddr)
	hostOwner := role == wsRoleHost && s.ws.HostCount(gameCode) == 0
	s.ws.Add(gameCode, conn, role, playerID)
	if game, ok := s.store.GetGame(gameCode); ok {
		s.ws.Send(conn, roomJoinedMessage(game, role, playerID))
		if playerID != "" {
			if player, found := s.store.FindPlayer(game, playerID); found {
				s.ws.Broadcast(gameCode, playerJoinedMessage(game, player))
			}
		}
	}
	go s.readWS(gameCode, conn, role, hostOwner)
}

func parseWebsocketPath(path string) (string, bool) {
	const prefix = "/ws/rooms/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	code := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if code == "" || strings.Contains(code, "/") {
		return "", false
	}
	return strings.ToUpper(code), true
}

func (s *Server) readWS(gameCode string, conn *websocket.Conn, role string, hostOwner bool) {
	defer s.ws.Remove(gameCode, conn, role)
	if hostOwner {
		defer s.endGameFromHost(gameCode)
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("ws disconnected game_code=%s role=%s error=%v", gameCode, role, err)
			return
		}
		s.dispatchMessage(gameCode, conn, role, hostOwner, data)
	}
}

func (s *Server) endGameFromHost(gameCode string) {
	game, err := s.store.UpdateGame(gameCode, func(game *Game) error {
		if game.Phase == phaseFinished {
			return errors.New("game already finished")
		}
		setPhase(game, phaseFinished)
		return nil
	})
	if err != nil {
		return
	}
	s.cancelAnswerTimer(gameCode)
	if err := s.persistPhase(game, "game_ended", map[string]any{"reason": "host_disconnected"}); err != nil {
		log.Printf("persist game end failed game_code=%s error=%v", gameCode, err)
	}
	log.Printf("game ended game_code=%s reason=host_disconnected", gameCode)
	s.ws.Broadcast(gameCode, gameEndedMessage(game))
}

func setPhase(game *Game, phase string) {
	game.Phase = phase
	game.PhaseStartedAt = timeNowUTC()
}
