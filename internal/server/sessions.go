package server

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"sync"
	"time"

	"vidquiz/internal/db"

	"gorm.io/gorm"
)

const sessionCookieName = "vq_session"

// sessionStore remembers which game and player a browser belongs to, so a
// refresh mid-video drops the player back into their room. Backed by the
// database when one is configured, in-memory otherwise.
type sessionStore struct {
	db       *gorm.DB
	mu       sync.Mutex
	sessions map[string]sessionData
}

type sessionData struct {
	GameCode string
	PlayerID string
	Nickname string
}

func newSessionStore(conn *gorm.DB) *sessionStore {
	return &sessionStore{
		db:       conn,
		sessions: make(map[string]sessionData),
	}
}

func (s *sessionStore) SetPlayer(w http.ResponseWriter, r *http.Request, gameCode, playerID, nickname string) {
	id := s.ensureSessionID(w, r)
	if s.db == nil {
		s.mu.Lock()
		s.sessions[id] = sessionData{GameCode: gameCode, PlayerID: playerID, Nickname: nickname}
		s.mu.Unlock()
		return
	}
	record := db.Session{
		ID:       id,
		GameCode: gameCode,
		PlayerID: playerID,
		Nickname: nickname,
	}
	_ = s.db.Save(&record).Error
}

func (s *sessionStore) GetPlayer(w http.ResponseWriter, r *http.Request) (gameCode, playerID, nickname string) {
	id := s.ensureSessionID(w, r)
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		data := s.sessions[id]
		return data.GameCode, data.PlayerID, data.Nickname
	}
	var record db.Session
	if err := s.db.Where("id = ?", id).First(&record).Error; err != nil {
		return "", "", ""
	}
	return record.GameCode, record.PlayerID, record.Nickname
}

func (s *sessionStore) ensureSessionID(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := newSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func newSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("sess-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%x", buf)
}
