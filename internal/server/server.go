package server

import (
	"net/http"
	"sync"
	"time"

	"vidquiz/internal/config"

	"gorm.io/gorm"
)

type Server struct {
	store     *Store
	db        *gorm.DB
	ws        *wsHub
	cfg       config.Config
	sessions  *sessionStore
	limiter   *rateLimiter
	timersMu  sync.Mutex
	timers    map[string]*time.Timer
	deadlines map[string]time.Time

	// overrides for tests
	client        *http.Client
	openAIBaseURL string
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	return &Server{
		store:     NewStore(),
		db:        conn,
		ws:        newWSHub(),
		cfg:       cfg,
		sessions:  newSessionStore(conn),
		limiter:   newRateLimiter(30, time.Minute),
		timers:    make(map[string]*time.Timer),
		deadlines: make(map[string]time.Time),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/games", s.handleCreateGame)
	mux.HandleFunc("POST /api/games/join", s.handleJoinGame)
	mux.HandleFunc("GET /api/games", s.handleListGames)
	mux.HandleFunc("POST /api/questions", s.handleGenerateQuestion)
	mux.HandleFunc("POST /api/answers/check", s.handleCheckAnswer)
	mux.HandleFunc("POST /api/translate", s.handleTranslate)
	mux.HandleFunc("GET /api/qr", s.handleQRCode)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /ws/rooms/", s.handleWebsocket)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	return mux
}
