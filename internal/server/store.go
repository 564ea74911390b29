package server

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds every live game, keyed by game code. The store is the single
// source of truth for rosters, scores, and the active question; clients only
// ever see replicas of it over the room channel.
type Store struct {
	mu    sync.Mutex
	games map[string]*Game
}

func NewStore() *Store {
	return &Store{
		games: make(map[string]*Game),
	}
}

func (s *Store) CreateGame(videoID string, intervalSeconds, depth int, gradeLevel, language string, prefetchCap int) *Game {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := newGameCode()
	for _, taken := s.games[code]; taken; _, taken = s.games[code] {
		code = newGameCode()
	}
	game := &Game{
		GameCode:        code,
		VideoID:         videoID,
		Phase:           phaseLobby,
		PhaseStartedAt:  timeNowUTC(),
		IntervalSeconds: intervalSeconds,
		Depth:           depth,
		GradeLevel:      gradeLevel,
		Language:        language,
		Ready:           make(map[int]*Question),
		Pacer:           NewPacer(intervalSeconds, prefetchCap),
		Translations:    make(map[string]string),
	}
	s.games[code] = game
	return game
}

func (s *Store) GetGame(code string) (*Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[strings.ToUpper(code)]
	return game, ok
}

// UpdateGame mutates a game under the store lock. Every state transition goes
// through here so broadcasts observe a consistent game.
func (s *Store) UpdateGame(code string, update func(game *Game) error) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[strings.ToUpper(code)]
	if !ok {
		return nil, errors.New("game not found")
	}
	if err := update(game); err != nil {
		return nil, err
	}
	return game, nil
}

func (s *Store) AddPlayer(code, nickname string, maxPlayers int) (*Game, *Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[strings.ToUpper(code)]
	if !ok {
		return nil, nil, errors.New("game not found")
	}
	for i := range game.Players {
		if strings.EqualFold(game.Players[i].Nickname, nickname) {
			// Same nickname rejoining keeps its id and score.
			return game, &game.Players[i], nil
		}
	}
	if game.Phase == phaseFinished {
		return nil, nil, errors.New("game already finished")
	}
	if maxPlayers > 0 && len(game.Players) >= maxPlayers {
		return nil, nil, errors.New("game is full")
	}

	player := Player{
		ID:       uuid.New().String(),
		Nickname: nickname,
		JoinedAt: timeNowUTC(),
	}
	game.Players = append(game.Players, player)
	return game, &game.Players[len(game.Players)-1], nil
}

// RestoreGame places a game rebuilt from the database back into the store.
func (s *Store) RestoreGame(game *Game) error {
	if game == nil {
		return errors.New("game is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[game.GameCode]; ok {
		return errors.New("game already running")
	}
	s.games[game.GameCode] = game
	return nil
}

func (s *Store) ListGameSummaries() []GameSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]GameSummary, 0, len(s.games))
	for _, game := range s.games {
		list = append(list, GameSummary{
			GameCode: game.GameCode,
			VideoID:  game.VideoID,
			Phase:    game.Phase,
			Players:  len(game.Players),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].GameCode < list[j].GameCode
	})
	return list
}

func (s *Store) CachedTranslation(code, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[strings.ToUpper(code)]
	if !ok {
		return "", false
	}
	cached, hit := game.Translations[key]
	return cached, hit
}

func (s *Store) FindPlayer(game *Game, playerID string) (*Player, bool) {
	return findRosterPlayer(game, playerID)
}

// recordAnswer stores a player's submission against the active question.
// The first answer per player wins; a resubmission is reported as rejected.
func recordAnswer(game *Game, playerID, answer string) (accepted bool, reason string) {
	current := game.Current
	if current == nil || game.Phase != phaseQuestion {
		return false, "no question is active"
	}
	if current.FeedbackShown {
		return false, "feedback has already been shown"
	}
	if _, found := findRosterPlayer(game, playerID); !found {
		return false, "player is not in this game"
	}
	if _, answered := current.Answers[playerID]; answered {
		return false, "answer already submitted"
	}
	current.Answers[playerID] = answer
	current.AnswersReceived++
	return true, ""
}

func findRosterPlayer(game *Game, playerID string) (*Player, bool) {
	for i := range game.Players {
		if game.Players[i].ID == playerID {
			return &game.Players[i], true
		}
	}
	return nil, false
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
