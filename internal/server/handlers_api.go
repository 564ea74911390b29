package server

import (
	"log"
	"net/http"
)

type createGameRequest struct {
	VideoURL        string `json:"video_url"`
	IntervalSeconds int    `json:"interval_seconds"`
	Depth           int    `json:"depth"`
	GradeLevel      string `json:"grade_level"`
	Language        string `json:"language"`
}

type joinGameRequest struct {
	GameCode string `json:"game_code"`
	Nickname string `json:"nickname"`
}

type generateQuestionRequest struct {
	GameCode string  `json:"game_code"`
	PauseAt  float64 `json:"pause_at"`
}

type checkAnswerRequest struct {
	GameCode string `json:"game_code"`
	Question string `json:"question"`
	Expected string `json:"expected_answer"`
	Answer   string `json:"answer"`
	Segment  string `json:"content_segment"`
}

type translateRequest struct {
	GameCode string `json:"game_code"`
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "create") {
		return
	}
	var req createGameRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	videoID, ok := extractVideoID(req.VideoURL)
	if !ok {
		writeError(w, http.StatusBadRequest, "could not extract a video id from the URL")
		return
	}
	interval, err := validateInterval(req.IntervalSeconds)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	depth, err := validateDepth(req.Depth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	language, err := validateLanguage(req.Language)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	gradeLevel := normalizeText(req.GradeLevel)
	if gradeLevel == "" {
		gradeLevel = "6"
	}
	if err := s.probeCaptions(r.Context(), videoID, language); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "this video has no captions, pick one with captions enabled")
		return
	}

	game := s.store.CreateGame(videoID, interval, depth, gradeLevel, language, s.cfg.PrefetchCapSeconds)
	game.MaxPlayers = s.cfg.MaxPlayersPerGame
	if err := s.persistGame(game); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create game")
		return
	}
	log.Printf("game created game_code=%s video_id=%s interval=%d", game.GameCode, game.VideoID, game.IntervalSeconds)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":          true,
		"game_code":        game.GameCode,
		"video_id":         game.VideoID,
		"interval_seconds": game.IntervalSeconds,
		"depth":            game.Depth,
		"grade_level":      game.GradeLevel,
		"language":         game.Language,
	})
}

func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "join") {
		return
	}
	var req joinGameRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	code, err := validateGameCode(req.GameCode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	nickname, err := validateNickname(req.Nickname)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := s.store.GetGame(code); !ok {
		if _, restoreErr := s.restoreGameFromDB(code); restoreErr != nil {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
	}
	game, player, err := s.store.AddPlayer(code, nickname, s.cfg.MaxPlayersPerGame)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err := s.persistPlayer(game, player); err != nil {
		log.Printf("persist player failed game_code=%s nickname=%s error=%v", code, nickname, err)
	}
	s.sessions.SetPlayer(w, r, code, player.ID, nickname)
	log.Printf("player joined game_code=%s nickname=%s player_id=%s", code, nickname, player.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"game_code":    game.GameCode,
		"player_id":    player.ID,
		"nickname":     player.Nickname,
		"player_count": len(game.Players),
	})
	s.ws.Broadcast(code, playerJoinedMessage(game, player))
}

// handleGenerateQuestion serves manual generation for a pause the host forced
// outside the regular cadence.
func (s *Server) handleGenerateQuestion(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "generate") {
		return
	}
	var req generateQuestionRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	code, err := validateGameCode(req.GameCode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, ok := s.store.GetGame(code)
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	segment, err := s.transcriptSegment(r.Context(), game.VideoID, game.Language, req.PauseAt)
	if err != nil {
		log.Printf("transcript fetch failed game_code=%s error=%v", code, err)
	}
	question, err := s.generateQuestion(r.Context(), game, segment)
	if err != nil {
		writeError(w, http.StatusBadGateway, "question generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"question": question.Text,
		"options":  shuffledOptions(question.CorrectAnswer, question.IncorrectAnswers),
	})
}

func (s *Server) handleCheckAnswer(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "check") {
		return
	}
	var req checkAnswerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	answer, err := validateAnswer(req.Answer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	question := Question{Text: req.Question, CorrectAnswer: req.Expected, ContentSegment: req.Segment}
	verdict, err := s.gradeAnswer(r.Context(), question, answer)
	if err != nil {
		verdict = localGrade(question, answer)
	}
	writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "translate") {
		return
	}
	var req translateRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	code, err := validateGameCode(req.GameCode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	language, err := validateLanguage(req.Language)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := s.store.GetGame(code); !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	translation, err := s.translateText(r.Context(), code, req.Text, language)
	if err != nil {
		writeError(w, http.StatusBadGateway, "translation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"translation": translation,
	})
}

// handleSession lets a player who refreshed find their way back to the game
// they joined from this browser.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	code, playerID, nickname := s.sessions.GetPlayer(w, r)
	if code == "" {
		writeJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	game, ok := s.store.GetGame(code)
	if !ok {
		restored, err := s.restoreGameFromDB(code)
		if err != nil || restored == nil {
			writeJSON(w, http.StatusOK, map[string]any{"active": false})
			return
		}
		game = restored
	}
	if _, found := s.store.FindPlayer(game, playerID); !found {
		writeJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active":    true,
		"game_code": code,
		"player_id": playerID,
		"nickname":  nickname,
		"phase":     game.Phase,
	})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	summaries := make([]map[string]any, 0)
	for _, game := range s.store.ListGameSummaries() {
		summaries = append(summaries, map[string]any{
			"game_code": game.GameCode,
			"video_id":  game.VideoID,
			"phase":     game.Phase,
			"players":   game.Players,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": summaries})
}
