package server

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// Messages on the room channel carry a type tag plus type-specific fields.
// Inbound traffic is small: the host reports playback position and drives the
// feedback toggles, players submit answers.
type inboundMessage struct {
	Type        string  `json:"type"`
	CurrentTime float64 `json:"current_time,omitempty"`
	PlayerID    string  `json:"player_id,omitempty"`
	Answer      string  `json:"answer,omitempty"`
}

func (s *Server) dispatchMessage(gameCode string, conn *websocket.Conn, role string, hostOwner bool, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	switch msg.Type {
	case "start_game":
		if hostOwner {
			s.handleStartGame(gameCode)
		}
	case "time_update":
		if hostOwner {
			s.handleTimeUpdate(gameCode, msg.CurrentTime)
		}
	case "submit_answer":
		if role != wsRolePlayer {
			return
		}
		s.handleSubmitAnswer(gameCode, conn, msg.PlayerID, msg.Answer)
	case "show_feedback":
		if hostOwner {
			s.handleShowFeedback(gameCode)
		}
	case "clear_feedback":
		if hostOwner {
			s.handleClearFeedback(gameCode)
		}
	case "end_game":
		if hostOwner {
			s.endGameFromHost(gameCode)
		}
	}
}

func (s *Server) handleStartGame(gameCode string) {
	game, err := s.store.UpdateGame(gameCode, func(game *Game) error {
		if game.Phase != phaseLobby {
			return errLobbyOnly
		}
		if len(game.Players) == 0 {
			return errNoPlayers
		}
		setPhase(game, phaseWatching)
		return nil
	})
	if err != nil {
		return
	}
	if err := s.persistPhase(game, "game_started", map[string]any{"video_id": game.VideoID}); err != nil {
		log.Printf("persist game start failed game_code=%s error=%v", gameCode, err)
	}
	log.Printf("game started game_code=%s video_id=%s", gameCode, game.VideoID)
	s.ws.Broadcast(gameCode, gameStartedMessage(game))
}

// handleTimeUpdate feeds a playback sample through the pacer and acts on the
// decision. Prefetch spawns generation in the background; show pauses the
// video for everyone and opens the answer window.
func (s *Server) handleTimeUpdate(gameCode string, currentTime float64) {
	var decision PaceDecision
	var question *Question
	game, err := s.store.UpdateGame(gameCode, func(game *Game) error {
		if game.Phase != phaseWatching {
			return errNotWatching
		}
		decision = game.Pacer.Observe(currentTime)
		if decision.Action == PaceShow {
			ready, ok := game.Ready[decision.WindowID]
			if !ok {
				return errQuestionMissing
			}
			question = ready
			delete(game.Ready, decision.WindowID)
			game.Current = newActiveQuestion(*question)
			setPhase(game, phaseQuestion)
		}
		return nil
	})
	if err != nil {
		return
	}
	switch decision.Action {
	case PacePrefetch:
		go s.prefetchQuestion(gameCode, decision.WindowID, decision.WindowEnd)
	case PaceShow:
		s.scheduleAnswerTimer(gameCode, question.WindowID)
		if err := s.persistQuestion(game, &game.Current.Question); err != nil {
			log.Printf("persist question failed game_code=%s window=%d error=%v", gameCode, question.WindowID, err)
		}
		if err := s.persistPhase(game, "question_shown", map[string]any{"window_id": question.WindowID}); err != nil {
			log.Printf("persist phase failed game_code=%s error=%v", gameCode, err)
		}
		log.Printf("question shown game_code=%s window=%d", gameCode, question.WindowID)
		s.ws.Broadcast(gameCode, newQuestionMessage(game, question, s.cfg.AnswerTimerSeconds))
	}
}

// prefetchQuestion generates a question for one playback window. It runs off
// the store lock; the pacer discards the result if the window went stale while
// generation was in flight.
func (s *Server) prefetchQuestion(gameCode string, windowID int, windowEnd float64) {
	game, ok := s.store.GetGame(gameCode)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	segment, err := s.transcriptSegment(ctx, game.VideoID, game.Language, windowEnd)
	if err != nil {
		log.Printf("transcript fetch failed game_code=%s window=%d error=%v", gameCode, windowID, err)
	}
	generated, err := s.generateQuestion(ctx, game, segment)
	if err != nil {
		s.handleGenerationFailure(gameCode, windowID, err)
		return
	}
	generated.WindowID = windowID
	generated.ContentSegment = segment

	game, err = s.store.UpdateGame(gameCode, func(game *Game) error {
		if !game.Pacer.MarkReady(windowID) {
			return errStaleWindow
		}
		if game.Ready == nil {
			game.Ready = make(map[int]*Question)
		}
		game.Ready[windowID] = generated
		return nil
	})
	if err != nil {
		log.Printf("question discarded game_code=%s window=%d reason=stale", gameCode, windowID)
		return
	}
	log.Printf("question ready game_code=%s window=%d", gameCode, windowID)
}

func (s *Server) handleGenerationFailure(gameCode string, windowID int, cause error) {
	attempts := 0
	_, err := s.store.UpdateGame(gameCode, func(game *Game) error {
		attempts = game.Pacer.Fail(windowID)
		return nil
	})
	if err != nil {
		return
	}
	log.Printf("question generation failed game_code=%s window=%d attempts=%d error=%v", gameCode, windowID, attempts, cause)
	if attempts >= s.cfg.GenerationMaxAttempts {
		// Give up on this window; playback continues and the next boundary
		// gets a fresh attempt.
		s.ws.BroadcastHosts(gameCode, map[string]any{
			"type":      "generation_failed",
			"window_id": windowID,
		})
	}
}

func (s *Server) handleSubmitAnswer(gameCode string, conn *websocket.Conn, playerID, rawAnswer string) {
	answer, err := validateAnswer(rawAnswer)
	if err != nil {
		s.ws.Send(conn, answerRejectedMessage(err.Error()))
		return
	}
	reason := ""
	accepted := false
	allAnswered := false
	var nickname string
	game, err := s.store.UpdateGame(gameCode, func(game *Game) error {
		accepted, reason = recordAnswer(game, playerID, answer)
		if !accepted {
			return nil
		}
		if player, found := findRosterPlayer(game, playerID); found {
			nickname = player.Nickname
		}
		allAnswered = game.Current.AnswersReceived >= len(game.Players)
		return nil
	})
	if err != nil {
		s.ws.Send(conn, answerRejectedMessage("game not found"))
		return
	}
	if !accepted {
		s.ws.Send(conn, answerRejectedMessage(reason))
		return
	}
	if err := s.persistAnswer(game, playerID, answer); err != nil {
		log.Printf("persist answer failed game_code=%s player_id=%s error=%v", gameCode, playerID, err)
	}
	s.ws.Broadcast(gameCode, answerSubmittedMessage(game, nickname))
	s.broadcastTimerUpdate(gameCode)
	if allAnswered {
		s.cancelAnswerTimer(gameCode)
		go s.gradeAnswers(gameCode)
	}
}

// gradeAnswers closes the answer window and grades every submission. Grading
// retries a bounded number of times; when the grader stays down, answers are
// checked by exact match against the correct answer so the game can continue.
func (s *Server) gradeAnswers(gameCode string) {
	var current *ActiveQuestion
	var players []Player
	game, err := s.store.UpdateGame(gameCode, func(game *Game) error {
		if game.Current == nil || game.Phase != phaseQuestion {
			return errNoActiveQuestion
		}
		setPhase(game, phaseFeedback)
		current = game.Current
		players = append([]Player(nil), game.Players...)
		return nil
	})
	if err != nil {
		return
	}

	results := make([]AnswerResult, 0, len(current.Answers))
	degraded := false
	for _, player := range players {
		answer, ok := current.Answers[player.ID]
		if !ok {
			continue
		}
		verdict, err := s.gradeWithRetries(gameCode, current.Question, answer)
		if err != nil {
			degraded = true
			verdict = localGrade(current.Question, answer)
		}
		results = append(results, AnswerResult{
			PlayerID:    player.ID,
			Nickname:    player.Nickname,
			Answer:      answer,
			IsCorrect:   verdict.IsCorrect,
			Explanation: verdict.Explanation,
		})
	}

	var scores []map[string]any
	game, err = s.store.UpdateGame(gameCode, func(game *Game) error {
		if game.Current == nil {
			return errNoActiveQuestion
		}
		game.Current.Results = results
		for _, result := range results {
			if !result.IsCorrect {
				continue
			}
			if player, found := findRosterPlayer(game, result.PlayerID); found {
				player.Score += pointsPerCorrectAnswer
			}
		}
		scores = scoresPayload(game)
		return nil
	})
	if err != nil {
		return
	}
	for i := range results {
		if err := s.persistResult(game, &results[i]); err != nil {
			log.Printf("persist result failed game_code=%s player_id=%s error=%v", gameCode, results[i].PlayerID, err)
		}
	}
	if degraded {
		s.ws.BroadcastHosts(gameCode, map[string]any{
			"type":      "grading_failed",
			"window_id": current.WindowID,
		})
	}
	log.Printf("answers graded game_code=%s window=%d count=%d", gameCode, current.WindowID, len(results))
	s.broadcastResults(gameCode, current.CorrectAnswer, results, scores)
}

func (s *Server) gradeWithRetries(gameCode string, question Question, answer string) (GradeVerdict, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.GradingMaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		verdict, err := s.gradeAnswer(ctx, question, answer)
		cancel()
		if err == nil {
			return verdict, nil
		}
		lastErr = err
		log.Printf("grading attempt failed game_code=%s attempt=%d error=%v", gameCode, attempt, err)
	}
	return GradeVerdict{}, lastErr
}

// broadcastResults sends each player only their own verdict; hosts get the
// full table including the correct answer. Everything broadcast here comes
// from the grading snapshot, not live game state, so a concurrent
// clear_feedback cannot pull the question out from under it.
func (s *Server) broadcastResults(gameCode, correctAnswer string, results []AnswerResult, scores []map[string]any) {
	byPlayer := make(map[string]AnswerResult, len(results))
	for _, result := range results {
		byPlayer[result.PlayerID] = result
	}
	s.ws.mu.Lock()
	group := s.ws.groups[gameCode]
	type target struct {
		conn     *websocket.Conn
		playerID string
	}
	targets := make([]target, 0, len(group))
	for conn := range group {
		targets = append(targets, target{conn: conn, playerID: s.ws.players[conn]})
	}
	s.ws.mu.Unlock()

	for _, t := range targets {
		result, ok := byPlayer[t.playerID]
		if !ok {
			continue
		}
		s.ws.Send(t.conn, answerResultMessage(result, scores))
	}
	s.ws.BroadcastHosts(gameCode, hostResultsMessage(correctAnswer, results, scores))
}

// handleShowFeedback closes the answer window on the host's command. Any
// answers collected so far are graded right away instead of waiting out the
// timer.
func (s *Server) handleShowFeedback(gameCode string) {
	shouldGrade := false
	_, err := s.store.UpdateGame(gameCode, func(game *Game) error {
		if game.Current == nil {
			return errNoActiveQuestion
		}
		game.Current.FeedbackShown = true
		shouldGrade = game.Phase == phaseQuestion
		return nil
	})
	if err != nil {
		return
	}
	s.cancelAnswerTimer(gameCode)
	s.ws.Broadcast(gameCode, map[string]any{"type": "show_feedback"})
	if shouldGrade {
		go s.gradeAnswers(gameCode)
	}
}

// handleClearFeedback dismisses the question overlay and resumes playback.
func (s *Server) handleClearFeedback(gameCode string) {
	game, err := s.store.UpdateGame(gameCode, func(game *Game) error {
		if game.Current == nil {
			return errNoActiveQuestion
		}
		game.Current = nil
		setPhase(game, phaseWatching)
		return nil
	})
	if err != nil {
		return
	}
	if err := s.persistPhase(game, "playback_resumed", nil); err != nil {
		log.Printf("persist phase failed game_code=%s error=%v", gameCode, err)
	}
	s.ws.Broadcast(gameCode, map[string]any{"type": "clear_feedback"})
}

func newActiveQuestion(question Question) *ActiveQuestion {
	return &ActiveQuestion{
		Question: question,
		Answers:  make(map[string]string),
	}
}

func roomJoinedMessage(game *Game, role, playerID string) map[string]any {
	msg := map[string]any{
		"type":  "room_joined",
		"role":  role,
		"state": snapshot(game),
	}
	if playerID != "" {
		msg["player_id"] = playerID
	}
	return msg
}

func playerJoinedMessage(game *Game, player *Player) map[string]any {
	return map[string]any{
		"type":         "player_joined",
		"nickname":     player.Nickname,
		"player_id":    player.ID,
		"player_count": len(game.Players),
		"players":      rosterPayload(game),
	}
}

func gameStartedMessage(game *Game) map[string]any {
	return map[string]any{
		"type":             "game_started",
		"video_id":         game.VideoID,
		"interval_seconds": game.IntervalSeconds,
	}
}

func gameEndedMessage(game *Game) map[string]any {
	return map[string]any{
		"type":   "game_ended",
		"scores": scoresPayload(game),
	}
}

func newQuestionMessage(game *Game, question *Question, timerSeconds int) map[string]any {
	return map[string]any{
		"type":           "new_question",
		"window_id":      question.WindowID,
		"question":       question.Text,
		"options":        shuffledOptions(question.CorrectAnswer, question.IncorrectAnswers),
		"timer_duration": timerSeconds,
	}
}

func answerSubmittedMessage(game *Game, nickname string) map[string]any {
	return map[string]any{
		"type":             "answer_submitted",
		"nickname":         nickname,
		"answers_received": game.Current.AnswersReceived,
		"player_count":     len(game.Players),
	}
}

func answerRejectedMessage(reason string) map[string]any {
	return map[string]any{
		"type":   "answer_rejected",
		"reason": reason,
	}
}

func answerResultMessage(result AnswerResult, scores []map[string]any) map[string]any {
	return map[string]any{
		"type":        "answer_result",
		"is_correct":  result.IsCorrect,
		"explanation": result.Explanation,
		"scores":      scores,
	}
}

func hostResultsMessage(correctAnswer string, results []AnswerResult, scores []map[string]any) map[string]any {
	return map[string]any{
		"type":           "answer_result",
		"results":        results,
		"correct_answer": correctAnswer,
		"scores":         scores,
	}
}
