package server

import (
	"log"
	"time"
)

// scheduleAnswerTimer starts the countdown for the question that was just
// shown. When it expires, grading runs over whatever answers arrived; the
// window id guards against grading a newer question after a late fire.
func (s *Server) scheduleAnswerTimer(gameCode string, windowID int) {
	duration := time.Duration(s.cfg.AnswerTimerSeconds) * time.Second
	if duration <= 0 {
		return
	}
	s.timersMu.Lock()
	if existing, ok := s.timers[gameCode]; ok {
		existing.Stop()
	}
	timer := time.AfterFunc(duration, func() {
		s.answerTimerExpired(gameCode, windowID)
	})
	deadline := timeNowUTC().Add(duration)
	s.timers[gameCode] = timer
	s.deadlines[gameCode] = deadline
	s.timersMu.Unlock()

	s.ws.Broadcast(gameCode, timerUpdateMessage(deadline))
}

func (s *Server) cancelAnswerTimer(gameCode string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[gameCode]; ok {
		timer.Stop()
		delete(s.timers, gameCode)
	}
	delete(s.deadlines, gameCode)
}

// broadcastTimerUpdate re-sends the countdown so clients that joined or fell
// behind mid-question resync. No-op when no timer is running.
func (s *Server) broadcastTimerUpdate(gameCode string) {
	s.timersMu.Lock()
	deadline, ok := s.deadlines[gameCode]
	s.timersMu.Unlock()
	if !ok {
		return
	}
	s.ws.Broadcast(gameCode, timerUpdateMessage(deadline))
}

func timerUpdateMessage(deadline time.Time) map[string]any {
	remaining := int(time.Until(deadline).Round(time.Second) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return map[string]any{
		"type":              "timer_update",
		"remaining_seconds": remaining,
		"deadline":          deadline.Format(time.RFC3339),
	}
}

func (s *Server) answerTimerExpired(gameCode string, windowID int) {
	stale := false
	_, err := s.store.UpdateGame(gameCode, func(game *Game) error {
		if game.Current == nil || game.Current.WindowID != windowID || game.Phase != phaseQuestion {
			stale = true
			return nil
		}
		game.Current.FeedbackShown = true
		return nil
	})
	if err != nil || stale {
		return
	}
	log.Printf("answer timer expired game_code=%s window=%d", gameCode, windowID)
	s.ws.Broadcast(gameCode, map[string]any{"type": "show_feedback"})
	s.gradeAnswers(gameCode)
}
