package server

import (
	"errors"
	"log"
	"strings"

	"vidquiz/internal/db"
)

// restoreGameFromDB rebuilds an in-memory game from its persisted rows so a
// room survives a server restart. Scores are recomputed from graded answers;
// consumed windows are replayed into the pacer so old questions never refire.
func (s *Server) restoreGameFromDB(code string) (*Game, error) {
	if s.db == nil {
		return nil, errors.New("database not configured")
	}
	code = strings.ToUpper(strings.TrimSpace(code))

	var record db.Game
	if err := s.db.Where("game_code = ?", code).First(&record).Error; err != nil {
		return nil, err
	}
	if record.Phase == phaseFinished {
		return nil, errors.New("game already finished")
	}
	if existing, ok := s.store.GetGame(code); ok {
		return existing, nil
	}

	var playerRows []db.Player
	if err := s.db.Where("game_id = ?", record.ID).Order("joined_at asc").Find(&playerRows).Error; err != nil {
		return nil, err
	}
	var questionRows []db.Question
	if err := s.db.Where("game_id = ?", record.ID).Order("window_id asc").Find(&questionRows).Error; err != nil {
		return nil, err
	}

	game := &Game{
		GameCode:        record.GameCode,
		DBID:            record.ID,
		VideoID:         record.VideoID,
		Phase:           restoredPhase(record.Phase),
		PhaseStartedAt:  timeNowUTC(),
		IntervalSeconds: record.IntervalSeconds,
		Depth:           record.Depth,
		GradeLevel:      record.GradeLevel,
		Language:        record.Language,
		MaxPlayers:      s.cfg.MaxPlayersPerGame,
		Ready:           make(map[int]*Question),
		Pacer:           NewPacer(record.IntervalSeconds, s.cfg.PrefetchCapSeconds),
		Translations:    make(map[string]string),
	}

	playerDBIDs := make(map[uint]string, len(playerRows))
	for _, row := range playerRows {
		game.Players = append(game.Players, Player{
			ID:       row.PlayerID,
			DBID:     row.ID,
			Nickname: row.Nickname,
			JoinedAt: row.JoinedAt,
		})
		playerDBIDs[row.ID] = row.PlayerID
	}

	for _, row := range questionRows {
		game.Pacer.MarkConsumed(row.WindowID)
		var answerRows []db.Answer
		if err := s.db.Where("question_id = ?", row.ID).Find(&answerRows).Error; err != nil {
			continue
		}
		for _, answer := range answerRows {
			if !answer.IsCorrect {
				continue
			}
			playerID, ok := playerDBIDs[answer.PlayerID]
			if !ok {
				continue
			}
			if player, found := findRosterPlayer(game, playerID); found {
				player.Score += pointsPerCorrectAnswer
			}
		}
	}

	if err := s.store.RestoreGame(game); err != nil {
		if existing, ok := s.store.GetGame(code); ok {
			return existing, nil
		}
		return nil, err
	}
	log.Printf("game restored game_code=%s players=%d questions=%d", code, len(game.Players), len(questionRows))
	return game, nil
}

// restoredPhase maps a persisted phase to a safe resume point. A question in
// flight at shutdown cannot be resumed, so those rooms come back watching.
func restoredPhase(phase string) string {
	switch phase {
	case phaseQuestion, phaseFeedback:
		return phaseWatching
	case "":
		return phaseLobby
	default:
		return phase
	}
}
