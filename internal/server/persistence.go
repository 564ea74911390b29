package server

import (
	"encoding/json"
	"errors"

	"vidquiz/internal/db"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// Persistence is best effort: a server running without DATABASE_URL keeps
// every game in memory and all of these are no-ops.

func (s *Server) persistGame(game *Game) error {
	if s.db == nil {
		return nil
	}
	record := db.Game{
		GameCode:        game.GameCode,
		VideoID:         game.VideoID,
		Phase:           game.Phase,
		IntervalSeconds: game.IntervalSeconds,
		Depth:           game.Depth,
		GradeLevel:      game.GradeLevel,
		Language:        game.Language,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	game.DBID = record.ID
	return s.persistEvent(game, nil, "game_created", map[string]any{
		"game_code": game.GameCode,
		"video_id":  game.VideoID,
	})
}

func (s *Server) persistPlayer(game *Game, player *Player) error {
	if s.db == nil || player.DBID != 0 {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	if game.DBID == 0 {
		return errors.New("game not found")
	}
	record := db.Player{
		GameID:   game.DBID,
		PlayerID: player.ID,
		Nickname: player.Nickname,
		JoinedAt: player.JoinedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			var existing db.Player
			if lookupErr := s.db.Where("game_id = ? AND nickname = ?", game.DBID, player.Nickname).First(&existing).Error; lookupErr == nil {
				player.DBID = existing.ID
				return nil
			}
		}
		return err
	}
	player.DBID = record.ID
	return s.persistEvent(game, player, "player_joined", map[string]any{
		"nickname": player.Nickname,
	})
}

func (s *Server) persistQuestion(game *Game, question *Question) error {
	if s.db == nil || question.DBID != 0 {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	if game.DBID == 0 {
		return errors.New("game not found")
	}
	incorrect, err := json.Marshal(question.IncorrectAnswers)
	if err != nil {
		return err
	}
	record := db.Question{
		GameID:           game.DBID,
		WindowID:         question.WindowID,
		Text:             question.Text,
		CorrectAnswer:    question.CorrectAnswer,
		IncorrectAnswers: datatypes.JSON(incorrect),
		ContentSegment:   question.ContentSegment,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	question.DBID = record.ID
	return nil
}

func (s *Server) persistAnswer(game *Game, playerID, answer string) error {
	if s.db == nil || game.Current == nil || game.Current.DBID == 0 {
		return nil
	}
	player, found := findRosterPlayer(game, playerID)
	if !found || player.DBID == 0 {
		return errors.New("player not persisted")
	}
	record := db.Answer{
		QuestionID: game.Current.DBID,
		PlayerID:   player.DBID,
		Text:       answer,
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
}

func (s *Server) persistResult(game *Game, result *AnswerResult) error {
	if s.db == nil || game.Current == nil || game.Current.DBID == 0 {
		return nil
	}
	player, found := findRosterPlayer(game, result.PlayerID)
	if !found || player.DBID == 0 {
		return errors.New("player not persisted")
	}
	updates := map[string]any{
		"is_correct":  result.IsCorrect,
		"explanation": result.Explanation,
	}
	if err := s.db.Model(&db.Answer{}).
		Where("question_id = ? AND player_id = ?", game.Current.DBID, player.DBID).
		Updates(updates).Error; err != nil {
		return err
	}
	return s.db.Model(&db.Player{}).
		Where("id = ?", player.DBID).
		Update("score", player.Score).Error
}

func (s *Server) persistPhase(game *Game, eventType string, payload map[string]any) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	if game.DBID == 0 {
		return errors.New("game not found")
	}
	if err := s.db.Model(&db.Game{}).Where("id = ?", game.DBID).Update("phase", game.Phase).Error; err != nil {
		return err
	}
	return s.persistEvent(game, nil, eventType, payload)
}

func (s *Server) persistEvent(game *Game, player *Player, eventType string, payload map[string]any) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	if game.DBID == 0 {
		return errors.New("game not found")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event := db.Event{
		GameID:  game.DBID,
		Type:    eventType,
		Payload: datatypes.JSON(data),
	}
	if player != nil && player.DBID != 0 {
		id := player.DBID
		event.PlayerID = &id
	}
	if game.Current != nil && game.Current.DBID != 0 {
		id := game.Current.DBID
		event.QuestionID = &id
	}
	return s.db.Create(&event).Error
}

func (s *Server) ensureGameDBID(game *Game) error {
	if s.db == nil || game.DBID != 0 {
		return nil
	}
	var record db.Game
	if err := s.db.Where("game_code = ?", game.GameCode).First(&record).Error; err != nil {
		return nil
	}
	game.DBID = record.ID
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
