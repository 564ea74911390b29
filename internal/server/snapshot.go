package server

import "sort"

// snapshot is the full room state sent to a client when it attaches, so a
// refresh mid-game lands in the right place.
func snapshot(game *Game) map[string]any {
	payload := map[string]any{
		"game_code":        game.GameCode,
		"video_id":         game.VideoID,
		"phase":            game.Phase,
		"interval_seconds": game.IntervalSeconds,
		"depth":            game.Depth,
		"grade_level":      game.GradeLevel,
		"language":         game.Language,
		"player_count":     len(game.Players),
		"players":          rosterPayload(game),
		"scores":           scoresPayload(game),
		"can_join":         game.Phase != phaseFinished,
	}
	if current := game.Current; current != nil && game.Phase == phaseQuestion {
		payload["question"] = map[string]any{
			"window_id":        current.WindowID,
			"question":         current.Text,
			"options":          shuffledOptions(current.CorrectAnswer, current.IncorrectAnswers),
			"answers_received": current.AnswersReceived,
		}
	}
	return payload
}

func rosterPayload(game *Game) []map[string]any {
	roster := make([]map[string]any, 0, len(game.Players))
	for _, player := range game.Players {
		roster = append(roster, map[string]any{
			"player_id": player.ID,
			"nickname":  player.Nickname,
			"score":     player.Score,
		})
	}
	return roster
}

func scoresPayload(game *Game) []map[string]any {
	scores := make([]map[string]any, 0, len(game.Players))
	for _, player := range game.Players {
		scores = append(scores, map[string]any{
			"player_id": player.ID,
			"nickname":  player.Nickname,
			"score":     player.Score,
		})
	}
	sort.Slice(scores, func(i, j int) bool {
		return scores[i]["score"].(int) > scores[j]["score"].(int)
	})
	return scores
}
