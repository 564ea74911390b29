package server

import (
	"testing"
)

func newLobbyGame(t *testing.T, store *Store) *Game {
	t.Helper()
	return store.CreateGame("dQw4w9WgXcQ", 120, 3, "8", "en", 10)
}

func TestAddPlayerAssignsIDsAndPreservesOrder(t *testing.T) {
	store := NewStore()
	game := newLobbyGame(t, store)

	for _, nickname := range []string{"Alex", "Blake", "Casey"} {
		if _, _, err := store.AddPlayer(game.GameCode, nickname, 0); err != nil {
			t.Fatalf("add %s: %v", nickname, err)
		}
	}
	game, _ = store.GetGame(game.GameCode)
	if len(game.Players) != 3 {
		t.Fatalf("expected 3 players, got %d", len(game.Players))
	}
	if game.Players[0].Nickname != "Alex" || game.Players[2].Nickname != "Casey" {
		t.Fatalf("join order not preserved: %+v", game.Players)
	}
	seen := make(map[string]bool)
	for _, player := range game.Players {
		if player.ID == "" {
			t.Fatal("player missing id")
		}
		if seen[player.ID] {
			t.Fatalf("duplicate player id %s", player.ID)
		}
		seen[player.ID] = true
	}
}

func TestAddPlayerRejoinKeepsIdentity(t *testing.T) {
	store := NewStore()
	game := newLobbyGame(t, store)

	_, first, err := store.AddPlayer(game.GameCode, "Alex", 0)
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	first.Score = 200

	_, again, err := store.AddPlayer(game.GameCode, "alex", 0)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if again.ID != first.ID {
		t.Fatal("rejoin created a new identity")
	}
	if again.Score != 200 {
		t.Fatalf("rejoin lost score, got %d", again.Score)
	}
	game, _ = store.GetGame(game.GameCode)
	if len(game.Players) != 1 {
		t.Fatalf("rejoin duplicated roster entry, got %d players", len(game.Players))
	}
}

func TestAddPlayerEnforcesCapacity(t *testing.T) {
	store := NewStore()
	game := newLobbyGame(t, store)

	if _, _, err := store.AddPlayer(game.GameCode, "Alex", 1); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if _, _, err := store.AddPlayer(game.GameCode, "Blake", 1); err == nil {
		t.Fatal("expected join beyond capacity to fail")
	}
}

func TestRecordAnswerFirstSubmissionWins(t *testing.T) {
	store := NewStore()
	game := newLobbyGame(t, store)
	_, player, err := store.AddPlayer(game.GameCode, "Alex", 0)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	_, err = store.UpdateGame(game.GameCode, func(game *Game) error {
		game.Current = newActiveQuestion(Question{
			WindowID:      0,
			Text:          "What is the capital of France?",
			CorrectAnswer: "Paris",
		})
		setPhase(game, phaseQuestion)

		if accepted, reason := recordAnswer(game, player.ID, "Paris"); !accepted {
			t.Fatalf("first answer rejected: %s", reason)
		}
		if accepted, _ := recordAnswer(game, player.ID, "London"); accepted {
			t.Fatal("second answer accepted")
		}
		if game.Current.Answers[player.ID] != "Paris" {
			t.Fatalf("first answer overwritten: %q", game.Current.Answers[player.ID])
		}
		if game.Current.AnswersReceived != 1 {
			t.Fatalf("expected 1 answer received, got %d", game.Current.AnswersReceived)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestRecordAnswerRequiresActiveQuestion(t *testing.T) {
	store := NewStore()
	game := newLobbyGame(t, store)
	_, player, err := store.AddPlayer(game.GameCode, "Alex", 0)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	_, err = store.UpdateGame(game.GameCode, func(game *Game) error {
		if accepted, _ := recordAnswer(game, player.ID, "Paris"); accepted {
			t.Fatal("answer accepted with no active question")
		}
		game.Current = newActiveQuestion(Question{Text: "Q", CorrectAnswer: "A"})
		setPhase(game, phaseQuestion)
		game.Current.FeedbackShown = true
		if accepted, _ := recordAnswer(game, player.ID, "Paris"); accepted {
			t.Fatal("answer accepted after feedback was shown")
		}
		if accepted, _ := recordAnswer(game, "not-a-player", "Paris"); accepted {
			t.Fatal("answer accepted from unknown player")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestUpdateGameUnknownCode(t *testing.T) {
	store := NewStore()
	if _, err := store.UpdateGame("ZZZZZZ", func(game *Game) error { return nil }); err == nil {
		t.Fatal("expected unknown game to error")
	}
}

func TestListGameSummaries(t *testing.T) {
	store := NewStore()
	first := newLobbyGame(t, store)
	second := newLobbyGame(t, store)
	if _, _, err := store.AddPlayer(first.GameCode, "Alex", 0); err != nil {
		t.Fatalf("join: %v", err)
	}

	summaries := store.ListGameSummaries()
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	byCode := make(map[string]GameSummary)
	for _, summary := range summaries {
		byCode[summary.GameCode] = summary
	}
	if byCode[first.GameCode].Players != 1 {
		t.Fatalf("expected 1 player in %s", first.GameCode)
	}
	if byCode[second.GameCode].Players != 0 {
		t.Fatalf("expected empty roster in %s", second.GameCode)
	}
}
