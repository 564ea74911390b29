package server

import (
	"net/http"
	"net/http/cookiejar"
	"testing"
)

func TestCreateGameRejectsBadInput(t *testing.T) {
	backend := newStubBackend(t)
	t.Cleanup(backend.Close)
	srv := newStubbedServer(t, backend.URL)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	resp := doRequest(t, ts, http.MethodPost, "/api/games", map[string]any{
		"video_url": "https://example.com/watch?v=nope",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad URL, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, ts, http.MethodPost, "/api/games", map[string]any{
		"video_url":        "https://youtu.be/abc123xyz",
		"interval_seconds": 3,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad interval, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreateGameAppliesDefaults(t *testing.T) {
	backend := newStubBackend(t)
	t.Cleanup(backend.Close)
	srv := newStubbedServer(t, backend.URL)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	resp := doRequest(t, ts, http.MethodPost, "/api/games", map[string]any{
		"video_url": "https://www.youtube.com/watch?v=abc123xyz",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create returned %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Fatalf("expected success flag, got %v", body["success"])
	}
	if body["video_id"] != "abc123xyz" {
		t.Fatalf("unexpected video_id %v", body["video_id"])
	}
	if body["interval_seconds"].(float64) != 120 {
		t.Fatalf("expected default interval 120, got %v", body["interval_seconds"])
	}
	if body["depth"].(float64) != 3 {
		t.Fatalf("expected default depth 3, got %v", body["depth"])
	}
	if body["language"] != "en" {
		t.Fatalf("expected default language en, got %v", body["language"])
	}
	code := body["game_code"].(string)
	if len(code) != 6 {
		t.Fatalf("expected 6 character game code, got %q", code)
	}
}

func TestJoinGameFlow(t *testing.T) {
	backend := newStubBackend(t)
	t.Cleanup(backend.Close)
	srv := newStubbedServer(t, backend.URL)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	code := createGame(t, ts, 120)

	resp := doRequest(t, ts, http.MethodPost, "/api/games/join", map[string]any{
		"game_code": code,
		"nickname":  "Alex",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join returned %d", resp.StatusCode)
	}
	joined := decodeBody(t, resp)
	if joined["success"] != true {
		t.Fatalf("expected success flag, got %v", joined["success"])
	}
	playerID := joined["player_id"].(string)
	if again := joinPlayer(t, ts, code, "Alex"); again != playerID {
		t.Fatal("rejoining with the same nickname created a new player")
	}
	joinPlayer(t, ts, code, "Blake")

	resp = doRequest(t, ts, http.MethodPost, "/api/games/join", map[string]any{
		"game_code": "ZZZZZZ",
		"nickname":  "Casey",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown game, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, ts, http.MethodGet, "/api/games", nil)
	body := decodeBody(t, resp)
	games := body["games"].([]any)
	if len(games) != 1 {
		t.Fatalf("expected 1 game listed, got %d", len(games))
	}
	listed := games[0].(map[string]any)
	if listed["players"].(float64) != 2 {
		t.Fatalf("expected 2 players listed, got %v", listed["players"])
	}
}

func TestSessionResume(t *testing.T) {
	backend := newStubBackend(t)
	t.Cleanup(backend.Close)
	srv := newStubbedServer(t, backend.URL)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	ts.Client().Jar = jar

	code := createGame(t, ts, 120)
	playerID := joinPlayer(t, ts, code, "Alex")

	resp := doRequest(t, ts, http.MethodGet, "/api/session", nil)
	body := decodeBody(t, resp)
	if body["active"] != true {
		t.Fatalf("expected active session, got %v", body)
	}
	if body["game_code"] != code || body["player_id"] != playerID {
		t.Fatalf("session points at wrong game: %v", body)
	}
	if body["nickname"] != "Alex" {
		t.Fatalf("session lost nickname: %v", body)
	}
}

func TestSessionWithoutJoin(t *testing.T) {
	backend := newStubBackend(t)
	t.Cleanup(backend.Close)
	srv := newStubbedServer(t, backend.URL)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	resp := doRequest(t, ts, http.MethodGet, "/api/session", nil)
	body := decodeBody(t, resp)
	if body["active"] != false {
		t.Fatalf("expected inactive session, got %v", body)
	}
}

func TestQRCodeEndpoint(t *testing.T) {
	backend := newStubBackend(t)
	t.Cleanup(backend.Close)
	srv := newStubbedServer(t, backend.URL)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	code := createGame(t, ts, 120)

	resp := doRequest(t, ts, http.MethodGet, "/api/qr?code="+code, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("qr returned %d", resp.StatusCode)
	}
	if contentType := resp.Header.Get("Content-Type"); contentType != "image/png" {
		t.Fatalf("expected image/png, got %q", contentType)
	}

	missing := doRequest(t, ts, http.MethodGet, "/api/qr?code=ZZZZZZ", nil)
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown game, got %d", missing.StatusCode)
	}
}

func TestCheckAnswerEndpoint(t *testing.T) {
	backend := newStubBackend(t)
	t.Cleanup(backend.Close)
	srv := newStubbedServer(t, backend.URL)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	resp := doRequest(t, ts, http.MethodPost, "/api/answers/check", map[string]any{
		"question":        "What is the capital of France?",
		"expected_answer": "Paris",
		"answer":          "It is Paris",
		"content_segment": "The capital of France is Paris.",
	})
	body := decodeBody(t, resp)
	if body["is_correct"] != true {
		t.Fatalf("expected lenient accept, got %v", body)
	}
}

func TestTranslateEndpoint(t *testing.T) {
	backend := newStubBackend(t)
	t.Cleanup(backend.Close)
	srv := newStubbedServer(t, backend.URL)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	code := createGame(t, ts, 120)

	resp := doRequest(t, ts, http.MethodPost, "/api/translate", map[string]any{
		"game_code": code,
		"text":      "What is the capital of France?",
		"language":  "es",
	})
	body := decodeBody(t, resp)
	if body["translation"] == "" || body["translation"] == nil {
		t.Fatalf("expected a translation, got %v", body)
	}
}

func TestGenerateQuestionEndpoint(t *testing.T) {
	backend := newStubBackend(t)
	t.Cleanup(backend.Close)
	srv := newStubbedServer(t, backend.URL)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	code := createGame(t, ts, 120)

	resp := doRequest(t, ts, http.MethodPost, "/api/questions", map[string]any{
		"game_code": code,
		"pause_at":  60.0,
	})
	body := decodeBody(t, resp)
	if body["question"] != "What is the capital of France?" {
		t.Fatalf("unexpected question %v", body["question"])
	}
	options := body["options"].([]any)
	if len(options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(options))
	}
}
