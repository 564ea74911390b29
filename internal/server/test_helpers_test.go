package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vidquiz/internal/config"

	"github.com/gorilla/websocket"
)

const stubCaptionXML = `<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0" dur="5">The French Revolution began in 1789.</text>
  <text start="5" dur="5">The capital of France is Paris.</text>
  <text start="10" dur="5">The monarchy was overthrown.</text>
  <text start="70" dur="5">Napoleon rose to power afterwards.</text>
</transcript>`

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

// newStubBackend serves both the caption endpoint and the model API so tests
// run without network access. The model side answers whichever function the
// request asked for.
func newStubBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/timedtext", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = io.WriteString(w, stubCaptionXML)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req openAIChatRequest
		_ = json.Unmarshal(body, &req)
		name := ""
		if len(req.Tools) > 0 {
			name = req.Tools[0].Function.Name
		}
		var arguments string
		switch name {
		case "submit_question":
			arguments = `{"question":"What is the capital of France?","correct_answer":"Paris","incorrect_answers":["London","Berlin"]}`
		case "submit_verdict":
			verdict := `{"is_correct":false,"explanation":"That is not what the video said."}`
			if len(req.Messages) > 1 {
				content := req.Messages[1].Content
				if idx := strings.Index(content, "Student answer:"); idx >= 0 {
					content = content[idx:]
				}
				if strings.Contains(strings.ToLower(content), "paris") {
					verdict = `{"is_correct":true,"explanation":"Paris is correct."}`
				}
			}
			arguments = verdict
		case "submit_translation":
			arguments = `{"translation":"¿Cuál es la capital de Francia?"}`
		default:
			http.Error(w, "unexpected function", http.StatusBadRequest)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"tool_calls": []map[string]any{{
						"function": map[string]any{
							"name":      name,
							"arguments": arguments,
						},
					}},
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return newTestServer(t, mux)
}

func newStubbedServer(t *testing.T, backendURL string) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.OpenAIAPIKey = "test-key"
	cfg.CaptionBaseURL = backendURL + "/timedtext"
	srv := New(nil, cfg)
	srv.openAIBaseURL = backendURL
	return srv
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return decoded
}

func createGame(t *testing.T, ts *httptest.Server, intervalSeconds int) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games", map[string]any{
		"video_url":        "https://youtu.be/abc123xyz",
		"interval_seconds": intervalSeconds,
		"depth":            3,
		"grade_level":      "8",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create game returned %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	code, _ := body["game_code"].(string)
	if code == "" {
		t.Fatal("create game returned no game_code")
	}
	return code
}

func joinPlayer(t *testing.T, ts *httptest.Server, gameCode, nickname string) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games/join", map[string]any{
		"game_code": gameCode,
		"nickname":  nickname,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join game returned %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	playerID, _ := body["player_id"].(string)
	if playerID == "" {
		t.Fatal("join game returned no player_id")
	}
	return playerID
}

func dialRoom(t *testing.T, ts *httptest.Server, gameCode, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/" + gameCode + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(15 * time.Second))
	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, payload map[string]any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal ws message: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write ws message: %v", err)
	}
}

// drivePlayback reports advancing playback positions from a background
// goroutine until the returned stop function is called. Stop waits for the
// goroutine to exit so the caller can safely write on the connection again.
func drivePlayback(conn *websocket.Conn, start float64) (stop func()) {
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			select {
			case <-quit:
				return
			default:
			}
			payload, err := json.Marshal(map[string]any{
				"type":         "time_update",
				"current_time": start + float64(i)/10,
			})
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
			time.Sleep(100 * time.Millisecond)
		}
	}()
	return func() {
		close(quit)
		<-done
	}
}

// readUntilType drains messages until one with the wanted type arrives.
func readUntilType(t *testing.T, conn *websocket.Conn, wantType string) map[string]any {
	t.Helper()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q message: %v", wantType, err)
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msgType, _ := msg["type"].(string); msgType == wantType {
			return msg
		}
	}
}
