package server

import "testing"

func TestParseWebsocketPath(t *testing.T) {
	cases := []struct {
		path string
		want string
		ok   bool
	}{
		{"/ws/rooms/ABQ2X9", "ABQ2X9", true},
		{"/ws/rooms/abq2x9", "ABQ2X9", true},
		{"/ws/rooms/ABQ2X9/", "ABQ2X9", true},
		{"/ws/rooms/", "", false},
		{"/ws/rooms/ABQ2X9/extra", "", false},
		{"/ws/other/ABQ2X9", "", false},
	}
	for _, tc := range cases {
		got, ok := parseWebsocketPath(tc.path)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parseWebsocketPath(%q) = %q, %v; want %q, %v", tc.path, got, ok, tc.want, tc.ok)
		}
	}
}

func TestWebsocketUnknownRoomRejected(t *testing.T) {
	backend := newStubBackend(t)
	t.Cleanup(backend.Close)
	srv := newStubbedServer(t, backend.URL)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	resp := doRequest(t, ts, "GET", "/ws/rooms/ZZZZZZ", nil)
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 for unknown room, got %d", resp.StatusCode)
	}
}
