package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketAttemptFlow(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?userId=u1&name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the current leaderboard first.
	if typ, _ := readNext(conn, t, "leaderboard"); typ != "leaderboard" {
		t.Fatalf("expected leaderboard, got %s", typ)
	}

	attempt := map[string]any{
		"type": "attempt",
		"payload": map[string]any{
			"challenge": "ch-1",
			"score":     100,
			"submitted_answers": []map[string]any{
				{"question_id": "q1", "selected_option": 1, "time_spent": 4},
				{"question_id": "q2", "text": "pariss", "time_spent": 6},
			},
		},
	}
	if err := conn.WriteJSON(attempt); err != nil {
		t.Fatalf("write attempt: %v", err)
	}

	var result map[string]any
	leaderboardSeen := false
	for i := 0; i < 4 && (result == nil || !leaderboardSeen); i++ {
		typ, payload := readNext(conn, t, "")
		switch typ {
		case "attemptResult":
			result = payload
		case "leaderboard":
			leaderboardSeen = true
		case "error":
			t.Fatalf("unexpected error message %v", payload)
		}
	}
	if result == nil || !leaderboardSeen {
		t.Fatalf("expected attemptResult and leaderboard, got result=%v leaderboard=%v", result, leaderboardSeen)
	}
	attemptPayload := result["attempt"].(map[string]any)
	if attemptPayload["user_uid"] != "u1" || attemptPayload["score"].(float64) != 100 {
		t.Fatalf("unexpected attempt payload %v", attemptPayload)
	}
}

func TestWebSocketRejectsUnknownMessage(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "leaderboard")

	if err := conn.WriteJSON(map[string]any{"type": "answer"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, payload := readNext(conn, t, "error")
	if payload["message"] != "unsupported message type" {
		t.Fatalf("unexpected error payload %v", payload)
	}
}

func TestEnqueueStopsWhenWriterExits(t *testing.T) {
	send := make(chan int, 1)
	writerDone := make(chan struct{})

	if !enqueue(send, 1, writerDone) {
		t.Fatal("expected buffered send to succeed")
	}

	// Buffer is full and nobody drains it.
	result := make(chan bool)
	go func() { result <- enqueue(send, 2, writerDone) }()
	close(writerDone)

	select {
	case ok := <-result:
		if ok {
			t.Fatal("expected enqueue to fail after the writer stopped")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue blocked after the writer stopped")
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
