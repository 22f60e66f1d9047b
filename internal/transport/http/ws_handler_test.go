package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/catalogue"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/match"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cat := catalogue.New([]catalogue.Record{
		{Vnum: 1, ImageName1: "sword.png", Year: 2004, Names: map[string]string{"en": "Sword"}},
	})
	hub := NewHub(zerolog.Nop())
	service := app.NewQuizService(app.NewRegistry(), cat, memory.NewRatingStore(), hub, hub, app.Options{
		Difficulties: map[string]app.DifficultySpec{
			"normal": {Mode: match.ModePermissive, TimeBetweenHints: time.Hour, MaxHints: 4},
		},
		DefaultLangs: []string{"en"},
		Tunables: app.Tunables{
			PollPeriod:           5 * time.Millisecond,
			TimeBetweenQuestions: time.Millisecond,
			RegistrationWindow:   time.Second,
			CloseAnswerWindow:    10 * time.Millisecond,
		},
	}, zerolog.Nop())
	hub.SetService(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, userID, name string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?guildId=1&channelId=10&userId=" + userID + "&name=" + name
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	// List-shaped payloads stay opaque; callers only inspect object frames.
	var payload map[string]any
	_ = json.Unmarshal(msg.Payload, &payload)
	return msg.Type, payload
}

func awaitType(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	for i := 0; i < 50; i++ {
		typ, payload := readNext(t, conn)
		if typ == want {
			return payload
		}
	}
	t.Fatalf("never received %s frame", want)
	return nil
}

func writeFrame(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func TestRejectsIncompleteIdentity(t *testing.T) {
	server := newTestServer(t)
	u := "ws" + server.URL[len("http"):] + "/ws?guildId=1&channelId=10"
	if _, _, err := websocket.DefaultDialer.Dial(u, nil); err == nil {
		t.Fatalf("expected the dial to be rejected")
	}
}

func TestWebSocketQuizRound(t *testing.T) {
	server := newTestServer(t)
	alice := dial(t, server, "7", "Alice")
	bob := dial(t, server, "8", "Bob")

	writeFrame(t, alice, "start", map[string]any{
		"questions":  1,
		"difficulty": "normal",
		"category":   "friendly",
	})

	awaitType(t, alice, "quizStarted")
	question := awaitType(t, alice, "question")
	if question["image"] != "sword.png" {
		t.Fatalf("unexpected question payload %v", question)
	}

	// Bob's chat line must reach Alice and win the round.
	writeFrame(t, bob, "chat", map[string]any{"content": "sword"})
	chat := awaitType(t, alice, "chat")
	if chat["author"] != "Bob" || chat["content"] != "sword" {
		t.Fatalf("unexpected chat echo %v", chat)
	}

	winner := awaitType(t, alice, "winner")
	if winner["name"] != "Bob" {
		t.Fatalf("unexpected winner %v", winner)
	}

	awaitType(t, alice, "answers")
	awaitType(t, bob, "quizFinished")
}

func TestBroadcastAfterClientGone(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := &client{
		hub:       hub,
		send:      make(chan outboundMessage[any], 1),
		done:      make(chan struct{}),
		channelID: 10,
	}
	hub.add(c)

	// The read loop has ended but the deferred remove has not run yet.
	c.close()

	hub.broadcast(10, outboundMessage[any]{Type: "countdown"})
	if len(c.send) != 0 {
		t.Fatalf("a frame was queued for a finished client")
	}
	hub.remove(c)
}

func TestEnqueueNeverBlocks(t *testing.T) {
	c := &client{
		send: make(chan outboundMessage[any], 2),
		done: make(chan struct{}),
	}

	// No writer is draining; every call must still return promptly.
	for i := 0; i < 10; i++ {
		c.enqueue(outboundMessage[any]{Type: "hint"})
	}
	if len(c.send) != 2 {
		t.Fatalf("expected the buffer to hold 2 frames with the rest dropped, got %d", len(c.send))
	}
}

func TestPeerDisconnectMidRound(t *testing.T) {
	server := newTestServer(t)
	alice := dial(t, server, "7", "Alice")
	bob := dial(t, server, "8", "Bob")

	writeFrame(t, alice, "start", map[string]any{
		"questions":  1,
		"difficulty": "normal",
		"category":   "friendly",
	})
	awaitType(t, alice, "question")
	awaitType(t, bob, "question")

	// Bob drops mid-round; the session must keep broadcasting to Alice.
	bob.Close()

	writeFrame(t, alice, "chat", map[string]any{"content": "sword"})
	winner := awaitType(t, alice, "winner")
	if winner["name"] != "Alice" {
		t.Fatalf("unexpected winner %v", winner)
	}
	awaitType(t, alice, "quizFinished")
}

func TestWebSocketCommandErrors(t *testing.T) {
	server := newTestServer(t)
	alice := dial(t, server, "7", "Alice")

	writeFrame(t, alice, "stop", nil)
	if payload := awaitType(t, alice, "error"); payload["message"] == "" {
		t.Fatalf("expected an error message, got %v", payload)
	}

	writeFrame(t, alice, "bogus", nil)
	if payload := awaitType(t, alice, "error"); payload["message"] != "unsupported message type" {
		t.Fatalf("unexpected error payload %v", payload)
	}

	writeFrame(t, alice, "start", map[string]any{
		"questions":  1,
		"difficulty": "impossible",
		"category":   "friendly",
	})
	if payload := awaitType(t, alice, "error"); payload["message"] == "" {
		t.Fatalf("expected a difficulty error, got %v", payload)
	}
}

func TestWebSocketRankedRegistration(t *testing.T) {
	server := newTestServer(t)
	alice := dial(t, server, "7", "Alice")
	bob := dial(t, server, "8", "Bob")

	writeFrame(t, alice, "start", map[string]any{
		"questions":  1,
		"difficulty": "normal",
		"category":   "ranked",
	})
	awaitType(t, alice, "quizStarted")
	// The first tick proves the registration window is open.
	awaitType(t, alice, "registrationTick")

	writeFrame(t, alice, "register", nil)
	writeFrame(t, bob, "register", nil)

	registered := awaitType(t, alice, "registered")
	player, ok := registered["player"].(map[string]any)
	if !ok || player["name"] != "Alice" {
		t.Fatalf("unexpected registration payload %v", registered)
	}

	awaitType(t, alice, "registrationClosed")
	awaitType(t, alice, "question")

	writeFrame(t, alice, "chat", map[string]any{"content": "sword"})
	awaitType(t, alice, "winner")
	awaitType(t, alice, "ratingsUpdated")

	writeFrame(t, alice, "leaderboard", nil)
	awaitType(t, alice, "leaderboard")
}
