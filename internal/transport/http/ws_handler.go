package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// maxBacklog bounds the per-channel chat log the poll loop scans. Old entries
// are useless once the cursor has moved past them.
const maxBacklog = 512

// Hub bridges websocket clients and the quiz engine. It is both the engine's
// message stream (clients' chat lines become candidate answers) and its
// presenter (engine effects fan out to every client in the channel).
type Hub struct {
	service *app.QuizService
	log     zerolog.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[int64]map[*client]struct{}
	backlog map[int64][]storedMessage
	nextSeq int64
	hintSeq int64
}

var (
	_ app.MessageStream = (*Hub)(nil)
	_ app.Presenter     = (*Hub)(nil)
)

type storedMessage struct {
	seq     int64
	message domain.ChatMessage
}

// client is one websocket connection. The writer goroutine is the only
// reader of send; done is closed exactly once, by whichever side of the
// connection fails first, and gates every enqueue.
type client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan outboundMessage[any]
	done      chan struct{}
	closeOnce sync.Once
	guildID   int64
	channelID int64
	userID    int64
	name      string
	avatar    string
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// enqueue hands a frame to the writer without ever blocking the caller. The
// send channel is never closed, so a frame racing the disconnect path is
// dropped, not a panic. Frames for a saturated client are dropped too;
// stalling the engine on a slow consumer is worse.
func (c *client) enqueue(msg outboundMessage[any]) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- msg:
	default:
	}
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[int64]map[*client]struct{}),
		backlog: make(map[int64][]storedMessage),
	}
}

// SetService breaks the construction cycle: the engine needs the hub as its
// stream and presenter, the hub needs the engine for commands.
func (h *Hub) SetService(service *app.QuizService) {
	h.service = service
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type chatPayload struct {
	Content string `json:"content"`
}

type chatEcho struct {
	ID      string    `json:"id"`
	Author  string    `json:"author"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sentAt"`
}

type startPayload struct {
	Questions  int    `json:"questions"`
	Difficulty string `json:"difficulty"`
	Category   string `json:"category"`
	MaxYear    int    `json:"maxYear"`
}

type rankingPayload struct {
	Name string `json:"name"`
}

type rankingResult struct {
	Player domain.RankedPlayer `json:"player"`
	Total  int                 `json:"total"`
}

type registeredPayload struct {
	Player domain.Player `json:"player"`
}

type tickPayload struct {
	RemainingSeconds float64 `json:"remainingSeconds"`
}

type cancelPayload struct {
	Reason string `json:"reason"`
}

type questionPayload struct {
	Index  int    `json:"index"`
	Total  int    `json:"total"`
	Image  string `json:"image"`
	Ranked bool   `json:"ranked"`
}

type hintPayload struct {
	ID       string            `json:"id"`
	Replaces string            `json:"replaces,omitempty"`
	Shown    int               `json:"shown"`
	Max      int               `json:"max"`
	Hints    map[string]string `json:"hints"`
}

type winnerPayload struct {
	Name           string            `json:"name"`
	Answers        map[string]string `json:"answers"`
	ElapsedSeconds float64           `json:"elapsedSeconds"`
}

type closeCallEntry struct {
	Name           string  `json:"name"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	BehindSeconds  float64 `json:"behindSeconds"`
}

type answersPayload struct {
	Answers map[string]string `json:"answers"`
	Plural  bool              `json:"plural"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz
// engine.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	guildID, err1 := strconv.ParseInt(r.URL.Query().Get("guildId"), 10, 64)
	channelID, err2 := strconv.ParseInt(r.URL.Query().Get("channelId"), 10, 64)
	userID, err3 := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	name := r.URL.Query().Get("name")
	if err1 != nil || err2 != nil || err3 != nil || name == "" {
		http.Error(w, "missing or invalid guildId, channelId, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	c := &client{
		hub:       h,
		conn:      conn,
		send:      make(chan outboundMessage[any], 32),
		done:      make(chan struct{}),
		guildID:   guildID,
		channelID: channelID,
		userID:    userID,
		name:      name,
		avatar:    r.URL.Query().Get("avatar"),
	}

	h.add(c)
	defer h.remove(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer c.close()
		for {
			select {
			case msg := <-c.send:
				if err := conn.WriteJSON(msg); err != nil {
					h.log.Debug().Err(err).Int64("channel", c.channelID).Msg("ws write error")
					return
				}
			case <-c.done:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r.Context(), c, inbound)
	}

	c.close()
	<-writerDone
}

func (h *Hub) dispatch(ctx context.Context, c *client, inbound inboundMessage) {
	switch inbound.Type {
	case "chat":
		var payload chatPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Content == "" {
			c.fail("invalid chat payload")
			return
		}
		h.recordChat(c, payload.Content)

	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.fail("invalid start payload")
			return
		}
		if _, err := h.service.StartQuiz(context.WithoutCancel(ctx), c.guildID, c.channelID,
			payload.Questions, payload.Difficulty, payload.Category, payload.MaxYear); err != nil {
			c.fail(err.Error())
		}

	case "stop":
		if err := h.service.StopQuiz(c.channelID); err != nil {
			c.fail(err.Error())
		}

	case "skip":
		if err := h.service.SkipQuestion(c.channelID); err != nil {
			c.fail(err.Error())
		}

	case "register":
		player, err := h.service.Register(ctx, c.channelID, c.userID, c.name, c.avatar)
		if err != nil {
			c.fail(err.Error())
			return
		}
		c.enqueue(outboundMessage[any]{Type: "registered", Payload: registeredPayload{Player: player}})

	case "ranking":
		var payload rankingPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.fail("invalid ranking payload")
			return
		}
		name := payload.Name
		if name == "" {
			name = c.name
		}
		player, total, err := h.service.PlayerRanking(ctx, c.guildID, name)
		if err != nil {
			c.fail(err.Error())
			return
		}
		c.enqueue(outboundMessage[any]{Type: "ranking", Payload: rankingResult{Player: player, Total: total}})

	case "leaderboard":
		leaderboard, err := h.service.EloLeaderboard(ctx, c.guildID)
		if err != nil {
			c.fail(err.Error())
			return
		}
		c.enqueue(outboundMessage[any]{Type: "leaderboard", Payload: leaderboard})

	default:
		c.fail("unsupported message type")
	}
}

func (c *client) fail(message string) {
	c.enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}})
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.channelID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.channelID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.channelID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.channelID)
	}
}

// recordChat appends the line to the channel backlog the engine polls, then
// echoes it to every client in the channel.
func (h *Hub) recordChat(c *client, content string) {
	h.mu.Lock()
	h.nextSeq++
	seq := h.nextSeq
	msg := domain.ChatMessage{
		ID:         strconv.FormatInt(seq, 10),
		ChannelID:  c.channelID,
		AuthorID:   c.userID,
		AuthorName: c.name,
		Content:    content,
		SentAt:     time.Now(),
	}
	backlog := append(h.backlog[c.channelID], storedMessage{seq: seq, message: msg})
	if len(backlog) > maxBacklog {
		backlog = backlog[len(backlog)-maxBacklog:]
	}
	h.backlog[c.channelID] = backlog
	h.mu.Unlock()

	h.broadcast(c.channelID, outboundMessage[any]{Type: "chat", Payload: chatEcho{
		ID:      msg.ID,
		Author:  msg.AuthorName,
		Content: msg.Content,
		SentAt:  msg.SentAt,
	}})
}

func (h *Hub) broadcast(channelID int64, msg outboundMessage[any]) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients[channelID]))
	for c := range h.clients[channelID] {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.enqueue(msg)
	}
}

// nextCursor mints a fresh cursor strictly after everything already logged.
func (h *Hub) nextCursor() domain.Cursor {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSeq++
	return domain.Cursor{MessageID: strconv.FormatInt(h.nextSeq, 10), At: time.Now()}
}

// MessagesAfter returns the channel's chat lines logged after the cursor,
// oldest first.
func (h *Hub) MessagesAfter(_ context.Context, channelID int64, after domain.Cursor) ([]domain.ChatMessage, error) {
	afterSeq, err := strconv.ParseInt(after.MessageID, 10, 64)
	if err != nil {
		afterSeq = 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.ChatMessage
	for _, stored := range h.backlog[channelID] {
		if stored.seq > afterSeq {
			out = append(out, stored.message)
		}
	}
	return out, nil
}

func (h *Hub) QuizStarted(channelID int64, settings app.Settings) {
	h.broadcast(channelID, outboundMessage[any]{Type: "quizStarted", Payload: settings})
}

func (h *Hub) RegistrationTick(channelID int64, remaining time.Duration) {
	h.broadcast(channelID, outboundMessage[any]{Type: "registrationTick", Payload: tickPayload{RemainingSeconds: remaining.Seconds()}})
}

func (h *Hub) RegistrationClosed(channelID int64, players []domain.Player) {
	h.broadcast(channelID, outboundMessage[any]{Type: "registrationClosed", Payload: players})
}

func (h *Hub) QuizCancelled(channelID int64, reason string) {
	h.broadcast(channelID, outboundMessage[any]{Type: "quizCancelled", Payload: cancelPayload{Reason: reason}})
}

func (h *Hub) QuestionAsked(channelID int64, index, total int, image string, ranked bool) domain.Cursor {
	cursor := h.nextCursor()
	h.broadcast(channelID, outboundMessage[any]{Type: "question", Payload: questionPayload{
		Index:  index,
		Total:  total,
		Image:  image,
		Ranked: ranked,
	}})
	return cursor
}

func (h *Hub) HintRevealed(channelID int64, shown, max int, hints map[string]string, replaces string) string {
	h.mu.Lock()
	h.hintSeq++
	id := "hint-" + strconv.FormatInt(h.hintSeq, 10)
	h.mu.Unlock()

	h.broadcast(channelID, outboundMessage[any]{Type: "hint", Payload: hintPayload{
		ID:       id,
		Replaces: replaces,
		Shown:    shown,
		Max:      max,
		Hints:    hints,
	}})
	return id
}

func (h *Hub) Winner(channelID int64, message domain.ChatMessage, answers map[string]string, elapsed time.Duration) {
	h.broadcast(channelID, outboundMessage[any]{Type: "winner", Payload: winnerPayload{
		Name:           message.AuthorName,
		Answers:        answers,
		ElapsedSeconds: elapsed.Seconds(),
	}})
}

func (h *Hub) CloseCalls(channelID int64, calls []app.CloseAnswer) {
	entries := make([]closeCallEntry, len(calls))
	for i, call := range calls {
		entries[i] = closeCallEntry{
			Name:           call.Name,
			ElapsedSeconds: call.Elapsed.Seconds(),
			BehindSeconds:  call.Behind.Seconds(),
		}
	}
	h.broadcast(channelID, outboundMessage[any]{Type: "closeCalls", Payload: entries})
}

func (h *Hub) TimedOut(channelID int64, answers map[string]string) {
	h.broadcast(channelID, outboundMessage[any]{Type: "timedOut", Payload: answersPayload{Answers: answers}})
}

func (h *Hub) AnswersRevealed(channelID int64, answers map[string]string, plural bool) {
	h.broadcast(channelID, outboundMessage[any]{Type: "answers", Payload: answersPayload{Answers: answers, Plural: plural}})
}

func (h *Hub) CountdownTick(channelID int64, remaining time.Duration) {
	h.broadcast(channelID, outboundMessage[any]{Type: "countdown", Payload: tickPayload{RemainingSeconds: remaining.Seconds()}})
}

func (h *Hub) QuizFinished(channelID int64, board []domain.ScoreRow) {
	h.broadcast(channelID, outboundMessage[any]{Type: "quizFinished", Payload: board})
}

func (h *Hub) RatingsUpdated(channelID int64, updates []domain.RatingUpdate) {
	h.broadcast(channelID, outboundMessage[any]{Type: "ratingsUpdated", Payload: updates})
}
