package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"ctchen222/tictactoe-minimax/internal/api/models"
	apirepository "ctchen222/tictactoe-minimax/internal/api/repository"
	"ctchen222/tictactoe-minimax/internal/api/service"
	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/config"
	"ctchen222/tictactoe-minimax/internal/db"
	"ctchen222/tictactoe-minimax/internal/events"
	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/repository"
	"ctchen222/tictactoe-minimax/pkg/proto"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryGames is an in-process GameRepository.
type memoryGames struct {
	mu    sync.Mutex
	games map[string]game.Session
}

func (m *memoryGames) Create(_ context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[s.ID] = clone(*s)
	return nil
}

func (m *memoryGames) FindByID(_ context.Context, id string) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.games[id]
	if !ok {
		return nil, repository.ErrGameNotFound
	}
	out := clone(s)
	return &out, nil
}

func (m *memoryGames) Update(_ context.Context, id string, fn func(*game.Session) error) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.games[id]
	if !ok {
		return nil, repository.ErrGameNotFound
	}
	s = clone(s)
	if err := fn(&s); err != nil {
		return nil, err
	}
	m.games[id] = s
	out := clone(s)
	return &out, nil
}

func (m *memoryGames) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	return nil
}

func clone(s game.Session) game.Session {
	s.Moves = slices.Clone(s.Moves)
	return s
}

type subscriberFunc func(ctx context.Context, gameID string) (events.Feed, error)

func (f subscriberFunc) SubscribeGame(ctx context.Context, gameID string) (events.Feed, error) {
	return f(ctx, gameID)
}

type memoryFeed struct {
	updates chan events.GameUpdatedPayload
	once    sync.Once
}

func (f *memoryFeed) Updates() <-chan events.GameUpdatedPayload { return f.updates }

func (f *memoryFeed) Close() error {
	f.once.Do(func() { close(f.updates) })
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Extras  json.RawMessage `json:"extras"`
}

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, checks map[string]func(context.Context) error) *testServer {
	t.Helper()
	return newTestServerWith(t, checks, nil)
}

// newTestServerWith builds a server whose Subscriber, if subscribe is not
// nil, is made from the game service the server uses.
func newTestServerWith(t *testing.T, checks map[string]func(context.Context) error, subscribe func(service.GameService) Subscriber) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pool, err := db.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	calc := bot.NewCalculator(false)
	games := &memoryGames{games: map[string]game.Session{}}
	gameService := service.NewGameService(games, repository.NewHistoryRepository(pool), calc, nil)
	var subscriber Subscriber
	if subscribe != nil {
		subscriber = subscribe(gameService)
	}
	srv := NewServer(Deps{
		Users:      service.NewUserService(apirepository.NewUserRepository(pool), config.JWT{Secret: "test", TTL: time.Hour}),
		Games:      gameService,
		Solver:     service.NewSolverService(calc),
		Subscriber: subscriber,
		Checks:     checks,
	})

	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)
	return &testServer{ts}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Extras, &out))
	return out
}

func TestHealth(t *testing.T) {
	ok := newTestServer(t, map[string]func(context.Context) error{
		"redis": func(context.Context) error { return nil },
	})
	resp, err := http.Get(ok.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	down := newTestServer(t, map[string]func(context.Context) error{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	resp, err = http.Get(down.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSolve(t *testing.T) {
	ts := newTestServer(t, nil)

	code, env := ts.do(t, http.MethodPost, "/api/v1/solve", "", models.SolveRequest{Board: [][]string{
		{"O", "", ""},
		{"", "X", ""},
		{"", "", "X"},
	}})
	require.Equal(t, http.StatusOK, code)
	an := decode[models.AnalysisResponse](t, env)
	assert.Equal(t, "O", an.Player)
	require.NotNil(t, an.BestMove)
	assert.Equal(t, game.Action{Row: 0, Col: 2}, *an.BestMove)
	assert.Equal(t, 0, an.Value)
	assert.Len(t, an.Moves, 6)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/solve", "", models.SolveRequest{Board: [][]string{{"X"}}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/solve", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGameFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	code, env := ts.do(t, http.MethodPost, "/api/v1/users/guest", "", nil)
	require.Equal(t, http.StatusOK, code)
	token := decode[models.LoginResponse](t, env).Token
	require.NotEmpty(t, token)

	code, env = ts.do(t, http.MethodPost, "/api/v1/games", token, models.NewGameRequest{Computer: "O"})
	require.Equal(t, http.StatusCreated, code)
	created := decode[models.GameResponse](t, env)
	assert.Equal(t, "X", created.Next)
	assert.Equal(t, game.InProgress, created.Outcome)

	row, col := 1, 1
	code, env = ts.do(t, http.MethodPost, "/api/v1/games/"+created.ID+"/moves", token, models.MoveRequest{Row: &row, Col: &col})
	require.Equal(t, http.StatusOK, code)
	played := decode[models.GameResponse](t, env)
	assert.Equal(t, "X", played.Board[1][1])
	assert.Equal(t, "O", played.Board[0][0])
	assert.Equal(t, "X", played.Next)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/games/"+created.ID+"/moves", token, models.MoveRequest{Row: &row, Col: &col})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/games/"+created.ID+"/moves", token, map[string]int{"row": 1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = ts.do(t, http.MethodGet, "/api/v1/games/"+created.ID+"/hint", token, nil)
	require.Equal(t, http.StatusOK, code)
	hint := decode[models.AnalysisResponse](t, env)
	assert.Equal(t, "X", hint.Player)
	assert.Equal(t, 0, hint.Value)
	assert.NotNil(t, hint.BestMove)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/games/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/games", token, models.NewGameRequest{Difficulty: "impossible"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t, nil)

	code, _ := ts.do(t, http.MethodGet, "/api/v1/history", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	creds := map[string]string{"username": "alice", "password": "secret123"}
	code, _ = ts.do(t, http.MethodPost, "/api/v1/users/register", "", creds)
	require.Equal(t, http.StatusCreated, code)
	code, _ = ts.do(t, http.MethodPost, "/api/v1/users/register", "", creds)
	assert.Equal(t, http.StatusConflict, code)

	code, env := ts.do(t, http.MethodPost, "/api/v1/users/login", "", creds)
	require.Equal(t, http.StatusOK, code)
	token := decode[models.LoginResponse](t, env).Token

	code, _ = ts.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)

	// A two-human game won by X on the top row.
	code, env = ts.do(t, http.MethodPost, "/api/v1/games", token, nil)
	require.Equal(t, http.StatusCreated, code)
	id := decode[models.GameResponse](t, env).ID
	for _, m := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0, 2}} {
		code, _ = ts.do(t, http.MethodPost, "/api/v1/games/"+id+"/moves", token, models.MoveRequest{Row: &m[0], Col: &m[1]})
		require.Equal(t, http.StatusOK, code)
	}

	code, env = ts.do(t, http.MethodGet, "/api/v1/history", token, nil)
	require.Equal(t, http.StatusOK, code)
	history := decode[models.HistoryResponse](t, env)
	require.Len(t, history.Games, 1)
	assert.Equal(t, id, history.Games[0].ID)
	assert.Equal(t, game.XWins, history.Games[0].Outcome)
	assert.Len(t, history.Games[0].Moves, 5)
}

func TestGameSocket(t *testing.T) {
	ts := newTestServer(t, nil)

	code, env := ts.do(t, http.MethodPost, "/api/v1/games", "", models.NewGameRequest{Computer: "X"})
	require.Equal(t, http.StatusCreated, code)
	id := decode[models.GameResponse](t, env).ID

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws/games/" + id
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	read := func() proto.ServerToClientMessage {
		t.Helper()
		var msg proto.ServerToClientMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	initial := read()
	assert.Equal(t, proto.TypeUpdate, initial.Type)
	assert.Equal(t, "X", initial.Board[0][0])
	assert.Equal(t, "O", initial.Next)

	require.NoError(t, conn.WriteJSON(proto.ClientToServerMessage{Type: proto.TypeMove, Position: []int{1, 1}}))
	update := read()
	assert.Equal(t, proto.TypeUpdate, update.Type)
	assert.Equal(t, "O", update.Board[1][1])
	assert.Len(t, update.Moves, 3)

	require.NoError(t, conn.WriteJSON(proto.ClientToServerMessage{Type: proto.TypeMove, Position: []int{1, 1}}))
	rejected := read()
	assert.Equal(t, proto.TypeError, rejected.Type)
	assert.Contains(t, rejected.Reason, game.ErrInvalidMove.Error())

	require.NoError(t, conn.WriteJSON(proto.ClientToServerMessage{Type: proto.TypeHint}))
	hint := read()
	assert.Equal(t, proto.TypeHint, hint.Type)
	assert.Equal(t, "O", hint.Next)
	assert.NotNil(t, hint.BestMove)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	assert.Equal(t, proto.TypeError, read().Type)

	require.NoError(t, conn.WriteJSON(proto.ClientToServerMessage{Type: "resign"}))
	assert.Equal(t, proto.TypeError, read().Type)
}

func TestGameSocketLiveUpdates(t *testing.T) {
	feed := &memoryFeed{updates: make(chan events.GameUpdatedPayload, 1)}
	var games service.GameService
	ts := newTestServerWith(t, nil, func(g service.GameService) Subscriber {
		games = g
		return subscriberFunc(func(ctx context.Context, gameID string) (events.Feed, error) {
			// The other player moves while the socket is being set up.
			if _, err := games.Play(ctx, gameID, game.Action{Row: 0, Col: 0}); err != nil {
				return nil, err
			}
			return feed, nil
		})
	})

	code, env := ts.do(t, http.MethodPost, "/api/v1/games", "", models.NewGameRequest{})
	require.Equal(t, http.StatusCreated, code)
	id := decode[models.GameResponse](t, env).ID

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws/games/" + id
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var initial proto.ServerToClientMessage
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, proto.TypeUpdate, initial.Type)
	assert.Equal(t, "X", initial.Board[0][0])
	assert.Len(t, initial.Moves, 1)
	assert.Equal(t, "O", initial.Next)

	_, err = games.Play(context.Background(), id, game.Action{Row: 1, Col: 1})
	require.NoError(t, err)
	feed.updates <- events.GameUpdatedPayload{GameID: id, Moves: 2}

	var update proto.ServerToClientMessage
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, proto.TypeUpdate, update.Type)
	assert.Equal(t, "O", update.Board[1][1])
	assert.Len(t, update.Moves, 2)
	assert.Equal(t, "X", update.Next)
}

func TestGameSocketMissingGame(t *testing.T) {
	ts := newTestServer(t, nil)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws/games/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
