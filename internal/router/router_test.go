package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Evaldo-hub/associacaoufpa/internal/config"
	"github.com/Evaldo-hub/associacaoufpa/internal/database"
	"github.com/Evaldo-hub/associacaoufpa/internal/models"
	"github.com/Evaldo-hub/associacaoufpa/internal/service"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const adminPassword = "segredo123"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	db     *gorm.DB
	svc    *service.Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Defaults()
	cfg.Server.Mode = gin.TestMode
	cfg.Database.Path = filepath.Join(t.TempDir(), "club.db")
	cfg.JWT.Secret = "test-secret"

	db, err := database.Init(cfg.Database)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	svc := service.New(db, service.Options{BcryptCost: 4})
	_, err = svc.Users.EnsureAdmin(context.Background(), adminPassword)
	require.NoError(t, err)

	return &testServer{
		t:      t,
		engine: SetupRouter(cfg, db, svc, clockwork.NewRealClock()),
		db:     db,
		svc:    svc,
	}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// call expects status and decodes data into out when given.
func (s *testServer) call(method, path, token string, body any, status int, out any) envelope {
	s.t.Helper()
	w := s.do(method, path, token, body)
	require.Equal(s.t, status, w.Code, "%s %s: %s", method, path, w.Body.String())
	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	if out != nil {
		require.NoError(s.t, json.Unmarshal(env.Data, out))
	}
	return env
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	var data struct {
		Token string `json:"token"`
	}
	s.call(http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": password}, http.StatusOK, &data)
	require.NotEmpty(s.t, data.Token)
	return data.Token
}

func TestRouter_AuthRequired(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/players", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/players", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	env := s.call(http.MethodPost, "/api/auth/login", "", gin.H{"username": "admin", "password": "errada"}, http.StatusUnauthorized, nil)
	assert.Equal(t, util.CodeAuth, env.Code)

	w = s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_SettlementFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", adminPassword)

	var created struct {
		Player models.Player `json:"player"`
	}
	s.call(http.MethodPost, "/api/players", token, gin.H{"name": "Ana"}, http.StatusOK, &created)
	ana := created.Player

	env := s.call(http.MethodPost, "/api/players", token, gin.H{"name": "ana"}, http.StatusConflict, nil)
	assert.Equal(t, util.CodeConflict, env.Code)

	var m struct {
		Match models.Match `json:"match"`
	}
	s.call(http.MethodPost, "/api/matches", token, gin.H{"date": "2024-03-10", "opponent": "Rivals"}, http.StatusOK, &m)
	matchPath := fmt.Sprintf("/api/matches/%d", m.Match.ID)

	var joined struct {
		Attendance models.Attendance `json:"attendance"`
	}
	s.call(http.MethodPost, matchPath+"/participants", token, gin.H{"player_id": ana.ID}, http.StatusOK, &joined)
	s.call(http.MethodPost, matchPath+"/participants", token, gin.H{"player_id": ana.ID}, http.StatusConflict, nil)

	batch := gin.H{"edits": []gin.H{{"attendance_id": joined.Attendance.ID, "confirmed": true, "paid": true, "amount": "25"}}}
	var res struct {
		Result service.BatchResult `json:"result"`
	}
	s.call(http.MethodPut, matchPath+"/attendance", token, batch, http.StatusOK, &res)
	assert.Len(t, res.Result.Posted, 1)

	// the same submission again posts nothing new
	s.call(http.MethodPut, matchPath+"/attendance", token, batch, http.StatusOK, &res)
	assert.Empty(t, res.Result.Posted)

	var st struct {
		Statement service.Statement `json:"statement"`
	}
	s.call(http.MethodGet, "/api/ledger", token, nil, http.StatusOK, &st)
	require.Len(t, st.Statement.Lines, 1)
	assert.True(t, st.Statement.Balance.Equal(decimal.NewFromInt(25)))

	// match payments are retracted, not reversed
	entryID := st.Statement.Lines[0].Entry.ID
	env = s.call(http.MethodPost, fmt.Sprintf("/api/ledger/%d/reverse", entryID), token, gin.H{"reason": "x"}, http.StatusUnprocessableEntity, nil)
	assert.Equal(t, util.CodeUnprocessable, env.Code)

	s.call(http.MethodPost, fmt.Sprintf("%s/participants/%d/retract", matchPath, ana.ID), token, gin.H{"reason": "pagou em dobro"}, http.StatusOK, nil)
	s.call(http.MethodGet, "/api/ledger", token, nil, http.StatusOK, &st)
	assert.Empty(t, st.Statement.Lines)
}

func TestRouter_Dues(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", adminPassword)

	var created struct {
		Player models.Player `json:"player"`
	}
	s.call(http.MethodPost, "/api/players", token, gin.H{"name": "Ana"}, http.StatusOK, &created)

	dues := gin.H{"player_id": created.Player.ID, "month": "Março", "year": 2024}
	var posted struct {
		Entry models.LedgerEntry `json:"entry"`
	}
	s.call(http.MethodPost, "/api/dues", token, dues, http.StatusOK, &posted)
	assert.True(t, posted.Entry.Amount.Equal(decimal.NewFromInt(50)), "configured default amount")

	env := s.call(http.MethodPost, "/api/dues", token, dues, http.StatusConflict, nil)
	assert.Equal(t, util.CodeConflict, env.Code)

	s.call(http.MethodPost, "/api/dues", token, gin.H{"player_id": created.Player.ID, "month": "Abril", "year": 1999}, http.StatusBadRequest, nil)

	var report struct {
		Report service.DuesReport `json:"report"`
	}
	s.call(http.MethodGet, "/api/dues?year=2024", token, nil, http.StatusOK, &report)
	require.Len(t, report.Report.Members, 1)

	s.call(http.MethodPost, fmt.Sprintf("/api/dues/%d/reverse", posted.Entry.ID), token, nil, http.StatusOK, nil)
	s.call(http.MethodPost, "/api/dues", token, dues, http.StatusOK, nil)
}

func TestRouter_PlayerAccess(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", adminPassword)

	var created struct {
		Player models.Player `json:"player"`
	}
	s.call(http.MethodPost, "/api/players", token, gin.H{"name": "Ana Souza"}, http.StatusOK, &created)

	var grant struct {
		TemporaryPassword string `json:"temporary_password"`
	}
	s.call(http.MethodPost, "/api/users", token, gin.H{"player_id": created.Player.ID}, http.StatusOK, &grant)
	require.NotEmpty(t, grant.TemporaryPassword)

	player := s.login("ana_souza", grant.TemporaryPassword)

	env := s.call(http.MethodPost, "/api/players", player, gin.H{"name": "Bia"}, http.StatusForbidden, nil)
	assert.Equal(t, util.CodeForbidden, env.Code)
	s.call(http.MethodGet, "/api/users", player, nil, http.StatusForbidden, nil)
	s.call(http.MethodGet, "/api/reports/rankings", player, nil, http.StatusOK, nil)

	s.call(http.MethodPost, "/api/me/password", player,
		gin.H{"old_password": grant.TemporaryPassword, "new_password": "nova-senha"}, http.StatusOK, nil)
	s.login("ana_souza", "nova-senha")

	// players only see their own access log
	var logs struct {
		Items []models.AccessLog `json:"items"`
		Total int64              `json:"total"`
	}
	s.call(http.MethodGet, "/api/logs", player, nil, http.StatusOK, &logs)
	require.NotZero(t, logs.Total)
	for _, l := range logs.Items {
		require.NotNil(t, l.UserID)
		assert.NotEqual(t, uint(1), *l.UserID)
	}
}

func TestRouter_ExportStatement(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", adminPassword)

	s.call(http.MethodPost, "/api/ledger/income", token, gin.H{"description": "rifa", "amount": "80,00"}, http.StatusOK, nil)
	s.call(http.MethodPost, "/api/ledger/expense", token, gin.H{"category": "Campo", "description": "aluguel", "amount": "30"}, http.StatusOK, nil)

	// downloads authenticate through the query string
	w := s.do(http.MethodGet, "/api/export/ledger.csv?token="+token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "\xEF\xBB\xBF"))
	assert.Contains(t, body, "Campo: aluguel")
	assert.Contains(t, body, "50.00")

	w = s.do(http.MethodGet, "/api/export/ledger.xlsx", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	w = s.do(http.MethodGet, "/api/export/ledger.csv?kind=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (s *testServer) importCSV(token, content string) (created []models.Player, skipped []string) {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "socios.csv")
	require.NoError(s.t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/players/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	var out struct {
		Created []models.Player `json:"created"`
		Skipped []string        `json:"skipped"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &out))
	return out.Created, out.Skipped
}

func TestRouter_ImportPlayers(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", adminPassword)

	created, skipped := s.importCSV(token, "\ufeffname,phone,category\nAna,91 9999-0000,member\nBia,,GUEST\nana,,\nCarla,,COACH\n")
	require.Len(t, created, 2)
	assert.Equal(t, "Ana", created[0].Name)
	assert.Len(t, skipped, 2, "duplicate name and unknown category")
}

func TestRouter_ImportPlayersWithoutHeader(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", adminPassword)

	created, skipped := s.importCSV(token, "\ufeffDora,91 8888-0000,MEMBER\nEva,,\n")
	assert.Empty(t, skipped)
	require.Len(t, created, 2)
	assert.Equal(t, "Dora", created[0].Name, "byte order mark is not part of the name")

	players, err := s.svc.Players.List(context.Background(), service.PlayerFilter{})
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "Dora", players[0].Name)
}
