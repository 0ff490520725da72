package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/repository"
	"cobranza-bot/internal/service"
)

// stubDebtorRepo implementa solo lo que usan los handlers de deudores; el
// resto de la interfaz queda sin implementar.
type stubDebtorRepo struct {
	repository.DebtorRepository
	rows    map[int64]domain.Debtor
	filters []domain.DebtorFilter
}

func (s *stubDebtorRepo) List(_ context.Context, userID int64, filter domain.DebtorFilter) ([]domain.Debtor, error) {
	s.filters = append(s.filters, filter)
	out := []domain.Debtor{}
	for _, d := range s.rows {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *stubDebtorRepo) GetByID(_ context.Context, userID, id int64) (domain.Debtor, error) {
	d, ok := s.rows[id]
	if !ok || d.UserID != userID {
		return domain.Debtor{}, pgx.ErrNoRows
	}
	return d, nil
}

// issueToken firma un access token para el usuario dado.
func issueToken(t *testing.T, jwtSvc *service.JWTService, userID int64) string {
	t.Helper()
	pair, err := jwtSvc.GeneratePair(domain.User{ID: userID, Email: "op@example.com"})
	require.NoError(t, err)
	return pair.AccessToken
}

func setupDebtorRouter(t *testing.T) (*gin.Engine, *stubDebtorRepo, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwtSvc := newTestJWT()
	repo := &stubDebtorRepo{rows: map[int64]domain.Debtor{
		1: {ID: 1, UserID: 1, Phone: "+5491100000001", Name: "Ana", State: domain.StateAmarillo,
			ConversationHistory: []domain.ChatMessage{{Role: domain.RoleAssistant, Content: "Hola Ana"}}},
		2: {ID: 2, UserID: 2, Phone: "+5491100000002", Name: "Luis", State: domain.StateGris},
	}}
	h := NewDebtorHandler(zap.NewNop(), service.NewDebtorService(zap.NewNop(), repo, nil))

	r := gin.New()
	g := r.Group("/debtor", JWTAuthMiddleware(jwtSvc))
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/conversation", h.Conversation)
	return r, repo, issueToken(t, jwtSvc, 1)
}

func TestDebtorHandler_ListParsesFilters(t *testing.T) {
	r, repo, token := setupDebtorRouter(t)

	rec := authedRequest(r, http.MethodGet,
		"/debtor?state=verde&q=ana&sort=name&order=DESC&dataset_id=3&campaign_id=5&skip=10&limit=20", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, repo.filters, 1)
	assert.Equal(t, domain.DebtorFilter{
		State:      domain.StateVerde,
		DatasetID:  3,
		CampaignID: 5,
		Search:     "ana",
		SortBy:     "name",
		SortDesc:   true,
		Skip:       10,
		Limit:      20,
	}, repo.filters[0])

	var got []domain.Debtor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1, "only the caller's debtors")
	assert.Equal(t, int64(1), got[0].ID)
}

func TestDebtorHandler_ListRejectsBadQuery(t *testing.T) {
	r, repo, token := setupDebtorRouter(t)

	cases := []struct {
		name  string
		query string
		want  int
	}{
		{"bad order", "order=sideways", http.StatusBadRequest},
		{"unknown sort column", "sort=password", http.StatusBadRequest},
		{"unknown state", "state=azul", http.StatusBadRequest},
		{"limit out of range", "limit=5000", http.StatusBadRequest},
		{"non numeric dataset", "dataset_id=abc", http.StatusUnprocessableEntity},
		{"non numeric skip", "skip=x", http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := authedRequest(r, http.MethodGet, "/debtor?"+tc.query, token, nil)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeDetail(t, rec))
		})
	}
	assert.Empty(t, repo.filters, "invalid queries never reach the repository")
}

func TestDebtorHandler_GetAndConversation(t *testing.T) {
	r, _, token := setupDebtorRouter(t)

	rec := authedRequest(r, http.MethodGet, "/debtor/abc", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = authedRequest(r, http.MethodGet, "/debtor/2", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.ErrDebtorNotFound.Error(), decodeDetail(t, rec))

	rec = authedRequest(r, http.MethodGet, "/debtor/1/conversation", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		DebtorID int64                `json:"debtor_id"`
		History  []domain.ChatMessage `json:"conversation_history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.DebtorID)
	require.Len(t, body.History, 1)
	assert.Equal(t, "Hola Ana", body.History[0].Content)
}
