package api

import (
	"net/http"
	"testing"

	"roundup/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	userToken, _, _ := s.signUp(t, "plain@example.com")
	adminToken, _, adminID := s.signUp(t, "boss@example.com")
	require.NoError(t, s.db.Model(&domain.User{}).Where("id = ?", adminID).Update("role", domain.RoleAdmin).Error)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/admin/users", userToken, nil).Code)

	w := s.do(t, http.MethodGet, "/api/admin/users?page_size=1", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.EqualValues(t, 2, body["total"])
	assert.EqualValues(t, 2, body["total_pages"])
	assert.Equal(t, false, body["cached"])
	users := body["users"].([]any)
	require.Len(t, users, 1)
	assert.NotNil(t, users[0].(map[string]any)["wallet"])

	w = s.do(t, http.MethodGet, "/api/admin/users?page_size=1", adminToken, nil)
	assert.Equal(t, true, decode(t, w)["cached"])

	cardID := s.addCard(t, userToken)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/cards/"+cardID+"/simulate", userToken, nil).Code)

	w = s.do(t, http.MethodGet, "/api/admin/transactions?card_id="+cardID+"&from=2000-01-01", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.EqualValues(t, 1, body["total"])
	txs := body["transactions"].([]any)
	require.Len(t, txs, 1)
	assert.NotEmpty(t, txs[0].(map[string]any)["userId"])

	w = s.do(t, http.MethodGet, "/api/admin/transactions?from=yesterday", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminPageIsCapped(t *testing.T) {
	s := newTestServer(t)
	adminToken, _, adminID := s.signUp(t, "cap@example.com")
	require.NoError(t, s.db.Model(&domain.User{}).Where("id = ?", adminID).Update("role", domain.RoleAdmin).Error)

	w := s.do(t, http.MethodGet, "/api/admin/users?page=9223372036854775807", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.EqualValues(t, maxPage, body["page"])
	assert.Empty(t, body["users"])
}

func TestRegisterRefreshesAdminUserListing(t *testing.T) {
	s := newTestServer(t)
	adminToken, _, adminID := s.signUp(t, "lister@example.com")
	require.NoError(t, s.db.Model(&domain.User{}).Where("id = ?", adminID).Update("role", domain.RoleAdmin).Error)

	w := s.do(t, http.MethodGet, "/api/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])
	require.True(t, s.redis.Exists("admin:users:page=1:size=20"))

	s.signUp(t, "newcomer@example.com")
	assert.False(t, s.redis.Exists("admin:users:page=1:size=20"))

	w = s.do(t, http.MethodGet, "/api/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["cached"])
	assert.EqualValues(t, 2, body["total"])
	assert.Len(t, body["users"], 2)
}
