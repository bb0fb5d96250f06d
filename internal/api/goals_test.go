package api

import (
	"net/http"
	"testing"

	"roundup/internal/domain"
	"roundup/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createGoal(t *testing.T, s *testServer, token string, body gin.H) map[string]any {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/goals", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["goal"].(map[string]any)
}

func TestGoalLifecycle(t *testing.T) {
	s := newTestServer(t)
	token, _, userID := s.signUp(t, "goals@example.com")
	s.fundWallet(t, userID, 100)

	goal := createGoal(t, s, token, gin.H{"name": "Vacation", "targetAmount": 50})
	assert.Equal(t, domain.DefaultGoalEmoji, goal["emoji"])
	id := goal["id"].(string)

	w := s.do(t, http.MethodPost, "/api/goals/"+id+"/contribute", token, gin.H{"amount": 20})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, false, body["justCompleted"])
	assert.Equal(t, 20.0, body["goal"].(map[string]any)["currentAmount"])

	// Clamped to the remaining 30
	w = s.do(t, http.MethodPost, "/api/goals/"+id+"/contribute", token, gin.H{"amount": 45})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, true, body["justCompleted"])
	assert.Equal(t, 50.0, body["goal"].(map[string]any)["currentAmount"])
	assert.Contains(t, s.events.Types(), events.GoalCompleted)

	var wallet domain.Wallet
	require.NoError(t, s.db.Where("user_id = ?", userID).First(&wallet).Error)
	assert.Equal(t, 50.0, wallet.TotalBalance)

	w = s.do(t, http.MethodPost, "/api/goals/"+id+"/contribute", token, gin.H{"amount": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Goal already completed", decode(t, w)["error"])

	w = s.do(t, http.MethodPatch, "/api/goals/"+id, token, gin.H{"targetAmount": 80, "emoji": "🏖️"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode(t, w)["goal"].(map[string]any)
	assert.Equal(t, false, updated["isCompleted"])
	assert.Equal(t, "Vacation", updated["name"])

	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/goals/"+id, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/goals/"+id, token, nil).Code)
}

func TestGoalValidationAndOwnership(t *testing.T) {
	s := newTestServer(t)
	token, _, userID := s.signUp(t, "gv@example.com")
	other, _, _ := s.signUp(t, "gv2@example.com")

	w := s.do(t, http.MethodPost, "/api/goals", token, gin.H{"name": "  ", "targetAmount": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Name and a positive target amount are required", decode(t, w)["error"])
	w = s.do(t, http.MethodPost, "/api/goals", token, gin.H{"name": "Car", "targetAmount": 10, "deadline": "next year"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	goal := createGoal(t, s, token, gin.H{"name": "Car", "targetAmount": 1000, "deadline": "2030-01-01"})
	id := goal["id"].(string)
	assert.Equal(t, "2030-01-01", goal["deadline"])

	w = s.do(t, http.MethodPost, "/api/goals/"+id+"/contribute", other, gin.H{"amount": 5})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/goals/"+id+"/contribute", token, gin.H{"amount": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Insufficient wallet balance", decode(t, w)["error"])

	s.fundWallet(t, userID, 5)
	w = s.do(t, http.MethodPost, "/api/goals/"+id+"/contribute", token, gin.H{"amount": 5})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/goals", other, nil)
	assert.Len(t, decode(t, w)["goals"], 0)
}
