package api

import (
	"net/http"
	"strings"
	"testing"

	"roundup/internal/domain"
	"roundup/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferToVirtualCard(t *testing.T) {
	s := newTestServer(t)
	token, _, userID := s.signUp(t, "vc@example.com")
	s.fundWallet(t, userID, 50)

	w := s.do(t, http.MethodPost, "/api/transfers", token, gin.H{"amount": 20.25, "transferType": "virtual_card", "notes": "coffee money"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	transfer := decode(t, w)["transfer"].(map[string]any)
	assert.True(t, strings.HasPrefix(transfer["destinationLabel"].(string), "Virtual Card •••• "))
	assert.Equal(t, "completed", transfer["status"])

	var wallet domain.Wallet
	require.NoError(t, s.db.Where("user_id = ?", userID).First(&wallet).Error)
	assert.Equal(t, 29.75, wallet.TotalBalance)

	w = s.do(t, http.MethodGet, "/api/transfers/virtual-card", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	card := decode(t, w)["virtualCard"].(map[string]any)
	assert.Equal(t, 20.25, card["balance"])
	assert.True(t, strings.HasPrefix(card["cardNumber"].(string), "4580"))

	w = s.do(t, http.MethodGet, "/api/transfers", token, nil)
	assert.Len(t, decode(t, w)["transfers"], 1)
	assert.Contains(t, s.events.Types(), events.TransferCompleted)
}

func TestTransferToInvestment(t *testing.T) {
	s := newTestServer(t)
	token, _, userID := s.signUp(t, "inv@example.com")
	s.fundWallet(t, userID, 100)

	w := s.do(t, http.MethodPost, "/api/transfers", token, gin.H{"amount": 60, "transferType": "investment"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Investment Portfolio", decode(t, w)["transfer"].(map[string]any)["destinationLabel"])

	w = s.do(t, http.MethodGet, "/api/transfers/investment", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decode(t, w)["portfolio"].(map[string]any)
	assert.Equal(t, 60.0, p["balance"])
	assert.Equal(t, 60.0, p["totalInvested"])
	assert.Equal(t, 0.0, p["profit"])
	assert.GreaterOrEqual(t, p["returnPercent"].(float64), -10.0)
	assert.LessOrEqual(t, p["returnPercent"].(float64), 25.0)
}

func TestTransferRejections(t *testing.T) {
	s := newTestServer(t)
	token, _, userID := s.signUp(t, "rej@example.com")
	s.fundWallet(t, userID, 10)

	w := s.do(t, http.MethodPost, "/api/transfers", token, gin.H{"amount": 5, "transferType": "crypto"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid transfer type", decode(t, w)["error"])

	w = s.do(t, http.MethodPost, "/api/transfers", token, gin.H{"amount": 10.01, "transferType": "investment"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Insufficient balance", decode(t, w)["error"])

	w = s.do(t, http.MethodPost, "/api/transfers", token, gin.H{"amount": 0, "transferType": "investment"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Nothing moved
	var wallet domain.Wallet
	require.NoError(t, s.db.Where("user_id = ?", userID).First(&wallet).Error)
	assert.Equal(t, 10.0, wallet.TotalBalance)
}

func TestUpdateRiskLevel(t *testing.T) {
	s := newTestServer(t)
	token, _, _ := s.signUp(t, "risk@example.com")

	w := s.do(t, http.MethodPut, "/api/transfers/investment/risk", token, gin.H{"riskLevel": "extreme"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/transfers/investment/risk", token, gin.H{"riskLevel": "high"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "high", decode(t, w)["portfolio"].(map[string]any)["riskLevel"])
}
