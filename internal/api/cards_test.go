package api

import (
	"net/http"
	"testing"

	"roundup/internal/domain"
	"roundup/internal/events"
	"roundup/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardLimit(t *testing.T) {
	s := newTestServer(t)
	token, _, _ := s.signUp(t, "cards@example.com")
	for i := 0; i < domain.MaxCardsPerUser; i++ {
		s.addCard(t, token)
	}
	w := s.do(t, http.MethodPost, "/api/cards", token, gin.H{"nickname": "One more", "lastFour": "1111"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Maximum 5 cards allowed", decode(t, w)["error"])

	w = s.do(t, http.MethodGet, "/api/cards", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["cards"], domain.MaxCardsPerUser)
}

func TestAddCardValidation(t *testing.T) {
	s := newTestServer(t)
	token, _, _ := s.signUp(t, "cardval@example.com")
	w := s.do(t, http.MethodPost, "/api/cards", token, gin.H{"nickname": "Bad", "lastFour": "12a4"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/cards", token, gin.H{"nickname": "Bad", "lastFour": "1234", "cardType": "diners"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/cards", token, gin.H{"nickname": "Good", "lastFour": "1234"})
	require.Equal(t, http.StatusCreated, w.Code)
	card := decode(t, w)["card"].(map[string]any)
	assert.Equal(t, "visa", card["cardType"])
	assert.Equal(t, "Mock Bank", card["bankName"])
	assert.Equal(t, true, card["isActive"])
}

func TestSimulateCreditsRoundup(t *testing.T) {
	s := newTestServer(t)
	token, _, userID := s.signUp(t, "sim@example.com")
	cardID := s.addCard(t, token)

	// Prime the wallet cache so the simulation has something to invalidate
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/wallet", token, nil).Code)
	assert.True(t, s.redis.Exists(utils.WalletCacheKey(userID)))

	w := s.do(t, http.MethodPost, "/api/cards/"+cardID+"/simulate", token, gin.H{"merchant": "Aroma Cafe", "amount": 4.35})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, 0.65, body["roundupAmount"])
	txn := body["transaction"].(map[string]any)
	assert.Equal(t, "Aroma Cafe", txn["merchant"])
	assert.Equal(t, "Food & Dining", txn["category"])
	assert.False(t, s.redis.Exists(utils.WalletCacheKey(userID)))
	assert.Contains(t, s.events.Types(), events.TransactionSimulated)

	w = s.do(t, http.MethodGet, "/api/wallet", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	wallet := decode(t, w)
	assert.Equal(t, 0.65, wallet["totalBalance"])
	assert.Equal(t, 0.65, wallet["monthlyBalance"])
	assert.Equal(t, false, wallet["cached"])
	breakdown := wallet["cardBreakdown"].([]any)
	require.Len(t, breakdown, 1)
	assert.Equal(t, 0.65, breakdown[0].(map[string]any)["totalRoundup"])
	assert.EqualValues(t, 1, breakdown[0].(map[string]any)["txCount"])

	w = s.do(t, http.MethodGet, "/api/wallet", token, nil)
	assert.Equal(t, true, decode(t, w)["cached"])
}

func TestSimulateWithoutBodyAndMultiplier(t *testing.T) {
	s := newTestServer(t)
	token, _, _ := s.signUp(t, "mult@example.com")
	cardID := s.addCard(t, token)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/settings/rounding", token, gin.H{"roundingUnit": 5, "multiplier": 2}).Code)
	w := s.do(t, http.MethodPost, "/api/cards/"+cardID+"/simulate", token, gin.H{"amount": 12.30})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 5.4, decode(t, w)["roundupAmount"])

	// Generated purchase when no body is sent
	w = s.do(t, http.MethodPost, "/api/cards/"+cardID+"/simulate", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	roundup := decode(t, w)["roundupAmount"].(float64)
	assert.GreaterOrEqual(t, roundup, 0.0)
	assert.Less(t, roundup, 10.0)
}

func TestSimulateDisabledRounding(t *testing.T) {
	s := newTestServer(t)
	token, _, _ := s.signUp(t, "off@example.com")
	cardID := s.addCard(t, token)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/settings/rounding", token, gin.H{"isEnabled": false}).Code)

	w := s.do(t, http.MethodPost, "/api/cards/"+cardID+"/simulate", token, gin.H{"amount": 3.10})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 0.0, decode(t, w)["roundupAmount"])
}

func TestSimulateInactiveOrForeignCard(t *testing.T) {
	s := newTestServer(t)
	token, _, _ := s.signUp(t, "owner@example.com")
	other, _, _ := s.signUp(t, "other@example.com")
	cardID := s.addCard(t, token)

	w := s.do(t, http.MethodPost, "/api/cards/"+cardID+"/simulate", other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPatch, "/api/cards/"+cardID+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["isActive"])

	w = s.do(t, http.MethodPost, "/api/cards/"+cardID+"/simulate", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Card not found or inactive", decode(t, w)["error"])

	w = s.do(t, http.MethodPost, "/api/cards/"+cardID+"/simulate", token, gin.H{"amount": -4})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteCardRemovesTransactions(t *testing.T) {
	s := newTestServer(t)
	token, _, userID := s.signUp(t, "del@example.com")
	cardID := s.addCard(t, token)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/cards/"+cardID+"/simulate", token, nil).Code)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/cards/"+cardID, token, nil).Code)
	var count int64
	require.NoError(t, s.db.Model(&domain.Transaction{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.Zero(t, count)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/cards/"+cardID, token, nil).Code)
}

func TestAddCardRefreshesWalletBreakdown(t *testing.T) {
	s := newTestServer(t)
	token, _, userID := s.signUp(t, "breakdown@example.com")
	s.addCard(t, token)

	w := s.do(t, http.MethodGet, "/api/wallet", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["cardBreakdown"], 1)
	assert.True(t, s.redis.Exists(utils.WalletCacheKey(userID)))

	s.addCard(t, token)
	assert.False(t, s.redis.Exists(utils.WalletCacheKey(userID)))

	w = s.do(t, http.MethodGet, "/api/wallet", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	wallet := decode(t, w)
	assert.Equal(t, false, wallet["cached"])
	assert.Len(t, wallet["cardBreakdown"], 2)
}
