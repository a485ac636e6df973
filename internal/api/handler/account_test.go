package handler

import (
	"context"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osms-business/osms_server/internal/model"
	"github.com/osms-business/osms_server/internal/model/dto"
	"github.com/osms-business/osms_server/internal/pkg/response"
	"github.com/osms-business/osms_server/internal/testutil"
)

func accountRouter(e *testEnv, userID int64) *gin.Engine {
	h := NewAccountHandler(e.accounts, e.statements)
	router := gin.New()
	router.Use(asUser(userID))
	router.GET("/account", h.GetProfile)
	router.GET("/account/transactions", h.ListTransactions)
	router.GET("/account/statement", h.ExportStatement)
	return router
}

func TestAccountHandler_GetProfile(t *testing.T) {
	e, cleanup := setupEnv(t)
	defer cleanup()

	user := testutil.TestUser(t, e.db, testutil.WithCredits(42))
	router := accountRouter(e, user.ID)

	resp := parseResponse(t, performRequest(router, "GET", "/account", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	data := dataMap(t, resp)
	assert.Equal(t, float64(42), data["credits"])
	assert.Equal(t, user.Email, data["email"])
}

func TestAccountHandler_GetProfile_UnknownAccount(t *testing.T) {
	e, cleanup := setupEnv(t)
	defer cleanup()

	router := accountRouter(e, 4242)
	resp := parseResponse(t, performRequest(router, "GET", "/account", nil))
	assert.Equal(t, response.CodeAuthFailed, resp.Code)
}

func TestAccountHandler_NoUserInContext(t *testing.T) {
	e, cleanup := setupEnv(t)
	defer cleanup()

	h := NewAccountHandler(e.accounts, e.statements)
	router := gin.New()
	router.GET("/account", h.GetProfile)

	resp := parseResponse(t, performRequest(router, "GET", "/account", nil))
	assert.Equal(t, response.CodeAuthFailed, resp.Code)
}

func TestAccountHandler_TransactionsAndStatement(t *testing.T) {
	e, cleanup := setupEnv(t)
	defer cleanup()

	user := testutil.TestUser(t, e.db)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := e.accounts.Credit(ctx, user.ID, 100, "manual")
		require.NoError(t, err)
	}
	router := accountRouter(e, user.ID)

	resp := parseResponse(t, performRequest(router, "GET", "/account/transactions?page=1&page_size=2", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	page := dataMap(t, resp)
	assert.Equal(t, float64(3), page["total"])
	assert.Len(t, page["items"], 2)

	resp = parseResponse(t, performRequest(router, "GET", "/account/statement", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	statement := dataMap(t, resp)
	assert.Equal(t, float64(3), statement["rows"])
	content, _ := statement["content"].(string)
	assert.Equal(t, 4, len(strings.Split(strings.TrimSpace(content), "\n")))
}

func TestAccountHandler_Adjust(t *testing.T) {
	e, cleanup := setupEnv(t)
	defer cleanup()

	user := testutil.TestUser(t, e.db, testutil.WithCredits(10))
	router := gin.New()
	router.POST("/admin/adjustments", NewAccountHandler(e.accounts, e.statements).Adjust)

	resp := parseResponse(t, performRequest(router, "POST", "/admin/adjustments", dto.AdjustCreditsRequest{
		AccountID: user.ID,
		Amount:    50,
		Reference: "refund:batch:7",
	}))
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, float64(60), dataMap(t, resp)["balance"])

	resp = parseResponse(t, performRequest(router, "POST", "/admin/adjustments", dto.AdjustCreditsRequest{
		AccountID: user.ID,
		Amount:    -25,
		Reference: "chargeback:3",
	}))
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, float64(35), dataMap(t, resp)["balance"])

	resp = parseResponse(t, performRequest(router, "POST", "/admin/adjustments", dto.AdjustCreditsRequest{
		AccountID: user.ID,
		Amount:    -100,
		Reference: "chargeback:4",
	}))
	assert.Equal(t, response.CodeInsufficientCredits, resp.Code)

	resp = parseResponse(t, performRequest(router, "POST", "/admin/adjustments", dto.AdjustCreditsRequest{
		AccountID: 424242,
		Amount:    5,
		Reference: "refund:x",
	}))
	assert.Equal(t, response.CodeResourceNotFound, resp.Code)

	resp = parseResponse(t, performRequest(router, "POST", "/admin/adjustments", dto.AdjustCreditsRequest{
		AccountID: user.ID,
		Amount:    0,
		Reference: "noop",
	}))
	assert.Equal(t, response.CodeParamError, resp.Code)

	balance, err := e.accounts.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(35), balance)

	var entries []model.CreditTransaction
	require.NoError(t, e.db.Where("user_id = ?", user.ID).Order("id").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, model.TransactionTypeAdjust, entries[0].Type)
	assert.Equal(t, int64(50), entries[0].Amount)
	assert.Equal(t, int64(-25), entries[1].Amount)
	assert.Equal(t, "chargeback:3", entries[1].Reference)
}
