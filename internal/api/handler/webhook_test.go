package handler

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osms-business/osms_server/internal/model"
	"github.com/osms-business/osms_server/internal/model/dto"
	"github.com/osms-business/osms_server/internal/pkg/response"
	"github.com/osms-business/osms_server/internal/testutil"
)

func webhookRouter(h *WebhookHandler) *gin.Engine {
	router := gin.New()
	router.POST("/webhooks/deposits", h.Deposit)
	return router
}

func TestWebhookHandler_Deposit(t *testing.T) {
	e, cleanup := setupEnv(t)
	defer cleanup()

	user := testutil.TestUser(t, e.db)
	confirmed := testutil.TestPaymentIntent(t, e.db, user.ID, time.Now())
	rejected := testutil.TestPaymentIntent(t, e.db, user.ID, time.Now())
	router := webhookRouter(NewWebhookHandler(e.oracle, e.payments))

	resp := parseResponse(t, performRequest(router, "POST", "/webhooks/deposits", dto.DepositWebhookRequest{
		DepositAddress: confirmed.DepositAddress,
		Status:         "observed",
	}))
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, model.PaymentStatusConfirmed, dataMap(t, resp)["status"])

	resp = parseResponse(t, performRequest(router, "POST", "/webhooks/deposits", dto.DepositWebhookRequest{
		DepositAddress: rejected.DepositAddress,
		Status:         "rejected",
	}))
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, model.PaymentStatusFailed, dataMap(t, resp)["status"])

	balance, _ := e.accounts.Balance(user.ID)
	assert.Equal(t, int64(10000), balance)
}

func TestWebhookHandler_Deposit_Errors(t *testing.T) {
	e, cleanup := setupEnv(t)
	defer cleanup()

	router := webhookRouter(NewWebhookHandler(e.oracle, e.payments))

	resp := parseResponse(t, performRequest(router, "POST", "/webhooks/deposits", dto.DepositWebhookRequest{
		DepositAddress: "bc1qunknowndepositaddress",
		Status:         "observed",
	}))
	assert.Equal(t, response.CodeResourceNotFound, resp.Code)

	resp = parseResponse(t, performRequest(router, "POST", "/webhooks/deposits", dto.DepositWebhookRequest{
		DepositAddress: "bc1qunknowndepositaddress",
		Status:         "maybe",
	}))
	assert.Equal(t, response.CodeParamError, resp.Code)

	disabled := webhookRouter(NewWebhookHandler(nil, e.payments))
	resp = parseResponse(t, performRequest(disabled, "POST", "/webhooks/deposits", dto.DepositWebhookRequest{
		DepositAddress: "bc1qunknowndepositaddress",
		Status:         "observed",
	}))
	assert.Equal(t, response.CodePermissionDenied, resp.Code)
}
