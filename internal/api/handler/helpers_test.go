package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/osms-business/osms_server/config"
	"github.com/osms-business/osms_server/internal/api/middleware"
	"github.com/osms-business/osms_server/internal/pkg/address"
	"github.com/osms-business/osms_server/internal/pkg/oracle"
	"github.com/osms-business/osms_server/internal/pkg/pricefeed"
	"github.com/osms-business/osms_server/internal/pkg/response"
	"github.com/osms-business/osms_server/internal/repository"
	"github.com/osms-business/osms_server/internal/service"
	"github.com/osms-business/osms_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubNotifier struct {
	tokens []string
	err    error
}

func (n *stubNotifier) SendVerification(to, fullName, token string) error {
	if n.err != nil {
		return n.err
	}
	n.tokens = append(n.tokens, token)
	return nil
}

func (n *stubNotifier) SendWelcome(to, fullName string) error {
	return n.err
}

// testEnv 基于 sqlite 与 miniredis 组装真实的 service
type testEnv struct {
	db       *gorm.DB
	mr       *miniredis.Miniredis
	cfg      *config.Config
	notifier *stubNotifier
	oracle   *oracle.Redis

	auth       *service.AuthService
	accounts   *service.AccountService
	payments   *service.PaymentService
	sms        *service.SMSService
	statements *service.StatementService
}

func setupEnv(t *testing.T) (*testEnv, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := config.Default()
	cfg.JWT = config.JWTConfig{Secret: "test-secret-key", ExpireHours: 24}

	userRepo := repository.NewUserRepository(db)
	txRepo := repository.NewTransactionRepository(db)

	e := &testEnv{
		db:       db,
		mr:       mr,
		cfg:      cfg,
		notifier: &stubNotifier{},
		oracle:   oracle.NewRedis(rdb),
	}
	e.auth = service.NewAuthService(userRepo, e.notifier, cfg)
	e.accounts = service.NewAccountService(userRepo, txRepo)
	e.payments = service.NewPaymentService(
		repository.NewPaymentRepository(db),
		userRepo,
		pricefeed.NewStatic(cfg.Currencies),
		e.oracle,
		address.NewGenerator(),
		cfg,
	)
	e.sms = service.NewSMSService(repository.NewSMSRepository(db), nil)
	e.statements = service.NewStatementService(txRepo, nil)

	cleanup := func() {
		rdb.Close()
		mr.Close()
		testutil.CleanupTestDB(t, db)
	}
	return e, cleanup
}

// asUser 模拟 Auth 中间件写入的账户 ID
func asUser(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return m
}
