package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/osms-business/osms_server/config"
	"github.com/osms-business/osms_server/internal/model"
	"github.com/osms-business/osms_server/internal/model/dto"
	"github.com/osms-business/osms_server/internal/pkg/oracle"
	"github.com/osms-business/osms_server/internal/repository"
)

var (
	ErrUnknownPlan         = errors.New("套餐不存在")
	ErrUnsupportedCurrency = errors.New("不支持该币种")
	ErrIntentNotFound      = errors.New("支付记录不存在")
	ErrPriceUnavailable    = errors.New("暂时无法获取币价")
)

// cryptoAmountPlaces 加密货币金额保留的小数位
const cryptoAmountPlaces = 8

type PriceFeed interface {
	Price(ctx context.Context, currency string) (decimal.Decimal, error)
	Supports(currency string) bool
}

// ConfirmationOracle 判断某个支付意图的充值是否已到账
type ConfirmationOracle interface {
	Observe(ctx context.Context, intent *model.PaymentIntent) (oracle.Observation, error)
}

type AddressGenerator interface {
	Generate(currency string) (string, error)
}

// EventPublisher 支付意图进入终态时通知在线客户端
type EventPublisher interface {
	PublishPayment(ctx context.Context, userID, paymentID int64, status string, credits int64) error
}

type PaymentService struct {
	paymentRepo *repository.PaymentRepository
	userRepo    *repository.UserRepository
	prices      PriceFeed
	oracle      ConfirmationOracle
	addresses   AddressGenerator
	publisher   EventPublisher
	cfg         *config.Config
	now         func() time.Time
}

func NewPaymentService(
	paymentRepo *repository.PaymentRepository,
	userRepo *repository.UserRepository,
	prices PriceFeed,
	oracle ConfirmationOracle,
	addresses AddressGenerator,
	cfg *config.Config,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		prices:      prices,
		oracle:      oracle,
		addresses:   addresses,
		cfg:         cfg,
		now:         time.Now,
	}
}

// WithPublisher 设置终态事件发布者，可选
func (s *PaymentService) WithPublisher(p EventPublisher) *PaymentService {
	s.publisher = p
	return s
}

// WithClock 替换时钟
func (s *PaymentService) WithClock(now func() time.Time) *PaymentService {
	s.now = now
	return s
}

// Plans 套餐与支持的币种，按价格升序
func (s *PaymentService) Plans() *dto.PlansResponse {
	resp := &dto.PlansResponse{}
	for id, p := range s.cfg.Plans {
		resp.Plans = append(resp.Plans, dto.PlanInfo{ID: id, Price: p.Price, Credits: p.Credits})
	}
	sort.Slice(resp.Plans, func(i, j int) bool { return resp.Plans[i].Price < resp.Plans[j].Price })

	for code, c := range s.cfg.Currencies {
		resp.Currencies = append(resp.Currencies, dto.CurrencyInfo{Code: code, PriceUSD: c.PriceUSD})
	}
	sort.Slice(resp.Currencies, func(i, j int) bool { return resp.Currencies[i].Code < resp.Currencies[j].Code })
	return resp
}

// CreateIntent 为已验证账户创建 pending 支付意图，按当前币价报价
func (s *PaymentService) CreateIntent(ctx context.Context, accountID int64, planID, currency string) (*model.PaymentIntent, error) {
	plan, ok := s.cfg.Plans[planID]
	if !ok {
		return nil, ErrUnknownPlan
	}
	if plan.Price <= 0 || plan.Credits <= 0 {
		zap.L().Error("plan misconfigured",
			zap.String("plan", planID),
			zap.Float64("price", plan.Price),
			zap.Int64("credits", plan.Credits))
		return nil, ErrUnknownPlan
	}

	code := strings.ToUpper(strings.TrimSpace(currency))
	cur, ok := s.cfg.Currencies[code]
	if !ok || !s.prices.Supports(code) {
		return nil, ErrUnsupportedCurrency
	}

	user, err := s.userRepo.GetByID(accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}
	if !user.EmailVerified {
		return nil, ErrNotAuthenticated
	}

	unitPrice, err := s.prices.Price(ctx, code)
	if err != nil || !unitPrice.IsPositive() {
		zap.L().Warn("price lookup failed", zap.String("currency", code), zap.Error(err))
		return nil, ErrPriceUnavailable
	}

	usd := decimal.NewFromFloat(plan.Price)
	address, err := s.addresses.Generate(code)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	intent := &model.PaymentIntent{
		UserID:         accountID,
		PlanID:         planID,
		CryptoCurrency: code,
		CryptoAmount:   usd.DivRound(unitPrice, cryptoAmountPlaces),
		USDAmount:      usd,
		Credits:        plan.Credits,
		WalletAddress:  cur.WalletAddress,
		DepositAddress: address,
		Status:         model.PaymentStatusPending,
		CreatedAt:      now,
		ExpiresAt:      now.Add(model.PaymentIntentTTL),
	}
	if err := s.paymentRepo.Create(intent); err != nil {
		return nil, err
	}

	zap.L().Info("payment intent created",
		zap.Int64("intent_id", intent.ID),
		zap.Int64("account_id", accountID),
		zap.String("plan", planID),
		zap.String("currency", code),
		zap.String("crypto_amount", intent.CryptoAmount.String()))
	return intent, nil
}

// Resolve 推进支付意图状态并返回最新记录。
// 终态直接返回；pending 且已过期则置为 expired，过期判定优先于到账观测；
// 否则询问 oracle，到账则 confirmed 并入账（同一事务），明确失败则 failed。
// 可被任意次、并发调用，入账只会发生一次。
func (s *PaymentService) Resolve(ctx context.Context, intentID int64) (*model.PaymentIntent, error) {
	intent, err := s.load(intentID)
	if err != nil {
		return nil, err
	}
	if intent.IsTerminal() {
		return intent, nil
	}

	now := s.now().UTC()
	if now.After(intent.ExpiresAt) {
		return s.transition(ctx, intent, model.PaymentStatusExpired, now)
	}

	obs, err := s.oracle.Observe(ctx, intent)
	if err != nil {
		// 观测失败视为尚未到账，由下一次轮询重试
		zap.L().Warn("confirmation oracle failed", zap.Int64("intent_id", intent.ID), zap.Error(err))
		return intent, nil
	}

	switch obs {
	case oracle.Observed:
		return s.transition(ctx, intent, model.PaymentStatusConfirmed, now)
	case oracle.Rejected:
		return s.transition(ctx, intent, model.PaymentStatusFailed, now)
	}
	return intent, nil
}

// ResolveForAccount 只允许账户解析自己的支付意图
func (s *PaymentService) ResolveForAccount(ctx context.Context, accountID, intentID int64) (*model.PaymentIntent, error) {
	if _, err := s.Get(accountID, intentID); err != nil {
		return nil, err
	}
	return s.Resolve(ctx, intentID)
}

// ResolveByDepositAddress 入账回调按充值地址触发解析
func (s *PaymentService) ResolveByDepositAddress(ctx context.Context, address string) (*model.PaymentIntent, error) {
	intent, err := s.paymentRepo.GetByDepositAddress(address)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	return s.Resolve(ctx, intent.ID)
}

func (s *PaymentService) transition(ctx context.Context, intent *model.PaymentIntent, status string, now time.Time) (*model.PaymentIntent, error) {
	var applied bool
	var err error
	if status == model.PaymentStatusConfirmed {
		applied, err = s.paymentRepo.ConfirmAndCredit(intent.ID, now)
	} else {
		applied, err = s.paymentRepo.MarkTerminal(intent.ID, status, now)
	}
	if err != nil {
		return nil, err
	}

	// 未生效说明已被并发请求推进，以库中状态为准
	latest, err := s.load(intent.ID)
	if err != nil {
		return nil, err
	}

	if applied {
		zap.L().Info("payment intent resolved",
			zap.Int64("intent_id", intent.ID),
			zap.Int64("account_id", intent.UserID),
			zap.String("status", status))
		s.publish(ctx, latest)
	}
	return latest, nil
}

func (s *PaymentService) publish(ctx context.Context, intent *model.PaymentIntent) {
	if s.publisher == nil {
		return
	}
	var credits int64
	if intent.Status == model.PaymentStatusConfirmed {
		credits = intent.Credits
	}
	if err := s.publisher.PublishPayment(ctx, intent.UserID, intent.ID, intent.Status, credits); err != nil {
		zap.L().Warn("publish payment event failed", zap.Int64("intent_id", intent.ID), zap.Error(err))
	}
}

// Get 查询账户自己的支付意图，不推进状态
func (s *PaymentService) Get(accountID, intentID int64) (*model.PaymentIntent, error) {
	intent, err := s.load(intentID)
	if err != nil {
		return nil, err
	}
	if intent.UserID != accountID {
		return nil, ErrIntentNotFound
	}
	return intent, nil
}

func (s *PaymentService) List(accountID int64, page, pageSize int) ([]model.PaymentIntent, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.paymentRepo.ListByUser(accountID, page, pageSize)
}

// ExpireStale 批量把已过期的 pending 意图置为 expired，返回处理数量。
// 只是提前执行 Resolve 中的过期判定，不依赖它也能保证正确性。
func (s *PaymentService) ExpireStale(ctx context.Context, limit int) (int, error) {
	pending, err := s.paymentRepo.ListPending(limit)
	if err != nil {
		return 0, err
	}

	now := s.now().UTC()
	expired := 0
	for i := range pending {
		intent := &pending[i]
		if !now.After(intent.ExpiresAt) {
			continue
		}
		latest, err := s.transition(ctx, intent, model.PaymentStatusExpired, now)
		if err != nil {
			return expired, err
		}
		if latest.Status == model.PaymentStatusExpired {
			expired++
		}
	}
	return expired, nil
}

// StaleCount 统计已过期但仍为 pending 的意图数量，用于 dry-run
func (s *PaymentService) StaleCount(limit int) (int, error) {
	pending, err := s.paymentRepo.ListPending(limit)
	if err != nil {
		return 0, err
	}
	now := s.now().UTC()
	count := 0
	for _, p := range pending {
		if now.After(p.ExpiresAt) {
			count++
		}
	}
	return count, nil
}

// SecondsRemaining 倒计时，仅用于展示
func (s *PaymentService) SecondsRemaining(intent *model.PaymentIntent) int64 {
	if intent.IsTerminal() {
		return 0
	}
	remaining := intent.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return 0
	}
	return int64(remaining / time.Second)
}

func (s *PaymentService) load(intentID int64) (*model.PaymentIntent, error) {
	intent, err := s.paymentRepo.GetByID(intentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	return intent, nil
}
