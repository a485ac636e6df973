package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/osms-business/osms_server/config"
)

var ErrUnknownCurrency = errors.New("unknown currency")

// Static 使用配置中的固定美元单价
type Static struct {
	prices map[string]decimal.Decimal
}

func NewStatic(currencies map[string]config.CurrencyConfig) *Static {
	prices := make(map[string]decimal.Decimal, len(currencies))
	for code, c := range currencies {
		prices[strings.ToUpper(code)] = decimal.NewFromFloat(c.PriceUSD)
	}
	return &Static{prices: prices}
}

func (s *Static) Price(ctx context.Context, currency string) (decimal.Decimal, error) {
	p, ok := s.prices[strings.ToUpper(currency)]
	if !ok {
		return decimal.Zero, ErrUnknownCurrency
	}
	return p, nil
}

func (s *Static) Supports(currency string) bool {
	_, ok := s.prices[strings.ToUpper(currency)]
	return ok
}

// Currencies 返回按代码排序的币种列表
func (s *Static) Currencies() []string {
	codes := make([]string, 0, len(s.prices))
	for code := range s.prices {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

const overrideKeyPrefix = "osms:price:"

// Override 优先读取 Redis 中运维设置的单价（osms:price:<CODE>），没有时回退到 Static
type Override struct {
	*Static
	client *redis.Client
}

func NewOverride(static *Static, client *redis.Client) *Override {
	return &Override{Static: static, client: client}
}

func (o *Override) Price(ctx context.Context, currency string) (decimal.Decimal, error) {
	code := strings.ToUpper(currency)
	if !o.Supports(code) {
		return decimal.Zero, ErrUnknownCurrency
	}

	val, err := o.client.Get(ctx, overrideKeyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return o.Static.Price(ctx, code)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read price override: %w", err)
	}

	price, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price override %q: %w", val, err)
	}
	return price, nil
}

// SetOverride 设置单价覆盖值
func (o *Override) SetOverride(ctx context.Context, currency string, price decimal.Decimal) error {
	return o.client.Set(ctx, overrideKeyPrefix+strings.ToUpper(currency), price.String(), 0).Err()
}
