package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/osms-business/osms_server/internal/model"
)

// Observation 对某个支付意图链上入账情况的观测结果
type Observation int

const (
	NotObserved Observation = iota
	Observed
	Rejected
)

func (o Observation) String() string {
	switch o {
	case Observed:
		return "observed"
	case Rejected:
		return "rejected"
	default:
		return "not_observed"
	}
}

// ParseObservation 解析 observed / rejected，其他值返回错误
func ParseObservation(s string) (Observation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "observed", "confirmed":
		return Observed, nil
	case "rejected", "failed":
		return Rejected, nil
	}
	return NotObserved, fmt.Errorf("unknown observation %q", s)
}

// Simulated 以固定概率报告已入账，模拟区块确认
type Simulated struct {
	mu          sync.Mutex
	rng         *rand.Rand
	probability float64
}

func NewSimulated(probability float64, seed int64) *Simulated {
	return &Simulated{
		rng:         rand.New(rand.NewSource(seed)),
		probability: probability,
	}
}

func (s *Simulated) Observe(ctx context.Context, intent *model.PaymentIntent) (Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.probability {
		return Observed, nil
	}
	return NotObserved, nil
}

const keyPrefix = "osms:deposit:"

// markTTL 需大于支付意图有效期，过期的标记不会再被读取
const markTTL = 24 * time.Hour

// Redis 读取由入账回调或运维写入的观测结果，键为充值地址
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Observe(ctx context.Context, intent *model.PaymentIntent) (Observation, error) {
	val, err := r.client.Get(ctx, keyPrefix+intent.DepositAddress).Result()
	if errors.Is(err, redis.Nil) {
		return NotObserved, nil
	}
	if err != nil {
		return NotObserved, fmt.Errorf("read deposit mark: %w", err)
	}
	obs, err := ParseObservation(val)
	if err != nil {
		return NotObserved, nil
	}
	return obs, nil
}

// Mark 记录某个充值地址的观测结果
func (r *Redis) Mark(ctx context.Context, depositAddress string, obs Observation) error {
	if obs == NotObserved {
		return r.client.Del(ctx, keyPrefix+depositAddress).Err()
	}
	return r.client.Set(ctx, keyPrefix+depositAddress, obs.String(), markTTL).Err()
}
