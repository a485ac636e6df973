package poller

import (
	"context"
	"time"

	"github.com/osms-business/osms_server/internal/model"
)

// ResolveFunc 推进一次支付意图状态并返回最新记录
type ResolveFunc func(ctx context.Context, intentID int64) (*model.PaymentIntent, error)

// Update 一次轮询结果；SecondsRemaining 只用于展示倒计时，过期以服务端判定为准
type Update struct {
	PaymentID        int64  `json:"payment_id"`
	Status           string `json:"status"`
	SecondsRemaining int64  `json:"seconds_remaining"`
	Credits          int64  `json:"credits"`
	Terminal         bool   `json:"terminal"`
}

type Poller struct {
	resolve  ResolveFunc
	interval time.Duration
	now      func() time.Time
}

func New(resolve ResolveFunc, interval time.Duration) *Poller {
	return &Poller{
		resolve:  resolve,
		interval: interval,
		now:      time.Now,
	}
}

// WithClock 替换倒计时使用的时钟
func (p *Poller) WithClock(now func() time.Time) *Poller {
	p.now = now
	return p
}

// Poll 立即解析一次，之后每个间隔解析一次，直到进入终态或 ctx 结束。
// 每次解析结果都会回调 onUpdate；返回最后一次结果。
func (p *Poller) Poll(ctx context.Context, intentID int64, onUpdate func(Update)) (Update, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		intent, err := p.resolve(ctx, intentID)
		if err != nil {
			return Update{PaymentID: intentID}, err
		}

		u := Snapshot(intent, p.now())
		if onUpdate != nil {
			onUpdate(u)
		}
		if u.Terminal {
			return u, nil
		}

		select {
		case <-ctx.Done():
			return u, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Snapshot 根据意图当前状态计算展示用的结果
func Snapshot(intent *model.PaymentIntent, now time.Time) Update {
	u := Update{
		PaymentID: intent.ID,
		Status:    intent.Status,
		Credits:   intent.Credits,
		Terminal:  intent.IsTerminal(),
	}
	if !u.Terminal {
		remaining := intent.ExpiresAt.Sub(now)
		if remaining > 0 {
			u.SecondsRemaining = int64(remaining / time.Second)
		}
	}
	return u
}
