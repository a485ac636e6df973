package dto

// CreatePaymentRequest 创建支付意图请求
type CreatePaymentRequest struct {
	PlanID         string `json:"plan_id" binding:"required"`
	CryptoCurrency string `json:"crypto_currency" binding:"required"`
}

// PaymentInfo 支付意图详情
type PaymentInfo struct {
	ID               int64  `json:"id"`
	PlanID           string `json:"plan_id"`
	CryptoCurrency   string `json:"crypto_currency"`
	CryptoAmount     string `json:"crypto_amount"`
	USDAmount        string `json:"usd_amount"`
	Credits          int64  `json:"credits"`
	DepositAddress   string `json:"deposit_address"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
	ExpiresAt        string `json:"expires_at"`
	ResolvedAt       string `json:"resolved_at,omitempty"`
	SecondsRemaining int64  `json:"seconds_remaining"`
}

// PaymentStatusResponse 轮询状态响应
type PaymentStatusResponse struct {
	ID               int64  `json:"id"`
	Status           string `json:"status"`
	SecondsRemaining int64  `json:"seconds_remaining"`
	Credits          int64  `json:"credits,omitempty"`
}

// PlanInfo 套餐信息
type PlanInfo struct {
	ID      string  `json:"id"`
	Price   float64 `json:"price"`
	Credits int64   `json:"credits"`
}

// CurrencyInfo 支持的币种
type CurrencyInfo struct {
	Code     string  `json:"code"`
	PriceUSD float64 `json:"price_usd"`
}

// PlansResponse 套餐与币种列表
type PlansResponse struct {
	Plans      []PlanInfo     `json:"plans"`
	Currencies []CurrencyInfo `json:"currencies"`
}

// DepositWebhookRequest 充值回调，status 为 observed 或 rejected
type DepositWebhookRequest struct {
	DepositAddress string `json:"deposit_address" binding:"required"`
	Status         string `json:"status" binding:"required"`
}
