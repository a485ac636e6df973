package dto

// TransactionItem 额度流水列表项
type TransactionItem struct {
	ID           int64  `json:"id"`
	Type         string `json:"type"`
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balance_after"`
	Reference    string `json:"reference"`
	CreatedAt    string `json:"created_at"`
}

// StatementResponse 账单导出结果，配置了 OSS 时返回下载链接，否则内联 CSV
type StatementResponse struct {
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
	Rows    int    `json:"rows"`
}

// AdjustCreditsRequest 运营调账，amount 为正入账，为负扣减
type AdjustCreditsRequest struct {
	AccountID int64  `json:"account_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
	Reference string `json:"reference" binding:"required,max=100"`
}

type AdjustCreditsResponse struct {
	AccountID int64 `json:"account_id"`
	Balance   int64 `json:"balance"`
}
