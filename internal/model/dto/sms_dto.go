package dto

// SendSMSRequest 发送短信请求，recipients 与 recipients_text 二选一
type SendSMSRequest struct {
	Recipients     []string `json:"recipients"`
	RecipientsText string   `json:"recipients_text"`
	Body           string   `json:"body" binding:"required,max=1600"`
	SenderLabel    string   `json:"sender_label" binding:"max=50"`
	CountryCode    string   `json:"country_code" binding:"max=10"`
}

// SendSMSResponse 发送授权结果
type SendSMSResponse struct {
	BatchID        int64    `json:"batch_id"`
	Recipients     []string `json:"recipients"`
	CreditsCharged int64    `json:"credits_charged"`
	Balance        int64    `json:"balance"`
}

// SendBatchItem 发送记录列表项
type SendBatchItem struct {
	ID             int64    `json:"id"`
	SenderLabel    string   `json:"sender_label"`
	Recipients     []string `json:"recipients"`
	Body           string   `json:"body"`
	CreditsCharged int64    `json:"credits_charged"`
	Status         string   `json:"status"`
	CreatedAt      string   `json:"created_at"`
}
