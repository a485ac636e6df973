package service

import "errors"

// 跨模块共享的业务错误，handler 通过 errors.Is 映射为响应码
var (
	ErrNotAuthenticated           = errors.New("未登录或账户不可用")
	ErrInsufficientCredits        = errors.New("短信额度不足")
	ErrNotificationDeliveryFailed = errors.New("通知邮件发送失败")
	ErrInvalidAmount              = errors.New("额度变动数量不能为负数")
)
