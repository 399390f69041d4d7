package domain

import "errors"

// 领域错误哨兵值，调用方用 errors.Is 区分
var (
	// ErrValidation 配置或读数载荷非法，状态未被修改，调用方修正后可重试
	ErrValidation = errors.New("validation failed")

	// ErrNotFound 未知的 device_id / sensor_id
	ErrNotFound = errors.New("not found")
)
