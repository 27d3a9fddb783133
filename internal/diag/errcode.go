package diag

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"shiftcrack/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown          Code = "unknown"
	CodeInvalidSymbol    Code = "invalid_symbol"
	CodeInsufficientData Code = "insufficient_data"
	CodeEmptyDictionary  Code = "empty_dictionary"
	CodeKeyLength        Code = "key_length"
	CodeInvariant        Code = "invariant"
	CodeCancel           Code = "cancel"
	CodeIO               Code = "io"
)

// Classify 将错误归为最小分类。
// 说明：仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case errors.Is(err, contract.ErrInvalidSymbol):
		return CodeInvalidSymbol
	case errors.Is(err, contract.ErrInsufficientData):
		return CodeInsufficientData
	case errors.Is(err, contract.ErrEmptyDictionary):
		return CodeEmptyDictionary
	case errors.Is(err, contract.ErrUnsupportedKeyLength):
		return CodeKeyLength
	case errors.Is(err, contract.ErrInvariantViolation),
		errors.Is(err, contract.ErrInvalidInput),
		errors.Is(err, contract.ErrPathInvalid):
		return CodeInvariant
	}
	var perr *fs.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}

// NowUTC 返回 RFC3339 UTC 时间字符串（用于结构化日志字段 ts）。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
