package contract

import (
	"errors"

	"shiftcrack/pkg/alphabet"
)

// 密码分析核心与 I/O 协作方共享的最小错误分类。
// 调用方统一以 errors.Is 判定；实现方以 fmt.Errorf("%w: ...") 包装细节。
var (
	// ErrInsufficientData: 密文过短，范围内任一候选密钥长度都凑不出两个完整分块。
	ErrInsufficientData = errors.New("insufficient data")
	// ErrEmptyDictionary: 词表为空或参考直方图总权重为 0。
	ErrEmptyDictionary = errors.New("empty dictionary")
	// ErrInvalidSymbol: 输入含字母表外字符（拒绝，不丢弃/截断/重映射）。
	// 由 alphabet 定义，此处仅再导出。
	ErrInvalidSymbol = alphabet.ErrInvalidSymbol
	// ErrUnsupportedKeyLength: 密钥长度 <= 0，或超出配置/密文推导的上界。
	ErrUnsupportedKeyLength = errors.New("unsupported key length")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvalidInput: 调用参数不合法（配置、选项、空输入等）。
	ErrInvalidInput = errors.New("invalid input")
)
