package contract

// FileID: 逻辑输入标识（通常为路径，需规范化，跨平台一致）。
// 标准输入固定为 "stdin"。
type FileID string
