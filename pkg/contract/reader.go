package contract

import (
	"context"
	"io"
)

// Reader: 密文来源抽象（文件/目录/STDIN）。
// 约束：
// 1) 按文件维度回调，yield 返回后 r 即失效；
// 2) FileID 稳定且去平台差异化；
// 3) 不做解码，仅提供字节流（解码交给 Format）；
// 4) 不在内部起并发。
type Reader interface {
	Iterate(ctx context.Context, roots []string, yield func(fileID FileID, r io.ReadCloser) error) error
}
