package contract

import (
	"context"
	"io"
)

// ArtifactID: 产物标识，与 FileID 复用同一表示。
type ArtifactID = FileID

// Writer: 将明文与旁路产物（.jsonl 排名、.diff 报告）持久化到目标介质。
// 约束：
//  1. 同一 ArtifactID 单写者；
//  2. 按字节透传，不修改内容；
//  3. ctx 取消/超时需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}
