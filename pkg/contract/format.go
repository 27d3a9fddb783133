package contract

import (
	"io"

	"shiftcrack/pkg/alphabet"
)

// Format: 密文/明文的外部表示与 alphabet.Text 之间的编解码。
// Decode 遇到字母表外字符必须返回 ErrInvalidSymbol；Encode 只写入，不关闭 w。
type Format interface {
	Decode(r io.Reader) (alphabet.Text, error)
	Encode(w io.Writer, t alphabet.Text) error
}
