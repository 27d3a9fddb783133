package text

import (
	"bytes"
	"fmt"
	"io"

	"shiftcrack/pkg/alphabet"
	"shiftcrack/pkg/contract"
)

// Options: 原始字符格式选项。
type Options struct {
	// Lowercase: 解码前将 A-Z 转为小写；默认不转换（大写视为非法符号）。
	Lowercase bool `json:"lowercase,omitempty"`
	// NoNewline: 编码时不追加行尾换行。
	NoNewline bool `json:"no_newline,omitempty"`
}

// Text 将字母表字符逐字节映射为 Symbol。
type Text struct {
	opt Options
}

// New 创建 text 格式。
func New(opts *Options) *Text {
	t := &Text{}
	if opts != nil {
		t.opt = *opts
	}
	return t
}

var _ contract.Format = (*Text)(nil)

// Decode 读取全部内容并去掉末尾换行；其余任何字母表外字符返回 ErrInvalidSymbol。
func (f *Text) Decode(r io.Reader) (alphabet.Text, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimRight(b, "\r\n")
	if f.opt.Lowercase {
		b = bytes.ToLower(b)
	}
	out := make(alphabet.Text, len(b))
	for i, c := range b {
		s, ok := alphabet.Lookup(c)
		if !ok {
			return nil, fmt.Errorf("%w: byte %q at offset %d", contract.ErrInvalidSymbol, c, i)
		}
		out[i] = s
	}
	return out, nil
}

// Encode 写出字符形式。
func (f *Text) Encode(w io.Writer, t alphabet.Text) error {
	s := t.String()
	if !f.opt.NoNewline {
		s += "\n"
	}
	_, err := io.WriteString(w, s)
	return err
}
