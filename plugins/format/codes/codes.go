package codes

import (
	"io"
	"strings"

	"shiftcrack/pkg/alphabet"
	"shiftcrack/pkg/contract"
)

// Options: 整数码格式选项。
type Options struct {
	// Separator: 编码输出的分隔串，默认单个空格。
	Separator string `json:"separator,omitempty"`
}

// Codes 以空白分隔的整数码 [0,27) 表示文本。
type Codes struct {
	sep string
}

// New 创建 codes 格式。
func New(opts *Options) *Codes {
	c := &Codes{sep: " "}
	if opts != nil && opts.Separator != "" {
		c.sep = opts.Separator
	}
	return c
}

var _ contract.Format = (*Codes)(nil)

// Decode 解析全部整数码；越界或非数字返回 ErrInvalidSymbol。
func (c *Codes) Decode(r io.Reader) (alphabet.Text, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return alphabet.ParseCodes(string(b))
}

// Encode 写出整数码并以换行结束。
func (c *Codes) Encode(w io.Writer, t alphabet.Text) error {
	s := alphabet.FormatCodes(t)
	if c.sep != " " {
		s = strings.ReplaceAll(s, " ", c.sep)
	}
	_, err := io.WriteString(w, s+"\n")
	return err
}
