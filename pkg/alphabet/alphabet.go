// Package alphabet 定义固定字母表（26 个小写字母 + 词分隔符）及其与小整数之间的双射。
// 所有按符号索引的循环、直方图与移位运算都以 Size 为模，不在别处散落字面量。
package alphabet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSymbol: 字母表外字符或越界整数码。
var ErrInvalidSymbol = errors.New("invalid symbol")

// Symbol: 字母表内符号的整数编码，取值 [0, Size)。
type Symbol uint8

// Text: 符号序列；密文与明文共用此表示。
type Text []Symbol

const (
	// Letters: 字母表中的字符，下标即编码。
	Letters = "abcdefghijklmnopqrstuvwxyz "
	// Size: 字母表大小 M。
	Size = len(Letters)
	// Separator: 词分隔符（空格）的编码。
	Separator Symbol = Symbol(Size - 1)
)

var index = func() (m [256]int16) {
	for i := range m {
		m[i] = -1
	}
	for i := 0; i < Size; i++ {
		m[Letters[i]] = int16(i)
	}
	return m
}()

// Lookup 返回字符 c 的编码；c 不在字母表内时 ok=false。
func Lookup(c byte) (Symbol, bool) {
	v := index[c]
	if v < 0 {
		return 0, false
	}
	return Symbol(v), true
}

// Byte 返回符号对应字符。s 越界时 panic（调用方负责只传合法符号）。
func (s Symbol) Byte() byte { return Letters[s] }

// Shift 返回 (s + n) mod Size，n 可为负。
func (s Symbol) Shift(n int) Symbol {
	return Symbol(Mod(int(s)+n, Size))
}

// Valid 报告 s 是否在字母表内。
func (s Symbol) Valid() bool { return int(s) < Size }

// Mod 为欧几里得取模，结果恒在 [0, m)。
func Mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

// Encode 将字符串逐字节映射为 Text；任一字符越界即报错，错误中带位置。
func Encode(s string) (Text, error) {
	out := make(Text, len(s))
	for i := 0; i < len(s); i++ {
		v, ok := Lookup(s[i])
		if !ok {
			return nil, fmt.Errorf("%w: %q at offset %d", ErrInvalidSymbol, s[i], i)
		}
		out[i] = v
	}
	return out, nil
}

// MustEncode 同 Encode，失败时 panic。仅用于常量与测试。
func MustEncode(s string) Text {
	t, err := Encode(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String 解码为字符形式。
func (t Text) String() string {
	var b strings.Builder
	b.Grow(len(t))
	for _, s := range t {
		b.WriteByte(s.Byte())
	}
	return b.String()
}

// Clone 返回独立副本。
func (t Text) Clone() Text {
	out := make(Text, len(t))
	copy(out, t)
	return out
}

// Shift 返回每个符号移位 n 之后的新 Text。
func (t Text) Shift(n int) Text {
	out := make(Text, len(t))
	for i, s := range t {
		out[i] = s.Shift(n)
	}
	return out
}

// ParseCodes 解析空白分隔的整数码序列（每项须在 [0, Size)）。
func ParseCodes(s string) (Text, error) {
	fields := strings.Fields(s)
	out := make(Text, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil || v < 0 || v >= Size {
			return nil, fmt.Errorf("%w: code %q at token %d", ErrInvalidSymbol, f, i)
		}
		out = append(out, Symbol(v))
	}
	return out, nil
}

// FormatCodes 以单个空格分隔输出整数码。
func FormatCodes(t Text) string {
	var b strings.Builder
	for i, s := range t {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(int(s)))
	}
	return b.String()
}
