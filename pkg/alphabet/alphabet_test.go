package alphabet

import (
	"errors"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	txt, err := Encode("the quick brown fox")
	if err != nil {
		t.Fatalf("编码失败: %v", err)
	}
	if txt[0] != 19 || txt[3] != Separator {
		t.Fatalf("编码值错误: %v", txt[:4])
	}
	if got := txt.String(); got != "the quick brown fox" {
		t.Fatalf("往返不一致: %q", got)
	}
	if Size != 27 || Separator != 26 {
		t.Fatalf("字母表常量错误: size=%d sep=%d", Size, Separator)
	}
}

func TestEncodeRejectsOutOfAlphabet(t *testing.T) {
	for _, in := range []string{"Hello", "a-b", "tab\t", "don't", "x\n"} {
		if _, err := Encode(in); !errors.Is(err, ErrInvalidSymbol) {
			t.Fatalf("%q 应返回 ErrInvalidSymbol, got %v", in, err)
		}
	}
}

func TestShiftWraps(t *testing.T) {
	cases := []struct {
		s    Symbol
		n    int
		want Symbol
	}{
		{0, 1, 1},
		{26, 1, 0},
		{0, -1, 26},
		{5, 27, 5},
		{5, -54, 5},
		{3, -30, 0},
	}
	for _, c := range cases {
		if got := c.s.Shift(c.n); got != c.want {
			t.Fatalf("Shift(%d,%d)=%d want %d", c.s, c.n, got, c.want)
		}
	}
	txt := MustEncode("abc z")
	if got := txt.Shift(1).Shift(-1).String(); got != "abc z" {
		t.Fatalf("Text.Shift 往返失败: %q", got)
	}
}

func TestCodes(t *testing.T) {
	txt, err := ParseCodes(" 19 7\n4 26\t16 ")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if txt.String() != "the q" {
		t.Fatalf("解析结果错误: %q", txt.String())
	}
	if got := FormatCodes(txt); got != "19 7 4 26 16" {
		t.Fatalf("格式化错误: %q", got)
	}
	for _, bad := range []string{"27", "-1", "x", "1 2 3.5"} {
		if _, err := ParseCodes(bad); !errors.Is(err, ErrInvalidSymbol) {
			t.Fatalf("%q 应拒绝, got %v", bad, err)
		}
	}
	if txt, err := ParseCodes("   "); err != nil || len(txt) != 0 {
		t.Fatalf("空输入应得到空 Text: %v %v", txt, err)
	}
}
