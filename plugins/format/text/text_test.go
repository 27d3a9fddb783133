package text

import (
	"errors"
	"strings"
	"testing"

	"shiftcrack/pkg/alphabet"
	"shiftcrack/pkg/contract"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		name string
		in   string
		opt  *Options
		want string
		err  error
	}{
		{"plain", "the quick", nil, "the quick", nil},
		{"trailing crlf", "abc \r\n", nil, "abc ", nil},
		{"empty", "\n", nil, "", nil},
		{"upper rejected", "The", nil, "", contract.ErrInvalidSymbol},
		{"upper lowered", "The Fox", &Options{Lowercase: true}, "the fox", nil},
		{"inner newline", "ab\ncd", nil, "", contract.ErrInvalidSymbol},
		{"digit", "a1", nil, "", contract.ErrInvalidSymbol},
	}
	for _, c := range cases {
		got, err := New(c.opt).Decode(strings.NewReader(c.in))
		if c.err != nil {
			if !errors.Is(err, c.err) {
				t.Fatalf("%s: expect %v, got %v", c.name, c.err, err)
			}
			continue
		}
		if err != nil || got.String() != c.want {
			t.Fatalf("%s: got %q err=%v", c.name, got.String(), err)
		}
	}
}

func TestEncode(t *testing.T) {
	var b strings.Builder
	if err := New(nil).Encode(&b, alphabet.MustEncode("the fox")); err != nil || b.String() != "the fox\n" {
		t.Fatalf("encode: %q %v", b.String(), err)
	}
	b.Reset()
	_ = New(&Options{NoNewline: true}).Encode(&b, alphabet.MustEncode("ab"))
	if b.String() != "ab" {
		t.Fatalf("no newline: %q", b.String())
	}
}
