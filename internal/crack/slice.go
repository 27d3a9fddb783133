package crack

import (
	"fmt"

	"shiftcrack/pkg/alphabet"
	"shiftcrack/pkg/contract"
)

// Slice 把 t 拆成 l 个剩余类子序列：第 i 个包含位置 i, i+l, i+2l, ...，保持原相对顺序。
// l<=0 返回 nil。
func Slice(t alphabet.Text, l int) []alphabet.Text {
	if l <= 0 {
		return nil
	}
	out := make([]alphabet.Text, l)
	for i := range out {
		out[i] = make(alphabet.Text, 0, (len(t)-i+l-1)/l)
	}
	for p, s := range t {
		out[p%l] = append(out[p%l], s)
	}
	return out
}

// Combine 是 Slice 的逆：位置 p 取第 p mod l 个子序列的第 p / l 个元素。
// 子序列数量或长度与 (l, n) 不匹配时返回 ErrInvariantViolation。
func Combine(slices []alphabet.Text, l, n int) (alphabet.Text, error) {
	if l <= 0 || len(slices) != l {
		return nil, fmt.Errorf("%w: %d slices for key length %d", contract.ErrInvariantViolation, len(slices), l)
	}
	for i, s := range slices {
		want := 0
		if n > i {
			want = (n - i + l - 1) / l
		}
		if len(s) != want {
			return nil, fmt.Errorf("%w: slice %d has %d symbols, want %d", contract.ErrInvariantViolation, i, len(s), want)
		}
	}
	out := make(alphabet.Text, n)
	for p := range out {
		out[p] = slices[p%l][p/l]
	}
	return out, nil
}
