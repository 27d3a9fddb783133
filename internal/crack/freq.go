package crack

import (
	"fmt"
	"sort"

	"shiftcrack/internal/dict"
	"shiftcrack/pkg/alphabet"
	"shiftcrack/pkg/contract"
)

// ShiftScore: 某一移位量下解码子序列与参考直方图的 L1 距离（双方归一化为概率），越低越好。
type ShiftScore struct {
	Shift    int
	Distance float64
	scaled   int64 // Distance * n * total，整数比较避免浮点同分抖动
}

// SliceResult: 单个子序列的破解结果。
type SliceResult struct {
	Shift     int
	Plaintext alphabet.Text
	Distance  float64
}

// RankShifts 对全部 Size 个移位量打分并按 (距离, 移位量) 升序排列。
// 解码规则：p = (c - shift) mod Size。
func RankShifts(slice alphabet.Text, h *dict.Histogram) ([]ShiftScore, error) {
	if h == nil || h.Total() <= 0 {
		return nil, contract.ErrEmptyDictionary
	}
	n := int64(len(slice))
	if n == 0 {
		return nil, fmt.Errorf("%w: empty slice", contract.ErrInvalidInput)
	}
	var cnt [alphabet.Size]int64
	for _, s := range slice {
		if !s.Valid() {
			return nil, fmt.Errorf("%w: code %d", contract.ErrInvalidSymbol, s)
		}
		cnt[s]++
	}
	ref := h.Counts()
	total := h.Total()
	out := make([]ShiftScore, alphabet.Size)
	for shift := 0; shift < alphabet.Size; shift++ {
		var d int64
		for sym := 0; sym < alphabet.Size; sym++ {
			// 解码后为 sym 的密文符号是 sym+shift
			c := cnt[(sym+shift)%alphabet.Size]
			d += abs64(c*total - ref[sym]*n)
		}
		out[shift] = ShiftScore{Shift: shift, scaled: d, Distance: float64(d) / float64(n*total)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].scaled != out[j].scaled {
			return out[i].scaled < out[j].scaled
		}
		return out[i].Shift < out[j].Shift
	})
	return out, nil
}

// CrackSlice 选出距离最小的移位量（同分取最小移位量）并解码。
func CrackSlice(slice alphabet.Text, h *dict.Histogram) (SliceResult, error) {
	ranks, err := RankShifts(slice, h)
	if err != nil {
		return SliceResult{}, err
	}
	best := ranks[0]
	return SliceResult{Shift: best.Shift, Plaintext: slice.Shift(-best.Shift), Distance: best.Distance}, nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
