package crack

import (
	"context"

	"shiftcrack/internal/spell"
	"shiftcrack/pkg/alphabet"
)

// RefineOptions 控制词表引导的移位精化。
// 每个子序列保留频率排名前 k 的移位量，枚举全部 k^L 种组合，取拼写纠错代价最低者。
// k 取满足 k^L <= MaxCombos 且 k^L * N * |dict| <= MaxWork 的最大值；k < 2 时跳过。
type RefineOptions struct {
	Enabled   bool  `json:"enabled"`
	MaxCombos int   `json:"max_combos"`
	MaxWork   int64 `json:"max_work"`
}

// DefaultRefine 返回默认精化参数。
func DefaultRefine() RefineOptions {
	return RefineOptions{Enabled: true, MaxCombos: 4096, MaxWork: 1 << 26}
}

// Width 返回每个子序列参与枚举的候选移位数；0 表示预算不足以精化。
func (o RefineOptions) Width(keyLen, n, dictLen int) int {
	if !o.Enabled || keyLen <= 0 {
		return 0
	}
	for k := alphabet.Size; k >= 2; k-- {
		combos, ok := pow(k, keyLen, o.MaxCombos)
		if !ok {
			continue
		}
		if int64(combos)*int64(n)*int64(dictLen) <= o.MaxWork {
			return k
		}
	}
	return 0
}

// pow 返回 k^e；超过 limit 时 ok=false。
func pow(k, e, limit int) (int, bool) {
	v := 1
	for i := 0; i < e; i++ {
		v *= k
		if v > limit {
			return 0, false
		}
	}
	return v, true
}

// Refinement: 精化产出的密钥与对应的纠错结果。
type Refinement struct {
	Key        []int
	Plaintext  alphabet.Text
	Distance   float64
	Correction spell.Correction
	Combos     int
	Width      int
}

// Refine 在 res 的频率排名上做有界联合搜索。比较规则：纠错代价低者优先，其次频率距离低者，
// 再次枚举顺序靠前者（全部取排名第一的组合最先被枚举）。ok=false 表示预算不足未执行。
func Refine(ctx context.Context, ct alphabet.Text, res Result, chk *spell.Checker, opt RefineOptions) (Refinement, bool, error) {
	l := res.KeyLength
	k := opt.Width(l, len(ct), chk.Dictionary().Len())
	if k < 2 || len(res.ranks) != l {
		return Refinement{}, false, nil
	}
	seq := chk.Sequential()
	idx := make([]int, l)
	key := make([]int, l)
	best := Refinement{Width: k}
	found := false
	for {
		if err := ctx.Err(); err != nil {
			return Refinement{}, false, err
		}
		var dist float64
		for i := range key {
			s := res.ranks[i][idx[i]]
			key[i] = s.Shift
			dist += s.Distance
		}
		dist /= float64(l)
		pt := Decrypt(ct, key)
		corr, err := seq.Correct(ctx, pt)
		if err != nil {
			return Refinement{}, false, err
		}
		best.Combos++
		if !found || corr.Cost < best.Correction.Cost ||
			(corr.Cost == best.Correction.Cost && dist < best.Distance) {
			found = true
			best.Key = append(best.Key[:0], key...)
			best.Plaintext = pt
			best.Distance = dist
			best.Correction = corr
		}
		if best.Combos == 1 && corr.Cost == 0 {
			break
		}
		if !next(idx, k) {
			break
		}
	}
	return best, true, nil
}

// next 以里程表方式推进下标，全部回绕时返回 false。
func next(idx []int, k int) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < k {
			return true
		}
		idx[i] = 0
	}
	return false
}
