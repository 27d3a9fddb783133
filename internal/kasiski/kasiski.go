// Package kasiski 通过分块汉明距离估计重复密钥长度。
//
// 对每个候选长度 L，把密文切成长度为 L 的不重叠分块（尾部不足 L 的部分丢弃），
// 对所有无序分块对求逐位差异数之和的平均值，再除以 L 作为得分。与真实密钥长度
// 对齐的分块反复编码同一分布，相同符号更多，得分系统性偏低。
package kasiski

import (
	"context"
	"fmt"
	"math/bits"
	"sort"

	"golang.org/x/sync/errgroup"

	"shiftcrack/pkg/alphabet"
	"shiftcrack/pkg/contract"
)

const (
	// DefaultMinLen / DefaultMaxLen: 默认扫描范围。
	DefaultMinLen = 3
	DefaultMaxLen = 120
)

// Candidate: 候选密钥长度及其得分（越低越可信）。
type Candidate struct {
	Length int     `json:"length"`
	Score  float64 `json:"score"`
}

// Options: 扫描范围与并行度。Workers<=1 顺序执行；结果与并行执行一致。
type Options struct {
	MinLen  int
	MaxLen  int
	Workers int
}

// Range 返回对长度为 n 的密文实际扫描的闭区间 [lo, hi]。
// 参数非法返回 ErrUnsupportedKeyLength；区间为空返回 ErrInsufficientData。
func Range(n int, opt Options) (lo, hi int, err error) {
	lo, hi = opt.MinLen, opt.MaxLen
	if lo <= 0 || hi <= 0 || lo > hi {
		return 0, 0, fmt.Errorf("%w: range [%d,%d]", contract.ErrUnsupportedKeyLength, lo, hi)
	}
	if n/2 < hi {
		hi = n / 2
	}
	if hi < lo {
		return 0, 0, fmt.Errorf("%w: %d symbols cannot form two chunks of length >= %d", contract.ErrInsufficientData, n, lo)
	}
	return lo, hi, nil
}

// Estimate 返回按得分升序（同分按长度升序）排列的候选列表。
func Estimate(ctx context.Context, ct alphabet.Text, opt Options) ([]Candidate, error) {
	lo, hi, err := Range(len(ct), opt)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, hi-lo+1)
	g, gctx := errgroup.WithContext(ctx)
	if opt.Workers > 0 {
		g.SetLimit(opt.Workers)
	} else {
		g.SetLimit(1)
	}
	for l := lo; l <= hi; l++ {
		l := l
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[l-lo] = Candidate{Length: l, Score: Score(ct, l)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Length < out[j].Length
	})
	return out, nil
}

// Score 计算长度 l 的归一化平均汉明距离；分块不足两个时返回 0（Range 已排除该情况）。
func Score(ct alphabet.Text, l int) float64 {
	chunks := len(ct) / l
	if chunks < 2 {
		return 0
	}
	var sum int64
	for i := 0; i < chunks; i++ {
		a := ct[i*l : (i+1)*l]
		for j := i + 1; j < chunks; j++ {
			sum += int64(Hamming(a, ct[j*l:(j+1)*l]))
		}
	}
	pairs := float64(chunks) * float64(chunks-1) / 2
	return float64(sum) / pairs / float64(l)
}

// Hamming 返回两段等长符号序列编码的逐位差异数；长度不等时只比较公共前缀。
func Hamming(a, b alphabet.Text) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	d := 0
	for i := 0; i < n; i++ {
		d += bits.OnesCount8(uint8(a[i] ^ b[i]))
	}
	return d
}
