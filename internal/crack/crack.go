// Package crack 实现重复密钥移位密码的分析核心：分片、逐片频率破解、合并、
// 词表引导的移位精化，以及串联密钥长度估计与拼写纠错的 Run。
//
// 置信度统一为“距离”语义：越低越好。
package crack

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"shiftcrack/internal/dict"
	"shiftcrack/internal/kasiski"
	"shiftcrack/pkg/alphabet"
	"shiftcrack/pkg/contract"
)

// Result: 已知密钥长度下的粗明文。Distance 为各子序列最优距离的均值。
type Result struct {
	KeyLength int
	Key       []int
	Plaintext alphabet.Text
	Distance  float64

	ranks [][]ShiftScore
}

// Params: 密钥长度上界与并行度。MaxLen=0 取 kasiski.DefaultMaxLen。
type Params struct {
	MaxLen  int
	Workers int
}

// CheckKeyLength 校验密钥长度：须在 [1, maxLen] 内且不超过密文长度。
func CheckKeyLength(keyLen, maxLen, n int) error {
	if maxLen <= 0 {
		maxLen = kasiski.DefaultMaxLen
	}
	switch {
	case keyLen <= 0:
		return fmt.Errorf("%w: %d", contract.ErrUnsupportedKeyLength, keyLen)
	case keyLen > maxLen:
		return fmt.Errorf("%w: %d exceeds bound %d", contract.ErrUnsupportedKeyLength, keyLen, maxLen)
	case keyLen > n:
		return fmt.Errorf("%w: %d exceeds ciphertext length %d", contract.ErrUnsupportedKeyLength, keyLen, n)
	}
	return nil
}

// Crack 分片后逐片破解，再按原长度合并。
func Crack(ctx context.Context, ct alphabet.Text, keyLen int, h *dict.Histogram, p Params) (Result, error) {
	if h == nil || h.Total() <= 0 {
		return Result{}, contract.ErrEmptyDictionary
	}
	if err := CheckKeyLength(keyLen, p.MaxLen, len(ct)); err != nil {
		return Result{}, err
	}
	slices := Slice(ct, keyLen)
	ranks := make([][]ShiftScore, keyLen)
	g, gctx := errgroup.WithContext(ctx)
	if p.Workers > 1 {
		g.SetLimit(p.Workers)
	} else {
		g.SetLimit(1)
	}
	for i := range slices {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := RankShifts(slices[i], h)
			if err != nil {
				return fmt.Errorf("slice %d: %w", i, err)
			}
			ranks[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	key := make([]int, keyLen)
	var sum float64
	plain := make([]alphabet.Text, keyLen)
	for i, r := range ranks {
		key[i] = r[0].Shift
		sum += r[0].Distance
		plain[i] = slices[i].Shift(-r[0].Shift)
	}
	pt, err := Combine(plain, keyLen, len(ct))
	if err != nil {
		return Result{}, err
	}
	return Result{
		KeyLength: keyLen,
		Key:       key,
		Plaintext: pt,
		Distance:  sum / float64(keyLen),
		ranks:     ranks,
	}, nil
}

// Decrypt 以逐位置重复密钥解码：p = (c - key[i mod L]) mod Size。
func Decrypt(ct alphabet.Text, key []int) alphabet.Text {
	out := make(alphabet.Text, len(ct))
	for i, c := range ct {
		out[i] = c.Shift(-key[i%len(key)])
	}
	return out
}
