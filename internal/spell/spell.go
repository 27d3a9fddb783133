// Package spell 以编辑距离把粗明文中的词元替换为最近的词表词。
package spell

import (
	"context"
	"fmt"
	"sync"

	"github.com/agnivade/levenshtein"
	"golang.org/x/sync/errgroup"

	"shiftcrack/internal/dict"
	"shiftcrack/pkg/alphabet"
	"shiftcrack/pkg/contract"
)

// Options 控制分词回退与并行度。
type Options struct {
	// MaxTokenLen: 全文无分隔符时按该长度定长切分；0 取词表最长词长度。
	MaxTokenLen int
	Workers     int
}

// Correction: 纠错结果。Cost = 各词元到所选词的距离之和 + 被折叠的多余分隔符数，越低越好。
type Correction struct {
	Text     alphabet.Text
	Cost     int
	Tokens   int
	Changed  int
	Fallback bool
}

// Distance 返回经典 Levenshtein 距离（插入/删除/替换代价均为 1）。
func Distance(a, b alphabet.Text) int {
	return levenshtein.ComputeDistance(a.String(), b.String())
}

type match struct {
	word int
	dist int
}

// Checker 绑定只读词表并缓存词元匹配结果；可被多个 goroutine 共享。
type Checker struct {
	dict  *dict.Dictionary
	opt   Options
	cache *sync.Map // string -> match
}

// NewChecker 校验词表非空后返回 Checker。
func NewChecker(d *dict.Dictionary, opt Options) (*Checker, error) {
	if d == nil || d.Len() == 0 {
		return nil, contract.ErrEmptyDictionary
	}
	if opt.MaxTokenLen < 0 {
		return nil, fmt.Errorf("%w: max token length %d", contract.ErrInvalidInput, opt.MaxTokenLen)
	}
	if opt.MaxTokenLen == 0 {
		opt.MaxTokenLen = d.MaxWordLen()
	}
	return &Checker{dict: d, opt: opt, cache: new(sync.Map)}, nil
}

// Sequential 返回共享同一缓存、但在调用方 goroutine 内顺序执行的 Checker。
func (c *Checker) Sequential() *Checker {
	opt := c.opt
	opt.Workers = 1
	return &Checker{dict: c.dict, opt: opt, cache: c.cache}
}

// Dictionary 返回绑定的词表。
func (c *Checker) Dictionary() *dict.Dictionary { return c.dict }

// Correct 是无缓存复用场景下的便捷入口。
func Correct(ctx context.Context, text alphabet.Text, d *dict.Dictionary, opt Options) (Correction, error) {
	c, err := NewChecker(d, opt)
	if err != nil {
		return Correction{}, err
	}
	return c.Correct(ctx, text)
}

// Nearest 返回与 tok 编辑距离最小的词；同距离取字典序最小者。
func (c *Checker) Nearest(tok alphabet.Text) (alphabet.Text, int) {
	m := c.nearest(tok)
	return c.dict.Words()[m.word], m.dist
}

func (c *Checker) nearest(tok alphabet.Text) match {
	key := tok.String()
	if v, ok := c.cache.Load(key); ok {
		return v.(match)
	}
	if i, ok := c.dict.Index(tok); ok {
		best := match{word: i}
		c.cache.Store(key, best)
		return best
	}
	words := c.dict.Words()
	best := match{word: -1}
	for i, w := range words {
		// 长度差是距离下界；词按字典序遍历，下界不小于当前最优时不可能严格更优
		if best.word >= 0 && absDiff(len(w), len(tok)) >= best.dist {
			continue
		}
		d := levenshtein.ComputeDistance(key, w.String())
		if best.word < 0 || d < best.dist {
			best = match{word: i, dist: d}
			if d == 0 {
				break
			}
		}
	}
	c.cache.Store(key, best)
	return best
}

// Correct 分词、逐词元纠错后以单个分隔符重新连接。
func (c *Checker) Correct(ctx context.Context, text alphabet.Text) (Correction, error) {
	toks, dropped, fallback := Tokens(text, c.opt.MaxTokenLen)
	res := make([]match, len(toks))
	if c.opt.Workers <= 1 {
		if err := ctx.Err(); err != nil {
			return Correction{}, err
		}
		for i, tok := range toks {
			res[i] = c.nearest(tok)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.opt.Workers)
		for i := range toks {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res[i] = c.nearest(toks[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Correction{}, err
		}
	}
	out := Correction{Tokens: len(toks), Cost: dropped, Fallback: fallback}
	words := c.dict.Words()
	for i, m := range res {
		if i > 0 {
			out.Text = append(out.Text, alphabet.Separator)
		}
		out.Text = append(out.Text, words[m.word]...)
		out.Cost += m.dist
		if m.dist > 0 {
			out.Changed++
		}
	}
	return out, nil
}

// Tokens 按分隔符切分并丢弃空词元，dropped 为被折叠的多余分隔符数（含首尾）。
// 全文无分隔符且长于 maxLen 时按 maxLen 定长切分，fallback=true。
func Tokens(text alphabet.Text, maxLen int) (toks []alphabet.Text, dropped int, fallback bool) {
	seps := 0
	start := 0
	for i, s := range text {
		if s != alphabet.Separator {
			continue
		}
		seps++
		if i > start {
			toks = append(toks, text[start:i])
		}
		start = i + 1
	}
	if start < len(text) {
		toks = append(toks, text[start:])
	}
	if seps == 0 && maxLen > 0 && len(text) > maxLen {
		toks = toks[:0]
		for i := 0; i < len(text); i += maxLen {
			end := i + maxLen
			if end > len(text) {
				end = len(text)
			}
			toks = append(toks, text[i:end])
		}
		return toks, 0, true
	}
	if len(toks) > 0 {
		dropped = seps - (len(toks) - 1)
	} else {
		dropped = seps
	}
	return toks, dropped, false
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
