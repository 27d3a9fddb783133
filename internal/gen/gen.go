package gen

import (
	"shiftcrack/internal/dict"
	"shiftcrack/pkg/alphabet"
)

// Generator 从词表随机取词，以单个分隔符连接成明文。
type Generator struct {
	dict *dict.Dictionary
	rng  *Rng
}

// NewGenerator 绑定词表与随机源。
func NewGenerator(d *dict.Dictionary, rng *Rng) *Generator {
	return &Generator{dict: d, rng: rng}
}

// Words 生成恰好 n 个词的明文；n<=0 返回空 Text。
func (g *Generator) Words(n int) alphabet.Text {
	var out alphabet.Text
	words := g.dict.Words()
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, alphabet.Separator)
		}
		out = append(out, words[g.rng.Intn(len(words))]...)
	}
	return out
}

// AtLeast 持续取词直到长度不小于 n。
func (g *Generator) AtLeast(n int) alphabet.Text {
	var out alphabet.Text
	words := g.dict.Words()
	for len(out) < n {
		if len(out) > 0 {
			out = append(out, alphabet.Separator)
		}
		out = append(out, words[g.rng.Intn(len(words))]...)
	}
	return out
}
