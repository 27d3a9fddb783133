// Package dict 提供不可变词表与由其派生的参考直方图。
// 构造完成后不再修改，可被任意数量的 goroutine 无锁并发读取。
package dict

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"shiftcrack/pkg/alphabet"
	"shiftcrack/pkg/contract"
)

// Dictionary: 去重、按字典序排序的合法词集合及其直方图。
type Dictionary struct {
	words  []alphabet.Text
	index  map[string]int
	hist   Histogram
	maxLen int
}

// New 以给定词构造词表。空词忽略；重复词去重；词内含分隔符视为非法。
// 直方图：词内字母逐一计数，分隔符权重取词数（连续文本中每个词后跟一个分隔符）。
func New(words []alphabet.Text) (*Dictionary, error) {
	d := &Dictionary{}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) == 0 {
			continue
		}
		for i, s := range w {
			if !s.Valid() {
				return nil, fmt.Errorf("%w: code %d in word %d", contract.ErrInvalidSymbol, s, i)
			}
			if s == alphabet.Separator {
				return nil, fmt.Errorf("%w: word %q contains separator", contract.ErrInvalidInput, w.String())
			}
		}
		key := w.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		d.words = append(d.words, w.Clone())
	}
	if len(d.words) == 0 {
		return nil, contract.ErrEmptyDictionary
	}
	sort.Slice(d.words, func(i, j int) bool { return d.words[i].String() < d.words[j].String() })
	d.index = make(map[string]int, len(d.words))
	for i, w := range d.words {
		d.index[w.String()] = i
		for _, s := range w {
			d.hist.counts[s]++
		}
		d.hist.total += int64(len(w))
		if len(w) > d.maxLen {
			d.maxLen = len(w)
		}
	}
	d.hist.counts[alphabet.Separator] += int64(len(d.words))
	d.hist.total += int64(len(d.words))
	return d, nil
}

// FromStrings 便捷构造；任一词含字母表外字符即报错。
func FromStrings(words ...string) (*Dictionary, error) {
	ts := make([]alphabet.Text, 0, len(words))
	for _, w := range words {
		t, err := alphabet.Encode(w)
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
	}
	return New(ts)
}

// Parse 读取空白分隔的词表：统一小写；含 a-z 以外字符的词被拒绝并在 rejected 中返回，
// 由调用方决定如何上报。
func Parse(r io.Reader) (d *Dictionary, rejected []string, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)
	var words []alphabet.Text
	for sc.Scan() {
		raw := sc.Text()
		t, encErr := alphabet.Encode(strings.ToLower(raw))
		if encErr != nil {
			rejected = append(rejected, raw)
			continue
		}
		words = append(words, t)
	}
	if err := sc.Err(); err != nil {
		return nil, rejected, fmt.Errorf("dict: read: %w", err)
	}
	d, err = New(words)
	if err != nil {
		return nil, rejected, err
	}
	return d, rejected, nil
}

// Len 返回词数。
func (d *Dictionary) Len() int { return len(d.words) }

// Words 返回排序后的词切片；调用方不得修改。
func (d *Dictionary) Words() []alphabet.Text { return d.words }

// Index 返回 w 在 Words() 中的下标。
func (d *Dictionary) Index(w alphabet.Text) (int, bool) {
	i, ok := d.index[w.String()]
	return i, ok
}

// Contains 报告 w 是否为词表中的词。
func (d *Dictionary) Contains(w alphabet.Text) bool {
	_, ok := d.Index(w)
	return ok
}

// Histogram 返回参考直方图。
func (d *Dictionary) Histogram() *Histogram { return &d.hist }

// MaxWordLen 返回最长词长度。
func (d *Dictionary) MaxWordLen() int { return d.maxLen }
