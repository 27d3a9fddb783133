package dict

import "shiftcrack/pkg/alphabet"

// Histogram: 按符号计数的频率表，构造后只读。
type Histogram struct {
	counts [alphabet.Size]int64
	total  int64
}

// HistogramOf 统计 t 中各符号出现次数。
func HistogramOf(t alphabet.Text) Histogram {
	var h Histogram
	for _, s := range t {
		h.counts[s]++
	}
	h.total = int64(len(t))
	return h
}

// Weight 返回符号 s 的原始计数。
func (h *Histogram) Weight(s alphabet.Symbol) int64 { return h.counts[s] }

// Total 返回总权重。
func (h *Histogram) Total() int64 { return h.total }

// Counts 返回计数副本（下标即符号编码）。
func (h *Histogram) Counts() [alphabet.Size]int64 { return h.counts }
