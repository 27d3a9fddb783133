// Package report 生成粗解与纠错结果之间的统一差异（每行一个词）。
package report

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"

	"shiftcrack/pkg/alphabet"
)

// DefaultContext 为 hunk 上下文行数。
const DefaultContext = 3

// Options 控制差异输出。
type Options struct {
	// Context 为 0 时取 DefaultContext。
	Context int
	// MaxTokens 超限时仅输出占位（0 表示不限制）。
	MaxTokens int
}

// Lines 按分隔符切词，每个词一行（保留换行，空词忽略）。
func Lines(t alphabet.Text) []string {
	var out []string
	for _, w := range strings.Split(t.String(), " ") {
		if w == "" {
			continue
		}
		out = append(out, w+"\n")
	}
	return out
}

// render 可在测试中替换。
var render = difflib.GetUnifiedDiffString

// Unified 返回 rough→corrected 的统一差异；二者相同时返回空串。
// 第二个返回值表示因超限被省略（此时返回占位文本）。
func Unified(name string, rough, corrected alphabet.Text, opt Options) (string, bool, error) {
	a, b := Lines(rough), Lines(corrected)
	if opt.MaxTokens > 0 && len(a)+len(b) > opt.MaxTokens {
		return omitted(name), true, nil
	}
	ctx := opt.Context
	if ctx <= 0 {
		ctx = DefaultContext
	}
	s, err := render(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: name + ".rough",
		ToFile:   name + ".plain",
		Context:  ctx,
	})
	if err != nil {
		return "", false, fmt.Errorf("report: diff %s: %w", name, err)
	}
	return s, false, nil
}

// Changed 统计替换/增删的词数（粗略，写入日志的 changed_tokens）。
func Changed(rough, corrected alphabet.Text) int {
	m := difflib.NewMatcher(Lines(rough), Lines(corrected))
	n := 0
	for _, op := range m.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		n += max(op.I2-op.I1, op.J2-op.J1)
	}
	return n
}

func omitted(name string) string {
	return fmt.Sprintf("--- %s.rough\n+++ %s.plain\n@@\n# diff omitted (oversize)\n", name, name)
}
