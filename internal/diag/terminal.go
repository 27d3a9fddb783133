package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
	"golang.org/x/time/rate"
)

// Terminal: 终端进度提示（非日志）。
// - 输出到提供的 io.Writer（默认 stderr）。
// - TTY: 单行 \r 覆盖；非 TTY: 关键节点分行打印。
// - 并发安全；写失败后进入禁用态为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool

	concurrency int
	dictWords   int
	inputsDone  int
	inputsFail  int
	runStart    time.Time

	cur        string
	guessTotal int
	guessDone  int

	lastLen  int
	throttle rate.Sometimes

	mu sync.Mutex
}

// 进程级终端（可选，全局设置后供 pipeline 旁路调用）。
var (
	termMu sync.RWMutex
	global *Terminal
)

// SetTerminal 设置全局终端指针（nil 可清除）。
func SetTerminal(t *Terminal) { termMu.Lock(); global = t; termMu.Unlock() }

// GetTerminal 返回全局终端（可能为 nil）。
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return global }

// NewTerminal 构造终端提示器；enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled, throttle: rate.Sometimes{Interval: 100 * time.Millisecond}}
	// CI 环境视为非 TTY
	if os.Getenv("CI") == "" {
		if f, ok := w.(*os.File); ok {
			t.isTTY = term.IsTerminal(int(f.Fd()))
		}
	}
	return t
}

// RunStart 记录运行上下文（并发、词表规模）。
func (t *Terminal) RunStart(concurrency, dictWords int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.concurrency = concurrency
	t.dictWords = dictWords
	t.inputsDone, t.inputsFail = 0, 0
	t.runStart = time.Now()
	t.println(fmt.Sprintf("[run] 并发=%d | 词表=%d", concurrency, dictWords))
}

// InputStart 标记当前输入及其密文长度。
func (t *Terminal) InputStart(id string, symbols int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.cur = shortenBase(id, 48)
	t.guessTotal, t.guessDone = 0, 0
	if !t.isTTY {
		t.println(fmt.Sprintf("[input] %s | 密文长度=%d", t.cur, symbols))
	}
}

// InputProgress 候选长度尝试进度（100ms 节流，仅 TTY）。
func (t *Terminal) InputProgress(done, total int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || !t.isTTY {
		return
	}
	t.guessDone, t.guessTotal = done, total
	t.throttle.Do(func() {
		t.printInline(fmt.Sprintf("[input] %s | 进度 %d/%d | 并发 %d | 用时 %s",
			t.cur, t.guessDone, t.guessTotal, t.concurrency, formatDur(time.Since(t.runStart))))
	})
}

// InputFinish 完成一个输入（立即刷新并换行）。多输入并发时按提交顺序调用。
func (t *Terminal) InputFinish(id string, ok bool, keyLen int, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	status := "done"
	if ok {
		t.inputsDone++
	} else {
		t.inputsFail++
		status = "fail"
	}
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
	}
	t.println(fmt.Sprintf("[%s] %s | 密钥长度 %d | 用时 %s", status, shortenBase(id, 48), keyLen, formatDur(dur)))
}

// RunFinish 结束总览。
func (t *Terminal) RunFinish(ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	tag := "ok"
	if !ok {
		tag = "fail"
	}
	t.println(fmt.Sprintf("[%s] 全部完成 | 成功 %d | 失败 %d | 总用时 %s", tag, t.inputsDone, t.inputsFail, formatDur(dur)))
}

func (t *Terminal) println(s string) {
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		t.enabled = false
	}
	t.lastLen = 0
}

// printInline: \r + 内容；新行比旧行短时补空格覆盖。
func (t *Terminal) printInline(s string) {
	var b strings.Builder
	b.WriteByte('\r')
	b.WriteString(s)
	if l := visLen(s); t.lastLen > l {
		b.WriteString(strings.Repeat(" ", t.lastLen-l))
	}
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		t.enabled = false
		return
	}
	t.lastLen = visLen(s)
}

// shortenBase: 取基名并按可见宽度截断（尾部省略号）。
func shortenBase(s string, max int) string {
	if max <= 0 {
		return ""
	}
	base := filepath.Base(strings.TrimSpace(s))
	rs := []rune(base)
	if len(rs) <= max {
		return base
	}
	return string(rs[:max-1]) + "…"
}

func visLen(s string) int { return len([]rune(s)) }

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms < 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(d.Milliseconds())/1000.0)
}
