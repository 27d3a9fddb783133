package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 级别定义
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel 解析级别名，未知值按 info 处理。
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// Logger 为最小结构化日志器：单行 JSON，按级别过滤。
type Logger struct {
	corrID string
	level  Level
	sink   io.Writer
	closer io.Closer
	mu     sync.Mutex
}

// NewLogger 写入 logs/shiftcrack.log，10MiB 轮转、保留 5 份。
func NewLogger(corrID, level string) *Logger {
	lj := &lumberjack.Logger{
		Filename:   filepath.Join("logs", "shiftcrack.log"),
		MaxSize:    10,
		MaxBackups: 5,
	}
	return &Logger{corrID: corrID, level: ParseLevel(level), sink: lj, closer: lj}
}

// NewLoggerTo 写入任意 io.Writer（测试或嵌入方使用）。w 为 nil 时写 stderr。
func NewLoggerTo(w io.Writer, corrID, level string) *Logger {
	return &Logger{corrID: corrID, level: ParseLevel(level), sink: w}
}

// Close 关闭底层文件（若有）。
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Event 为标准事件结构。
type Event struct {
	Level  string            `json:"level"`
	TS     string            `json:"ts"`
	CorrID string            `json:"corr_id"`
	Comp   string            `json:"comp"`
	Stage  string            `json:"stage"` // start|finish|error|warn|debug
	Code   string            `json:"code,omitempty"`
	DurMS  int64             `json:"dur_ms,omitempty"`
	Count  int64             `json:"count,omitempty"`
	Input  string            `json:"input,omitempty"`
	KeyLen int               `json:"key_len,omitempty"`
	Msg    string            `json:"msg"`
	KV     map[string]string `json:"kv,omitempty"`
}

func (l *Logger) log(lv Level, ev Event) {
	if l == nil || lv < l.level {
		return
	}
	ev.Level = lv.String()
	ev.TS = NowUTC()
	ev.CorrID = l.corrID
	b, _ := json.Marshal(ev)
	b = append(b, '\n')
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sink == nil {
		_, _ = os.Stderr.Write(b)
		return
	}
	if _, err := l.sink.Write(b); err != nil {
		fmt.Fprintf(os.Stderr, "logger sink error: %v\n", err)
		_, _ = os.Stderr.Write(b)
	}
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", Msg: msg})
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWith 记录带输入标识的 start。
func (l *Logger) StartWith(comp, msg, input string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", Input: input, Msg: msg})
	return &Timer{l: l, comp: comp, input: input, t0: time.Now()}
}

// StartWithKV 记录带输入标识与键值的 start。
func (l *Logger) StartWithKV(comp, msg, input string, kv map[string]string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", Input: input, Msg: msg, KV: kv})
	return &Timer{l: l, comp: comp, input: input, t0: time.Now()}
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWithKV(comp, code, msg, durSince, "", nil)
}

// ErrorWith 附带输入标识。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, input string) {
	l.ErrorWithKV(comp, code, msg, durSince, input, nil)
}

// ErrorWithKV 附带输入标识与键值。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, input string, kv map[string]string) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(Error, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Msg: msg, Input: input, KV: kv})
}

// Warn 记录告警（例如词表中被拒绝的词）。
func (l *Logger) Warn(comp, msg, input string, kv map[string]string) {
	l.log(Warn, Event{Comp: comp, Stage: "warn", Input: input, Msg: msg, KV: kv})
}

// Debug 记录调试事件（例如生效配置）。
func (l *Logger) Debug(comp, msg string, kv map[string]string) {
	l.log(Debug, Event{Comp: comp, Stage: "debug", Msg: msg, KV: kv})
}

// Guess 以 debug 级别记录单个候选密钥长度的结果。
func (l *Logger) Guess(comp, input string, keyLen int, kv map[string]string) {
	l.log(Debug, Event{Comp: comp, Stage: "debug", Input: input, KeyLen: keyLen, Msg: "guess", KV: kv})
}

// InfoFinish 在已有起点的情况下记录 finish。
func (l *Logger) InfoFinish(comp, msg string, start time.Time, count int64) {
	l.log(Info, Event{Comp: comp, Stage: "finish", DurMS: time.Since(start).Milliseconds(), Count: count, Msg: msg})
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l     *Logger
	comp  string
	input string
	t0    time.Time
}

// Finish 记录 finish；可选 count。返回耗时毫秒数。
func (t *Timer) Finish(msg string, count int64) int64 {
	if t == nil || t.l == nil {
		return 0
	}
	dur := time.Since(t.t0).Milliseconds()
	t.l.log(Info, Event{Comp: t.comp, Stage: "finish", DurMS: dur, Count: count, Input: t.input, Msg: msg})
	return dur
}
