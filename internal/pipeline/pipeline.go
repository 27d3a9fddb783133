package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"sync"
	"time"

	"shiftcrack/internal/crack"
	"shiftcrack/internal/diag"
	"shiftcrack/internal/dict"
	"shiftcrack/internal/report"
	"shiftcrack/pkg/alphabet"
	"shiftcrack/pkg/contract"
)

// - 单点并发：跨输入的并发只在此层管理；单个输入内部的扇出由 crack.Options.Workers 决定。
// - 顺序门闩：按 Reader 产出顺序提交结果（写出/终端/日志），与完成先后无关。
// - 输入失败（解码/破解）计入 Summary，不影响其他输入；FailFast 时首错取消整体。
// - 写出失败视为致命：记录首错并 cancel，排空后返回。

// ErrInputsFailed: 至少一个输入解码或破解失败（其余输入已正常产出）。
var ErrInputsFailed = errors.New("inputs failed")

// 产物扩展名。
const (
	ExtPlain = ".plain"
	ExtJSONL = ".jsonl"
	ExtDiff  = ".diff"
)

// DefaultDiffMaxTokens 为差异报告的词元上限（粗解与纠错合计）。
const DefaultDiffMaxTokens = 1 << 16

// Components 聚合运行所需的 I/O 协作方。
type Components struct {
	Reader contract.Reader
	Format contract.Format
	Writer contract.Writer
}

// Settings 运行期配置。
type Settings struct {
	Inputs      []string
	Concurrency int
	Dictionary  *dict.Dictionary
	Crack       crack.Options
	// Diff: 额外写出 <id>.diff（粗解 → 纠错）。
	Diff bool
	// DiffMaxTokens 超限时 .diff 仅含占位；0 取 DefaultDiffMaxTokens。
	DiffMaxTokens int
	// FailFast: 任一输入失败即取消剩余输入。
	FailFast bool
}

// Result 为单个输入的处理结果（按提交顺序）。
type Result struct {
	FileID     contract.FileID
	Symbols    int
	KeyLength  int
	Key        []int
	Confidence float64
	Guesses    int
	Duration   time.Duration
	Err        error
}

// Summary 汇总一次运行。
type Summary struct {
	Succeeded int
	Failed    int
	Results   []Result
}

type job struct {
	seq int
	id  contract.FileID
	ct  alphabet.Text
	err error
}

type outcome struct {
	seq     int
	id      contract.FileID
	symbols int
	guesses []crack.Guess
	dur     time.Duration
	err     error
}

// Run 执行：Reader → Format.Decode → crack.Run → Writer（.plain / .jsonl / 可选 .diff）。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Summary, error) {
	if err := sanity(comp, set); err != nil {
		return Summary{}, fmt.Errorf("sanity: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n := set.Concurrency
	if n < 1 {
		n = 1
	}
	if t := diag.GetTerminal(); t != nil {
		t.RunStart(n, set.Dictionary.Len())
	}
	runStart := time.Now()

	// 有界通道：2×并发度，形成自然背压
	inCh := make(chan job, n*2)
	outCh := make(chan outcome, n*2)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			for j := range inCh {
				outCh <- crackOne(ctx, j, set, logger)
			}
		}()
	}

	// 生产者：Reader 按文件回调，rc 在回调内读完解码
	var readErr error
	go func() {
		defer close(inCh)
		rtimer := logger.Start("reader", "iterate")
		seq := 0
		readErr = comp.Reader.Iterate(ctx, set.Inputs, func(fid contract.FileID, rc io.ReadCloser) error {
			defer rc.Close()
			dtimer := logger.StartWith("format", "decode", string(fid))
			ct, err := comp.Format.Decode(rc)
			if err == nil {
				dtimer.Finish("decode", int64(len(ct)))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case inCh <- job{seq: seq, id: fid, ct: ct, err: err}:
			}
			seq++
			return nil
		})
		if readErr == nil {
			rtimer.Finish("iterate", int64(seq))
			diag.IncOp("reader", "finish", "success")
		}
	}()

	go func() {
		wg.Wait()
		close(outCh)
	}()

	// 提交门闩：按 seq 连续冲刷
	var (
		sum           Summary
		firstErr      error
		firstInputErr error
	)
	buf := make(map[int]outcome)
	expect := 0
	for o := range outCh {
		buf[o.seq] = o
		for {
			cur, ok := buf[expect]
			if !ok {
				break
			}
			delete(buf, expect)
			expect++
			res := Result{FileID: cur.id, Symbols: cur.symbols, Duration: cur.dur, Err: cur.err, Guesses: len(cur.guesses)}
			if cur.err == nil && firstErr == nil {
				if err := commit(ctx, comp, set, cur, logger); err != nil {
					firstErr = err
					cancel()
					res.Err = err
				}
			}
			if res.Err == nil && len(cur.guesses) > 0 {
				top := cur.guesses[0]
				res.KeyLength, res.Key, res.Confidence = top.KeyLength, top.Key, top.Confidence
			}
			if res.Err != nil {
				sum.Failed++
				if cur.err != nil && !errors.Is(cur.err, context.Canceled) {
					if firstInputErr == nil {
						firstInputErr = fmt.Errorf("%s: %w", cur.id, cur.err)
					}
					if set.FailFast && firstErr == nil {
						firstErr = firstInputErr
						cancel()
					}
				}
			} else {
				sum.Succeeded++
			}
			sum.Results = append(sum.Results, res)
			if t := diag.GetTerminal(); t != nil {
				t.InputFinish(string(cur.id), res.Err == nil, res.KeyLength, cur.dur)
			}
		}
	}

	if t := diag.GetTerminal(); t != nil {
		t.RunFinish(firstErr == nil && readErr == nil && sum.Failed == 0, time.Since(runStart))
	}
	if firstErr != nil {
		return sum, firstErr
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	if readErr != nil {
		code := diag.Classify(readErr)
		logger.Error("reader", string(code), "iterate failed", nil)
		diag.IncOp("reader", "error", "error")
		diag.IncError("reader", string(code))
		return sum, fmt.Errorf("reader iterate: %w", readErr)
	}
	if sum.Failed > 0 {
		return sum, fmt.Errorf("%w: %d of %d: %w", ErrInputsFailed, sum.Failed, sum.Failed+sum.Succeeded, firstInputErr)
	}
	return sum, nil
}

// crackOne 在 worker 中运行：解码错误直接透传，否则执行 crack.Run。
func crackOne(ctx context.Context, j job, set Settings, logger *diag.Logger) outcome {
	o := outcome{seq: j.seq, id: j.id, symbols: len(j.ct)}
	id := string(j.id)
	if j.err != nil {
		o.err = fmt.Errorf("decode: %w", j.err)
		fail(logger, "format", "decode failed", id, o.err)
		return o
	}
	if err := ctx.Err(); err != nil {
		o.err = err
		return o
	}
	t := diag.GetTerminal()
	if t != nil {
		t.InputStart(id, len(j.ct))
	}
	opt := set.Crack
	opt.Progress = func(done, total int) {
		if t != nil {
			t.InputProgress(done, total)
		}
	}
	timer := logger.StartWithKV("crack", "run", id, map[string]string{
		"symbols":     strconv.Itoa(len(j.ct)),
		"num_guesses": strconv.Itoa(opt.NumGuesses),
	})
	start := time.Now()
	guesses, err := crack.Run(ctx, j.ct, set.Dictionary, opt)
	o.dur = time.Since(start)
	if err != nil {
		o.err = err
		fail(logger, "crack", "run failed", id, err)
		return o
	}
	for _, g := range guesses {
		logger.Guess("crack", id, g.KeyLength, map[string]string{
			"rank":       strconv.Itoa(g.Rank),
			"edit_cost":  strconv.Itoa(g.EditCost),
			"freq_score": strconv.FormatFloat(g.FreqScore, 'f', 4, 64),
			"refined":    strconv.FormatBool(g.Refined),
			"known":      strconv.FormatBool(g.Known),
		})
	}
	dur := timer.Finish("run", int64(len(guesses)))
	diag.IncOp("crack", "finish", "success")
	diag.ObserveDuration("crack", "run", dur)
	o.guesses = guesses
	return o
}

// commit 写出最佳猜测的明文、全部猜测的 JSONL 排名以及可选的差异报告。
func commit(ctx context.Context, comp Components, set Settings, o outcome, logger *diag.Logger) error {
	top := o.guesses[0]
	var plain bytes.Buffer
	if err := comp.Format.Encode(&plain, top.Plaintext); err != nil {
		return fmt.Errorf("format encode: %w", err)
	}
	if err := write(ctx, comp.Writer, contract.ArtifactFor(o.id, ExtPlain), &plain, logger); err != nil {
		return err
	}

	var rows bytes.Buffer
	enc := json.NewEncoder(&rows)
	enc.SetEscapeHTML(false)
	for _, g := range o.guesses {
		row := guessRow{FileID: string(o.id), Guess: g, Rough: g.Rough.String(), Plaintext: g.Plaintext.String()}
		if err := enc.Encode(&row); err != nil {
			return fmt.Errorf("jsonl encode: %w", err)
		}
	}
	if err := write(ctx, comp.Writer, contract.ArtifactFor(o.id, ExtJSONL), &rows, logger); err != nil {
		return err
	}

	if set.Diff {
		return commitDiff(ctx, comp, set, o.id, top, logger)
	}
	return nil
}

// commitDiff 写出差异报告；渲染失败只告警，不影响已写出的产物。
func commitDiff(ctx context.Context, comp Components, set Settings, id contract.FileID, top crack.Guess, logger *diag.Logger) error {
	limit := set.DiffMaxTokens
	if limit <= 0 {
		limit = DefaultDiffMaxTokens
	}
	name := path.Base(string(contract.ArtifactFor(id, "")))
	d, oversize, err := report.Unified(name, top.Rough, top.Plaintext, report.Options{MaxTokens: limit})
	switch {
	case err != nil:
		logger.Warn("report", "diff unavailable", string(id), map[string]string{"err": err.Error()})
		return nil
	case oversize:
		logger.Warn("report", "diff omitted (oversize)", string(id), map[string]string{"max_tokens": strconv.Itoa(limit)})
	default:
		logger.Debug("report", "diff", map[string]string{
			"input":          string(id),
			"changed_tokens": strconv.Itoa(report.Changed(top.Rough, top.Plaintext)),
		})
	}
	if d == "" {
		return nil
	}
	return write(ctx, comp.Writer, contract.ArtifactFor(id, ExtDiff), bytes.NewBufferString(d), logger)
}

// guessRow 为 JSONL 排名的一行。
type guessRow struct {
	FileID string `json:"file_id"`
	crack.Guess
	Rough     string `json:"rough"`
	Plaintext string `json:"plaintext"`
}

func write(ctx context.Context, w contract.Writer, id contract.ArtifactID, r io.Reader, logger *diag.Logger) error {
	timer := logger.StartWith("writer", "write", string(id))
	if err := w.Write(ctx, id, r); err != nil {
		err = fmt.Errorf("writer write %s: %w", id, err)
		fail(logger, "writer", "write failed", string(id), err)
		return err
	}
	timer.Finish("write", 1)
	diag.IncOp("writer", "finish", "success")
	return nil
}

func fail(logger *diag.Logger, comp, msg, input string, err error) {
	code := diag.Classify(err)
	logger.ErrorWithKV(comp, string(code), msg, nil, input, map[string]string{"err": err.Error()})
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Format == nil || c.Writer == nil {
		return fmt.Errorf("%w: pipeline: missing components", contract.ErrInvalidInput)
	}
	if s.Dictionary == nil || s.Dictionary.Len() == 0 {
		return contract.ErrEmptyDictionary
	}
	if len(s.Inputs) == 0 {
		return fmt.Errorf("%w: pipeline: empty inputs", contract.ErrInvalidInput)
	}
	return nil
}
