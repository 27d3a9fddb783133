package crack

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shiftcrack/internal/dict"
	"shiftcrack/internal/kasiski"
	"shiftcrack/internal/spell"
	"shiftcrack/pkg/alphabet"
	"shiftcrack/pkg/contract"
)

var tracer = otel.Tracer("shiftcrack/internal/crack")

// Options: Run 的参数。NumGuesses=1 为单猜测模式；0 表示尝试全部候选长度。
type Options struct {
	MinLen      int
	MaxLen      int
	NumGuesses  int
	Workers     int
	MaxTokenLen int
	Refine      RefineOptions
	// Known 非空时先做已知明文匹配，命中即只返回该猜测；未命中回落到常规破解。
	Known []alphabet.Text
	// KnownMaxDistance <=0 取 DefaultKnownMaxDistance。
	KnownMaxDistance float64
	// Progress 在每个候选长度尝试完成后回调（可为 nil）。
	Progress func(done, total int)
}

// DefaultOptions 返回默认参数：尝试全部候选长度（短密文上估计排名不可靠）。
func DefaultOptions() Options {
	return Options{
		MinLen:     kasiski.DefaultMinLen,
		MaxLen:     kasiski.DefaultMaxLen,
		NumGuesses: 0,
		Workers:    1,
		Refine:     DefaultRefine(),
	}
}

// Guess: 一次候选长度尝试的完整结果。Confidence = EditCost / N，越低越好。
type Guess struct {
	Rank       int           `json:"rank"`
	KeyLength  int           `json:"key_length"`
	KeyScore   float64       `json:"key_score"`
	Key        []int         `json:"key"`
	Rough      alphabet.Text `json:"-"`
	Plaintext  alphabet.Text `json:"-"`
	FreqScore  float64       `json:"freq_score"`
	EditCost   int           `json:"edit_cost"`
	Refined    bool          `json:"refined"`
	Fallback   bool          `json:"fallback"`
	Known      bool          `json:"known"`
	Confidence float64       `json:"confidence"`
}

// Run 估计一次密钥长度，对前 NumGuesses 个候选依次执行 分片→破解→合并→精化→纠错，
// 返回按 (Confidence, FreqScore, Rank) 升序排列的全部猜测。
func Run(ctx context.Context, ct alphabet.Text, d *dict.Dictionary, opt Options) (guesses []Guess, err error) {
	ctx, span := tracer.Start(ctx, "crack.run", trace.WithAttributes(
		attribute.Int("ciphertext.len", len(ct)),
		attribute.Int("num_guesses", opt.NumGuesses),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if d == nil || d.Len() == 0 {
		return nil, contract.ErrEmptyDictionary
	}
	if opt.NumGuesses < 0 {
		return nil, fmt.Errorf("%w: num guesses %d", contract.ErrInvalidInput, opt.NumGuesses)
	}
	chk, err := spell.NewChecker(d, spell.Options{MaxTokenLen: opt.MaxTokenLen, Workers: opt.Workers})
	if err != nil {
		return nil, err
	}

	cands, err := estimate(ctx, ct, opt)
	if err != nil {
		return nil, fmt.Errorf("estimate: %w", err)
	}
	n := opt.NumGuesses
	if n == 0 || n > len(cands) {
		n = len(cands)
	}
	if len(opt.Known) > 0 {
		maxDist := opt.KnownMaxDistance
		if maxDist <= 0 {
			maxDist = DefaultKnownMaxDistance
		}
		m, ok, err := matchKnown(ctx, ct, cands[:n], opt.Known, maxDist, opt)
		if err != nil {
			return nil, fmt.Errorf("known plaintext: %w", err)
		}
		if ok {
			span.SetAttributes(attribute.Int("known.index", m.Index), attribute.Int("best.key_length", m.KeyLength))
			if opt.Progress != nil {
				opt.Progress(1, 1)
			}
			return []Guess{m.Guess()}, nil
		}
	}
	guesses = make([]Guess, 0, n)
	for rank := 0; rank < n; rank++ {
		g, err := attempt(ctx, ct, d, chk, cands[rank], rank, opt)
		if err != nil {
			return nil, fmt.Errorf("key length %d: %w", cands[rank].Length, err)
		}
		guesses = append(guesses, g)
		if opt.Progress != nil {
			opt.Progress(rank+1, n)
		}
	}
	sort.SliceStable(guesses, func(i, j int) bool {
		a, b := guesses[i], guesses[j]
		if a.Confidence != b.Confidence {
			return a.Confidence < b.Confidence
		}
		if a.FreqScore != b.FreqScore {
			return a.FreqScore < b.FreqScore
		}
		return a.Rank < b.Rank
	})
	span.SetAttributes(attribute.Int("best.key_length", guesses[0].KeyLength))
	return guesses, nil
}

func estimate(ctx context.Context, ct alphabet.Text, opt Options) ([]kasiski.Candidate, error) {
	ctx, span := tracer.Start(ctx, "crack.estimate")
	defer span.End()
	cands, err := kasiski.Estimate(ctx, ct, kasiski.Options{MinLen: opt.MinLen, MaxLen: opt.MaxLen, Workers: opt.Workers})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("candidates", len(cands)))
	return cands, nil
}

func attempt(ctx context.Context, ct alphabet.Text, d *dict.Dictionary, chk *spell.Checker, c kasiski.Candidate, rank int, opt Options) (Guess, error) {
	ctx, span := tracer.Start(ctx, "crack.attempt", trace.WithAttributes(
		attribute.Int("key_length", c.Length),
		attribute.Int("rank", rank),
	))
	defer span.End()
	fail := func(err error) (Guess, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Guess{}, err
	}

	res, err := Crack(ctx, ct, c.Length, d.Histogram(), Params{MaxLen: opt.MaxLen, Workers: opt.Workers})
	if err != nil {
		return fail(err)
	}
	g := Guess{
		Rank:      rank,
		KeyLength: c.Length,
		KeyScore:  c.Score,
		Key:       res.Key,
		Rough:     res.Plaintext,
		FreqScore: res.Distance,
	}
	var corr spell.Correction
	ref, ok, err := Refine(ctx, ct, res, chk, opt.Refine)
	if err != nil {
		return fail(err)
	}
	if ok {
		span.SetAttributes(attribute.Int("refine.combos", ref.Combos), attribute.Int("refine.width", ref.Width))
		g.Key, g.Rough, g.FreqScore = ref.Key, ref.Plaintext, ref.Distance
		g.Refined = true
		corr = ref.Correction
	} else {
		corr, err = chk.Correct(ctx, res.Plaintext)
		if err != nil {
			return fail(err)
		}
	}
	g.Plaintext = corr.Text
	g.EditCost = corr.Cost
	g.Fallback = corr.Fallback
	g.Confidence = float64(corr.Cost) / float64(len(ct))
	return g, nil
}
