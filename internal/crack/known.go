package crack

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"shiftcrack/internal/dict"
	"shiftcrack/internal/kasiski"
	"shiftcrack/internal/spell"
	"shiftcrack/pkg/alphabet"
)

// DefaultKnownMaxDistance: 归一化编辑距离低于该值才视为命中已知明文。
const DefaultKnownMaxDistance = 0.8

// KnownMatch: 已知明文匹配结果。
type KnownMatch struct {
	// Index 为命中候选在输入列表中的下标。
	Index     int
	Candidate alphabet.Text
	Rank      int
	KeyLength int
	KeyScore  float64
	Key       []int
	Rough     alphabet.Text
	FreqScore float64
	EditCost  int
	// Distance = EditCost / len(ct)，越低越好。
	Distance float64
}

// ParseKnown 读取已知明文候选：每行一条，统一小写，空行忽略；含字母表外字符即报错并带行号。
func ParseKnown(r io.Reader) ([]alphabet.Text, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<24)
	var out []alphabet.Text
	line := 0
	for sc.Scan() {
		line++
		s := strings.ToLower(strings.TrimRight(sc.Text(), "\r"))
		if strings.TrimSpace(s) == "" {
			continue
		}
		t, err := alphabet.Encode(s)
		if err != nil {
			return nil, fmt.Errorf("known plaintext line %d: %w", line, err)
		}
		out = append(out, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("known plaintext: read: %w", err)
	}
	return out, nil
}

// MatchKnown 以每个候选自身的直方图对各候选密钥长度做频率破解，
// 取与该候选编辑距离最小的粗明文；全部候选中距离最小者胜出（同分取靠前的候选与长度）。
// 最优距离不低于 maxDist（<=0 取 DefaultKnownMaxDistance）时 ok=false。
func MatchKnown(ctx context.Context, ct alphabet.Text, known []alphabet.Text, maxDist float64, opt Options) (m KnownMatch, ok bool, err error) {
	ctx, span := tracer.Start(ctx, "crack.known", trace.WithAttributes(
		attribute.Int("ciphertext.len", len(ct)),
		attribute.Int("candidates", len(known)),
	))
	defer span.End()
	if len(known) == 0 {
		return KnownMatch{}, false, nil
	}
	if maxDist <= 0 {
		maxDist = DefaultKnownMaxDistance
	}
	cands, err := estimate(ctx, ct, opt)
	if err != nil {
		return KnownMatch{}, false, fmt.Errorf("estimate: %w", err)
	}
	if n := opt.NumGuesses; n > 0 && n < len(cands) {
		cands = cands[:n]
	}
	m, ok, err = matchKnown(ctx, ct, cands, known, maxDist, opt)
	if ok {
		span.SetAttributes(attribute.Int("best.index", m.Index), attribute.Float64("best.distance", m.Distance))
	}
	return m, ok, err
}

func matchKnown(ctx context.Context, ct alphabet.Text, cands []kasiski.Candidate, known []alphabet.Text, maxDist float64, opt Options) (KnownMatch, bool, error) {
	best := make([]KnownMatch, len(known))
	found := make([]bool, len(known))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opt.Workers, 1))
	for i := range known {
		i := i
		g.Go(func() error {
			if float64(absInt(len(ct)-len(known[i])))/float64(len(ct)) >= maxDist {
				return nil
			}
			km, hit, err := matchOne(gctx, ct, known[i], cands, opt.MaxLen)
			if err != nil {
				return fmt.Errorf("known plaintext %d: %w", i, err)
			}
			km.Index = i
			best[i], found[i] = km, hit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return KnownMatch{}, false, err
	}
	pick := -1
	for i := range best {
		if found[i] && (pick < 0 || best[i].Distance < best[pick].Distance) {
			pick = i
		}
	}
	if pick < 0 || best[pick].Distance >= maxDist {
		return KnownMatch{}, false, nil
	}
	return best[pick], true, nil
}

// matchOne 在全部候选长度上寻找与 cand 最近的粗明文。长度差是编辑距离下界，不可能更优时跳过。
func matchOne(ctx context.Context, ct, cand alphabet.Text, lens []kasiski.Candidate, maxLen int) (KnownMatch, bool, error) {
	h := dict.HistogramOf(cand)
	if h.Total() == 0 {
		return KnownMatch{}, false, nil
	}
	lower := absInt(len(ct) - len(cand))
	var best KnownMatch
	hit := false
	for rank, c := range lens {
		if err := ctx.Err(); err != nil {
			return KnownMatch{}, false, err
		}
		if hit && lower >= best.EditCost {
			break
		}
		res, err := Crack(ctx, ct, c.Length, &h, Params{MaxLen: maxLen, Workers: 1})
		if err != nil {
			return KnownMatch{}, false, err
		}
		d := spell.Distance(res.Plaintext, cand)
		if hit && d >= best.EditCost {
			continue
		}
		best = KnownMatch{
			Candidate: cand,
			Rank:      rank,
			KeyLength: c.Length,
			KeyScore:  c.Score,
			Key:       res.Key,
			Rough:     res.Plaintext,
			FreqScore: res.Distance,
			EditCost:  d,
			Distance:  float64(d) / float64(len(ct)),
		}
		hit = true
	}
	return best, hit, nil
}

// Guess 把命中结果转成排名行；明文取已知候选本身。
func (m KnownMatch) Guess() Guess {
	return Guess{
		Rank:       m.Rank,
		KeyLength:  m.KeyLength,
		KeyScore:   m.KeyScore,
		Key:        m.Key,
		Rough:      m.Rough,
		Plaintext:  m.Candidate,
		FreqScore:  m.FreqScore,
		EditCost:   m.EditCost,
		Known:      true,
		Confidence: m.Distance,
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
