package kasiski

import (
	"context"
	"errors"
	"strings"
	"testing"

	"shiftcrack/internal/cipher"
	"shiftcrack/internal/dict"
	"shiftcrack/internal/gen"
	"shiftcrack/pkg/alphabet"
	"shiftcrack/pkg/contract"
)

const words = "the of and to in is you that it he was for on are as with his they at be this have from or one had by " +
	"word but not what all were we when your can said there use an each which she do how their if will up other about out " +
	"many then them these so some her would make like him into time has look two more write go see number no way could " +
	"people my than first water been call who oil its now find long down day did get come made may part"

func TestHamming(t *testing.T) {
	a := alphabet.Text{0, 1, 26}
	b := alphabet.Text{0, 2, 5}
	// 1^2=3 -> 2 位；26^5=0b11010^0b00101=0b11111 -> 5 位
	if got := Hamming(a, b); got != 7 {
		t.Fatalf("Hamming=%d want 7", got)
	}
	if Hamming(a, a) != 0 {
		t.Fatalf("自身距离应为 0")
	}
}

func TestScore(t *testing.T) {
	// 三个分块 "ab","ab","ba"：对 (0,1)=0，(0,2)=(1,2)=2*popcount(0^1)=2，平均 4/3，除以 L=2
	ct := alphabet.MustEncode("ababba")
	if got, want := Score(ct, 2), 4.0/3.0/2.0; got != want {
		t.Fatalf("Score=%v want %v", got, want)
	}
	// 尾部不足一块的部分丢弃
	if Score(alphabet.MustEncode("ababbaz"), 2) != Score(ct, 2) {
		t.Fatalf("尾部分块应被丢弃")
	}
}

func TestRange(t *testing.T) {
	cases := []struct {
		n, min, max int
		lo, hi      int
		err         error
	}{
		{1000, 3, 120, 3, 120, nil},
		{19, 3, 120, 3, 9, nil},
		{6, 3, 120, 3, 3, nil},
		{5, 3, 120, 0, 0, contract.ErrInsufficientData},
		{0, 3, 120, 0, 0, contract.ErrInsufficientData},
		{100, 0, 120, 0, 0, contract.ErrUnsupportedKeyLength},
		{100, -2, 120, 0, 0, contract.ErrUnsupportedKeyLength},
		{100, 10, 5, 0, 0, contract.ErrUnsupportedKeyLength},
	}
	for _, c := range cases {
		lo, hi, err := Range(c.n, Options{MinLen: c.min, MaxLen: c.max})
		if c.err != nil {
			if !errors.Is(err, c.err) {
				t.Fatalf("n=%d [%d,%d]: want %v got %v", c.n, c.min, c.max, c.err, err)
			}
			continue
		}
		if err != nil || lo != c.lo || hi != c.hi {
			t.Fatalf("n=%d: got [%d,%d] %v", c.n, lo, hi, err)
		}
	}
}

func TestEstimateFindsKeyLength(t *testing.T) {
	d, err := dict.FromStrings(strings.Fields(words)...)
	if err != nil {
		t.Fatal(err)
	}
	rng := gen.NewRng(2024)
	pt := gen.NewGenerator(d, rng).AtLeast(6000)
	const k = 11
	ct, err := cipher.NewRepeating(rng.Key(k)).Encrypt(pt)
	if err != nil {
		t.Fatal(err)
	}
	cands, err := Estimate(context.Background(), ct, Options{MinLen: 3, MaxLen: 40, Workers: 4})
	if err != nil {
		t.Fatalf("估计失败: %v", err)
	}
	if len(cands) != 38 {
		t.Fatalf("候选数错误: %d", len(cands))
	}
	if cands[0].Length%k != 0 {
		t.Fatalf("最优候选应为 %d 的倍数: %+v", k, cands[:5])
	}
	found := false
	for _, c := range cands[:4] {
		if c.Length == k {
			found = true
		}
	}
	if !found {
		t.Fatalf("真实长度 %d 应排在前列: %+v", k, cands[:5])
	}
	for i := 1; i < len(cands); i++ {
		if cands[i].Score < cands[i-1].Score {
			t.Fatalf("未按得分升序")
		}
	}
}

func TestEstimateDeterministic(t *testing.T) {
	ct := alphabet.MustEncode(strings.Repeat("we were all going direct to heaven ", 8))
	a, err := Estimate(context.Background(), ct, Options{MinLen: 3, MaxLen: 60, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Estimate(context.Background(), ct, Options{MinLen: 3, MaxLen: 60, Workers: 6})
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("并行结果与顺序不一致: #%d %+v vs %+v", i, a[i], b[i])
		}
	}
	// 明文以 35 为周期重复，35 的分块完全相同
	if a[0].Length != 35 || a[0].Score != 0 {
		t.Fatalf("周期文本应得 0 分: %+v", a[0])
	}
}

func TestEstimateInsufficientData(t *testing.T) {
	if _, err := Estimate(context.Background(), alphabet.MustEncode("abcde"), Options{MinLen: 3, MaxLen: 120}); !errors.Is(err, contract.ErrInsufficientData) {
		t.Fatalf("应报 ErrInsufficientData: %v", err)
	}
}

func BenchmarkEstimate(b *testing.B) {
	ct := alphabet.MustEncode(strings.Repeat("it was the best of times it was the worst of times ", 40))
	for i := 0; i < b.N; i++ {
		_, _ = Estimate(context.Background(), ct, Options{MinLen: DefaultMinLen, MaxLen: DefaultMaxLen, Workers: 4})
	}
}
