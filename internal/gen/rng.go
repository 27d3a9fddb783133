// Package gen 生成可复现的合成明文与密钥，用于构造测试密文。
package gen

import (
	"encoding/binary"

	mtwist "blitter.com/go/mtwist"

	"shiftcrack/pkg/alphabet"
)

// stateBytes: MT19937-64 完整状态（312 个 64 位字）。
const stateBytes = 312 * 8

// Rng: 以种子确定的伪随机源；非并发安全。
type Rng struct {
	m *mtwist.MT19937_64
}

// NewRng 由 64 位种子展开完整状态后初始化。相同种子产生相同序列。
func NewRng(seed uint64) *Rng {
	buf := make([]byte, stateBytes)
	x := seed
	for i := 0; i < stateBytes; i += 8 {
		// splitmix64
		x += 0x9e3779b97f4a7c15
		z := x
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		binary.LittleEndian.PutUint64(buf[i:], z^(z>>31))
	}
	m := mtwist.New()
	m.SeedFullState(buf)
	return &Rng{m: m}
}

// Int63 返回非负 63 位随机数。
func (r *Rng) Int63() int64 { return r.m.Int63() }

// Intn 返回 [0, n) 内的随机整数；n<=0 时返回 0。
func (r *Rng) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.m.Int63() % int64(n))
}

// Symbol 返回任意字母表符号。
func (r *Rng) Symbol() alphabet.Symbol { return alphabet.Symbol(r.Intn(alphabet.Size)) }

// Key 返回长度 n 的随机移位密钥，每项在 [0, Size)。
func (r *Rng) Key(n int) []int {
	k := make([]int, n)
	for i := range k {
		k[i] = r.Intn(alphabet.Size)
	}
	return k
}
