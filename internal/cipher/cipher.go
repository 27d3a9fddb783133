// Package cipher 是加密侧协作方：按密钥调度对明文做逐位置移位，
// 仅用于构造测试与演示用密文。
package cipher

import (
	"fmt"

	"shiftcrack/internal/gen"
	"shiftcrack/pkg/alphabet"
	"shiftcrack/pkg/contract"
)

// maxGap: 连续插入随机符号的上限，超过即视为调度无效。
const maxGap = 1 << 12

// Encryptor: 密钥 + 调度 + 随机插入符号的种子。
// 加解密各自从 Seed 重建随机源，互不影响。
type Encryptor struct {
	Key      []int
	Schedule Schedule
	Seed     uint64
}

// NewRepeating 构造纯重复密钥加密器；密钥值按 Size 取模。
func NewRepeating(key []int) *Encryptor {
	return &Encryptor{Key: key, Schedule: Repeating{}}
}

func (e *Encryptor) validate() error {
	if len(e.Key) == 0 {
		return fmt.Errorf("%w: empty key", contract.ErrUnsupportedKeyLength)
	}
	if e.Schedule == nil {
		return fmt.Errorf("%w: nil schedule", contract.ErrInvalidInput)
	}
	return nil
}

// Encrypt: c = (p + key[slot]) mod Size；slot 越界时插入随机符号。
func (e *Encryptor) Encrypt(pt alphabet.Text) (alphabet.Text, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	rng := gen.NewRng(e.Seed)
	out := make(alphabet.Text, 0, len(pt))
	gap := 0
	for i := 0; i < len(pt); {
		slot := e.Schedule.Slot(len(out), len(e.Key), len(pt))
		if slot < 0 || slot >= len(e.Key) {
			if gap++; gap > maxGap {
				return nil, fmt.Errorf("%w: schedule yields no key slot after %d positions", contract.ErrInvalidInput, maxGap)
			}
			out = append(out, rng.Symbol())
			continue
		}
		gap = 0
		if !pt[i].Valid() {
			return nil, fmt.Errorf("%w: code %d at offset %d", contract.ErrInvalidSymbol, pt[i], i)
		}
		out = append(out, pt[i].Shift(e.Key[slot]))
		i++
	}
	return out, nil
}

// Decrypt 重放调度：跳过插入位置，其余位置反向移位。ptLen 为原明文长度。
func (e *Encryptor) Decrypt(ct alphabet.Text, ptLen int) (alphabet.Text, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	out := make(alphabet.Text, 0, ptLen)
	for i, c := range ct {
		slot := e.Schedule.Slot(i, len(e.Key), ptLen)
		if slot < 0 || slot >= len(e.Key) {
			continue
		}
		out = append(out, c.Shift(-e.Key[slot]))
	}
	return out, nil
}
