package cipher

// Schedule 把密文位置映射到密钥槽位。返回值不在 [0, keyLen) 时，
// 该位置插入一个随机符号而不消耗明文。
type Schedule interface {
	Slot(index, keyLen, ptLen int) int
}

// Repeating: 纯重复密钥，slot = index mod keyLen。
type Repeating struct{}

func (Repeating) Slot(index, keyLen, _ int) int { return index % keyLen }

// PeriodicRand 每隔 Period 个位置（自 Start 起）插入或覆盖一个随机符号。
// Overwrite=false 时原密钥流顺延；true 时随机符号顶替该位置对应的密钥槽。
type PeriodicRand struct {
	Period    int  `json:"period"`
	Start     int  `json:"start"`
	Overwrite bool `json:"overwrite"`
}

func (p PeriodicRand) Slot(index, keyLen, _ int) int {
	step := p.Period + 1
	if index >= p.Start && (index-p.Start)%step == 0 {
		return -1
	}
	if p.Overwrite || index < p.Start {
		return index % keyLen
	}
	inserted := (index-p.Start)/step + 1
	return (index - inserted) % keyLen
}

// Aab 在 Offset 处把密钥前 Chars 个槽位额外重复 Reps 次，例如密钥 "AB" 可得 "AAB"。
type Aab struct {
	Chars  int `json:"chars"`
	Reps   int `json:"reps"`
	Offset int `json:"offset"`
}

func (a Aab) Slot(index, keyLen, _ int) int {
	if a.Chars <= 0 || a.Reps <= 0 {
		return index % keyLen
	}
	eff := keyLen + a.Chars*a.Reps
	i := index % eff
	switch {
	case i < a.Offset:
		return i
	case i < a.Offset+(a.Reps+1)*a.Chars:
		return (i-a.Offset)%a.Chars + a.Offset
	default:
		return i - a.Chars*a.Reps
	}
}

// OffsetReverse 先倒序走 Offset 个槽位，再正序走完整个密钥，例如 ABCDEF、Offset=2 得 FEABCDEF。
type OffsetReverse struct {
	Offset int `json:"offset"`
}

func (o OffsetReverse) Slot(index, keyLen, _ int) int {
	i := index % (keyLen + o.Offset)
	if i < o.Offset {
		return keyLen - 1 - i
	}
	return i - o.Offset
}

// LengthMod 由明文长度与位置共同决定槽位。
type LengthMod struct{}

func (LengthMod) Slot(index, keyLen, ptLen int) int {
	if ptLen < index*keyLen {
		return ptLen % keyLen
	}
	return (ptLen * index) % keyLen
}
