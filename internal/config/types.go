package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON 使用 snake_case；未知字段在解析期失败。
type Config struct {
	Inputs []string `json:"inputs"`
	// Dictionary: 空白分隔的词表文件路径。
	Dictionary string `json:"dictionary"`
	// Concurrency: 跨输入并发度；Workers: 单个输入内部的扇出。
	Concurrency int `json:"concurrency"`
	Workers     int `json:"workers"`

	MinKeyLen int `json:"min_key_len"`
	MaxKeyLen int `json:"max_key_len"`
	// NumGuesses: 0 表示尝试全部候选长度；nil 表示未设置。
	NumGuesses *int `json:"num_guesses,omitempty"`
	// MaxTokenLen: 无分隔符时的定长切分长度；0 取词表最长词。
	MaxTokenLen int    `json:"max_token_len"`
	Refine      Refine `json:"refine"`

	// Candidates: 已知明文候选文件（每行一条）；为空则不做已知明文匹配。
	Candidates string `json:"candidates,omitempty"`
	// CandidatesMaxDistance: 命中阈值（归一化编辑距离）；0 取默认 0.8。
	CandidatesMaxDistance float64 `json:"candidates_max_distance,omitempty"`

	// Diff: 额外写出粗解与纠错结果的差异报告。
	Diff     bool `json:"diff"`
	FailFast bool `json:"fail_fast"`

	Logging Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`
	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Refine: 移位精化预算。
type Refine struct {
	Enabled   *bool `json:"enabled,omitempty"`
	MaxCombos int   `json:"max_combos"`
	MaxWork   int64 `json:"max_work"`
}

// Logging: 仅保留日志等级可配置；输出路径与轮转策略为固定默认。
type Logging struct {
	Level string `json:"level"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader string `json:"reader"`
	Writer string `json:"writer"`
	Format string `json:"format"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Reader json.RawMessage `json:"reader"`
	Writer json.RawMessage `json:"writer"`
	Format json.RawMessage `json:"format"`
}
