package config

import (
	"fmt"
	"os"
	"strings"

	"shiftcrack/internal/crack"
	"shiftcrack/internal/dict"
	"shiftcrack/internal/pipeline"
	"shiftcrack/pkg/alphabet"
	"shiftcrack/pkg/contract"
	"shiftcrack/pkg/registry"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("config: %s: %w", fmt.Sprintf(format, args...), contract.ErrInvalidInput)
}

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if len(cfg.Inputs) == 0 {
		return invalid("inputs empty")
	}
	// 输入路径不得为空字符串；"-" 不能与其他根混用
	dash := false
	for _, r := range cfg.Inputs {
		switch strings.TrimSpace(r) {
		case "":
			return invalid("input path cannot be empty")
		case "-":
			dash = true
		}
	}
	if dash && len(cfg.Inputs) > 1 {
		return invalid("'-' cannot be mixed with other roots")
	}
	if strings.TrimSpace(cfg.Dictionary) == "" {
		return invalid("dictionary not set")
	}
	if err := ValidateCrack(cfg); err != nil {
		return err
	}
	if cfg.Concurrency < 1 {
		return invalid("concurrency must be >= 1")
	}
	if name := effName(cfg.Components.Reader, Defaults().Components.Reader); registry.Reader[name] == nil {
		return invalid("reader %q not registered", name)
	}
	if name := effName(cfg.Components.Writer, Defaults().Components.Writer); registry.Writer[name] == nil {
		return invalid("writer %q not registered", name)
	}
	if name := effName(cfg.Components.Format, Defaults().Components.Format); registry.Format[name] == nil {
		return invalid("format %q not registered", name)
	}
	return nil
}

// ValidateCrack 仅校验分析参数（estimate 子命令不需要输入与组件）。
func ValidateCrack(cfg Config) error {
	switch {
	case cfg.Workers < 1:
		return invalid("workers must be >= 1")
	case cfg.MinKeyLen < 1:
		return invalid("min_key_len must be >= 1")
	case cfg.MaxKeyLen < cfg.MinKeyLen:
		return invalid("max_key_len(%d) < min_key_len(%d)", cfg.MaxKeyLen, cfg.MinKeyLen)
	case cfg.NumGuesses != nil && *cfg.NumGuesses < 0:
		return invalid("num_guesses must be >= 0")
	case cfg.MaxTokenLen < 0:
		return invalid("max_token_len must be >= 0")
	case cfg.Refine.MaxCombos < 0 || cfg.Refine.MaxWork < 0:
		return invalid("refine budgets must be >= 0")
	case cfg.CandidatesMaxDistance < 0 || cfg.CandidatesMaxDistance > 1:
		return invalid("candidates_max_distance must be in [0, 1]")
	}
	return nil
}

// CrackOptions 把配置映射为 crack.Options。
func CrackOptions(cfg Config) crack.Options {
	opt := crack.DefaultOptions()
	opt.MinLen, opt.MaxLen = cfg.MinKeyLen, cfg.MaxKeyLen
	if cfg.NumGuesses != nil {
		opt.NumGuesses = *cfg.NumGuesses
	}
	opt.Workers = cfg.Workers
	opt.MaxTokenLen = cfg.MaxTokenLen
	if cfg.Refine.Enabled != nil {
		opt.Refine.Enabled = *cfg.Refine.Enabled
	}
	if cfg.Refine.MaxCombos > 0 {
		opt.Refine.MaxCombos = cfg.Refine.MaxCombos
	}
	if cfg.Refine.MaxWork > 0 {
		opt.Refine.MaxWork = cfg.Refine.MaxWork
	}
	opt.KnownMaxDistance = cfg.CandidatesMaxDistance
	return opt
}

// LoadCandidates 读取已知明文候选文件。
func LoadCandidates(path string) ([]alphabet.Text, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	known, err := crack.ParseKnown(f)
	if err != nil {
		return nil, fmt.Errorf("candidates %s: %w", path, err)
	}
	if len(known) == 0 {
		return nil, invalid("candidates %s: no plaintexts", path)
	}
	return known, nil
}

// LoadDictionary 读取词表文件；被拒绝的词原样返回供调用方告警。
func LoadDictionary(path string) (*dict.Dictionary, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	d, rejected, err := dict.Parse(f)
	if err != nil {
		return nil, rejected, fmt.Errorf("dictionary %s: %w", path, err)
	}
	return d, rejected, nil
}

// Assemble 构造 Components 与 Settings，并加载词表。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, []string, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, nil, err
	}
	r, f, err := Source(cfg)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, nil, err
	}
	d := Defaults()
	w, err := registry.Writer[effName(cfg.Components.Writer, d.Components.Writer)](cfg.Options.Writer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, nil, fmt.Errorf("writer: %w", err)
	}
	words, rejected, err := LoadDictionary(cfg.Dictionary)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, rejected, err
	}

	opt := CrackOptions(cfg)
	if cfg.Candidates != "" {
		if opt.Known, err = LoadCandidates(cfg.Candidates); err != nil {
			return pipeline.Components{}, pipeline.Settings{}, rejected, err
		}
	}

	comp := pipeline.Components{Reader: r, Format: f, Writer: w}
	set := pipeline.Settings{
		Inputs:      cloneStrings(cfg.Inputs),
		Concurrency: cfg.Concurrency,
		Dictionary:  words,
		Crack:       opt,
		Diff:        cfg.Diff,
		FailFast:    cfg.FailFast,
	}
	return comp, set, rejected, nil
}

// Source 只构造输入侧组件（Reader 与 Format），供 estimate 等不写产物的子命令使用。
func Source(cfg Config) (contract.Reader, contract.Format, error) {
	d := Defaults()
	newReader := registry.Reader[effName(cfg.Components.Reader, d.Components.Reader)]
	newFormat := registry.Format[effName(cfg.Components.Format, d.Components.Format)]
	if newReader == nil || newFormat == nil {
		return nil, nil, invalid("reader %q / format %q not registered", cfg.Components.Reader, cfg.Components.Format)
	}
	r, err := newReader(cfg.Options.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("reader: %w", err)
	}
	f, err := newFormat(cfg.Options.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("format: %w", err)
	}
	return r, f, nil
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
