package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"shiftcrack/pkg/contract"
)

// UT-CFG-01: 解析完整 config.json
func TestLoadJSON(t *testing.T) {
	cfg, err := LoadJSON("../../testdata/config/basic.json", nil)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if cfg.NumGuesses == nil || *cfg.NumGuesses != 0 {
		t.Fatalf("num_guesses=0 应显式保留: %v", cfg.NumGuesses)
	}
	if len(cfg.Inputs) != 1 || cfg.Components.Format != "text" || cfg.MaxKeyLen != 40 || !cfg.Diff {
		t.Fatalf("字段映射错误: %+v", cfg)
	}
	if err := Validate(Merge(Defaults(), cfg)); err != nil {
		t.Fatalf("校验失败: %v", err)
	}
}

// UT-CFG-02: 含非法字段
func TestLoadJSONUnknown(t *testing.T) {
	if _, err := LoadJSON("", []byte(`{"unknown":1}`)); err == nil {
		t.Fatalf("应当返回错误")
	}
	if _, err := LoadJSON("", nil); err == nil {
		t.Fatalf("无来源应报错")
	}
}

// UT-CFG-03: ENV 覆盖部分字段
func TestEnvOverlay(t *testing.T) {
	env := []string{
		"SHIFTCRACK_INPUTS=a, b",
		"SHIFTCRACK_DICTIONARY=words.txt",
		"SHIFTCRACK_CONCURRENCY=3",
		"SHIFTCRACK_NUM_GUESSES=0",
		"SHIFTCRACK_REFINE_ENABLED=false",
		"SHIFTCRACK_REFINE_MAX_WORK=1000",
		"SHIFTCRACK_DIFF=true",
		"SHIFTCRACK_COMPONENTS_WRITER=stdout",
		"SHIFTCRACK_CANDIDATES=known.txt",
		"SHIFTCRACK_CANDIDATES_MAX_DISTANCE=0.5",
		"SHIFTCRACK_OPTIONS_FORMAT_JSON={\"lowercase\":true}",
		"SHIFTCRACK_UNKNOWN=1",
		"SHIFTCRACK_WORKERS=",
		"OTHER_CONCURRENCY=9",
	}
	over, err := EnvOverlay(env)
	if err != nil {
		t.Fatalf("EnvOverlay 错误: %v", err)
	}
	if over.Concurrency != 3 || len(over.Inputs) != 2 || over.Inputs[1] != "b" || over.Dictionary != "words.txt" {
		t.Fatalf("覆盖结果不正确: %+v", over)
	}
	if over.NumGuesses == nil || *over.NumGuesses != 0 || over.Refine.Enabled == nil || *over.Refine.Enabled {
		t.Fatalf("指针字段错误: %+v", over)
	}
	if over.Refine.MaxWork != 1000 || !over.Diff || over.Components.Writer != "stdout" || string(over.Options.Format) != `{"lowercase":true}` {
		t.Fatalf("覆盖结果不正确: %+v", over)
	}
	if over.Candidates != "known.txt" || over.CandidatesMaxDistance != 0.5 {
		t.Fatalf("候选覆盖错误: %+v", over)
	}
	if m := Merge(Defaults(), over); m.Candidates != "known.txt" || CrackOptions(m).KnownMaxDistance != 0.5 {
		t.Fatalf("候选合并错误: %+v", m)
	}
	if _, err := EnvOverlay([]string{"SHIFTCRACK_CANDIDATES_MAX_DISTANCE=near"}); err == nil {
		t.Fatalf("非法浮点应报错")
	}
	if _, err := EnvOverlay([]string{"SHIFTCRACK_CONCURRENCY=abc"}); err == nil {
		t.Fatalf("非法数值应报错")
	}
	if _, err := EnvOverlay([]string{"SHIFTCRACK_DIFF=maybe"}); err == nil {
		t.Fatalf("非法布尔应报错")
	}
}

// UT-CFG-04: 合并优先级与零值语义
func TestMerge(t *testing.T) {
	base := Defaults()
	zero := 0
	off := false
	out := Merge(base, Config{Inputs: []string{"x"}, MaxKeyLen: 30, NumGuesses: &zero, Refine: Refine{Enabled: &off}})
	if out.MaxKeyLen != 30 || out.MinKeyLen != 3 || *out.NumGuesses != 0 || *out.Refine.Enabled {
		t.Fatalf("合并错误: %+v", out)
	}
	if *base.NumGuesses != 0 || !*base.Refine.Enabled {
		t.Fatalf("Merge 不应修改 base")
	}
	out = Merge(out, Config{})
	if out.MaxKeyLen != 30 || out.Inputs[0] != "x" {
		t.Fatalf("空覆盖不应改变结果: %+v", out)
	}
	opt := CrackOptions(out)
	if opt.NumGuesses != 0 || opt.Refine.Enabled || opt.MaxLen != 30 || opt.Refine.MaxCombos != 4096 {
		t.Fatalf("CrackOptions 映射错误: %+v", opt)
	}
}

// 补充覆盖: splitComma 与 cloneRaw
func TestHelpers(t *testing.T) {
	parts := splitComma("a, b , ,c")
	if len(parts) != 3 || parts[1] != "b" {
		t.Fatalf("splitComma 结果错误: %v", parts)
	}
	src := []byte("abc")
	dst := cloneRaw(src)
	src[0] = 'x'
	if string(dst) != "abc" {
		t.Fatalf("cloneRaw 未复制")
	}
}

// 补充覆盖: Validate 错误分支
func TestValidateErrors(t *testing.T) {
	good := DefaultTemplateConfig()
	if err := Validate(good); err != nil {
		t.Fatalf("模板应通过校验: %v", err)
	}
	neg := -1
	cases := map[string]func(*Config){
		"no inputs":      func(c *Config) { c.Inputs = nil },
		"empty input":    func(c *Config) { c.Inputs = []string{" "} },
		"dash mix":       func(c *Config) { c.Inputs = []string{"-", "a"} },
		"no dictionary":  func(c *Config) { c.Dictionary = "" },
		"concurrency":    func(c *Config) { c.Concurrency = 0 },
		"workers":        func(c *Config) { c.Workers = 0 },
		"min key":        func(c *Config) { c.MinKeyLen = 0 },
		"max < min":      func(c *Config) { c.MaxKeyLen = 2 },
		"num guesses":    func(c *Config) { c.NumGuesses = &neg },
		"token len":      func(c *Config) { c.MaxTokenLen = -1 },
		"refine budget":  func(c *Config) { c.Refine.MaxCombos = -1 },
		"candidates far": func(c *Config) { c.CandidatesMaxDistance = 1.5 },
		"unknown reader": func(c *Config) { c.Components.Reader = "s3" },
		"unknown writer": func(c *Config) { c.Components.Writer = "kafka" },
		"unknown format": func(c *Config) { c.Components.Format = "base64" },
	}
	for name, mut := range cases {
		c := DefaultTemplateConfig()
		mut(&c)
		if err := Validate(c); !errors.Is(err, contract.ErrInvalidInput) {
			t.Fatalf("%s: 应返回 ErrInvalidInput, got %v", name, err)
		}
	}
}

// UT-CFG-05: 装配组件并加载词表
func TestAssemble(t *testing.T) {
	dir := t.TempDir()
	words := filepath.Join(dir, "words.txt")
	os.WriteFile(words, []byte("The quick\nbrown fox don't 42\n"), 0o644)

	cfg := DefaultTemplateConfig()
	cfg.Dictionary = words
	cfg.Options.Writer = json.RawMessage(`{"output_dir":` + jsonString(filepath.Join(dir, "out")) + `}`)
	comp, set, rejected, err := Assemble(cfg)
	if err != nil {
		t.Fatalf("装配失败: %v", err)
	}
	if comp.Reader == nil || comp.Writer == nil || comp.Format == nil {
		t.Fatalf("组件缺失: %+v", comp)
	}
	if set.Dictionary.Len() != 4 || len(rejected) != 2 {
		t.Fatalf("词表错误: len=%d rejected=%v", set.Dictionary.Len(), rejected)
	}
	if set.Crack.NumGuesses != 0 || set.Concurrency != 1 || set.Inputs[0] != "-" {
		t.Fatalf("设置错误: %+v", set)
	}

	if len(set.Crack.Known) != 0 {
		t.Fatalf("未配置候选时不应加载: %d", len(set.Crack.Known))
	}

	known := filepath.Join(dir, "known.txt")
	os.WriteFile(known, []byte("the quick fox\n\nbrown fox\n"), 0o644)
	cfg.Candidates = known
	if _, set, _, err = Assemble(cfg); err != nil || len(set.Crack.Known) != 2 || set.Crack.Known[1].String() != "brown fox" {
		t.Fatalf("候选加载错误: %v %v", err, set.Crack.Known)
	}
	os.WriteFile(known, []byte("\n\n"), 0o644)
	if _, _, _, err := Assemble(cfg); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("空候选文件应报错: %v", err)
	}
	os.WriteFile(known, []byte("Bad; line\n"), 0o644)
	if _, _, _, err := Assemble(cfg); !errors.Is(err, contract.ErrInvalidSymbol) {
		t.Fatalf("非法候选应报错: %v", err)
	}
	cfg.Candidates = filepath.Join(dir, "none.txt")
	if _, _, _, err := Assemble(cfg); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("缺失候选文件应报错: %v", err)
	}
	cfg.Candidates = ""

	cfg.Options.Format = json.RawMessage(`{"bogus":1}`)
	if _, _, _, err := Assemble(cfg); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("未知选项应报错: %v", err)
	}
	cfg.Options.Format = nil
	cfg.Dictionary = filepath.Join(dir, "missing.txt")
	if _, _, _, err := Assemble(cfg); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("缺失词表应报错: %v", err)
	}
	os.WriteFile(words, []byte("123 ?!\n"), 0o644)
	cfg.Dictionary = words
	if _, _, _, err := Assemble(cfg); !errors.Is(err, contract.ErrEmptyDictionary) {
		t.Fatalf("空词表应报 ErrEmptyDictionary: %v", err)
	}
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
