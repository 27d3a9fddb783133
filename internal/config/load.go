package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"shiftcrack/internal/crack"
	"shiftcrack/internal/kasiski"
)

// EnvPrefix 为环境变量前缀。
const EnvPrefix = "SHIFTCRACK_"

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

// Defaults 返回带有安全默认值的 Config 雏形。
// 注意：Inputs 与 Dictionary 不设默认（必须由 JSON/ENV/CLI 提供）。
func Defaults() Config {
	r := crack.DefaultRefine()
	return Config{
		Concurrency: 1,
		Workers:     1,
		MinKeyLen:   kasiski.DefaultMinLen,
		MaxKeyLen:   kasiski.DefaultMaxLen,
		NumGuesses:  intp(crack.DefaultOptions().NumGuesses),
		Refine:      Refine{Enabled: boolp(r.Enabled), MaxCombos: r.MaxCombos, MaxWork: r.MaxWork},
		Logging:     Logging{Level: "info"},
		Components:  Components{Reader: "fs", Writer: "fs", Format: "text"},
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 零值视为未设置；指针字段以 nil 表示未设置。不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}
	setStr(&out.Dictionary, over.Dictionary)
	setInt(&out.Concurrency, over.Concurrency)
	setInt(&out.Workers, over.Workers)
	setInt(&out.MinKeyLen, over.MinKeyLen)
	setInt(&out.MaxKeyLen, over.MaxKeyLen)
	if over.NumGuesses != nil {
		out.NumGuesses = intp(*over.NumGuesses)
	}
	setInt(&out.MaxTokenLen, over.MaxTokenLen)
	setStr(&out.Candidates, over.Candidates)
	if over.CandidatesMaxDistance != 0 {
		out.CandidatesMaxDistance = over.CandidatesMaxDistance
	}
	if over.Refine.Enabled != nil {
		out.Refine.Enabled = boolp(*over.Refine.Enabled)
	}
	setInt(&out.Refine.MaxCombos, over.Refine.MaxCombos)
	if over.Refine.MaxWork != 0 {
		out.Refine.MaxWork = over.Refine.MaxWork
	}
	out.Diff = out.Diff || over.Diff
	out.FailFast = out.FailFast || over.FailFast
	setStr(&out.Logging.Level, over.Logging.Level)

	setStr(&out.Components.Reader, over.Components.Reader)
	setStr(&out.Components.Writer, over.Components.Writer)
	setStr(&out.Components.Format, over.Components.Format)

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	if len(over.Options.Format) > 0 {
		out.Options.Format = cloneRaw(over.Options.Format)
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 前缀 SHIFTCRACK_；集合外的键忽略，数值/布尔格式错误返回错误。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key, val := kv[len(EnvPrefix):eq], strings.TrimSpace(kv[eq+1:])
		if val == "" {
			continue
		}
		var err error
		switch key {
		case "INPUTS":
			over.Inputs = splitComma(val)
		case "DICTIONARY":
			over.Dictionary = val
		case "CONCURRENCY":
			over.Concurrency, err = strconv.Atoi(val)
		case "WORKERS":
			over.Workers, err = strconv.Atoi(val)
		case "MIN_KEY_LEN":
			over.MinKeyLen, err = strconv.Atoi(val)
		case "MAX_KEY_LEN":
			over.MaxKeyLen, err = strconv.Atoi(val)
		case "NUM_GUESSES":
			var v int
			if v, err = strconv.Atoi(val); err == nil {
				over.NumGuesses = intp(v)
			}
		case "MAX_TOKEN_LEN":
			over.MaxTokenLen, err = strconv.Atoi(val)
		case "CANDIDATES":
			over.Candidates = val
		case "CANDIDATES_MAX_DISTANCE":
			over.CandidatesMaxDistance, err = strconv.ParseFloat(val, 64)
		case "REFINE_ENABLED":
			var v bool
			if v, err = strconv.ParseBool(val); err == nil {
				over.Refine.Enabled = boolp(v)
			}
		case "REFINE_MAX_COMBOS":
			over.Refine.MaxCombos, err = strconv.Atoi(val)
		case "REFINE_MAX_WORK":
			over.Refine.MaxWork, err = strconv.ParseInt(val, 10, 64)
		case "DIFF":
			over.Diff, err = strconv.ParseBool(val)
		case "FAIL_FAST":
			over.FailFast, err = strconv.ParseBool(val)
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		case "COMPONENTS_FORMAT":
			over.Components.Format = val
		case "OPTIONS_READER_JSON":
			over.Options.Reader = json.RawMessage(val)
		case "OPTIONS_WRITER_JSON":
			over.Options.Writer = json.RawMessage(val)
		case "OPTIONS_FORMAT_JSON":
			over.Options.Format = json.RawMessage(val)
		}
		if err != nil {
			return Config{}, fmt.Errorf("config: env %s%s: %w", EnvPrefix, key, err)
		}
	}
	return over, nil
}

func setStr(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
