package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shiftcrack/internal/cipher"
	cfgpkg "shiftcrack/internal/config"
	"shiftcrack/internal/gen"
	"shiftcrack/internal/kasiski"
	"shiftcrack/pkg/alphabet"
	"shiftcrack/pkg/contract"
	"shiftcrack/pkg/registry"
)

// estimateCmd 只做密钥长度估计，逐输入打印候选排名（不写产物）。
func (a *app) estimateCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "estimate [roots...]",
		Short: "估计密钥长度，打印候选长度与得分（越低越可信）",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.effective(cmd)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Inputs = args
			}
			if len(cfg.Inputs) == 0 {
				cfg.Inputs = []string{"-"}
			}
			if err := cfgpkg.ValidateCrack(cfg); err != nil {
				return usageErr("配置校验失败: %w", err)
			}
			if top < 0 {
				return usageErr("--top must be >= 0")
			}
			r, f, err := cfgpkg.Source(cfg)
			if err != nil {
				return usageErr("装配失败: %w", err)
			}
			opt := kasiski.Options{MinLen: cfg.MinKeyLen, MaxLen: cfg.MaxKeyLen, Workers: cfg.Workers}
			out := cmd.OutOrStdout()
			err = r.Iterate(cmd.Context(), cfg.Inputs, func(id contract.FileID, rc io.ReadCloser) error {
				ct, err := f.Decode(rc)
				_ = rc.Close()
				if err != nil {
					return fmt.Errorf("%s: decode: %w", id, err)
				}
				t := a.logger.StartWith("kasiski", "estimate", string(id))
				cands, err := kasiski.Estimate(cmd.Context(), ct, opt)
				if err != nil {
					return fmt.Errorf("%s: estimate: %w", id, err)
				}
				t.Finish("estimate", int64(len(cands)))
				if top > 0 && len(cands) > top {
					cands = cands[:top]
				}
				fprintf(out, "# %s | 密文长度=%d\n", id, len(ct))
				for i, c := range cands {
					fprintf(out, "%d\t%d\t%.4f\n", i+1, c.Length, c.Score)
				}
				return nil
			})
			if err != nil {
				return runtimeErr("估计失败: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "每个输入打印的候选个数；0 表示全部")
	return cmd
}

// encryptCmd 用给定或随机密钥加密单个输入，密文写到 stdout，密钥写到 stderr。
func (a *app) encryptCmd() *cobra.Command {
	var (
		keySpec  string
		keyLen   int
		seed     uint64
		schedule string
		schedOpt string
	)
	cmd := &cobra.Command{
		Use:   "encrypt [file|-]",
		Short: "按密钥调度加密明文（构造测试密文）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.effective(cmd)
			if err != nil {
				return err
			}
			newSched := registry.Schedule[schedule]
			if newSched == nil {
				return usageErr("schedule %q not registered", schedule)
			}
			sched, err := newSched(json.RawMessage(schedOpt))
			if err != nil {
				return usageErr("schedule %s: %w", schedule, err)
			}
			var key []int
			switch {
			case keySpec != "":
				if key, err = parseKey(keySpec); err != nil {
					return usageErr("--key: %w", err)
				}
			case keyLen > 0:
				key = gen.NewRng(seed).Key(keyLen)
			default:
				return usageErr("需要 --key 或 --key-len")
			}
			_, f, err := cfgpkg.Source(cfg)
			if err != nil {
				return usageErr("装配失败: %w", err)
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				fh, err := os.Open(args[0])
				if err != nil {
					return runtimeErr("打开输入失败: %w", err)
				}
				defer fh.Close()
				in = fh
			}
			pt, err := f.Decode(in)
			if err != nil {
				return runtimeErr("decode: %w", err)
			}
			enc := &cipher.Encryptor{Key: key, Schedule: sched, Seed: seed}
			ct, err := enc.Encrypt(pt)
			if err != nil {
				return runtimeErr("encrypt: %w", err)
			}
			if err := f.Encode(cmd.OutOrStdout(), ct); err != nil {
				return runtimeErr("encode: %w", err)
			}
			fprintf(cmd.ErrOrStderr(), "[key] %s\n", formatKey(key))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&keySpec, "key", "k", "", "逗号或空白分隔的移位序列，例如 3,1,4")
	fl.IntVar(&keyLen, "key-len", 0, "未给出 --key 时按种子生成该长度的随机密钥")
	fl.Uint64Var(&seed, "seed", 1, "随机源种子（随机密钥与随机插入符号）")
	fl.StringVar(&schedule, "schedule", "repeating", "密钥调度 repeating|periodic_rand|aab|offset_reverse|length_mod")
	fl.StringVar(&schedOpt, "schedule-options", "", "密钥调度的 JSON 选项")
	return cmd
}

// genCmd 从词表随机取词生成可复现的明文。
func (a *app) genCmd() *cobra.Command {
	var (
		words  int
		length int
		seed   uint64
	)
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "从词表生成合成明文",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.effective(cmd)
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Dictionary) == "" {
				return usageErr("需要 --dictionary")
			}
			if words < 0 || length < 0 {
				return usageErr("--words/--length must be >= 0")
			}
			d, rejected, err := cfgpkg.LoadDictionary(cfg.Dictionary)
			if err != nil {
				return usageErr("词表加载失败: %w", err)
			}
			for _, w := range rejected {
				a.logger.Warn("dict", "word rejected", cfg.Dictionary, map[string]string{"word": w})
			}
			_, f, err := cfgpkg.Source(cfg)
			if err != nil {
				return usageErr("装配失败: %w", err)
			}
			g := gen.NewGenerator(d, gen.NewRng(seed))
			var pt alphabet.Text
			if cmd.Flags().Changed("length") {
				pt = g.AtLeast(length)
			} else {
				pt = g.Words(words)
			}
			if err := f.Encode(cmd.OutOrStdout(), pt); err != nil {
				return runtimeErr("encode: %w", err)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&words, "words", 50, "生成的词数")
	fl.IntVar(&length, "length", 0, "按符号数生成（取词直到不短于该长度；优先于 --words）")
	fl.Uint64Var(&seed, "seed", 1, "随机源种子")
	return cmd
}

// initConfigCmd 在目录下生成 config.json 与 .env 模板（已存在则不覆盖）。
// 目录为 "-" 时仅把配置写到 stdout。
func (a *app) initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [dir|-]",
		Short: "生成默认配置 config.json 和 .env 模板（不覆盖已有文件）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = strings.TrimSpace(args[0])
			}
			cfg := cfgpkg.DefaultTemplateConfig()
			if dir == "-" {
				if err := writeConfig(cmd.OutOrStdout(), "-", cfg); err != nil {
					return runtimeErr("生成默认配置失败: %w", err)
				}
				return nil
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return runtimeErr("生成默认配置失败: %w", err)
			}
			if err := writeConfig(nil, filepath.Join(dir, "config.json"), cfg); err != nil {
				return runtimeErr("生成默认配置失败: %w", err)
			}
			if err := writeDotEnv(filepath.Join(dir, ".env")); err != nil {
				fprintf(cmd.ErrOrStderr(), "提示：.env 生成失败（已跳过）：%v\n", err)
			}
			return nil
		},
	}
}

// parseKey 解析 "3,1,4" 或 "3 1 4"；值按字母表大小取模。
func parseKey(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty key", contract.ErrUnsupportedKeyLength)
	}
	key := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", contract.ErrInvalidInput, f)
		}
		key[i] = alphabet.Mod(v, alphabet.Size)
	}
	return key, nil
}

func formatKey(key []int) string {
	parts := make([]string, len(key))
	for i, k := range key {
		parts[i] = strconv.Itoa(k)
	}
	return strings.Join(parts, ",")
}

// writeConfig 写出带缩进的 JSON；path 为 "-" 时写 w，否则以 O_EXCL 创建（不覆盖）。
func writeConfig(w io.Writer, path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if path == "-" {
		_, err = w.Write(b)
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// writeDotEnv 生成 .env 模板；文件已存在则跳过。
func writeDotEnv(path string) error {
	var b strings.Builder
	b.WriteString("# shiftcrack .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > JSON > 默认值\n")
	b.WriteString("# 空值表示未设置。\n\n")

	b.WriteString("# 配置来源（可二选一）\n")
	b.WriteString(cfgpkg.EnvPrefix + "CONFIG_FILE=\n")
	b.WriteString(cfgpkg.EnvPrefix + "CONFIG_JSON=\n\n")

	b.WriteString("# 运行参数覆盖\n")
	for _, k := range []string{
		"INPUTS", "DICTIONARY", "CONCURRENCY", "WORKERS", "MIN_KEY_LEN", "MAX_KEY_LEN",
		"NUM_GUESSES", "MAX_TOKEN_LEN", "REFINE_ENABLED", "REFINE_MAX_COMBOS", "REFINE_MAX_WORK",
		"CANDIDATES", "CANDIDATES_MAX_DISTANCE", "DIFF", "FAIL_FAST", "LOG_LEVEL",
	} {
		b.WriteString(cfgpkg.EnvPrefix + k + "=\n")
	}
	b.WriteString("\n# 组件选择与选项\n")
	for _, k := range []string{
		"COMPONENTS_READER", "COMPONENTS_WRITER", "COMPONENTS_FORMAT",
		"OPTIONS_READER_JSON", "OPTIONS_WRITER_JSON", "OPTIONS_FORMAT_JSON",
	} {
		b.WriteString(cfgpkg.EnvPrefix + k + "=\n")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return err
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
