package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cfgpkg "shiftcrack/internal/config"
	"shiftcrack/internal/diag"
	"shiftcrack/internal/pipeline"
)

var pipelineRun = pipeline.Run

// 退出码。
const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
	exitPartial = 3
)

// exitError 携带退出码。未包装的错误（cobra 的旗标/参数错误）按用法错误处理。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErr(format string, a ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, a...)}
}

func runtimeErr(format string, a ...any) error {
	return &exitError{code: exitRuntime, err: fmt.Errorf(format, a...)}
}

// app 保存一次进程运行的共享状态。
type app struct {
	start  time.Time
	corrID string
	logger *diag.Logger
	stderr io.Writer

	configPath string
	logLevel   string
	status     bool
	over       overrides
}

// overrides: CLI 覆盖项；仅 Changed 的旗标生效。
type overrides struct {
	dictionary  string
	format      string
	workers     int
	minKeyLen   int
	maxKeyLen   int
	concurrency int
	numGuesses  int
	maxTokenLen int
	noRefine    bool
	diff        bool
	failFast    bool
	candidates  string
	writer      string
	outputDir   string
}

// 默认子命令 crack。
// 位置参数为 roots（文件/目录 或 "-" 表示 STDIN，不能与其他根混用）。
func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// 在任何 ENV 读取前加载工作目录下的 .env（不覆盖已有 ENV）。
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fprintf(stderr, "提示：.env 解析失败（已跳过）：%v\n", err)
	}
	a := &app{start: time.Now(), corrID: uuid.NewString(), stderr: stderr}
	// 先以默认级别占位，解析配置后按最终 level 重建
	a.logger = diag.NewLogger(a.corrID, "info")
	defer func() { _ = a.logger.Close() }()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	code := exitUsage
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
	}
	if !errors.Is(err, context.Canceled) {
		fprintf(stderr, "%v\n", err)
	}
	if code == exitUsage && ee == nil {
		fprintf(stderr, "运行 'shiftcrack --help' 查看用法\n")
	}
	a.logger.Error("cli", string(diag.Classify(err)), "first error", &a.start)
	return code
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shiftcrack [roots...]",
		Short:         "重复密钥移位密码的唯密文破解",
		Args:          cobra.ArbitraryArgs,
		RunE:          a.runCrack,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "配置文件路径（JSON）；缺省读取 ./config.json（若存在）")
	pf.StringVar(&a.logLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	pf.BoolVar(&a.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	pf.StringVarP(&a.over.dictionary, "dictionary", "d", "", "词表文件（覆盖配置）")
	pf.StringVar(&a.over.format, "format", "", "输入/输出格式 text|codes（覆盖配置）")
	pf.IntVar(&a.over.workers, "workers", 0, "单个输入内部的并行度（覆盖配置）")
	pf.IntVar(&a.over.minKeyLen, "min-key-len", 0, "候选密钥长度下界（覆盖配置）")
	pf.IntVar(&a.over.maxKeyLen, "max-key-len", 0, "候选密钥长度上界（覆盖配置）")

	a.bindCrackFlags(root.Flags())
	crack := &cobra.Command{
		Use:   "crack [roots...]",
		Short: "破解密文并写出明文、候选排名与可选差异报告（默认子命令）",
		Args:  cobra.ArbitraryArgs,
		RunE:  a.runCrack,
	}
	a.bindCrackFlags(crack.Flags())

	root.AddCommand(crack, a.estimateCmd(), a.encryptCmd(), a.genCmd(), a.initConfigCmd())
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &exitError{code: exitUsage, err: err}
	})
	return root
}

func (a *app) bindCrackFlags(f *pflag.FlagSet) {
	f.IntVarP(&a.over.concurrency, "concurrency", "j", 0, "跨输入并发度（覆盖配置）")
	f.IntVarP(&a.over.numGuesses, "num-guesses", "n", 0, "尝试的候选密钥长度个数；0 表示全部（覆盖配置）")
	f.IntVar(&a.over.maxTokenLen, "max-token-len", 0, "无分隔符时的定长切分长度；0 取词表最长词（覆盖配置）")
	f.BoolVar(&a.over.noRefine, "no-refine", false, "关闭移位精化")
	f.BoolVar(&a.over.diff, "diff", false, "额外写出 <id>.diff（粗解 → 纠错）")
	f.BoolVar(&a.over.failFast, "fail-fast", false, "任一输入失败即取消剩余输入")
	f.StringVar(&a.over.candidates, "candidates", "", "已知明文候选文件（每行一条）；命中即直接采用（覆盖配置）")
	f.StringVar(&a.over.writer, "writer", "", "产物写出方 fs|stdout（覆盖配置）")
	f.StringVarP(&a.over.outputDir, "output-dir", "o", "", "fs writer 的输出目录（覆盖 options.writer.output_dir）")
}

// loadConfig 按 defaults < JSON < ENV 合并；CLI 覆盖由 apply 完成。
func (a *app) loadConfig() (cfgpkg.Config, error) {
	cfg := cfgpkg.Defaults()
	// 显式 --config 优先于 ENV 中的 JSON
	path := a.configPath
	var raw []byte
	if path == "" {
		raw = []byte(os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"))
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if path == "" && len(raw) == 0 {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" || len(raw) > 0 {
		base, err := cfgpkg.LoadJSON(path, raw)
		if err != nil {
			return cfg, err
		}
		cfg = cfgpkg.Merge(cfg, base)
	}
	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, err
	}
	return cfgpkg.Merge(cfg, overEnv), nil
}

// apply 写入显式给出的 CLI 旗标（零值同样生效，交由 Validate 判定）。
func (o *overrides) apply(f *pflag.FlagSet, cfg cfgpkg.Config) (cfgpkg.Config, error) {
	if f.Changed("dictionary") {
		cfg.Dictionary = o.dictionary
	}
	if f.Changed("format") {
		cfg.Components.Format = o.format
	}
	if f.Changed("workers") {
		cfg.Workers = o.workers
	}
	if f.Changed("min-key-len") {
		cfg.MinKeyLen = o.minKeyLen
	}
	if f.Changed("max-key-len") {
		cfg.MaxKeyLen = o.maxKeyLen
	}
	if f.Changed("concurrency") {
		cfg.Concurrency = o.concurrency
	}
	if f.Changed("num-guesses") {
		n := o.numGuesses
		cfg.NumGuesses = &n
	}
	if f.Changed("max-token-len") {
		cfg.MaxTokenLen = o.maxTokenLen
	}
	if f.Changed("no-refine") {
		on := !o.noRefine
		cfg.Refine.Enabled = &on
	}
	if f.Changed("diff") {
		cfg.Diff = o.diff
	}
	if f.Changed("fail-fast") {
		cfg.FailFast = o.failFast
	}
	if f.Changed("candidates") {
		cfg.Candidates = o.candidates
	}
	if f.Changed("writer") {
		cfg.Components.Writer = o.writer
	}
	if f.Changed("output-dir") {
		raw, err := setOption(cfg.Options.Writer, "output_dir", o.outputDir)
		if err != nil {
			return cfg, fmt.Errorf("options.writer: %w", err)
		}
		cfg.Options.Writer = raw
	}
	return cfg, nil
}

// effective 加载配置并叠加 CLI 覆盖，随后按最终 level 重建 logger。
func (a *app) effective(cmd *cobra.Command) (cfgpkg.Config, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return cfg, usageErr("配置解析失败: %w", err)
	}
	if cfg, err = a.over.apply(cmd.Flags(), cfg); err != nil {
		return cfg, usageErr("参数解析失败: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if lv := strings.TrimSpace(cfg.Logging.Level); lv != "" {
		_ = a.logger.Close()
		a.logger = diag.NewLogger(a.corrID, lv)
	}
	return cfg, nil
}

func (a *app) runCrack(cmd *cobra.Command, args []string) error {
	cfg, err := a.effective(cmd)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Inputs = args
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		// 提示打印有效配置，便于诊断
		_ = dumpConfig(a.stderr, cfg)
		return usageErr("配置校验失败: %w", err)
	}
	if err := preflightCheckOutputDir(cfg); err != nil {
		return usageErr("输出目录不可写或无法创建: %w", err)
	}
	comp, set, rejected, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return usageErr("装配失败: %w", err)
	}
	for _, w := range rejected {
		a.logger.Warn("dict", "word rejected", cfg.Dictionary, map[string]string{"word": w})
	}

	// 终端信息提示（非日志）：按 CLI 启用，默认开启；起止行由 pipeline 输出
	diag.SetTerminal(diag.NewTerminal(a.stderr, a.status))
	defer diag.SetTerminal(nil)

	a.logger.Debug("config", "effective", map[string]string{
		"inputs_count":  strconv.Itoa(len(cfg.Inputs)),
		"dictionary":    cfg.Dictionary,
		"dict_words":    strconv.Itoa(set.Dictionary.Len()),
		"rejected":      strconv.Itoa(len(rejected)),
		"concurrency":   strconv.Itoa(cfg.Concurrency),
		"workers":       strconv.Itoa(cfg.Workers),
		"key_len_range": fmt.Sprintf("%d-%d", cfg.MinKeyLen, cfg.MaxKeyLen),
		"num_guesses":   strconv.Itoa(set.Crack.NumGuesses),
		"refine":        strconv.FormatBool(set.Crack.Refine.Enabled),
		"candidates":    strconv.Itoa(len(set.Crack.Known)),
		"reader":        cfg.Components.Reader,
		"writer":        cfg.Components.Writer,
		"format":        cfg.Components.Format,
	})

	t := a.logger.Start("pipeline", "run")
	sum, err := pipelineRun(cmd.Context(), comp, set, a.logger)
	if err != nil {
		code := string(diag.Classify(err))
		diag.IncOp("pipeline", "finish", "error")
		if code != string(diag.CodeUnknown) {
			diag.IncError("pipeline", code)
		}
		if errors.Is(err, pipeline.ErrInputsFailed) && sum.Succeeded > 0 {
			return &exitError{code: exitPartial, err: fmt.Errorf("部分输入失败: %w", err)}
		}
		if errors.Is(err, context.Canceled) {
			return &exitError{code: exitRuntime, err: err}
		}
		return runtimeErr("运行失败: %w", err)
	}
	t.Finish("run", int64(sum.Succeeded))
	a.logger.InfoFinish("cli", "done", a.start, int64(len(sum.Results)))
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(a.start).Milliseconds())
	return nil
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func dumpConfig(w io.Writer, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "有效配置:\n%s\n", b)
	return err
}

// setOption 在组件 Options 对象上设置单个键（其余键原样保留）。
func setOption(raw json.RawMessage, key string, val any) (json.RawMessage, error) {
	m := map[string]json.RawMessage{}
	if t := bytes.TrimSpace(raw); len(t) > 0 && !bytes.Equal(t, []byte("null")) {
		if err := json.Unmarshal(t, &m); err != nil {
			return nil, err
		}
	}
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	m[key] = b
	return json.Marshal(m)
}

// preflightCheckOutputDir: 当 Writer 使用文件系统实现(fs)时，启动前检查输出目录可写性。
// 目录已存在：尝试创建并删除临时文件；不存在：检查最近的已存在祖先目录可写。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	name := strings.TrimSpace(cfg.Components.Writer)
	if name == "" {
		name = cfgpkg.Defaults().Components.Writer
	}
	if name != "fs" {
		return nil
	}
	var wopts struct {
		OutputDir string `json:"output_dir"`
	}
	if len(cfg.Options.Writer) > 0 {
		_ = json.Unmarshal(cfg.Options.Writer, &wopts)
	}
	dir := strings.TrimSpace(wopts.OutputDir)
	if dir == "" {
		// 未指定时交给装配阶段报错
		return nil
	}
	for {
		st, err := os.Stat(dir)
		if err == nil {
			if !st.IsDir() {
				return fmt.Errorf("路径存在但不是目录: %s", dir)
			}
			f, err := os.CreateTemp(dir, ".wcheck-*")
			if err != nil {
				return err
			}
			tmp := f.Name()
			_ = f.Close()
			return os.Remove(tmp)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return fmt.Errorf("无法确定父目录: %s", dir)
		}
		dir = parent
	}
}
