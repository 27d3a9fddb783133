package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"shiftcrack/pkg/contract"
)

// Options: 标准输出 Writer 选项。
type Options struct {
	// Skip: 不输出的产物扩展名；nil 时跳过 .jsonl 与 .diff 旁路产物。
	Skip []string `json:"skip,omitempty"`
	// Header: 每个产物前打印 "==> id <==" 行（多输入时便于区分）。
	Header bool `json:"header,omitempty"`
}

// Stdout 将主产物顺序写到 os.Stdout（或注入的 io.Writer）。
type Stdout struct {
	out    io.Writer
	skip   map[string]struct{}
	header bool
	mu     sync.Mutex
}

// New 创建写到 os.Stdout 的 Writer。
func New(opts *Options) *Stdout { return NewTo(os.Stdout, opts) }

// NewTo 写到任意 io.Writer。
func NewTo(w io.Writer, opts *Options) *Stdout {
	skip := []string{".jsonl", ".diff"}
	s := &Stdout{out: w, skip: map[string]struct{}{}}
	if opts != nil {
		if opts.Skip != nil {
			skip = opts.Skip
		}
		s.header = opts.Header
	}
	for _, e := range skip {
		s.skip[strings.ToLower(e)] = struct{}{}
	}
	return s
}

var _ contract.Writer = (*Stdout)(nil)

// Write 整段写出；多输入并发时按产物串行，不交错。
func (s *Stdout) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := s.skip[strings.ToLower(path.Ext(string(id)))]; ok {
		_, err := io.Copy(io.Discard, r)
		return err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.header {
		if _, err := fmt.Fprintf(s.out, "==> %s <==\n", id); err != nil {
			return err
		}
	}
	_, err = s.out.Write(b)
	return err
}
