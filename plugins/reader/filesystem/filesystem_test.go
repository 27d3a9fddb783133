package filesystem

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shiftcrack/pkg/contract"
)

func collect(t *testing.T, r *FileSystem, roots []string) map[string]string {
	t.Helper()
	got := map[string]string{}
	err := r.Iterate(context.Background(), roots, func(id contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		got[filepath.Base(string(id))] = string(b)
		return nil
	})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	return got
}

// TestIterateSingleFile 读取单文件
func TestIterateSingleFile(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "a.txt")
	os.WriteFile(fp, []byte("wkh tulfn"), 0o644)
	r := New(nil)
	var got []byte
	err := r.Iterate(context.Background(), []string{fp}, func(id contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		got = append(got, b...)
		if id != contract.NormalizeFileID(fp) {
			t.Fatalf("file id mismatch %s", id)
		}
		return nil
	})
	if err != nil || string(got) != "wkh tulfn" {
		t.Fatalf("iterate: %v %q", err, string(got))
	}
}

// TestExtensionsAndExcludeDir 目录扫描按扩展名过滤并跳过目录
func TestExtensionsAndExcludeDir(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("k"), 0o644)
	os.WriteFile(filepath.Join(dir, "KEEP2.CT"), []byte("c"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.md"), []byte("n"), 0o644)
	skipDir := filepath.Join(dir, "skip")
	os.Mkdir(skipDir, 0o755)
	os.WriteFile(filepath.Join(skipDir, "bad.txt"), []byte("b"), 0o644)

	r := New(&Options{Extensions: []string{".txt", "ct"}, ExcludeDirNames: []string{"SKIP"}})
	got := collect(t, r, []string{dir})
	if len(got) != 2 || got["keep.txt"] != "k" || got["KEEP2.CT"] != "c" {
		t.Fatalf("过滤错误: %#v", got)
	}
	// 显式单文件不受扩展名过滤
	got = collect(t, r, []string{filepath.Join(dir, "notes.md")})
	if got["notes.md"] != "n" {
		t.Fatalf("单文件应读取: %#v", got)
	}
}

// TestWalkOrder 子目录先于文件，按名字排序
func TestWalkOrder(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0o644)
	os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644)
	os.Mkdir(filepath.Join(dir, "z"), 0o755)
	os.WriteFile(filepath.Join(dir, "z", "c.txt"), nil, 0o644)
	var order []string
	err := New(nil).Iterate(context.Background(), []string{dir}, func(id contract.FileID, rc io.ReadCloser) error {
		order = append(order, filepath.Base(string(id)))
		return rc.Close()
	})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if strings.Join(order, ",") != "c.txt,a.txt,b.txt" {
		t.Fatalf("顺序错误: %v", order)
	}
}

// TestMaxBytes 超出上限时报错而非截断
func TestMaxBytes(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "big.txt")
	os.WriteFile(fp, []byte(strings.Repeat("a", 100)), 0o644)

	err := New(&Options{MaxBytes: 10}).Iterate(context.Background(), []string{fp}, func(_ contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		_, err := io.ReadAll(rc)
		return err
	})
	if !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("expect ErrInvalidInput, got %v", err)
	}
	got := collect(t, New(&Options{MaxBytes: 100}), []string{fp})
	if len(got["big.txt"]) != 100 {
		t.Fatalf("恰好等于上限应可读")
	}
}

// TestIterateDashMix 混用 '-' 返回错误
func TestIterateDashMix(t *testing.T) {
	r := New(nil)
	err := r.Iterate(context.Background(), []string{"-", "a"}, func(contract.FileID, io.ReadCloser) error { return nil })
	if err == nil {
		t.Fatalf("expect error for dash mix")
	}
}

// TestIterateStdin roots 为空或为 "-" 时读取 STDIN
func TestIterateStdin(t *testing.T) {
	for _, roots := range [][]string{nil, {"-"}} {
		old := os.Stdin
		pr, pw, _ := os.Pipe()
		os.Stdin = pr
		go func() {
			pw.Write([]byte("hi"))
			pw.Close()
		}()
		var data []byte
		err := New(nil).Iterate(context.Background(), roots, func(id contract.FileID, rc io.ReadCloser) error {
			defer rc.Close()
			if id != "stdin" {
				t.Fatalf("id=%s", id)
			}
			data, _ = io.ReadAll(rc)
			return nil
		})
		os.Stdin = old
		pr.Close()
		if err != nil || string(data) != "hi" {
			t.Fatalf("stdin %v: %v %q", roots, err, string(data))
		}
	}
}

// TestIterateCtxCancel 上下文取消
func TestIterateCtxCancel(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "a.txt")
	os.WriteFile(fp, []byte("x"), 0o644)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(nil).Iterate(ctx, []string{fp}, func(contract.FileID, io.ReadCloser) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expect ctx cancel, got %v", err)
	}
}

// TestYieldErrorStops yield 出错时停止并上抛
func TestYieldErrorStops(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644)
	os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0o644)
	boom := errors.New("boom")
	n := 0
	err := New(nil).Iterate(context.Background(), []string{dir}, func(contract.FileID, io.ReadCloser) error {
		n++
		return boom
	})
	if !errors.Is(err, boom) || n != 1 {
		t.Fatalf("expect stop after first: %v n=%d", err, n)
	}
}

// TestMissingRoot 不存在的路径返回错误
func TestMissingRoot(t *testing.T) {
	err := New(nil).Iterate(context.Background(), []string{filepath.Join(t.TempDir(), "none")}, func(contract.FileID, io.ReadCloser) error { return nil })
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expect not exist, got %v", err)
	}
}
