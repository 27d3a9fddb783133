//go:build !windows

package filesystem

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"shiftcrack/pkg/contract"
)

// TestWalkDirNonRegular FIFO 等非常规文件被忽略
func TestWalkDirNonRegular(t *testing.T) {
	root := t.TempDir()
	if err := syscall.Mkfifo(filepath.Join(root, "fifo"), 0o644); err != nil {
		t.Fatalf("mkfifo: %v", err)
	}
	if got := collect(t, New(nil), []string{root}); len(got) != 0 {
		t.Fatalf("non-regular should skip, got %#v", got)
	}
}

// TestSymlinks 仅跟随指向常规文件的符号链接
func TestSymlinks(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	os.Mkdir(sub, 0o755)
	os.WriteFile(filepath.Join(sub, "ok.txt"), []byte("o"), 0o644)
	os.Symlink(sub, filepath.Join(root, "sub_link"))
	os.Symlink(filepath.Join(sub, "ok.txt"), filepath.Join(root, "file_link.txt"))

	cases := []struct {
		name  string
		roots []string
		want  []string
	}{
		{"file link root", []string{filepath.Join(root, "file_link.txt")}, []string{"file_link.txt"}},
		{"dir link root", []string{filepath.Join(root, "sub_link")}, nil},
		{"walk", []string{root}, []string{"ok.txt", "file_link.txt"}},
	}
	for _, c := range cases {
		got := collect(t, New(nil), c.roots)
		if len(got) != len(c.want) {
			t.Fatalf("%s: got %#v want %v", c.name, got, c.want)
		}
		for _, w := range c.want {
			if got[w] != "o" {
				t.Fatalf("%s: missing %s in %#v", c.name, w, got)
			}
		}
	}
}

// TestIterateSymlinkDangling 失效链接返回错误
func TestIterateSymlinkDangling(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "dangling")
	os.Symlink(filepath.Join(dir, "no"), link)
	err := New(nil).Iterate(context.Background(), []string{link}, func(contract.FileID, io.ReadCloser) error { return nil })
	if err == nil {
		t.Fatalf("expect error for dangling symlink")
	}
}
