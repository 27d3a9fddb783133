package contract

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"shiftcrack/pkg/alphabet"
)

// TestNormalizeFileID 验证路径规范化逻辑。
func TestNormalizeFileID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"本地分隔符", filepath.Join("a", "b", "c"), "a/b/c"},
		{"清理父目录", "./x/../y", "y"},
		{"空串", "", "."},
		{"Windows路径", "C:\\Users\\test\\cipher.txt", "C:/Users/test/cipher.txt"},
		{"清理多余斜杠", "path//to///file.txt", "path/to/file.txt"},
		{"混合分隔符", "src\\..\\test/./data\\\\file.txt", "test/data/file.txt"},
		{"Unix绝对路径", "/home/user/../admin/file.txt", "/home/admin/file.txt"},
		{"复杂父目录", "a\\b\\c\\..\\..\\..\\..\\d", "../d"},
		{"标准输入", "-", "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeFileID(tt.input); string(got) != tt.expected {
				t.Errorf("NormalizeFileID(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

// TestArtifactFor 验证产物标识派生。
func TestArtifactFor(t *testing.T) {
	cases := []struct {
		id   FileID
		ext  string
		want string
	}{
		{"in/a.txt", ".plain", "in/a.plain"},
		{"in/a", ".jsonl", "in/a.jsonl"},
		{"-", ".plain", "stdin.plain"},
		{"", ".diff", "stdin.diff"},
		{"dir.v1/cipher", ".plain", "dir.v1/cipher.plain"},
	}
	for _, c := range cases {
		if got := ArtifactFor(c.id, c.ext); string(got) != c.want {
			t.Fatalf("ArtifactFor(%q,%q)=%q want %q", c.id, c.ext, got, c.want)
		}
	}
}

// TestInvalidSymbolReexport 保证 contract 与 alphabet 的哨兵一致。
func TestInvalidSymbolReexport(t *testing.T) {
	_, err := alphabet.Encode("X")
	if !errors.Is(err, ErrInvalidSymbol) {
		t.Fatalf("alphabet 错误应可用 contract 哨兵判定: %v", err)
	}
	wrapped := fmt.Errorf("decode: %w", err)
	if !errors.Is(wrapped, ErrInvalidSymbol) {
		t.Fatalf("包装后应仍可判定")
	}
}

// BenchmarkNormalizeFileID 性能基准测试
func BenchmarkNormalizeFileID(b *testing.B) {
	testPaths := []string{
		"C:\\Users\\test\\Documents\\file.txt",
		"src/main/java/../../../test/data/file.txt",
		"very/long/path/with/many/segments/and/mixed\\separators/file.txt",
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, p := range testPaths {
			NormalizeFileID(p)
		}
	}
}
