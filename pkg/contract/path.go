package contract

import (
	"path"
	"strings"
)

// NormalizeFileID 规范化路径，统一为跨平台稳定的 FileID。
// 反斜杠一律转为正斜杠后做 path.Clean；不做隐式绝对化。
func NormalizeFileID(p string) FileID {
	return FileID(path.Clean(strings.ReplaceAll(p, "\\", "/")))
}

// ArtifactFor 由输入标识派生产物标识：去掉原扩展名后附加 ext（含点）。
// 标准输入 "-" 映射为 "stdin"。
func ArtifactFor(id FileID, ext string) ArtifactID {
	s := string(id)
	if s == "-" || s == "" {
		s = "stdin"
	}
	if e := path.Ext(s); e != "" {
		s = strings.TrimSuffix(s, e)
	}
	return ArtifactID(s + ext)
}
