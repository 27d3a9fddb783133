package config

import "encoding/json"

// DefaultTemplateConfig 返回一个可直接运行的默认配置模板：
// 输入为 STDIN（"-"），词表为 ./words.txt，产物写入 ./out；选项列出全部键。
func DefaultTemplateConfig() Config {
	cfg := Defaults()
	cfg.Inputs = []string{"-"}
	cfg.Dictionary = "words.txt"
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "extensions": [],
  "exclude_dir_names": [".git"],
  "max_bytes": 0
}`)
	cfg.Options.Writer = json.RawMessage(`{
  "output_dir": "out",
  "atomic": true,
  "flat": true,
  "overwrite": true,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	cfg.Options.Format = json.RawMessage(`{
  "lowercase": false,
  "no_newline": false
}`)
	return cfg
}
