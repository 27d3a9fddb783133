package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"shiftcrack/internal/cipher"
	"shiftcrack/pkg/contract"
	fcodes "shiftcrack/plugins/format/codes"
	ftext "shiftcrack/plugins/format/text"
	rfs "shiftcrack/plugins/reader/filesystem"
	wfs "shiftcrack/plugins/writer/filesystem"
	wstd "shiftcrack/plugins/writer/stdout"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: options: %v", contract.ErrInvalidInput, err)
	}
	return nil
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// NewFormat 工厂签名：接收原样 JSON Options。
type NewFormat func(raw json.RawMessage) (contract.Format, error)

// NewSchedule 工厂签名：接收原样 JSON Options。
type NewSchedule func(raw json.RawMessage) (cipher.Schedule, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件/目录/STDIN
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 写入 output_dir（默认原子替换）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
	// stdout: 主产物写到标准输出，旁路产物默认丢弃
	"stdout": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wstd.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wstd.New(&opts), nil
	},
}

// Format 工厂注册表。
var Format = map[string]NewFormat{
	"text": func(raw json.RawMessage) (contract.Format, error) {
		var opts ftext.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return ftext.New(&opts), nil
	},
	"codes": func(raw json.RawMessage) (contract.Format, error) {
		var opts fcodes.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return fcodes.New(&opts), nil
	},
}

// Schedule 加密侧密钥调度注册表。
var Schedule = map[string]NewSchedule{
	"repeating": func(raw json.RawMessage) (cipher.Schedule, error) {
		if err := strictUnmarshal(raw, &struct{}{}); err != nil {
			return nil, err
		}
		return cipher.Repeating{}, nil
	},
	"periodic_rand": func(raw json.RawMessage) (cipher.Schedule, error) {
		s := cipher.PeriodicRand{Period: 10}
		if err := strictUnmarshal(raw, &s); err != nil {
			return nil, err
		}
		if s.Period <= 0 || s.Start < 0 {
			return nil, fmt.Errorf("%w: periodic_rand requires period>0 and start>=0", contract.ErrInvalidInput)
		}
		return s, nil
	},
	"aab": func(raw json.RawMessage) (cipher.Schedule, error) {
		s := cipher.Aab{Chars: 1, Reps: 1}
		if err := strictUnmarshal(raw, &s); err != nil {
			return nil, err
		}
		if s.Chars < 0 || s.Reps < 0 || s.Offset < 0 {
			return nil, fmt.Errorf("%w: aab fields must be >= 0", contract.ErrInvalidInput)
		}
		return s, nil
	},
	"offset_reverse": func(raw json.RawMessage) (cipher.Schedule, error) {
		s := cipher.OffsetReverse{Offset: 1}
		if err := strictUnmarshal(raw, &s); err != nil {
			return nil, err
		}
		if s.Offset < 0 {
			return nil, fmt.Errorf("%w: offset_reverse offset must be >= 0", contract.ErrInvalidInput)
		}
		return s, nil
	},
	"length_mod": func(raw json.RawMessage) (cipher.Schedule, error) {
		if err := strictUnmarshal(raw, &struct{}{}); err != nil {
			return nil, err
		}
		return cipher.LengthMod{}, nil
	},
}
