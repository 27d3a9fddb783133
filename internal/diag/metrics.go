package diag

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 指标经 OpenTelemetry 全局 MeterProvider 导出；未安装 provider 时为 no-op。
// - shiftcrack.ops{comp,stage,result}
// - shiftcrack.errors{comp,code}
// - shiftcrack.duration_ms{comp,stage}

type instruments struct {
	ops  metric.Int64Counter
	errs metric.Int64Counter
	dur  metric.Int64Histogram
}

var (
	instOnce sync.Once
	inst     instruments
)

func meter() *instruments {
	instOnce.Do(func() {
		m := otel.Meter("shiftcrack")
		inst.ops, _ = m.Int64Counter("shiftcrack.ops")
		inst.errs, _ = m.Int64Counter("shiftcrack.errors")
		inst.dur, _ = m.Int64Histogram("shiftcrack.duration_ms", metric.WithUnit("ms"))
	})
	return &inst
}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	if c := meter().ops; c != nil {
		c.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("comp", comp),
			attribute.String("stage", stage),
			attribute.String("result", result),
		))
	}
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	if c := meter().errs; c != nil {
		c.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("comp", comp),
			attribute.String("code", code),
		))
	}
}

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	if h := meter().dur; h != nil {
		h.Record(context.Background(), durMS, metric.WithAttributes(
			attribute.String("comp", comp),
			attribute.String("stage", stage),
		))
	}
}
