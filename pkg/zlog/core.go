package zlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 按配置创建一个 *zap.Logger，不替换全局实例
func New(cfg Config, opts ...zap.Option) (*zap.Logger, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	// 初始化全局可变日志级别
	initLevel(cfg.Level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder   // 时间按 ISO8601 输出，可读性更好
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder // 调用位置只输出 file.go:123

	var encoder zapcore.Encoder
	if cfg.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(
		encoder,
		buildWriteSyncer(cfg),
		dynamicLevel,
	)

	// Prometheus 埋点
	if cfg.EnableMetric {
		core = wrapWithMetric(core, cfg)
	}

	allOpts := append(opts,
		zap.AddCaller(),
		zap.Fields(zap.String("service", cfg.Service)),
	)

	return zap.New(core, allOpts...), nil
}
