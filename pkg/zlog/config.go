package zlog

import "fmt"

// FileConfig 本地轮转文件策略
type FileConfig struct {
	Path       string `mapstructure:"path"`        // 日志文件路径，留空则不写文件
	MaxSizeMB  int    `mapstructure:"max_size"`    // 单个日志文件最大容量（MB）
	MaxBackups int    `mapstructure:"max_backups"` // 保留旧文件数量
	MaxAgeDay  int    `mapstructure:"max_age"`     // 最长保存天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧日志文件
}

// Config 日志配置，由应用配置文件的 log 段反序列化得到
type Config struct {
	Service      string     `mapstructure:"service"`       // 归属服务名
	Level        string     `mapstructure:"level"`         // debug|info|warn|error
	Encoding     string     `mapstructure:"encoding"`      // json|console
	Stdout       bool       `mapstructure:"stdout"`        // 是否同时输出到控制台
	File         FileConfig `mapstructure:"file"`          // 文件相关配置
	EnableMetric bool       `mapstructure:"enable_metric"` // 是否上报 Prometheus 指标
}

// Normalize 填默认值并做严格校验
func (c *Config) Normalize() error {
	if c.Service == "" {
		c.Service = "chatapp"
	}
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Encoding == "" {
		c.Encoding = "json"
	}

	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("配置错误：level 只能是 debug/info/warn/error")
	}

	switch c.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("配置错误：encoding 只能是 json/console")
	}

	if !c.Stdout && c.File.Path == "" {
		return fmt.Errorf("配置错误：stdout 为 false 时，file.path 不能为空")
	}

	if c.File.Path != "" {
		if c.File.MaxSizeMB <= 0 {
			c.File.MaxSizeMB = 100
		}
		if c.File.MaxBackups < 0 {
			c.File.MaxBackups = 60
		}
		if c.File.MaxAgeDay < 0 {
			c.File.MaxAgeDay = 30
		}
	}

	return nil
}
