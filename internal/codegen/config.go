// config.go - 代码生成配置
//
// 配置可以在代码中直接构造，也可以从 TOML 文件加载。

package codegen

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// 默认配置值
const (
	DefaultBlockSize    = 4 * 1024 * 1024   // 每个块 4MB
	DefaultMaxTotalSize = 256 * 1024 * 1024 // 总上限 256MB
)

// Config 代码生成配置
type Config struct {
	Enabled      bool `toml:"enabled"`        // 是否启用本机代码生成
	BlockSize    int  `toml:"block_size"`     // 每个内存块的字节数
	MaxTotalSize int  `toml:"max_total_size"` // 所有块的总字节数上限
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		BlockSize:    DefaultBlockSize,
		MaxTotalSize: DefaultMaxTotalSize,
	}
}

// Validate 校验配置，返回所有违反项的聚合错误
func (c *Config) Validate() error {
	var err error

	if c.BlockSize <= maxUnwindDataSize {
		err = multierr.Append(err, fmt.Errorf("block_size must exceed %d bytes, got %d", maxUnwindDataSize, c.BlockSize))
	}
	if c.MaxTotalSize < c.BlockSize {
		err = multierr.Append(err, fmt.Errorf("max_total_size (%d) must be at least block_size (%d)", c.MaxTotalSize, c.BlockSize))
	}

	return err
}

// LoadConfig 从 TOML 文件加载配置
// 文件中省略的字段保留默认值
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Save 保存配置到 TOML 文件
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// NewFromConfig 按配置创建分配器
// 与 NewCodeAllocator 不同，配置错误以 error 返回而不是 panic
func NewFromConfig(config *Config, unwind UnwindInfoRegistry, logger *zap.Logger) (*CodeAllocator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return NewCodeAllocator(config.BlockSize, config.MaxTotalSize, unwind, logger), nil
}
