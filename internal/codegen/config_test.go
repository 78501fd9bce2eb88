// config_test.go - 配置测试

package codegen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

// TestDefaultConfig 测试默认配置有效
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Enabled)
	assert.NoError(t, cfg.Validate())
	assert.Greater(t, cfg.BlockSize, maxUnwindDataSize)
	assert.GreaterOrEqual(t, cfg.MaxTotalSize, cfg.BlockSize)
}

// TestConfigValidate 测试所有违反项被聚合返回
func TestConfigValidate(t *testing.T) {
	cfg := &Config{Enabled: true, BlockSize: 64, MaxTotalSize: 32}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, 2, len(multierr.Errors(err)))
}

// TestConfigRoundTrip 测试 TOML 保存与加载
func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codegen.toml")

	cfg := &Config{Enabled: false, BlockSize: 65536, MaxTotalSize: 1 << 20}
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// TestLoadConfigPartial 测试省略的字段保留默认值
func TestLoadConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codegen.toml")
	require.NoError(t, os.WriteFile(path, []byte("block_size = 65536\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 65536, cfg.BlockSize)
	assert.Equal(t, DefaultMaxTotalSize, cfg.MaxTotalSize)
	assert.True(t, cfg.Enabled)
}

// TestLoadConfigInvalid 测试非法配置文件
func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()

	// 不存在的文件
	_, err := LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	// 语法错误
	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("block_size = ["), 0644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)

	// 违反不变量
	invalid := filepath.Join(dir, "invalid.toml")
	require.NoError(t, os.WriteFile(invalid, []byte("block_size = 64\n"), 0644))
	_, err = LoadConfig(invalid)
	assert.Error(t, err)
}

// TestNewFromConfig 测试按配置创建分配器
func TestNewFromConfig(t *testing.T) {
	a, err := NewFromConfig(nil, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, a)
	a.Close()

	_, err = NewFromConfig(&Config{BlockSize: 64, MaxTotalSize: 64}, nil, nil)
	assert.Error(t, err)
}
