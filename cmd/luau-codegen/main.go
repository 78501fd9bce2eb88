// luau-codegen 可执行内存分配器诊断工具
//
// 探测宿主支持情况，按配置构造分配器，执行一批放置并校验字节，
// 最后以 JSON 输出统计信息。

package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"github.com/axstin/luau/internal/codegen"
)

var (
	configPath = flag.String("config", "", "Load allocator settings from a TOML file")
	blockSize  = flag.Int("blocksize", codegen.DefaultBlockSize, "Bytes per code block")
	maxTotal   = flag.Int("maxtotal", codegen.DefaultMaxTotalSize, "Total code memory limit in bytes")
	count      = flag.Int("n", 16, "Number of test placements")
	verbose    = flag.Bool("v", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "luau-codegen: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if reason := codegen.SupportReason(); reason != "" {
		return fmt.Errorf("native code generation unavailable: %s", reason)
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = l
		defer logger.Sync()
	}

	cfg := codegen.DefaultConfig()
	if *configPath != "" {
		loaded, err := codegen.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg.BlockSize = *blockSize
		cfg.MaxTotalSize = *maxTotal
	}

	if !cfg.Enabled {
		return fmt.Errorf("native code generation disabled by config")
	}

	alloc, err := codegen.NewFromConfig(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer alloc.Close()

	code := returnStub()
	data := []byte("luau-codegen probe")

	for i := 0; i < *count; i++ {
		region, entry, err := alloc.Allocate(data, code)
		if err != nil {
			return fmt.Errorf("placement %d: %w", i, err)
		}
		if !bytes.Equal(region[len(region)-len(code):], code) {
			return fmt.Errorf("placement %d: placed code does not match input", i)
		}
		logger.Debug("placed", zap.Int("index", i), zap.Uintptr("entry", entry))
	}

	out, err := json.Marshal(alloc.Stats())
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	return nil
}

// returnStub 返回当前架构的"立即返回"指令序列
func returnStub() []byte {
	switch runtime.GOARCH {
	case "amd64":
		return []byte{0xC3} // ret
	case "arm64":
		return []byte{0xC0, 0x03, 0x5F, 0xD6} // ret
	default:
		return nil
	}
}
