// cpu.go - 宿主平台支持探测

package codegen

import (
	"fmt"
	"runtime"

	"github.com/segmentio/asm/cpu"
	"github.com/segmentio/asm/cpu/arm64"
	"github.com/segmentio/asm/cpu/x86"
)

// IsSupported 报告当前宿主是否支持本机代码生成
func IsSupported() bool {
	return SupportReason() == ""
}

// SupportReason 返回当前宿主不支持本机代码生成的原因
// 支持时返回空字符串
func SupportReason() string {
	switch runtime.GOOS {
	case "linux", "darwin", "windows", "freebsd":
	default:
		return fmt.Sprintf("unsupported OS: %s", runtime.GOOS)
	}

	switch runtime.GOARCH {
	case "amd64":
		// 生成的 x64 代码使用 AVX 编码
		if !cpu.X86.Has(x86.AVX) {
			return "x64 host lacks AVX support"
		}
	case "arm64":
		if !cpu.ARM64.Has(arm64.ASIMD) {
			return "arm64 host lacks ASIMD support"
		}
	default:
		return fmt.Sprintf("unsupported architecture: %s", runtime.GOARCH)
	}

	return ""
}
