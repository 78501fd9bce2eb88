//go:build linux && !amd64 && !386

// sync_icache_linux.go - Linux 非 x86 架构指令缓存同步
//
// arm64 等架构的指令缓存与数据缓存视图分离。
// 内核在页面获得执行权限时（mprotect RW->RX）完成 D/I 缓存维护，
// 这里再通过 membarrier(SYNC_CORE) 对所有核执行上下文同步，
// 等价于在每个核上执行 ISB，避免其它核继续执行过期的指令流。

package codegen

import (
	"sync"

	"golang.org/x/sys/unix"
)

var (
	membarrierOnce  sync.Once
	membarrierReady bool
)

// syncInstructionCache 同步指令缓存
func syncInstructionCache(code []byte) {
	if len(code) == 0 {
		return
	}

	membarrierOnce.Do(func() {
		// SYNC_CORE 需要先注册；老内核不支持时退化为
		// 仅依赖 mprotect 切换时的内核缓存维护
		_, err := unix.Membarrier(unix.MEMBARRIER_CMD_REGISTER_PRIVATE_EXPEDITED_SYNC_CORE, 0)
		membarrierReady = err == nil
	})

	if membarrierReady {
		_, _ = unix.Membarrier(unix.MEMBARRIER_CMD_PRIVATE_EXPEDITED_SYNC_CORE, 0)
	}
}
