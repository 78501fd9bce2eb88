//go:build windows

// sync_icache_windows.go - Windows 指令缓存同步
//
// x/sys/windows 没有封装 FlushInstructionCache，
// 这里沿用 kernel32 延迟加载的方式直接调用。

package codegen

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32                  = windows.NewLazySystemDLL("kernel32.dll")
	procFlushInstructionCache = kernel32.NewProc("FlushInstructionCache")
)

// syncInstructionCache 同步指令缓存
// 保证 CPU 的指令预取能看到刚写入的代码字节
func syncInstructionCache(code []byte) {
	if len(code) == 0 {
		return
	}

	ret, _, err := procFlushInstructionCache.Call(
		uintptr(windows.CurrentProcess()),
		uintptr(unsafe.Pointer(&code[0])),
		uintptr(len(code)),
	)
	if ret == 0 {
		panic("codegen: failed to flush instruction cache: " + err.Error())
	}
}
