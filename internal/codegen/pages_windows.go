//go:build windows

// pages_windows.go - Windows 平台页面原语
//
// 使用 VirtualAlloc/VirtualProtect/VirtualFree 管理可执行内存页。

package codegen

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// 页大小（Windows 固定为 4KB）
const pageSize = 4096

// reserveAndCommit 申请 size 字节（向上取整到页大小）的可读写内存
// VirtualAlloc 返回的内存已清零；失败时不做重试
func reserveAndCommit(size int) ([]byte, error) {
	addr, err := windows.VirtualAlloc(
		0,
		uintptr(alignToPageSize(size)),
		windows.MEM_RESERVE|windows.MEM_COMMIT,
		windows.PAGE_READWRITE,
	)
	if err != nil {
		return nil, fmt.Errorf("VirtualAlloc failed: %w", err)
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), alignToPageSize(size)), nil
}

// releasePages 将页面归还给操作系统
// VirtualFree 对正确参数不应失败，失败说明存在逻辑错误
func releasePages(mem []byte) {
	addr := uintptr(unsafe.Pointer(&mem[0]))
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		panic("codegen: failed to deallocate block memory: " + err.Error())
	}
}

// makePagesExecutable 将页面权限从读写切换为读+执行
// mem 必须页对齐且长度为页大小的整数倍
func makePagesExecutable(mem []byte) {
	addr := uintptr(unsafe.Pointer(&mem[0]))
	if addr%pageSize != 0 {
		panic("codegen: page protection change on unaligned address")
	}
	if len(mem) != alignToPageSize(len(mem)) {
		panic("codegen: page protection change with unaligned size")
	}

	var oldProtect uint32
	if err := windows.VirtualProtect(addr, uintptr(len(mem)), windows.PAGE_EXECUTE_READ, &oldProtect); err != nil {
		panic("codegen: failed to change page protection: " + err.Error())
	}
}
