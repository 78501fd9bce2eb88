//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

// pages_unix.go - Unix 平台页面原语
//
// 使用 mmap/mprotect/munmap 管理可执行内存页。
// 页面先以读写权限分配，写入完成后整页切换为读+执行。

package codegen

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// 页大小（运行时从系统获取）
var pageSize = unix.Getpagesize()

// reserveAndCommit 申请 size 字节（向上取整到页大小）的可读写内存
// 返回的内存已清零；失败时不做重试
func reserveAndCommit(size int) ([]byte, error) {
	mem, err := unix.Mmap(
		-1, // fd
		0,  // offset
		alignToPageSize(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON,
	)
	if err != nil {
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	return mem, nil
}

// releasePages 将页面归还给操作系统
// mem 必须是 reserveAndCommit 返回的完整切片；
// munmap 对正确参数不应失败，失败说明存在逻辑错误
func releasePages(mem []byte) {
	if err := unix.Munmap(mem); err != nil {
		panic("codegen: failed to deallocate block memory: " + err.Error())
	}
}

// makePagesExecutable 将页面权限从读写切换为读+执行
// mem 必须页对齐且长度为页大小的整数倍
func makePagesExecutable(mem []byte) {
	if uintptr(unsafe.Pointer(&mem[0]))%uintptr(pageSize) != 0 {
		panic("codegen: page protection change on unaligned address")
	}
	if len(mem) != alignToPageSize(len(mem)) {
		panic("codegen: page protection change with unaligned size")
	}

	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		panic("codegen: failed to change page protection: " + err.Error())
	}
}
