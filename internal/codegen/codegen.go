// Package codegen 实现本机代码的可执行内存管理
//
// JIT 编译器后端生成的机器码需要放置在可执行内存中才能被 CPU 执行。
// 本包负责向操作系统申请页对齐的内存块，在块内连续放置
// [展开信息][数据][代码] 三元组，并在写入完成后把对应页面
// 切换为读+执行权限（W^X：页面永远不会同时可写且可执行）。
//
// 指令选择、寄存器分配等代码生成逻辑不在本包范围内，
// 本包只负责把调用方给出的字节正确、安全地放进可执行内存。
package codegen

// alignTo 将 size 向上取整到 align 的整数倍
// align 必须是 2 的幂
func alignTo(size, align int) int {
	return (size + align - 1) &^ (align - 1)
}

// alignToPageSize 将 size 向上取整到页大小
func alignToPageSize(size int) int {
	return alignTo(size, pageSize)
}
