//go:build !windows && (amd64 || 386)

// sync_icache_x86.go - x86 指令缓存同步

package codegen

// syncInstructionCache 同步指令缓存
// x86 的指令预取与数据缓存保持一致，跨核的流水线序列化
// 由 mprotect 权限切换触发的 IPI 完成，这里无需额外操作。
func syncInstructionCache(code []byte) {
}
