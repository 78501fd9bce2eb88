//go:build !windows && !linux && !amd64 && !386

// sync_icache_other.go - 其它 Unix 平台指令缓存同步

package codegen

// syncInstructionCache 同步指令缓存
// darwin/arm64 与各 BSD 的内核会在页面从可写切换为可执行时
// （makePagesExecutable 的 mprotect 调用）完成指令缓存的失效，
// 用户态没有可移植的缓存维护入口，这里依赖该内核行为。
func syncInstructionCache(code []byte) {
}
