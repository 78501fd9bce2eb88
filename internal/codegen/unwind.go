// unwind.go - 栈展开信息回调契约

package codegen

// UnwindInfoRegistry 栈展开信息注册接口
//
// 由外部的展开表编码器实现，分配器不关心元数据的具体格式。
// 每申请一个新块，分配器调用一次 CreateBlockUnwindInfo，
// 实现方可以在块起始处写入平台相关的展开元数据（此时页面仍可写），
// 返回一个不透明句柄以及块起始处被占用的字节数。
// 占用字节数随后会被取整到 16 字节，且不得超过分配器的保留上限。
//
// 分配器保证在 Close 时按创建顺序对每个成功创建的句柄恰好调用一次
// DestroyBlockUnwindInfo，并且此时块内代码不应再被执行
// （执行安全性由分配器的调用方负责，本包不做引用计数）。
type UnwindInfoRegistry interface {
	// CreateBlockUnwindInfo 为新块注册展开信息
	// block 是新块的完整内存区域
	CreateBlockUnwindInfo(block []byte) (handle any, size int, err error)

	// DestroyBlockUnwindInfo 注销展开信息
	DestroyBlockUnwindInfo(handle any)
}
