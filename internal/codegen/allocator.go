// allocator.go - 可执行内存分配器
//
// 分配器按固定大小的块向操作系统申请页对齐的内存，
// 在块内以 bump 指针方式连续放置 [展开信息][数据][代码] 区域。
// 块只增不减，空间只在整个分配器销毁时回收。

package codegen

import (
	"errors"
	"fmt"
	"unsafe"

	"go.uber.org/zap"
)

// maxUnwindDataSize 每个块起始处为栈展开信息保留的最大字节数
const maxUnwindDataSize = 128

// 可恢复的分配失败
// 调用方应当将其视为"此函数暂时无法编译"并回退到解释执行，
// 分配器本身不做重试
var (
	// ErrAllocationTooLarge 单次放置超过了一个块所能容纳的上限
	ErrAllocationTooLarge = errors.New("codegen: allocation exceeds block capacity")

	// ErrTotalSizeLimit 达到全局内存上限，不再申请新块
	ErrTotalSizeLimit = errors.New("codegen: total code size limit reached")

	// ErrUnwindInfoCreation 新块的展开信息注册失败
	ErrUnwindInfoCreation = errors.New("codegen: failed to create block unwind info")
)

// CodeAllocator 可执行内存分配器
//
// 单写者使用：并发调用 Allocate/Close 是未定义行为，必须由调用方串行化。
// 已放置的代码可以被任意线程执行——页面切换为可执行之后，
// 分配器不会再写入该区域。
type CodeAllocator struct {
	blockSize    int // 每个块的字节数
	maxTotalSize int // 所有块的总字节数上限

	// 当前正在填充的块以及块内游标
	// blockPos 在每次放置完成后保持页对齐
	cur      []byte
	blockPos int
	blockEnd int

	// 所有已申请的块，只增不减
	blocks [][]byte

	// 展开信息回调与已注册的句柄（与块一一对应，可少于块数）
	unwind      UnwindInfoRegistry
	unwindInfos []any

	stats  allocatorStats
	logger *zap.Logger
	closed bool
}

// NewCodeAllocator 创建可执行内存分配器
//
// blockSize 是每个内存块的字节数，maxTotalSize 是所有块的总字节数上限。
// unwind 可以为 nil，表示不注册栈展开信息；logger 为 nil 时不输出日志。
// 参数违反不变量时 panic：这是配置错误而非运行时条件。
func NewCodeAllocator(blockSize, maxTotalSize int, unwind UnwindInfoRegistry, logger *zap.Logger) *CodeAllocator {
	if blockSize <= maxUnwindDataSize {
		panic(fmt.Sprintf("codegen: block size %d must exceed max unwind data size %d", blockSize, maxUnwindDataSize))
	}
	if maxTotalSize < blockSize {
		panic(fmt.Sprintf("codegen: total size limit %d smaller than block size %d", maxTotalSize, blockSize))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CodeAllocator{
		blockSize:    blockSize,
		maxTotalSize: maxTotalSize,
		unwind:       unwind,
		logger:       logger,
	}
}

// Allocate 将一段只读数据和一段机器码放置到可执行内存中
//
// data 是只读常量区（如跳转表、字面量池），code 是指令流，二者都可以为空。
// 数据长度向上取整到 16 字节，实际字节靠后放置、紧贴代码起始，
// 对齐产生的空洞位于数据之前。放置成功后对应页面整页切换为读+执行。
//
// 返回值 result 覆盖 [对齐后的数据][代码]，codeStart 是第一条指令的地址，
// 可作为生成代码的调用入口。放置失败时分配器状态不变。
func (a *CodeAllocator) Allocate(data, code []byte) (result []byte, codeStart uintptr, err error) {
	// 向上取整到 16 字节，保持代码起始地址的对齐
	alignedDataSize := alignTo(len(data), 16)
	totalSize := alignedDataSize + len(code)

	// 单个函数必须连同展开信息一起放进一个块，不允许跨块
	if totalSize > a.blockSize-maxUnwindDataSize {
		return nil, 0, fmt.Errorf("%w: need %d bytes, a block holds at most %d",
			ErrAllocationTooLarge, totalSize, a.blockSize-maxUnwindDataSize)
	}

	unwindInfoSize := 0

	// 当前块放不下时申请新块
	if totalSize > a.blockEnd-a.blockPos {
		unwindInfoSize, err = a.allocateNewBlock()
		if err != nil {
			return nil, 0, err
		}
	}

	// 每次放置都从页边界开始
	if a.blockPos%pageSize != 0 {
		panic("codegen: allocation does not start on page boundary")
	}

	dataOffset := a.blockPos + unwindInfoSize + alignedDataSize - len(data)
	codeOffset := a.blockPos + unwindInfoSize + alignedDataSize

	copy(a.cur[dataOffset:], data)
	copy(a.cur[codeOffset:], code)

	// 整页切换为可执行；指令缓存同步只覆盖代码子区间
	flipSize := alignToPageSize(unwindInfoSize + totalSize)
	if flipSize > 0 {
		makePagesExecutable(a.cur[a.blockPos : a.blockPos+flipSize])
		syncInstructionCache(a.cur[codeOffset : codeOffset+len(code)])
	}

	start := a.blockPos + unwindInfoSize
	result = a.cur[start : start+totalSize : start+totalSize]
	if a.cur != nil {
		codeStart = uintptr(unsafe.Pointer(&a.cur[0])) + uintptr(codeOffset)
	}

	// 游标按页推进，逻辑末尾到页边界之间的空隙不再复用，
	// 保证相邻放置不共享页面
	a.blockPos += flipSize
	if a.blockPos%pageSize != 0 {
		panic("codegen: allocation does not end on page boundary")
	}

	a.stats.placements.Inc()
	a.stats.bytesPlaced.Add(uint64(totalSize))

	return result, codeStart, nil
}

// allocateNewBlock 申请一个新块并注册展开信息
// 返回展开信息在块起始处占用的字节数（已取整到 16 字节）
func (a *CodeAllocator) allocateNewBlock() (int, error) {
	// 先检查全局上限，再进行系统调用
	if (len(a.blocks)+1)*a.blockSize > a.maxTotalSize {
		return 0, fmt.Errorf("%w: %d blocks of %d bytes would exceed %d",
			ErrTotalSizeLimit, len(a.blocks)+1, a.blockSize, a.maxTotalSize)
	}

	block, err := reserveAndCommit(a.blockSize)
	if err != nil {
		return 0, fmt.Errorf("codegen: block allocation failed: %w", err)
	}

	a.cur = block
	a.blockPos = 0
	a.blockEnd = a.blockSize
	a.blocks = append(a.blocks, block)

	a.stats.blocksAllocated.Inc()
	a.stats.bytesReserved.Add(uint64(a.blockSize))

	a.logger.Debug("codegen: allocated new code block",
		zap.Int("blockSize", a.blockSize),
		zap.Int("blocks", len(a.blocks)))

	unwindInfoSize := 0

	if a.unwind != nil {
		handle, size, err := a.unwind.CreateBlockUnwindInfo(block)

		// 向上取整到 16 字节，保持后续数据与代码的对齐
		unwindInfoSize = alignTo(size, 16)

		// 保留空间由同一调用方配置，超出说明配置不一致
		if unwindInfoSize > maxUnwindDataSize {
			panic(fmt.Sprintf("codegen: unwind info size %d exceeds reserved maximum %d", unwindInfoSize, maxUnwindDataSize))
		}

		if err != nil {
			// 块保持映射，连同其它块在 Close 时统一释放
			return 0, fmt.Errorf("%w: %w", ErrUnwindInfoCreation, err)
		}

		a.unwindInfos = append(a.unwindInfos, handle)
	}

	return unwindInfoSize, nil
}

// Stats 返回统计信息快照，可从任意线程调用
func (a *CodeAllocator) Stats() Stats {
	return a.stats.snapshot()
}

// Close 销毁分配器：按创建顺序注销所有展开信息句柄，然后释放所有块
//
// 调用方必须保证此后不再执行任何已放置的代码。重复调用是无害的。
func (a *CodeAllocator) Close() {
	if a.closed {
		return
	}
	a.closed = true

	if a.unwind != nil {
		for _, handle := range a.unwindInfos {
			a.unwind.DestroyBlockUnwindInfo(handle)
		}
	}

	for _, block := range a.blocks {
		releasePages(block)
	}

	a.logger.Debug("codegen: allocator closed",
		zap.Int("blocks", len(a.blocks)),
		zap.Int("unwindInfos", len(a.unwindInfos)))

	a.blocks = nil
	a.unwindInfos = nil
	a.cur = nil
	a.blockPos = 0
	a.blockEnd = 0
}
