// unwind_test.go - 栈展开信息回调测试

package codegen

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingUnwindRegistry 记录 create/destroy 调用的测试实现
// 在每个块起始处写入 reserve 字节的占位元数据
type recordingUnwindRegistry struct {
	reserve   int
	failNext  bool
	nextID    int
	created   []any
	destroyed []any
}

func (r *recordingUnwindRegistry) CreateBlockUnwindInfo(block []byte) (any, int, error) {
	if r.failNext {
		return nil, 0, errors.New("unwind table exhausted")
	}

	for i := 0; i < r.reserve; i++ {
		block[i] = 0xEE
	}

	r.nextID++
	r.created = append(r.created, r.nextID)
	return r.nextID, r.reserve, nil
}

func (r *recordingUnwindRegistry) DestroyBlockUnwindInfo(handle any) {
	r.destroyed = append(r.destroyed, handle)
}

// TestUnwindReserveShiftsLayout 测试展开信息占用块起始空间
func TestUnwindReserveShiftsLayout(t *testing.T) {
	reg := &recordingUnwindRegistry{reserve: 8}
	a := NewCodeAllocator(65536, 1<<20, reg, nil)
	defer a.Close()

	data := testPattern(10, 0x10)
	code := testPattern(20, 0x80)

	result, codeStart, err := a.Allocate(data, code)
	require.NoError(t, err)
	require.Equal(t, 1, len(reg.created))

	// 8 字节取整到 16；区域从展开信息之后开始
	block := a.blocks[0]
	for i := 0; i < 8; i++ {
		assert.Equal(t, byte(0xEE), block[i], "unwind metadata byte %d", i)
	}

	require.Equal(t, 36, len(result))
	assert.Equal(t, data, result[6:16])
	assert.Equal(t, code, result[16:36])
	blockStart := uintptr(unsafe.Pointer(&block[0]))
	assert.Equal(t, uintptr(16+16), codeStart-blockStart)
}

// TestUnwindDestroyPairing 测试每个成功创建的句柄在关闭时恰好销毁一次
func TestUnwindDestroyPairing(t *testing.T) {
	reg := &recordingUnwindRegistry{reserve: 16}
	blockSize := 4 * pageSize
	a := NewCodeAllocator(blockSize, 16*blockSize, reg, nil)

	// 每次放置占满一个块的可用空间，强制申请多个块
	chunk := blockSize - maxUnwindDataSize
	for i := 0; i < 3; i++ {
		_, _, err := a.Allocate(nil, testPattern(chunk, byte(i)))
		require.NoError(t, err)
	}
	require.Equal(t, 3, len(reg.created))
	require.Empty(t, reg.destroyed)

	a.Close()

	// 按创建顺序销毁
	assert.Equal(t, reg.created, reg.destroyed)
}

// TestUnwindCreateFailure 测试展开信息创建失败
func TestUnwindCreateFailure(t *testing.T) {
	reg := &recordingUnwindRegistry{reserve: 16, failNext: true}
	a := NewCodeAllocator(65536, 1<<20, reg, nil)
	defer a.Close()

	_, _, err := a.Allocate(nil, testPattern(100, 0x42))
	require.ErrorIs(t, err, ErrUnwindInfoCreation)

	// 块保持映射，统一在 Close 时释放；没有句柄被登记
	assert.Equal(t, 1, len(a.blocks))
	assert.Equal(t, uint64(1), a.Stats().BlocksAllocated)
	assert.Zero(t, a.Stats().Placements)
	assert.Empty(t, a.unwindInfos)
}

// TestUnwindReserveOverflow 测试展开信息超过保留上限
func TestUnwindReserveOverflow(t *testing.T) {
	reg := &recordingUnwindRegistry{reserve: maxUnwindDataSize + 1}
	a := NewCodeAllocator(65536, 1<<20, reg, nil)
	defer a.Close()

	// 保留空间由同一调用方配置，超出属于致命的配置错误
	assert.Panics(t, func() {
		a.Allocate(nil, testPattern(100, 0x42))
	})
}

// TestNoHookNoCalls 测试未配置回调时关闭不做任何回调
func TestNoHookNoCalls(t *testing.T) {
	a := NewCodeAllocator(65536, 1<<20, nil, nil)

	_, _, err := a.Allocate(nil, testPattern(100, 0x42))
	require.NoError(t, err)
	assert.Empty(t, a.unwindInfos)

	assert.NotPanics(t, func() { a.Close() })
}
