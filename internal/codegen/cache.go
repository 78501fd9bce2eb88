// cache.go - 已编译函数缓存
//
// 按名字登记已放置到可执行内存的函数入口。
// 内容哈希用于判断同名函数是否需要重新放置；
// 被替换的条目占用的内存不会回收（arena 语义），只是不再被索引。

package codegen

import (
	"encoding/binary"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// CompiledFunc 一个已放置到可执行内存的函数
type CompiledFunc struct {
	Name   string                   // 函数名
	Hash   [blake2b.Size256]byte    // (data, code) 内容哈希
	Entry  uintptr                  // 可调用入口（第一条指令的地址）
	Region []byte                   // 放置区域（对齐后的数据+代码）
}

// CodeCache 按名字索引的已编译函数注册表
//
// 写入路径与分配器一样是单写者；读取可以来自任意线程。
type CodeCache struct {
	mu        sync.RWMutex
	allocator *CodeAllocator
	entries   map[string]*CompiledFunc
	byAddr    map[uintptr]*CompiledFunc
}

// NewCodeCache 创建已编译函数缓存
func NewCodeCache(allocator *CodeAllocator) *CodeCache {
	return &CodeCache{
		allocator: allocator,
		entries:   make(map[string]*CompiledFunc),
		byAddr:    make(map[uintptr]*CompiledFunc),
	}
}

// contentHash 计算 (data, code) 的内容哈希
// 数据长度参与哈希，避免数据与代码的边界移动产生同样的哈希
func contentHash(data, code []byte) [blake2b.Size256]byte {
	h, _ := blake2b.New256(nil)

	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(data)))
	h.Write(n[:])
	h.Write(data)
	h.Write(code)

	var out [blake2b.Size256]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Install 放置函数并登记入口
// 同名且内容相同的函数直接复用已有条目，不占用新的内存；
// 内容变化时放置新区域并替换索引。
func (c *CodeCache) Install(name string, data, code []byte) (*CompiledFunc, error) {
	hash := contentHash(data, code)

	c.mu.RLock()
	existing := c.entries[name]
	c.mu.RUnlock()

	if existing != nil && existing.Hash == hash {
		return existing, nil
	}

	region, entry, err := c.allocator.Allocate(data, code)
	if err != nil {
		return nil, err
	}

	fn := &CompiledFunc{
		Name:   name,
		Hash:   hash,
		Entry:  entry,
		Region: region,
	}

	c.mu.Lock()
	if existing != nil {
		delete(c.byAddr, existing.Entry)
	}
	c.entries[name] = fn
	c.byAddr[entry] = fn
	c.mu.Unlock()

	return fn, nil
}

// Lookup 按名字查找已编译的函数
func (c *CodeCache) Lookup(name string) (*CompiledFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.entries[name]
	return fn, ok
}

// LookupAddr 按入口地址查找已编译的函数
func (c *CodeCache) LookupAddr(addr uintptr) (*CompiledFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.byAddr[addr]
	return fn, ok
}

// Len 返回当前登记的函数数量
func (c *CodeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
