// stats.go - 分配器统计

package codegen

import "go.uber.org/atomic"

// Stats 分配器统计信息快照
type Stats struct {
	BlocksAllocated uint64 `json:"blocks_allocated"` // 已申请的块数
	BytesReserved   uint64 `json:"bytes_reserved"`   // 已向系统申请的字节数
	BytesPlaced     uint64 `json:"bytes_placed"`     // 已放置的数据+代码字节数
	Placements      uint64 `json:"placements"`       // 成功放置的次数
}

// allocatorStats 内部计数器
// 写入只发生在单写者的 Allocate 路径上，
// 使用原子计数器以便其它线程随时读取一致的快照
type allocatorStats struct {
	blocksAllocated atomic.Uint64
	bytesReserved   atomic.Uint64
	bytesPlaced     atomic.Uint64
	placements      atomic.Uint64
}

func (s *allocatorStats) snapshot() Stats {
	return Stats{
		BlocksAllocated: s.blocksAllocated.Load(),
		BytesReserved:   s.bytesReserved.Load(),
		BytesPlaced:     s.bytesPlaced.Load(),
		Placements:      s.placements.Load(),
	}
}
