package cache

import "time"

// Entry 代表缓存中的一个条目，只由所属 Store 在持锁时读写。
type Entry struct {
	Key            string
	Value          interface{}
	Metadata       interface{}
	ExpiresAt      time.Time // 零值表示永不过期
	InsertedAt     time.Time
	LastAccessedAt time.Time
	Hits           int64
	Size           int64

	// 逻辑序号，在时间戳相同的情况下保证顺序确定
	insertSeq uint64
	accessSeq uint64

	etag string // 惰性计算，覆盖写入时清空
}

func (e *Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

func (e *Entry) info() EntryInfo {
	return EntryInfo{
		Key:            e.Key,
		Value:          e.Value,
		Metadata:       e.Metadata,
		ExpiresAt:      e.ExpiresAt,
		InsertedAt:     e.InsertedAt,
		LastAccessedAt: e.LastAccessedAt,
		Hits:           e.Hits,
		Size:           e.Size,
	}
}
