package model

import "time"

// StoreEntry одна запись для атомарной пакетной записи в хранилище
type StoreEntry struct {
	Key   string
	Value string
	TTL   time.Duration
}
