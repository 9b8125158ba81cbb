package kvstore

// Store is a durable key value store for small JSON payloads. Lookups
// report presence separately from failure so callers can tell a missing
// key from an unreadable one.
type Store interface {
	GetItem(key string) ([]byte, bool, error)
	SetItem(key string, value []byte) error
}
