package port

// Cache is the slice of the TTL cache the use cases depend on.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Invalidate(key K)
	Len() int
}
