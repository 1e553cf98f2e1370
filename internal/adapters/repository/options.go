package repository

// diskConfig holds tunables for the disk-backed store.
type diskConfig struct {
	cacheSizeMax uint64
}

// DiskOption applies a configuration option to a DiskStore.
type DiskOption func(*diskConfig)

// WithCacheSize sets the diskv read cache size in bytes.
func WithCacheSize(bytes uint64) DiskOption {
	return func(c *diskConfig) {
		if bytes > 0 {
			c.cacheSizeMax = bytes
		}
	}
}
