// export_test.go exposes internals for white-box testing.
package cas

// SetDiskFree overrides the free-space probe used by Trim.
func (s *Store) SetDiskFree(fn func(path string) (uint64, error)) {
	s.diskFree = fn
}

// Resident returns the current LRU order, oldest first.
func (s *Store) Resident() []string {
	out := make([]string, len(s.lru))
	copy(out, s.lru)
	return out
}
