package articlecache

import "errors"

var (
	ErrCacheMiss = errors.New("articles not cached")
	// ErrStaleVersion is returned by a fill whose version was invalidated
	// after it was read. The fill is dropped.
	ErrStaleVersion = errors.New("articles cache version changed")
)
