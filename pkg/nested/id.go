package nested

import (
	"strconv"
	"sync/atomic"
)

// uidCounter is the source of generated node ids. IDs are never reused.
var uidCounter uint64

// NextID returns a fresh node id.
func NextID() string {
	return strconv.FormatUint(atomic.AddUint64(&uidCounter, 1), 10)
}
