package tasksvc

import (
	"sync/atomic"
	"time"

	"github.com/twinj/uuid"
)

var lastCreated int64

// Now returns a UTC creation timestamp in microseconds that is strictly
// greater than any value returned before it in this process. SQL stores keep
// microsecond precision, so ties never collapse two records.
func Now() time.Time {
	for {
		now := time.Now().UnixMicro()
		last := atomic.LoadInt64(&lastCreated)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastCreated, last, now) {
			return time.UnixMicro(now).UTC()
		}
	}
}

func NewID() string {
	return uuid.NewV4().String()
}
