package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64
	uploads         uint64
	uploadBytes     uint64
	loginFailures   uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordUpload(size int64) {
	if c == nil || size < 0 {
		return
	}
	atomic.AddUint64(&c.uploads, 1)
	atomic.AddUint64(&c.uploadBytes, uint64(size))
}

func (c *Collector) RecordLoginFailure() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.loginFailures, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":      total,
		"errorsTotal":        atomic.LoadUint64(&c.errorRequests),
		"rateLimitedTotal":   atomic.LoadUint64(&c.rateLimited),
		"avgDurationMs":      avg,
		"totalDurationMs":    totalMs,
		"uploadsTotal":       atomic.LoadUint64(&c.uploads),
		"uploadBytesTotal":   atomic.LoadUint64(&c.uploadBytes),
		"loginFailuresTotal": atomic.LoadUint64(&c.loginFailures),
	}
}
