package provider

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// ProviderStatus represents the health state of a provider.
type ProviderStatus int

const (
	StatusHealthy   ProviderStatus = iota // answering normally
	StatusDegraded                        // answering slowly
	StatusThrottled                       // node asked us to back off
	StatusBlocked                         // node refused us (403)
)

func (s ProviderStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in health reports.
func (s ProviderStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	latencyWindow       = 100
	slowResponse        = 3 * time.Second
	throttleAfter429s   = 3
	defaultRetryAfter   = 60 * time.Second
	blockedRetryAfter   = 10 * time.Minute
	requestBucketsCount = 60 // one per minute
)

// MonitorStats is a snapshot of a ProviderMonitor.
type MonitorStats struct {
	Status             ProviderStatus `json:"status"`
	AverageLatency     time.Duration  `json:"average_latency"`
	ThrottleCount429   int            `json:"throttle_count_429"`
	ThrottleCount403   int            `json:"throttle_count_403"`
	RetryAfter         time.Duration  `json:"retry_after"`
	LastThrottleAt     time.Time      `json:"last_throttle_at"`
	RequestsLastHour   int            `json:"requests_last_hour"`
	RequestsLastMinute int            `json:"requests_last_minute"`
}

// ProviderMonitor tracks latency and throttling signals of one node endpoint.
// A batch call counts as one request.
type ProviderMonitor struct {
	mu sync.RWMutex

	latencies  [latencyWindow]time.Duration
	latencyIdx int
	latencyLen int

	status429Count  int
	status403Count  int
	consecutive429s int
	lastThrottle    time.Time
	lastStatus      int
	retryAfter      time.Duration

	// requests per minute over the last hour, indexed by unix minute
	buckets      [requestBucketsCount]int
	bucketMinute [requestBucketsCount]int64

	throttlePatterns []string
	now              func() time.Time
}

// NewProviderMonitor creates a monitor with the common node throttle phrases.
func NewProviderMonitor() *ProviderMonitor {
	return &ProviderMonitor{
		throttlePatterns: []string{
			"rate limit exceeded",
			"too many requests",
			"daily request count exceeded",
			"project rate limit",
			"monthly quota exceeded",
			"exceeded the limit",
			"over rate limit",
		},
		now: time.Now,
	}
}

// RecordRequest records a successful request with its latency.
func (pm *ProviderMonitor) RecordRequest(latency time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.latencies[pm.latencyIdx] = latency
	pm.latencyIdx = (pm.latencyIdx + 1) % latencyWindow
	if pm.latencyLen < latencyWindow {
		pm.latencyLen++
	}
	pm.consecutive429s = 0

	minute := pm.now().Unix() / 60
	i := int(minute % requestBucketsCount)
	if pm.bucketMinute[i] != minute {
		pm.bucketMinute[i] = minute
		pm.buckets[i] = 0
	}
	pm.buckets[i]++
}

// RecordThrottle records a 429 or 403 response.
// retryAfter is the raw Retry-After header in seconds; 60s is assumed when absent.
func (pm *ProviderMonitor) RecordThrottle(statusCode int, retryAfter string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.lastThrottle = pm.now()
	pm.lastStatus = statusCode

	switch statusCode {
	case 429:
		pm.status429Count++
		pm.consecutive429s++
		pm.retryAfter = defaultRetryAfter
		if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs >= 0 {
			pm.retryAfter = time.Duration(secs) * time.Second
		}
	case 403:
		pm.status403Count++
		pm.retryAfter = blockedRetryAfter
	}
}

// DetectThrottlePattern reports whether an error message reads like a rate limit.
func (pm *ProviderMonitor) DetectThrottlePattern(message string) bool {
	lower := strings.ToLower(message)
	for _, pattern := range pm.throttlePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// CheckProviderStatus returns the current status of the provider.
func (pm *ProviderMonitor) CheckProviderStatus() ProviderStatus {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.statusLocked()
}

func (pm *ProviderMonitor) statusLocked() ProviderStatus {
	backingOff := pm.now().Sub(pm.lastThrottle) < pm.retryAfter

	if backingOff && pm.lastStatus == 403 {
		return StatusBlocked
	}
	// A single 429 is left to the retry loop; repeated ones pause the provider.
	if backingOff && pm.consecutive429s >= throttleAfter429s {
		return StatusThrottled
	}
	if pm.latencyLen > 10 && pm.averageLatencyLocked() > slowResponse {
		return StatusDegraded
	}
	return StatusHealthy
}

// GetRetryAfter returns remaining time before retry is allowed.
func (pm *ProviderMonitor) GetRetryAfter() time.Duration {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.retryAfterLocked()
}

func (pm *ProviderMonitor) retryAfterLocked() time.Duration {
	if remaining := pm.retryAfter - pm.now().Sub(pm.lastThrottle); remaining > 0 {
		return remaining
	}
	return 0
}

func (pm *ProviderMonitor) averageLatencyLocked() time.Duration {
	if pm.latencyLen == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range pm.latencies[:pm.latencyLen] {
		total += lat
	}
	return total / time.Duration(pm.latencyLen)
}

// requestsLocked counts requests in the last n minutes, the current one included.
func (pm *ProviderMonitor) requestsLocked(n int) int {
	current := pm.now().Unix() / 60
	count := 0
	for i := range pm.buckets {
		if age := current - pm.bucketMinute[i]; age >= 0 && age < int64(n) {
			count += pm.buckets[i]
		}
	}
	return count
}

// GetStats returns current monitoring statistics.
func (pm *ProviderMonitor) GetStats() MonitorStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return MonitorStats{
		Status:             pm.statusLocked(),
		AverageLatency:     pm.averageLatencyLocked(),
		ThrottleCount429:   pm.status429Count,
		ThrottleCount403:   pm.status403Count,
		RetryAfter:         pm.retryAfterLocked(),
		LastThrottleAt:     pm.lastThrottle,
		RequestsLastHour:   pm.requestsLocked(requestBucketsCount),
		RequestsLastMinute: pm.requestsLocked(1),
	}
}
