package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	selections    map[string]int64
	forwards      map[string]int64
	failures      map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	reachable     map[string]bool
	rejections    map[string]int64
	startTime     time.Time
}

type Snapshot struct {
	TotalForwards int64                      `json:"total_forwards"`
	TotalFailures int64                      `json:"total_failures"`
	Uptime        time.Duration              `json:"uptime"`
	Endpoints     map[string]EndpointMetrics `json:"endpoints"`
	Rejections    map[string]int64           `json:"rejections"`
}

type EndpointMetrics struct {
	Selections  int64         `json:"selections"`
	Forwards    int64         `json:"forwards"`
	Failures    int64         `json:"failures"`
	Reachable   bool          `json:"reachable"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

func (m *Metrics) RecordSelection(endpoint string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.selections[endpoint]++
}

// RecordForward records one upstream call. statusCode is 0 when no response
// was received.
func (m *Metrics) RecordForward(endpoint string, duration time.Duration, statusCode int, success bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.forwards[endpoint]++
	if !success {
		m.failures[endpoint]++
	}

	m.responseTimes[endpoint] = append(m.responseTimes[endpoint], duration)
	if len(m.responseTimes[endpoint]) > maxSamples {
		m.responseTimes[endpoint] = m.responseTimes[endpoint][1:]
	}

	if statusCode != 0 {
		if m.statusCodes[endpoint] == nil {
			m.statusCodes[endpoint] = make(map[int]int64)
		}
		m.statusCodes[endpoint][statusCode]++
	}
}

func (m *Metrics) RecordProbe(endpoint string, reachable bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.reachable[endpoint] = reachable
}

func (m *Metrics) RecordRejection(reason string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rejections[reason]++
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:     time.Since(m.startTime),
		Endpoints:  make(map[string]EndpointMetrics),
		Rejections: make(map[string]int64, len(m.rejections)),
	}

	for reason, n := range m.rejections {
		snap.Rejections[reason] = n
	}

	all := make(map[string]bool)
	for e := range m.selections {
		all[e] = true
	}
	for e := range m.forwards {
		all[e] = true
	}
	for e := range m.reachable {
		all[e] = true
	}

	for e := range all {
		snap.TotalForwards += m.forwards[e]
		snap.TotalFailures += m.failures[e]

		em := EndpointMetrics{
			Selections:  m.selections[e],
			Forwards:    m.forwards[e],
			Failures:    m.failures[e],
			Reachable:   m.reachable[e],
			StatusCodes: copyCodes(m.statusCodes[e]),
		}

		durations := m.responseTimes[e]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			em.AvgResponse = average(sorted)
			em.P50Response = percentile(sorted, 0.50)
			em.P95Response = percentile(sorted, 0.95)
			em.P99Response = percentile(sorted, 0.99)
		}

		snap.Endpoints[e] = em
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		selections:    make(map[string]int64),
		forwards:      make(map[string]int64),
		failures:      make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		reachable:     make(map[string]bool),
		rejections:    make(map[string]int64),
		startTime:     time.Now(),
	}
}

func copyCodes(src map[int]int64) map[int]int64 {
	if src == nil {
		return nil
	}
	dst := make(map[int]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
