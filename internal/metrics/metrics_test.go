package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/label-gateway/internal/metrics"
)

var _ = Describe("Metrics", func() {
	const endpointA = "http://a.example.com"
	const endpointB = "http://b.example.com"

	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("RecordSelection", func() {
		It("should count selections per endpoint", func() {
			m.RecordSelection(endpointA)
			m.RecordSelection(endpointA)
			m.RecordSelection(endpointB)

			snap := m.Snapshot()
			Expect(snap.Endpoints[endpointA].Selections).To(Equal(int64(2)))
			Expect(snap.Endpoints[endpointB].Selections).To(Equal(int64(1)))
		})
	})

	Describe("RecordForward", func() {
		It("should record latency, status codes and failures", func() {
			m.RecordForward(endpointA, 100*time.Millisecond, 200, true)
			m.RecordForward(endpointA, 200*time.Millisecond, 502, false)
			m.RecordForward(endpointA, 300*time.Millisecond, 0, false)

			snap := m.Snapshot()
			e := snap.Endpoints[endpointA]

			Expect(e.Forwards).To(Equal(int64(3)))
			Expect(e.Failures).To(Equal(int64(2)))
			Expect(e.AvgResponse).To(Equal(200 * time.Millisecond))
			Expect(e.StatusCodes).To(Equal(map[int]int64{200: 1, 502: 1}))
			Expect(snap.TotalForwards).To(Equal(int64(3)))
			Expect(snap.TotalFailures).To(Equal(int64(2)))
		})

		It("should calculate percentiles", func() {
			for i := 1; i <= 100; i++ {
				m.RecordForward(endpointA, time.Duration(i)*time.Millisecond, 200, true)
			}

			e := m.Snapshot().Endpoints[endpointA]
			Expect(e.P50Response).To(BeNumerically("~", 50*time.Millisecond, time.Millisecond))
			Expect(e.P95Response).To(BeNumerically("~", 95*time.Millisecond, time.Millisecond))
			Expect(e.P99Response).To(BeNumerically("~", 99*time.Millisecond, time.Millisecond))
		})

		It("should keep only the most recent samples", func() {
			for i := 1; i <= 1500; i++ {
				m.RecordForward(endpointA, time.Duration(i)*time.Millisecond, 200, true)
			}

			e := m.Snapshot().Endpoints[endpointA]
			Expect(e.AvgResponse).To(BeNumerically(">", 500*time.Millisecond))
			Expect(e.Forwards).To(Equal(int64(1500)))
		})
	})

	Describe("RecordProbe", func() {
		It("should track the last probe result", func() {
			m.RecordProbe(endpointA, true)
			Expect(m.Snapshot().Endpoints[endpointA].Reachable).To(BeTrue())

			m.RecordProbe(endpointA, false)
			Expect(m.Snapshot().Endpoints[endpointA].Reachable).To(BeFalse())
		})
	})

	Describe("RecordRejection", func() {
		It("should count rejections by reason", func() {
			m.RecordRejection("missing_image")
			m.RecordRejection("missing_image")
			m.RecordRejection("missing_prompt")

			snap := m.Snapshot()
			Expect(snap.Rejections).To(Equal(map[string]int64{"missing_image": 2, "missing_prompt": 1}))
			Expect(snap.Endpoints).To(BeEmpty())
		})
	})

	Describe("Snapshot", func() {
		It("should handle empty metrics", func() {
			snap := m.Snapshot()
			Expect(snap.TotalForwards).To(BeZero())
			Expect(snap.Endpoints).To(BeEmpty())
		})

		It("should include uptime", func() {
			time.Sleep(5 * time.Millisecond)
			Expect(m.Snapshot().Uptime).To(BeNumerically(">", 0))
		})

		It("should not share status code maps with later updates", func() {
			m.RecordForward(endpointA, time.Millisecond, 200, true)
			snap := m.Snapshot()

			m.RecordForward(endpointA, time.Millisecond, 200, true)
			Expect(snap.Endpoints[endpointA].StatusCodes[200]).To(Equal(int64(1)))
		})
	})
})
