package linkstatus_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/multilink-proxy/internal/linkstatus"
	"github.com/angeloszaimis/multilink-proxy/internal/stats"
)

func healthyStats(alias string, requests int) stats.ServerStats {
	s := stats.New(alias)
	for i := 0; i < requests; i++ {
		s.RecordSuccess(10*time.Millisecond, false)
	}
	return s
}

func downStats(alias string, requests int) stats.ServerStats {
	s := stats.New(alias)
	for i := 0; i < requests; i++ {
		s.RecordFailure(stats.FailureNetworkDown)
	}
	return s
}

var _ = Describe("Aggregate", func() {
	It("should compute success and load percentages", func() {
		s := healthyStats("a", 3)
		s.RecordFailure(stats.FailureBadRequest)
		servers := []stats.ServerStats{s, downStats("b", 4)}

		m := linkstatus.Aggregate(servers)

		Expect(m.TotalRequests).To(Equal(uint64(8)))
		Expect(m.Links).To(HaveLen(2))
		Expect(m.Links[0].SuccessPct).To(BeNumerically("~", 75.0, 1e-9))
		Expect(m.Links[1].SuccessPct).To(BeNumerically("~", 0.0, 1e-9))
		Expect(m.Links[0].LoadPct).To(BeNumerically("~", 50.0, 1e-9))
		Expect(m.Links[1].LoadPct).To(BeNumerically("~", 50.0, 1e-9))
		Expect(m.Links[0].RespTimeMs).To(BeNumerically("~", 10.0, 1e-9))
	})

	It("should keep links aligned with servers that have no requests", func() {
		servers := []stats.ServerStats{
			healthyStats("a", 2),
			stats.New("idle"),
			healthyStats("c", 6),
		}

		m := linkstatus.Aggregate(servers)

		Expect(m.Links[0].Alias).To(Equal("a"))
		Expect(m.Links[1].Alias).To(Equal("idle"))
		Expect(m.Links[2].Alias).To(Equal("c"))

		Expect(math.IsNaN(m.Links[1].SuccessPct)).To(BeTrue())
		Expect(m.Links[1].LoadPct).To(BeZero())
		Expect(math.IsNaN(m.Links[1].HealthScore)).To(BeTrue())
	})

	It("should sum load percentages to 100", func() {
		servers := []stats.ServerStats{
			healthyStats("a", 1),
			healthyStats("b", 7),
			downStats("c", 3),
			healthyStats("d", 11),
		}

		m := linkstatus.Aggregate(servers)

		var sum float64
		for _, l := range m.Links {
			sum += l.LoadPct
		}
		Expect(sum).To(BeNumerically("~", 100.0, 1e-9))
	})

	It("should leave load unset when there is no traffic", func() {
		m := linkstatus.Aggregate([]stats.ServerStats{stats.New("a"), stats.New("b")})

		Expect(m.TotalRequests).To(BeZero())
		for _, l := range m.Links {
			Expect(math.IsNaN(l.LoadPct)).To(BeTrue())
			Expect(math.IsNaN(l.SuccessPct)).To(BeTrue())
		}
	})

	It("should only count positive finite scores as healthy", func() {
		m := linkstatus.Aggregate([]stats.ServerStats{
			healthyStats("a", 1),
			downStats("b", 1),
			stats.New("c"),
			healthyStats("d", 1),
		})

		Expect(m.Healthy).To(Equal(2))
	})
})

var _ = Describe("StatusOf", func() {
	DescribeTable("decision table",
		func(found bool, servers, healthy int, want linkstatus.Status) {
			Expect(linkstatus.StatusOf(found, servers, healthy)).To(Equal(want))
		},
		Entry("not found", false, 4, 4, linkstatus.StatusDisabled),
		Entry("no servers", true, 0, 0, linkstatus.StatusNoConfig),
		Entry("no healthy server", true, 4, 0, linkstatus.StatusDown),
		Entry("exactly half healthy", true, 4, 2, linkstatus.StatusDegraded),
		Entry("one of three healthy", true, 3, 1, linkstatus.StatusDegraded),
		Entry("majority healthy", true, 4, 3, linkstatus.StatusOK),
		Entry("all healthy", true, 1, 1, linkstatus.StatusOK),
	)
})
