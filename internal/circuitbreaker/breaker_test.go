package circuitbreaker_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/multilink-proxy/internal/circuitbreaker"
)

var _ = Describe("CircuitBreaker", func() {
	var (
		cb  *circuitbreaker.CircuitBreaker
		now time.Time
	)

	BeforeEach(func() {
		now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		cb = circuitbreaker.NewCircuitBreaker(3, 30*time.Second)
		cb.SetClock(func() time.Time { return now })
	})

	trip := func() {
		cb.RecordFailure()
		cb.RecordFailure()
		cb.RecordFailure()
		Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
	}

	It("should start closed", func() {
		Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		Expect(cb.Allow()).To(BeTrue())
	})

	It("should stay closed below the threshold", func() {
		cb.RecordFailure()
		cb.RecordFailure()
		Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		Expect(cb.Allow()).To(BeTrue())
	})

	It("should clamp the threshold to one", func() {
		single := circuitbreaker.NewCircuitBreaker(0, time.Second)
		single.RecordFailure()
		Expect(single.State()).To(Equal(circuitbreaker.StateOpen))
	})

	Context("when open", func() {
		BeforeEach(trip)

		It("should block requests before the reset timeout", func() {
			now = now.Add(29 * time.Second)
			Expect(cb.Allow()).To(BeFalse())
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
		})

		It("should become half-open after the reset timeout", func() {
			now = now.Add(30 * time.Second)
			Expect(cb.Allow()).To(BeTrue())
			Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
		})

		It("should report readiness without leaving the open state", func() {
			Expect(cb.Ready()).To(BeFalse())

			now = now.Add(30 * time.Second)
			Expect(cb.Ready()).To(BeTrue())
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
		})
	})

	Context("when half-open", func() {
		BeforeEach(func() {
			trip()
			now = now.Add(time.Minute)
			Expect(cb.Allow()).To(BeTrue())
		})

		It("should let a single trial request through", func() {
			Expect(cb.Allow()).To(BeFalse())
			Expect(cb.Ready()).To(BeFalse())
		})

		It("should free the trial slot when the trial is abandoned", func() {
			cb.Abandon()
			Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
			Expect(cb.Ready()).To(BeTrue())
			Expect(cb.Allow()).To(BeTrue())
			Expect(cb.Allow()).To(BeFalse())
		})

		It("should close on success", func() {
			cb.RecordSuccess()
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(cb.Allow()).To(BeTrue())
			Expect(cb.Allow()).To(BeTrue())
		})

		It("should reopen on failure and restart the timeout", func() {
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))

			now = now.Add(10 * time.Second)
			Expect(cb.Allow()).To(BeFalse())
		})
	})

	It("should reset the failure count on success", func() {
		cb.RecordFailure()
		cb.RecordFailure()
		cb.RecordSuccess()
		cb.RecordFailure()
		Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
	})

	DescribeTable("State.String",
		func(state circuitbreaker.State, expected string) {
			Expect(state.String()).To(Equal(expected))
		},
		Entry("closed", circuitbreaker.StateClosed, "CLOSED"),
		Entry("open", circuitbreaker.StateOpen, "OPEN"),
		Entry("half-open", circuitbreaker.StateHalfOpen, "HALF-OPEN"),
		Entry("unknown", circuitbreaker.State(7), "UNKNOWN"),
	)
})
