package routing_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/multilink-proxy/internal/routing"
)

var _ = Describe("Table", func() {
	var table *routing.Table

	BeforeEach(func() {
		table = routing.NewTable(
			routing.NewLinkGroup("localnet", 44340, true,
				routing.TargetServer{Alias: "localnet-1", URL: "http://localhost:9000"},
				routing.TargetServer{Alias: "localnet-2", URL: "http://localhost:9001"},
			),
			routing.NewLinkGroup("testnet", 44342, false),
		)
	})

	Describe("NewTable", func() {
		It("should keep configuration order", func() {
			var names []string
			table.View(func(s *routing.State) {
				for _, lg := range s.LinkGroups() {
					names = append(names, lg.Name)
				}
			})
			Expect(names).To(Equal([]string{"localnet", "testnet"}))
		})

		It("should ignore duplicate names", func() {
			t := routing.NewTable(
				routing.NewLinkGroup("a", 1, true),
				routing.NewLinkGroup("a", 2, true),
			)
			t.View(func(s *routing.State) {
				Expect(s.LinkGroups()).To(HaveLen(1))
				Expect(s.FindLinkGroup("a").ProxyPort).To(Equal(1))
			})
		})
	})

	Describe("FindLinkGroup", func() {
		It("should find a group by name", func() {
			table.View(func(s *routing.State) {
				lg := s.FindLinkGroup("localnet")
				Expect(lg).NotTo(BeNil())
				Expect(lg.TargetServers).To(HaveLen(2))
				Expect(lg.Server(1).Alias).To(Equal("localnet-2"))
				Expect(lg.Server(2)).To(BeNil())
				Expect(lg.Server(-1)).To(BeNil())
			})
		})

		It("should return nil for unknown names", func() {
			table.View(func(s *routing.State) {
				Expect(s.FindLinkGroup("mainnet")).To(BeNil())
			})
		})
	})

	Describe("Update", func() {
		It("should make writes visible to later readers", func() {
			table.Update(func(s *routing.State) {
				s.FindLinkGroup("localnet").TargetServers[0].Stats.RecordSuccess(time.Millisecond, false)
			})

			table.View(func(s *routing.State) {
				requests, _ := s.FindLinkGroup("localnet").TargetServers[0].Stats.AccumStats()
				Expect(requests).To(Equal(uint64(1)))
			})
		})

		It("should be safe with concurrent readers", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					table.Update(func(s *routing.State) {
						s.FindLinkGroup("localnet").AllServersStats.RecordSuccess(time.Millisecond, false)
					})
				}()
				go func() {
					defer wg.Done()
					table.View(func(s *routing.State) {
						_ = s.Dump()
					})
				}()
			}
			wg.Wait()

			table.View(func(s *routing.State) {
				requests, _ := s.FindLinkGroup("localnet").AllServersStats.AccumStats()
				Expect(requests).To(Equal(uint64(50)))
			})
		})
	})

	Describe("Dump", func() {
		It("should describe every group and server", func() {
			var dump string
			table.View(func(s *routing.State) {
				dump = s.Dump()
			})
			Expect(dump).To(ContainSubstring(`link_group name="localnet" port=44340 enabled=true`))
			Expect(dump).To(ContainSubstring(`[1] alias="localnet-2"`))
			Expect(dump).To(ContainSubstring(`link_group name="testnet"`))
			Expect(dump).To(ContainSubstring("last_update=never"))
		})

		It("should show when a server was last updated", func() {
			table.Update(func(s *routing.State) {
				s.FindLinkGroup("localnet").TargetServers[0].Stats.RecordSuccess(time.Millisecond, false)
			})

			var dump, expected string
			table.View(func(s *routing.State) {
				dump = s.Dump()
				ts := s.FindLinkGroup("localnet").TargetServers[0]
				expected = "last_update=" + ts.Stats.LastUpdate().UTC().Format(time.RFC3339Nano)
			})
			Expect(dump).To(ContainSubstring(expected))
		})
	})
})
