package linkstatus

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/angeloszaimis/multilink-proxy/internal/circuitbreaker"
	"github.com/angeloszaimis/multilink-proxy/internal/format"
	"github.com/angeloszaimis/multilink-proxy/internal/routing"
	"github.com/angeloszaimis/multilink-proxy/internal/stats"
)

// Summary holds the cumulative request counters of a link group.
type Summary struct {
	SuccessOnFirstAttempt uint64 `json:"successOnFirstAttempt"`
	SuccessOnRetry        uint64 `json:"successOnRetry"`
	FailNetworkDown       uint64 `json:"failNetworkDown"`
	FailBadRequest        uint64 `json:"failBadRequest"`
	FailOthers            uint64 `json:"failOthers"`
}

func (s Summary) total() uint64 {
	return s.SuccessOnFirstAttempt + s.SuccessOnRetry + s.FailNetworkDown + s.FailBadRequest + s.FailOthers
}

// LinkStats is the machine-readable view of one link. Every metric is a
// two-decimal number, or empty when unknown.
type LinkStats struct {
	Alias      string `json:"alias"`
	HealthPct  string `json:"healthPct"`
	LoadPct    string `json:"loadPct"`
	RespTime   string `json:"respTime"`
	SuccessPct string `json:"successPct"`
}

// Report is the health report of one link group. Links is nil when links
// were not requested and points to an empty list for a group without
// servers.
type Report struct {
	Status  Status       `json:"status"`
	Summary *Summary     `json:"summary,omitempty"`
	Links   *[]LinkStats `json:"links,omitempty"`
	Display string       `json:"display,omitempty"`
	Debug   string       `json:"debug,omitempty"`
}

// BreakerStates reports the circuit breaker state of every target server.
// *circuitbreaker.Registry implements it.
type BreakerStates interface {
	States() map[string]circuitbreaker.State
}

// Builder assembles reports from the routing table.
type Builder struct {
	reader   *Reader
	breakers BreakerStates
}

// NewBuilder creates a builder over table. breakers may be nil.
func NewBuilder(table *routing.Table, breakers BreakerStates) *Builder {
	return &Builder{reader: NewReader(table), breakers: breakers}
}

// Build returns the report of the link group named workdir. It fails with an
// *InvalidParamsError when the group does not exist.
func (b *Builder) Build(workdir string, opts Options) (*Report, error) {
	o := opts.Resolve()

	snap, found := b.reader.Snapshot(workdir, o.Debug)
	if !found {
		return nil, &InvalidParamsError{Param: "workdir", Value: workdir}
	}

	metrics := Aggregate(snap.Servers)
	summary := summarize(&snap.Aggregate)
	links := linkStats(metrics)

	report := &Report{
		Status: StatusOf(found, len(snap.Servers), metrics.Healthy),
	}

	if o.Display {
		var out strings.Builder
		if o.Summary {
			writeSummary(&out, report.Status, summary)
		}
		if o.Links {
			writeLinks(&out, links)
		}
		report.Display = out.String()
	}

	if o.Debug {
		report.Debug = snap.Dump + b.breakerDump()
	}

	if o.Data {
		if o.Summary {
			report.Summary = &summary
		}
		if o.Links {
			report.Links = &links
		}
	}

	return report, nil
}

func (b *Builder) breakerDump() string {
	if b.breakers == nil {
		return ""
	}

	states := b.breakers.States()
	var out strings.Builder
	out.WriteString("circuit_breakers\n")
	for _, key := range slices.Sorted(maps.Keys(states)) {
		fmt.Fprintf(&out, "  %s %s\n", key, states[key])
	}
	return out.String()
}

func summarize(agg *stats.ServerStats) Summary {
	s := Summary{
		SuccessOnFirstAttempt: agg.SuccessOnFirstAttempt(),
		SuccessOnRetry:        agg.SuccessOnRetry(),
	}
	s.FailNetworkDown, s.FailBadRequest, s.FailOthers = agg.ClassifiedFailures()
	return s
}

// linkStats renders the metrics with the machine-readable formatter. The
// display table is built from this output, not from the raw metrics.
func linkStats(m Metrics) []LinkStats {
	links := make([]LinkStats, len(m.Links))
	for i, l := range m.Links {
		links[i] = LinkStats{
			Alias:      l.Alias,
			HealthPct:  format.APIFloat(l.HealthScore),
			LoadPct:    format.APIFloat(l.LoadPct),
			RespTime:   format.APIFloat(l.RespTimeMs),
			SuccessPct: format.APIFloat(l.SuccessPct),
		}
	}
	return links
}

func writeSummary(out *strings.Builder, status Status, s Summary) {
	total := float64(s.total())
	pct := func(n uint64) string {
		return format.Pct(float64(n) * 100 / total)
	}

	fmt.Fprintf(out, "Multi-Link RPC status: %s\n\n", status)
	out.WriteString("Cumulative Request Stats\n")
	out.WriteString("-------------------------\n")
	fmt.Fprintf(out, "Success first attempt %s   (%s %%)\n", format.Count(s.SuccessOnFirstAttempt), pct(s.SuccessOnFirstAttempt))
	fmt.Fprintf(out, "Success after retry   %s   (%s %%)\n", format.Count(s.SuccessOnRetry), pct(s.SuccessOnRetry))
	fmt.Fprintf(out, "Failure network down  %s   (%s %%)\n", format.Count(s.FailNetworkDown), pct(s.FailNetworkDown))
	fmt.Fprintf(out, "Failure bad request   %s   (%s %%)\n", format.Count(s.FailBadRequest), pct(s.FailBadRequest))
	fmt.Fprintf(out, "Failure others        %s   (%s %%)\n\n", format.Count(s.FailOthers), pct(s.FailOthers))
}

const linksHeader = "alias                Health %    Load %    RespT ms   Success %\n" +
	"---------------------------------------------------------------\n"

func writeLinks(out *strings.Builder, links []LinkStats) {
	out.WriteString(linksHeader)
	for _, l := range links {
		fmt.Fprintf(out, "%-20s   %-9s  %-9s %-9s     %-9s\n",
			l.Alias,
			format.ScoreString(l.HealthPct),
			format.PctString(l.LoadPct),
			format.MillisString(l.RespTime),
			format.PctString(l.SuccessPct),
		)
	}
}
