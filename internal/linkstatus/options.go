package linkstatus

// Options select the sections of a report. A nil field is unspecified and
// takes its default from Resolve.
type Options struct {
	Summary *bool
	Links   *bool
	Data    *bool
	Display *bool
	Debug   *bool
}

// Resolved are Options with every default applied.
type Resolved struct {
	Summary bool
	Links   bool
	Data    bool
	Display bool
	Debug   bool
}

// Resolve applies the defaults in this order:
//
//	summary = true
//	links   = true
//	debug   = false
//	display = debug
//	data    = !(debug || display)
//
// so raw data is only produced by default when no rendering was requested.
func (o Options) Resolve() Resolved {
	var r Resolved

	r.Summary = valueOr(o.Summary, true)
	r.Links = valueOr(o.Links, true)
	r.Debug = valueOr(o.Debug, false)
	r.Display = valueOr(o.Display, r.Debug)
	r.Data = valueOr(o.Data, !(r.Debug || r.Display))

	return r
}

// Bool returns a pointer to v, for building Options.
func Bool(v bool) *bool {
	return &v
}

func valueOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
