package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/angeloszaimis/multilink-proxy/internal/linkstatus"
)

// GetLinksParams are the parameters of getLinks. Only workdir is required.
type GetLinksParams struct {
	Workdir string `json:"workdir"`
	Summary *bool  `json:"summary,omitempty"`
	Links   *bool  `json:"links,omitempty"`
	Data    *bool  `json:"data,omitempty"`
	Display *bool  `json:"display,omitempty"`
	Debug   *bool  `json:"debug,omitempty"`
}

func (p GetLinksParams) Options() linkstatus.Options {
	return linkstatus.Options{
		Summary: p.Summary,
		Links:   p.Links,
		Data:    p.Data,
		Display: p.Display,
		Debug:   p.Debug,
	}
}

// decodeGetLinksParams accepts a params object or a positional array.
func decodeGetLinksParams(raw json.RawMessage) (GetLinksParams, error) {
	var p GetLinksParams

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return p, fmt.Errorf("missing params")
	}

	if raw[0] != '[' {
		if err := json.Unmarshal(raw, &p); err != nil {
			return p, fmt.Errorf("decode params: %w", err)
		}
		return p, nil
	}

	var positional []json.RawMessage
	if err := json.Unmarshal(raw, &positional); err != nil {
		return p, fmt.Errorf("decode params: %w", err)
	}
	if len(positional) == 0 {
		return p, fmt.Errorf("missing workdir")
	}

	fields := []any{&p.Workdir, &p.Summary, &p.Links, &p.Data, &p.Display, &p.Debug}
	if len(positional) > len(fields) {
		return p, fmt.Errorf("too many params: got %d, want at most %d", len(positional), len(fields))
	}
	for i, value := range positional {
		if err := json.Unmarshal(value, fields[i]); err != nil {
			return p, fmt.Errorf("decode param %d: %w", i, err)
		}
	}
	return p, nil
}
