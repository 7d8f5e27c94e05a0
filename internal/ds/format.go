// Package ds formats Datastar SSE events. The wire text is fixed by the
// Datastar client protocol and must not change shape.
package ds

import (
	"encoding/json"
	"strings"
)

// Heartbeat is the comment frame sent on the heartbeat interval. Carries no
// payload; keeps proxies from reaping an idle stream.
const Heartbeat = ": ping\n\n"

// PatchElements formats a datastar-patch-elements event. selector and mode
// are optional routing hints forwarded verbatim; empty means client default.
// HTML whitespace is collapsed so multi-line templates stay on one data line.
func PatchElements(html, selector, mode string) string {
	var b strings.Builder
	b.WriteString("event: datastar-patch-elements\n")
	if mode != "" {
		b.WriteString("data: mode " + mode + "\n")
	}
	if selector != "" {
		b.WriteString("data: selector " + selector + "\n")
	}
	b.WriteString("data: elements " + strings.Join(strings.Fields(html), " ") + "\n\n")
	return b.String()
}

// PatchSignals formats a datastar-patch-signals event from a flat key/value
// mapping.
func PatchSignals(signals map[string]any) string {
	data, _ := json.Marshal(signals)
	return "event: datastar-patch-signals\ndata: signals " + string(data) + "\n\n"
}
