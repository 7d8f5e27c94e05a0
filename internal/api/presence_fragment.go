package api

import (
	"fmt"
	"html"
	"strings"

	"pushhub/internal/hub"
)

// DefaultPresence returns the built-in presence callback used for channels
// declared over HTTP with presence enabled. It renders a member-list
// fragment targeting #channel-members and a connectedUsers signal, so a
// page needs no server-side code of its own to show who is in the room.
func DefaultPresence() hub.PresenceFunc {
	return func(channel string, users []int64) (string, map[string]any) {
		var b strings.Builder
		b.WriteString(`<ul id="channel-members" data-channel="` + html.EscapeString(channel) + `">`)
		for _, id := range users {
			fmt.Fprintf(&b, `<li class="member">user %d</li>`, id)
		}
		b.WriteString(`</ul>`)
		return b.String(), map[string]any{"connectedUsers": len(users)}
	}
}
