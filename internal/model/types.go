// Package model defines the HTTP payload types for the push API.
package model

// PublishElementsRequest carries a markup patch. Selector and mode are
// forwarded verbatim to clients; empty means client-side default.
type PublishElementsRequest struct {
	HTML     string `json:"html"`
	Selector string `json:"selector,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

// PublishSignalsRequest carries a flat key/value state patch.
type PublishSignalsRequest struct {
	Signals map[string]any `json:"signals"`
}

// BroadcastRequest sends markup and signals as one logical event; either
// part may be absent.
type BroadcastRequest struct {
	HTML    string         `json:"html,omitempty"`
	Signals map[string]any `json:"signals,omitempty"`
}

// CreateChannelRequest declares a channel ahead of its first subscriber.
// Presence enables the built-in presence fragment for the channel.
type CreateChannelRequest struct {
	Name     string `json:"name"`
	Presence bool   `json:"presence,omitempty"`
}

// DisconnectRequest force-closes all of a user's connections on a channel.
type DisconnectRequest struct {
	UserID int64 `json:"userId"`
}

// ChannelStatus describes one channel for the admin surface. UserIDs is raw
// (one entry per connection); Presence is deduplicated.
type ChannelStatus struct {
	Name        string  `json:"name"`
	Connections int     `json:"connections"`
	UserIDs     []int64 `json:"userIds"`
	Presence    []int64 `json:"presence"`
}
