package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"pushhub/internal/ds"
	"pushhub/internal/model"
)

// ChannelsHandler handles /v1/channels: list channel names or declare a new
// channel ahead of its first subscriber.
func (s *Server) ChannelsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		names := s.Hub.Channels()
		sort.Strings(names)
		items := make([]model.ChannelStatus, 0, len(names))
		for _, name := range names {
			items = append(items, s.channelStatus(name))
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var req model.CreateChannelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeProblem(w, http.StatusBadRequest, "Missing channel name", "", r.URL.Path)
			return
		}
		if req.Presence {
			s.Hub.CreateChannel(req.Name, DefaultPresence())
		} else {
			s.Hub.CreateChannel(req.Name, nil)
		}
		writeJSON(w, http.StatusCreated, map[string]any{"name": req.Name})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ChannelByNameHandler routes /v1/channels/{name} and its sub-resources:
// stream, ws, elements, signals, broadcast, users, disconnect.
func (s *Server) ChannelByNameHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/channels/")
	if rest == "" || rest == r.URL.Path {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	name := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch action {
	case "":
		if r.Method == http.MethodDelete {
			s.killHandler(w, r, name)
			return
		}
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, s.channelStatus(name))
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	case "stream":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.streamHandler(w, r, name)
	case "ws":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.wsHandler(w, r, name)
	case "elements":
		s.publishElementsHandler(w, r, name)
	case "signals":
		s.publishSignalsHandler(w, r, name)
	case "broadcast":
		s.publishBroadcastHandler(w, r, name)
	case "users":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, s.channelStatus(name))
	case "disconnect":
		s.disconnectHandler(w, r, name)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
	}
}

// streamHandler opens the SSE stream: register the connection, then run its
// pump until the client goes away, the channel is killed, or the user is
// evicted.
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request, name string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	pr := s.getPrincipal(r)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	c := s.Hub.Join(name, pr.UserID)
	sw := &sseWriter{w: w, f: flusher}
	// initial heartbeat pushes headers out immediately
	if err := sw.WriteEvent(ds.Heartbeat); err != nil {
		s.Hub.Leave(c.ID)
		return
	}
	s.Hub.Pump(r.Context(), c, sw, s.Cfg.Heartbeat())
}

type sseWriter struct {
	w io.Writer
	f http.Flusher
}

func (s *sseWriter) WriteEvent(event string) error {
	if _, err := io.WriteString(s.w, event); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

func (s *Server) publishElementsHandler(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.allowPublish(w, r) {
		return
	}
	var req model.PublishElementsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.HTML == "" {
		writeProblem(w, http.StatusBadRequest, "Missing html", "", r.URL.Path)
		return
	}
	s.Hub.PublishElements(name, req.HTML, req.Selector, req.Mode)
	writeJSON(w, http.StatusAccepted, map[string]any{"channel": name})
}

func (s *Server) publishSignalsHandler(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.allowPublish(w, r) {
		return
	}
	var req model.PublishSignalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if len(req.Signals) == 0 {
		writeProblem(w, http.StatusBadRequest, "Missing signals", "", r.URL.Path)
		return
	}
	s.Hub.PublishSignals(name, req.Signals)
	writeJSON(w, http.StatusAccepted, map[string]any{"channel": name})
}

func (s *Server) publishBroadcastHandler(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.allowPublish(w, r) {
		return
	}
	var req model.BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	s.Hub.PublishBoth(name, req.HTML, req.Signals)
	writeJSON(w, http.StatusAccepted, map[string]any{"channel": name})
}

// disconnectHandler force-closes all of a user's connections on the channel.
// Admin only, matching the operator-facing nature of eviction.
func (s *Server) disconnectHandler(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.getPrincipal(r).IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin role required", r.URL.Path)
		return
	}
	var req model.DisconnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	s.Hub.DisconnectUser(name, req.UserID)
	writeJSON(w, http.StatusAccepted, map[string]any{"channel": name, "userId": req.UserID})
}

func (s *Server) killHandler(w http.ResponseWriter, r *http.Request, name string) {
	if !s.getPrincipal(r).IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin role required", r.URL.Path)
		return
	}
	s.Hub.KillChannel(name)
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "killed": true})
}

func (s *Server) channelStatus(name string) model.ChannelStatus {
	raw := s.Hub.Users(name)
	seen := map[int64]struct{}{}
	dedup := make([]int64, 0, len(raw))
	for _, id := range raw {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		dedup = append(dedup, id)
	}
	sort.Slice(dedup, func(i, j int) bool { return dedup[i] < dedup[j] })
	if raw == nil {
		raw = []int64{}
	}
	return model.ChannelStatus{Name: name, Connections: len(raw), UserIDs: raw, Presence: dedup}
}

// allowPublish applies the publish rate limit.
func (s *Server) allowPublish(w http.ResponseWriter, r *http.Request) bool {
	if s.limiter != nil && !s.limiter.Allow() {
		writeProblem(w, http.StatusTooManyRequests, "Rate limited", fmt.Sprintf("limit %.0f rps", s.Cfg.RateRPS), r.URL.Path)
		return false
	}
	return true
}
