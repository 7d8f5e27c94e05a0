package api

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"pushhub/internal/buildinfo"
)

func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ready",
		"channels": len(s.Hub.Channels()),
	})
}

// DebugHandler exposes build and config info for operators.
func (s *Server) DebugHandler(w http.ResponseWriter, _ *http.Request) {
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"addr":               s.Cfg.Addr,
			"heartbeat_interval": s.Cfg.HeartbeatInterval,
			"rate_rps":           s.Cfg.RateRPS,
			"rate_burst":         s.Cfg.RateBurst,
			"auth_mode":          s.Cfg.Auth.Mode,
			"has_config_file":    os.Getenv("PUSHHUB_CONFIG") != "",
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}
