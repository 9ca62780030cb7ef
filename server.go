package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"flightsim-server/lobby"
)

// RouteConfig holds the HTTP-facing settings.
type RouteConfig struct {
	AllowedOrigins []string
	StatusSecret   string
	ClientRate     float64
	ClientBurst    int
}

// newUpgrader accepts any origin when allowed is empty, like an open CORS
// policy. Otherwise the Origin header must match an entry.
func newUpgrader(allowed []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowed) == 0 {
				return true // Non-browser clients don't send Origin
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			for _, a := range allowed {
				if strings.EqualFold(strings.TrimRight(a, "/"), u.Scheme+"://"+u.Host) {
					return true
				}
			}
			return false
		},
	}
}

type statusResponse struct {
	OK          bool         `json:"ok"`
	OnlineCount int          `json:"onlineCount"`
	Connections int          `json:"connections"`
	Rooms       []lobby.Room `json:"rooms"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

// SetupRoutes configures HTTP routes.
func SetupRoutes(hub *Hub, world *World, cfg RouteConfig) *http.ServeMux {
	mux := http.NewServeMux()
	upgrader := newUpgrader(cfg.AllowedOrigins)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if cfg.StatusSecret != "" {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err == nil {
				err = VerifyStatusToken(cfg.StatusSecret, token)
			}
			if err != nil {
				log.Debug().Err(err).Str("remote", extractIP(r)).Msg("status denied")
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
		}
		writeJSON(w, http.StatusOK, statusResponse{
			OK:          true,
			OnlineCount: world.OnlineCount(),
			Connections: hub.ClientCount(),
			Rooms:       world.Rooms(),
		})
	})

	// WebSocket endpoint, served at both / and /ws
	ws := func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			log.Warn().Str("remote", ip).Msg("connection refused, cap reached")
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Str("remote", ip).Msg("upgrade error")
			return
		}

		hub.TrackConnect(ip)

		binary := r.URL.Query().Get("enc") == "msgpack"
		client := NewClient(hub, world, conn, ip, binary, cfg.ClientRate, cfg.ClientBurst)
		if !hub.Register(client) {
			hub.TrackDisconnect(ip)
			conn.Close()
			return
		}
		client.Attach()

		go client.WritePump()
		go client.ReadPump()
	}
	mux.HandleFunc("/ws", ws)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" || !websocket.IsWebSocketUpgrade(r) {
			http.NotFound(w, r)
			return
		}
		ws(w, r)
	})

	return mux
}
