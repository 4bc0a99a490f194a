package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/avogel/chase-bridge/internal/bridge"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Status reports the number of live client sessions.
func Status(reg *bridge.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan int, 1)
		reg.Inbox() <- bridge.CountSessions{Reply: reply}
		count := <-reply

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			ActiveSessions int `json:"active_sessions"`
		}{ActiveSessions: count})
	}
}
