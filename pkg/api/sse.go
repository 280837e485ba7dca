package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/raceiq/raceiq-console-go/log"
)

// sseHeartbeatInterval paces the comment lines keeping idle
// connections alive through proxies.
const sseHeartbeatInterval = 15 * time.Second

// handleLiveStream streams every published snapshot as one SSE data
// event. The subscription ends with the request; a slow client only
// skips messages (broadcaster semantics), it never stalls the ticker.
func (s *Server) handleLiveStream(w http.ResponseWriter, r *http.Request) {
	if s.live == nil {
		s.writeError(w, http.StatusServiceUnavailable, "live stream not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	sub := s.live.Subscribe()
	s.l.Debug("live stream subscriber attached", log.String("remote", r.RemoteAddr))

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			s.live.CancelSubscription(sub)
			s.l.Debug("live stream subscriber detached", log.String("remote", r.RemoteAddr))
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case snap, open := <-sub:
			if !open {
				// publisher shut down, nothing left to cancel
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				s.l.Error("marshaling snapshot for stream", log.ErrorField(err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
