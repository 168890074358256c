package api

import (
	"net/http"

	"github.com/TimurManjosov/flagfile/internal/snapshot"
)

// handleFlagfile serves the raw Flagfile text currently installed, with
// a weak ETag so polling clients can skip unchanged tables.
func (s *Server) handleFlagfile(w http.ResponseWriter, r *http.Request) {
	state := snapshot.Load()
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == state.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("ETag", state.ETag)
	_, _ = w.Write([]byte(state.Raw))
}
