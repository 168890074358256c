// Package snapshot holds the flag table currently served by the
// distribution server. The table swaps atomically, so request handlers
// always see a complete, consistent document.
package snapshot

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	flagfile "github.com/TimurManjosov/flagfile"
	"github.com/TimurManjosov/flagfile/internal/telemetry"
)

// State is one immutable serving state: the raw Flagfile text, its
// parsed form, and the ETag clients use for conditional requests.
type State struct {
	Raw      string
	File     *flagfile.FlagFile
	ETag     string
	LoadedAt time.Time
}

var current atomic.Pointer[State]

// Build parses raw Flagfile text into a serving state.
func Build(raw string) (*State, error) {
	f, err := flagfile.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &State{
		Raw:      raw,
		File:     f,
		ETag:     etag(raw),
		LoadedAt: time.Now().UTC(),
	}, nil
}

func etag(raw string) string {
	return fmt.Sprintf(`W/"%016x"`, xxhash.Sum64String(raw))
}

// Load returns the current serving state. Before the first Update it
// returns an empty document so handlers never see nil.
func Load() *State {
	if s := current.Load(); s != nil {
		return s
	}
	empty, _ := Build("")
	return empty
}

// Update swaps in a new serving state and notifies event stream
// listeners.
func Update(s *State) {
	current.Store(s)
	telemetry.ServedFlags.Set(float64(len(s.File.Names())))
	publishUpdate(s.ETag)
}

// Reset clears the serving state. Test helper.
func Reset() {
	current.Store(nil)
}
