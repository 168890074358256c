package flagfile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// Loader builds the process-wide table from a local file or a remote
// distribution server. In remote mode it can follow the server's event
// stream and swap in fresh tables as they are published.
type Loader struct {
	file      string
	remote    string
	token     string
	namespace string
	fallback  string
	env       string
	onUpdate  func(*FlagFile)
	client    *http.Client
	log       zerolog.Logger
}

// NewLoader returns a loader reading ./Flagfile, with the same path as
// fallback for remote mode.
func NewLoader() *Loader {
	return &Loader{
		file:     "Flagfile",
		fallback: "Flagfile",
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      zerolog.Nop(),
	}
}

// WithFile sets the local file path.
func (l *Loader) WithFile(path string) *Loader {
	l.file = path
	return l
}

// WithRemote switches to remote mode against a distribution server base
// URL.
func (l *Loader) WithRemote(baseURL string) *Loader {
	l.remote = strings.TrimRight(baseURL, "/")
	return l
}

// WithToken sets the bearer token sent to the remote server.
func (l *Loader) WithToken(token string) *Loader {
	l.token = token
	return l
}

// WithNamespace scopes remote requests to a namespace.
func (l *Loader) WithNamespace(ns string) *Loader {
	l.namespace = ns
	return l
}

// WithFallback sets the local file used when the remote fetch fails.
func (l *Loader) WithFallback(path string) *Loader {
	l.fallback = path
	return l
}

// WithEnv records the active environment for callers that resolve
// through the loader.
func (l *Loader) WithEnv(env string) *Loader {
	l.env = env
	return l
}

// WithLogger sets the logger; the default discards everything.
func (l *Loader) WithLogger(log zerolog.Logger) *Loader {
	l.log = log
	return l
}

// OnUpdate registers a callback fired after each successful remote
// reload, on the listener goroutine.
func (l *Loader) OnUpdate(fn func(*FlagFile)) *Loader {
	l.onUpdate = fn
	return l
}

// Env returns the environment configured on the loader.
func (l *Loader) Env() string { return l.env }

func (l *Loader) flagfileURL() string {
	if l.namespace != "" {
		return l.remote + "/ns/" + l.namespace + "/flagfile"
	}
	return l.remote + "/flagfile"
}

func (l *Loader) eventsURL() string {
	if l.namespace != "" {
		return l.remote + "/ns/" + l.namespace + "/events"
	}
	return l.remote + "/events"
}

// Load parses the configured source into a handle. Remote mode fetches
// from the server and falls back to the local fallback file when the
// fetch fails; the second result reports whether the remote copy was
// used.
func (l *Loader) Load(ctx context.Context) (*FlagFile, bool, error) {
	if l.remote == "" {
		f, err := ParseFile(l.file)
		return f, false, err
	}
	src, err := l.fetch(ctx)
	if err != nil {
		l.log.Warn().Err(err).Str("fallback", l.fallback).Msg("remote fetch failed, using fallback")
		f, ferr := ParseFile(l.fallback)
		return f, false, ferr
	}
	f, err := Parse(src)
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}

// Install loads and installs the table into the process-wide slot.
func (l *Loader) Install(ctx context.Context) error {
	f, _, err := l.Load(ctx)
	if err != nil {
		return err
	}
	install(f)
	return nil
}

func (l *Loader) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.flagfileURL(), nil)
	if err != nil {
		return "", err
	}
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("remote returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Listen follows the server's event stream until the context is
// canceled, reloading and swapping the table on every flag_update.
// Disconnects reconnect with exponential backoff; a successful
// connection resets the backoff.
func (l *Loader) Listen(ctx context.Context) error {
	if l.remote == "" {
		return fmt.Errorf("flagfile: Listen requires a remote loader")
	}
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = time.Second
	expo.MaxInterval = 30 * time.Second
	for {
		err := l.stream(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			// Clean stream end counts as a healthy connection.
			expo.Reset()
		} else {
			l.log.Warn().Err(err).Msg("event stream disconnected, reconnecting")
		}
		select {
		case <-time.After(expo.NextBackOff()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// stream holds one SSE connection open and dispatches its events.
func (l *Loader) stream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.eventsURL(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}
	// No client timeout on the streaming connection itself; the context
	// is the only way out.
	client := &http.Client{Transport: l.client.Transport}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	event := ""
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			switch event {
			case "flag_update":
				l.reload(ctx)
			case "server_shutdown":
				// Refresh once before the server goes away, then
				// reconnect through the backoff loop.
				l.reload(ctx)
				return nil
			}
			event = ""
		case line == "":
			event = ""
		}
	}
	return scanner.Err()
}

func (l *Loader) reload(ctx context.Context) {
	src, err := l.fetch(ctx)
	if err != nil {
		l.log.Warn().Err(err).Msg("reload fetch failed, keeping current table")
		return
	}
	f, err := Parse(src)
	if err != nil {
		l.log.Warn().Err(err).Msg("reload parse failed, keeping current table")
		return
	}
	Replace(f)
	l.log.Info().Msg("flag table reloaded from remote")
	if l.onUpdate != nil {
		l.onUpdate(f)
	}
}
