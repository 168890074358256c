package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/TimurManjosov/flagfile/ast"
	"github.com/TimurManjosov/flagfile/eval"
	"github.com/TimurManjosov/flagfile/internal/snapshot"
	"github.com/TimurManjosov/flagfile/internal/telemetry"
	"github.com/TimurManjosov/flagfile/parse"
)

// Query parameters with the ff_ prefix steer the evaluation instead of
// feeding the context.
const (
	paramEnv    = "ff_env"
	paramOutput = "ff_output"
)

type evalResponse struct {
	Flag   string `json:"flag"`
	Found  bool   `json:"found"`
	Value  any    `json:"value,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// handleEval evaluates one flag. Every query parameter becomes a
// context field, parsed into its natural atom kind; ff_env selects the
// environment and ff_output=plain returns the bare value.
func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "flag")
	query := r.URL.Query()

	env := s.cfg.Env
	if qe := query.Get(paramEnv); qe != "" {
		env = qe
	}

	ctx := eval.Context{}
	for key, values := range query {
		if key == paramEnv || key == paramOutput {
			continue
		}
		if len(values) > 0 {
			ctx[key] = parse.Atom(values[0])
		}
	}

	res := snapshot.Load().File.Resolve(name, ctx, env)
	telemetry.RecordEvaluation(name, res.Found)

	if query.Get(paramOutput) == "plain" {
		if !res.Found {
			NotFoundError(w, r, "no value for "+name)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(plainValue(res.Value)))
		return
	}

	resp := evalResponse{Flag: name, Found: res.Found}
	if res.Found {
		resp.Value = jsonValue(res.Value)
		resp.Reason = res.Reason
	}
	writeJSON(w, http.StatusOK, resp)
}

// jsonValue maps a flag value onto its JSON representation.
func jsonValue(v ast.FlagValue) any {
	switch v := v.(type) {
	case ast.OnOff:
		return bool(v)
	case ast.Integer:
		return int64(v)
	case ast.Str:
		return string(v)
	case ast.JSON:
		return v.Value
	default:
		return nil
	}
}

// plainValue renders a flag value as bare text.
func plainValue(v ast.FlagValue) string {
	switch v := v.(type) {
	case ast.OnOff:
		return strconv.FormatBool(bool(v))
	case ast.Integer:
		return strconv.FormatInt(int64(v), 10)
	case ast.Str:
		return string(v)
	case ast.JSON:
		b, err := json.Marshal(v.Value)
		if err != nil {
			return fmt.Sprintf("%v", v.Value)
		}
		return string(b)
	default:
		return ""
	}
}
