package eval

import (
	"testing"

	"github.com/TimurManjosov/flagfile/ast"
	"github.com/TimurManjosov/flagfile/parse"
)

func load(t *testing.T, src string) *ast.FlagFile {
	t.Helper()
	f, err := parse.File(src)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	return f
}

func TestResolveFirstMatchWins(t *testing.T) {
	f := load(t, `
FF-tiered {
	plan = "enterprise" -> "gold"
	plan = "pro" -> "silver"
	"bronze"
}
`)
	tests := []struct {
		name   string
		ctx    Context
		want   ast.FlagValue
		reason string
	}{
		{"first guard", Context{"plan": ast.String("enterprise")}, ast.Str("gold"), ReasonTargetingMatch},
		{"second guard", Context{"plan": ast.String("pro")}, ast.Str("silver"), ReasonTargetingMatch},
		{"default", Context{"plan": ast.String("free")}, ast.Str("bronze"), ReasonDefault},
		{"empty context default", Context{}, ast.Str("bronze"), ReasonDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveFlag(f, "FF-tiered", tt.ctx, "")
			if !res.Found {
				t.Fatal("want a value")
			}
			if res.Value != tt.want {
				t.Errorf("value = %#v, want %#v", res.Value, tt.want)
			}
			if res.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", res.Reason, tt.reason)
			}
		})
	}
}

func TestResolveUnknownFlag(t *testing.T) {
	f := load(t, `FF-a -> true`)
	if res := ResolveFlag(f, "FF-missing", Context{}, ""); res.Found {
		t.Error("unknown flag must resolve absent")
	}
}

func TestResolveNoMatchIsAbsent(t *testing.T) {
	f := load(t, `
FF-guarded {
	plan = "pro" -> true
}
`)
	if res := ResolveFlag(f, "FF-guarded", Context{}, ""); res.Found {
		t.Error("exhausted rules must resolve absent")
	}
}

func TestResolveEnvRules(t *testing.T) {
	f := load(t, `
FF-debug {
	@env dev -> true
	@env prod -> false
}
`)
	res := ResolveFlag(f, "FF-debug", Context{}, "dev")
	if !res.Found || res.Value != ast.OnOff(true) {
		t.Errorf("dev = %#v", res)
	}
	res = ResolveFlag(f, "FF-debug", Context{}, "prod")
	if !res.Found || res.Value != ast.OnOff(false) {
		t.Errorf("prod = %#v", res)
	}
	if res := ResolveFlag(f, "FF-debug", Context{}, "staging"); res.Found {
		t.Error("unmatched environment must resolve absent")
	}
}

// A matched env block whose nested rules all miss falls through to the
// next sibling rule instead of ending resolution.
func TestResolveEnvFallthrough(t *testing.T) {
	f := load(t, `
FF-fall {
	@env prod {
		role = "ops" -> true
	}
	false
}
`)
	res := ResolveFlag(f, "FF-fall", Context{}, "prod")
	if !res.Found || res.Value != ast.OnOff(false) {
		t.Errorf("fallthrough = %#v, want trailing default", res)
	}
	res = ResolveFlag(f, "FF-fall", Context{"role": ast.String("ops")}, "prod")
	if !res.Found || res.Value != ast.OnOff(true) {
		t.Errorf("nested match = %#v", res)
	}
}

func TestResolveRequires(t *testing.T) {
	t.Run("prerequisite on", func(t *testing.T) {
		f := load(t, "FF-new-checkout -> true\n\n@requires FF-new-checkout\nFF-checkout-upsell -> true\n")
		res := ResolveFlag(f, "FF-checkout-upsell", Context{}, "")
		if !res.Found || res.Value != ast.OnOff(true) {
			t.Errorf("res = %#v", res)
		}
	})
	t.Run("prerequisite off", func(t *testing.T) {
		f := load(t, "FF-new-checkout -> false\n\n@requires FF-new-checkout\nFF-checkout-upsell -> true\n")
		if res := ResolveFlag(f, "FF-checkout-upsell", Context{}, ""); res.Found {
			t.Error("flag with failing prerequisite must resolve absent")
		}
	})
	t.Run("prerequisite missing", func(t *testing.T) {
		f := load(t, "@requires FF-nonexistent\nFF-checkout-upsell -> true\n")
		if res := ResolveFlag(f, "FF-checkout-upsell", Context{}, ""); res.Found {
			t.Error("missing prerequisite must resolve absent")
		}
	})
	t.Run("prerequisite non-boolean", func(t *testing.T) {
		f := load(t, "FF-new-checkout -> 7\n\n@requires FF-new-checkout\nFF-checkout-upsell -> true\n")
		if res := ResolveFlag(f, "FF-checkout-upsell", Context{}, ""); res.Found {
			t.Error("non-boolean prerequisite must resolve absent")
		}
	})
}

func TestResolveRequiresCycle(t *testing.T) {
	f := load(t, `
@requires FF-b
FF-a -> true

@requires FF-a
FF-b -> true
`)
	// Mutually requiring flags must terminate and resolve absent.
	if res := ResolveFlag(f, "FF-a", Context{}, ""); res.Found {
		t.Error("cyclic prerequisites must resolve absent")
	}
	self := load(t, "@requires FF-self\nFF-self -> true\n")
	if res := ResolveFlag(self, "FF-self", Context{}, ""); res.Found {
		t.Error("self-requiring flag must resolve absent")
	}
}

func TestResolveRequiresChain(t *testing.T) {
	f := load(t, `
FF-base -> true

@requires FF-base
FF-mid -> true

@requires FF-mid
FF-top -> "ready"
`)
	res := ResolveFlag(f, "FF-top", Context{}, "")
	if !res.Found || res.Value != ast.Str("ready") {
		t.Errorf("res = %#v", res)
	}
}

func TestResolvePercentageRule(t *testing.T) {
	f := load(t, `
FF-test-rollout {
	percentage(50%, userId) -> true
	false
}
`)
	res := ResolveFlag(f, "FF-test-rollout", Context{"userId": ast.String("user-123")}, "")
	if !res.Found || res.Value != ast.OnOff(true) {
		t.Errorf("user-123 = %#v", res)
	}
	res = ResolveFlag(f, "FF-test-rollout", Context{"userId": ast.String("user-456")}, "")
	if !res.Found || res.Value != ast.OnOff(false) {
		t.Errorf("user-456 = %#v", res)
	}
}

func TestResolveSegmentRule(t *testing.T) {
	f := load(t, `
@segment staff { email ~$ "@corp.example" }

FF-internal {
	segment(staff) -> true
	false
}
`)
	res := ResolveFlag(f, "FF-internal", Context{"email": ast.String("a@corp.example")}, "")
	if !res.Found || res.Value != ast.OnOff(true) {
		t.Errorf("staff = %#v", res)
	}
	res = ResolveFlag(f, "FF-internal", Context{"email": ast.String("a@other.example")}, "")
	if !res.Found || res.Value != ast.OnOff(false) {
		t.Errorf("outsider = %#v", res)
	}
}
