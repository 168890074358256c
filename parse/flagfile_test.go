package parse

import (
	"testing"
	"time"

	"github.com/TimurManjosov/flagfile/ast"
)

func mustFile(t *testing.T, src string) *ast.FlagFile {
	t.Helper()
	f, err := File(src)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	return f
}

func TestFileShortForm(t *testing.T) {
	f := mustFile(t, "FF-enabled -> true\nFF-limit->42\nFF-greeting -> \"hello\"\n")
	if len(f.Flags) != 3 {
		t.Fatalf("flags = %d, want 3", len(f.Flags))
	}
	def, _ := f.Lookup("FF-enabled")
	v := def.Rules[0].(*ast.ValueRule).Value
	if v != ast.OnOff(true) {
		t.Errorf("FF-enabled = %#v", v)
	}
	def, _ = f.Lookup("FF-limit")
	if def.Rules[0].(*ast.ValueRule).Value != ast.Integer(42) {
		t.Errorf("FF-limit = %#v", def.Rules[0])
	}
	def, _ = f.Lookup("FF-greeting")
	if def.Rules[0].(*ast.ValueRule).Value != ast.Str("hello") {
		t.Errorf("FF-greeting = %#v", def.Rules[0])
	}
}

func TestFileUnderscoreName(t *testing.T) {
	f := mustFile(t, "FF_legacy_name -> false")
	if _, ok := f.Lookup("FF_legacy_name"); !ok {
		t.Error("underscore flag name not accepted")
	}
}

func TestFileBlockForm(t *testing.T) {
	src := `
FF-tiered {
	plan = "enterprise" -> true
	percentage(10%, userId) -> true
	false
}
`
	f := mustFile(t, src)
	def, _ := f.Lookup("FF-tiered")
	if len(def.Rules) != 3 {
		t.Fatalf("rules = %d, want 3", len(def.Rules))
	}
	if _, ok := def.Rules[0].(*ast.ExprRule); !ok {
		t.Errorf("rule 0 = %T, want guarded", def.Rules[0])
	}
	if _, ok := def.Rules[2].(*ast.ValueRule); !ok {
		t.Errorf("rule 2 = %T, want bare default", def.Rules[2])
	}
}

func TestFileEnvRules(t *testing.T) {
	src := `
FF-debug {
	@env dev -> true
	@env prod {
		role = "ops" -> true
		false
	}
}
`
	f := mustFile(t, src)
	def, _ := f.Lookup("FF-debug")
	if len(def.Rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(def.Rules))
	}
	dev := def.Rules[0].(*ast.EnvRule)
	if dev.Env != "dev" || len(dev.Rules) != 1 {
		t.Errorf("dev rule = %#v", dev)
	}
	prod := def.Rules[1].(*ast.EnvRule)
	if prod.Env != "prod" || len(prod.Rules) != 2 {
		t.Errorf("prod rule = %#v", prod)
	}
}

func TestFileMetadata(t *testing.T) {
	src := `
// Checkout experiments.
@owner "payments team"
@expires 2026-12-31
@ticket "PAY-77"
@description "new checkout flow"
@type boolean
@deprecated "use FF-checkout-v3"
@requires FF-payments-core
@requires FF-new-checkout
FF-checkout-upsell -> true
`
	f := mustFile(t, src)
	def, _ := f.Lookup("FF-checkout-upsell")
	m := def.Metadata
	if m.Owner != "payments team" {
		t.Errorf("owner = %q", m.Owner)
	}
	if m.Ticket != "PAY-77" {
		t.Errorf("ticket = %q", m.Ticket)
	}
	if m.Description != "new checkout flow" {
		t.Errorf("description = %q", m.Description)
	}
	if m.Type != "boolean" {
		t.Errorf("type = %q", m.Type)
	}
	if m.Deprecated != "use FF-checkout-v3" {
		t.Errorf("deprecated = %q", m.Deprecated)
	}
	want := time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC)
	if m.Expires == nil || !m.Expires.Equal(want) {
		t.Errorf("expires = %v", m.Expires)
	}
	if len(m.Requires) != 2 || m.Requires[0] != "FF-payments-core" || m.Requires[1] != "FF-new-checkout" {
		t.Errorf("requires = %v", m.Requires)
	}
}

func TestFileSegments(t *testing.T) {
	src := `
@segment beta_users { email ~$ "@corp.example" or role = "qa" }

FF-beta -> true
`
	f := mustFile(t, src)
	if _, ok := f.Segments["beta_users"]; !ok {
		t.Fatal("segment not recorded")
	}
	if _, ok := f.Lookup("FF-beta"); !ok {
		t.Fatal("flag after segment not parsed")
	}
}

func TestFileComments(t *testing.T) {
	src := `
// line comment
FF-a -> true
/* block
   comment */ FF-b -> false
FF-c { /* inline */ true }
`
	f := mustFile(t, src)
	if len(f.Flags) != 3 {
		t.Errorf("flags = %d, want 3", len(f.Flags))
	}
}

func TestFileJSONValue(t *testing.T) {
	src := `FF-config -> json({"theme": "dark", "nested": {"depth": 2}, "brace": "}"})`
	f := mustFile(t, src)
	def, _ := f.Lookup("FF-config")
	v, ok := def.Rules[0].(*ast.ValueRule).Value.(ast.JSON)
	if !ok {
		t.Fatalf("value = %#v, want JSON", def.Rules[0])
	}
	obj, ok := v.Value.(map[string]any)
	if !ok {
		t.Fatalf("decoded = %T", v.Value)
	}
	if obj["theme"] != "dark" {
		t.Errorf("theme = %v", obj["theme"])
	}
	if obj["brace"] != "}" {
		t.Errorf("brace inside string desynchronized the scan: %v", obj["brace"])
	}
}

func TestFileRejectsFloatValue(t *testing.T) {
	if _, err := File("FF-x -> 5.5"); err == nil {
		t.Fatal("integer followed by a dot must not parse as a value")
	}
}

func TestFileParseErrorPosition(t *testing.T) {
	_, err := File("FF-ok -> true\nnot a flag at all\n")
	if err == nil {
		t.Fatal("want parse error")
	}
	perr, ok := err.(*Error)
	if !ok {
		t.Fatalf("got %T, want *Error", err)
	}
	if perr.Line != 2 {
		t.Errorf("line = %d, want 2", perr.Line)
	}
}

func TestFileLastDefinitionWins(t *testing.T) {
	f := mustFile(t, "FF-dup -> true\nFF-dup -> false\n")
	def, _ := f.Lookup("FF-dup")
	if def.Rules[0].(*ast.ValueRule).Value != ast.OnOff(false) {
		t.Error("last definition did not win")
	}
	if len(f.Redefined) != 1 || f.Redefined[0] != "FF-dup" {
		t.Errorf("redefined = %v", f.Redefined)
	}
	if len(f.Order) != 1 {
		t.Errorf("order = %v", f.Order)
	}
}

func TestFileDirectiveBoundary(t *testing.T) {
	if _, err := File("FF-x {\n\t@environment dev -> true\n\tfalse\n}\n"); err == nil {
		t.Error("@environment must not parse as an @env rule")
	}
	if _, err := File("@segments beta { role = \"qa\" }\nFF-y -> true\n"); err == nil {
		t.Error("@segments must not parse as a segment definition")
	}
	f := mustFile(t, "FF-z {\n\t@env dev->true\n\tfalse\n}\n")
	def, _ := f.Lookup("FF-z")
	if _, ok := def.Rules[0].(*ast.EnvRule); !ok {
		t.Errorf("rule 0 = %T, want env rule", def.Rules[0])
	}
}

func TestFileTestAnnotations(t *testing.T) {
	src := `
@test env=prod, plan=pro => true
FF-ann {
	plan = "pro" -> true
	false
}
`
	f := mustFile(t, src)
	def, _ := f.Lookup("FF-ann")
	if len(def.Metadata.Tests) != 1 {
		t.Fatalf("tests = %v", def.Metadata.Tests)
	}
	if def.Metadata.Tests[0] != "env=prod, plan=pro => true" {
		t.Errorf("test = %q", def.Metadata.Tests[0])
	}
}
