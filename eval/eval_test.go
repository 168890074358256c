package eval

import (
	"testing"

	"github.com/TimurManjosov/flagfile/ast"
	"github.com/TimurManjosov/flagfile/parse"
)

func evalExpr(t *testing.T, src string, ctx Context) bool {
	t.Helper()
	node, err := parse.Expression(src)
	if err != nil {
		t.Fatalf("Expression(%q): %v", src, err)
	}
	return Eval(node, ctx, "FF-test", nil)
}

func TestEvalCompare(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ctx  Context
		want bool
	}{
		{"int equal", `userId == 42`, Context{"userId": ast.Int(42)}, true},
		{"int not equal", `userId == 42`, Context{"userId": ast.Int(41)}, false},
		{"missing variable is false", `userId == 42`, Context{}, false},
		{"missing variable under not-equal is false", `userId != 42`, Context{}, false},
		{"not equal", `plan != "free"`, Context{"plan": ast.String("pro")}, true},
		{"less than", `age < 18`, Context{"age": ast.Int(15)}, true},
		{"greater or equal", `age >= 18`, Context{"age": ast.Int(18)}, true},
		{"incomparable types are false", `name > 5`, Context{"name": ast.String("bob")}, false},
		{"bare equals synonym", `plan = "pro"`, Context{"plan": ast.String("pro")}, true},
		{"string against bare identifier", `plan = pro`, Context{"plan": ast.String("pro")}, true},
		{"semver equal", `appVersion == 5.3.44`, Context{"appVersion": ast.Semver(5, 3, 44)}, true},
		{"semver against coerced float context", `appVersion == 5.3.44`, Context{"appVersion": ast.Float(5.4)}, false},
		{"float context above version", `appVersion > 5.3.44`, Context{"appVersion": ast.Float(5.4)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalExpr(t, tt.src, tt.ctx); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestEvalMatch(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ctx  Context
		want bool
	}{
		{"contains", `name ~ "adm"`, Context{"name": ast.String("admin")}, true},
		{"not contains", `name !~ "adm"`, Context{"name": ast.String("user")}, true},
		{"starts with", `name ^~ "admin"`, Context{"name": ast.String("admin_user")}, true},
		{"starts with miss", `name ^~ "admin"`, Context{"name": ast.String("user_admin")}, false},
		{"ends with", `email ~$ "@corp.example"`, Context{"email": ast.String("a@corp.example")}, true},
		{"missing subject", `name ~ "adm"`, Context{}, false},
		{"number matched as text", `build ~ "42"`, Context{"build": ast.Int(1423)}, true},
		{"regex search", `email ~ /@corp\.example$/`, Context{"email": ast.String("a@corp.example")}, true},
		{"regex miss", `email ~ /@corp\.example$/`, Context{"email": ast.String("a@other.example")}, false},
		{"invalid regex is false", `email ~ /[unclosed/`, Context{"email": ast.String("x")}, false},
		{"invalid regex negated", `email !~ /[unclosed/`, Context{"email": ast.String("x")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalExpr(t, tt.src, tt.ctx); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestEvalFunctions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ctx  Context
		want bool
	}{
		{"lower then prefix", `lower(name) ^~ "admin"`, Context{"name": ast.String("ADMIN_USER")}, true},
		{"lower then prefix miss", `lower(name) ^~ "admin"`, Context{"name": ast.String("USER_ADMIN")}, false},
		{"upper", `upper(plan) = "PRO"`, Context{"plan": ast.String("pro")}, true},
		{"function over missing variable", `lower(name) = "x"`, Context{}, false},
		{"now after past date", `now() > 2020-01-01`, Context{}, true},
		{"now before far future", `now() < 2999-01-01`, Context{}, true},
		{"coalesce prefers present field", `coalesce(nickname, name) = "bob"`, Context{"name": ast.String("bob")}, true},
		{"coalesce literal default", `coalesce(nickname, "anon") = "anon"`, Context{}, true},
		{"coalesce all absent", `coalesce(nickname, name) = "bob"`, Context{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalExpr(t, tt.src, tt.ctx); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestEvalArray(t *testing.T) {
	roles := ast.List([]ast.Atom{ast.String("admin"), ast.String("editor")})
	tests := []struct {
		name string
		src  string
		ctx  Context
		want bool
	}{
		{"in literal list", `role in (admin, editor)`, Context{"role": ast.String("editor")}, true},
		{"not in literal list", `role not in (admin, editor)`, Context{"role": ast.String("viewer")}, true},
		{"miss literal list", `role in (admin, editor)`, Context{"role": ast.String("viewer")}, false},
		{"missing field", `role in (admin, editor)`, Context{}, false},
		{"literal in context list", `"admin" in roles`, Context{"roles": roles}, true},
		{"literal not in context list", `"viewer" in roles`, Context{"roles": roles}, false},
		{"context list missing", `"admin" in roles`, Context{}, false},
		{"right side not a list", `"admin" in roles`, Context{"roles": ast.String("admin")}, false},
		{"not in with non-list right side", `"admin" not in roles`, Context{"roles": ast.String("admin")}, false},
		{"not in with scalar miss", `"viewer" not in roles`, Context{"roles": ast.String("admin")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalExpr(t, tt.src, tt.ctx); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestEvalLogicAndScope(t *testing.T) {
	ctx := Context{"a": ast.Int(1), "b": ast.Int(2), "c": ast.Int(3)}
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"and", `a = 1 and b = 2`, true},
		{"and short-circuit", `a = 9 and b = 2`, false},
		{"or", `a = 9 or b = 2`, true},
		{"left fold groups and first", `a = 9 and b = 2 or c = 3`, true},
		{"negated scope", `not (a = 1)`, false},
		{"bang scope", `!(a = 9)`, true},
		{"plain scope", `(a = 1 or b = 9)`, true},
		{"bare boolean literal", `true`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalExpr(t, tt.src, ctx); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestEvalBareVariable(t *testing.T) {
	if !evalExpr(t, `isBeta`, Context{"isBeta": ast.Bool(true)}) {
		t.Error("bool true variable should hold")
	}
	if evalExpr(t, `isBeta`, Context{"isBeta": ast.String("true")}) {
		t.Error("non-bool variable is not truthy")
	}
	if evalExpr(t, `isBeta`, Context{}) {
		t.Error("missing variable is false")
	}
}

func TestEvalSegments(t *testing.T) {
	seg, err := parse.Expression(`email ~$ "@corp.example"`)
	if err != nil {
		t.Fatal(err)
	}
	segments := map[string]ast.Node{"staff": seg}
	node, err := parse.Expression(`segment(staff)`)
	if err != nil {
		t.Fatal(err)
	}
	if !Eval(node, Context{"email": ast.String("a@corp.example")}, "FF-x", segments) {
		t.Error("segment should match")
	}
	if Eval(node, Context{"email": ast.String("a@other.example")}, "FF-x", segments) {
		t.Error("segment should miss")
	}

	unknown, err := parse.Expression(`segment(nonexistent)`)
	if err != nil {
		t.Fatal(err)
	}
	if Eval(unknown, Context{}, "FF-x", segments) {
		t.Error("unknown segment must evaluate false")
	}
}

func TestEvalPercentage(t *testing.T) {
	node, err := parse.Expression(`percentage(50%, userId)`)
	if err != nil {
		t.Fatal(err)
	}
	// Bucket 46118 for FF-test-rollout.user-123, 69367 for user-456.
	if !Eval(node, Context{"userId": ast.String("user-123")}, "FF-test-rollout", nil) {
		t.Error("user-123 should be inside 50%")
	}
	if Eval(node, Context{"userId": ast.String("user-456")}, "FF-test-rollout", nil) {
		t.Error("user-456 should be outside 50%")
	}
	if Eval(node, Context{}, "FF-test-rollout", nil) {
		t.Error("missing bucket field must evaluate false")
	}

	salted, err := parse.Expression(`percentage(50%, userId, exp1)`)
	if err != nil {
		t.Fatal(err)
	}
	// alice buckets at 72469 unsalted and 77285 with exp1 on FF-test-rollout.
	if Eval(salted, Context{"userId": ast.String("alice")}, "FF-test-rollout", nil) {
		t.Error("salted alice should be outside 50%")
	}
}
