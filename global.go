package flagfile

import (
	"sync/atomic"

	"github.com/TimurManjosov/flagfile/ast"
)

// current is the process-wide table. Readers get whichever snapshot was
// installed when they loaded the pointer; swaps are atomic and never
// expose a half-built table.
var current atomic.Pointer[FlagFile]

// Init parses the file at path and installs it as the process-wide
// table. Initializing twice without Reset is caller misuse and panics.
func Init(path string) error {
	f, err := ParseFile(path)
	if err != nil {
		return err
	}
	install(f)
	return nil
}

// InitFromString is Init for in-memory source.
func InitFromString(src string) error {
	f, err := Parse(src)
	if err != nil {
		return err
	}
	install(f)
	return nil
}

func install(f *FlagFile) {
	if !current.CompareAndSwap(nil, f) {
		panic("flagfile: already initialized, call Reset before initializing again")
	}
}

// Replace swaps in a new table. Unlike Init it is legal at any time;
// hot reload paths parse off to the side and call Replace on success.
func Replace(f *FlagFile) {
	current.Store(f)
}

// Reset clears the process-wide table. Intended for tests and for
// controlled shutdown.
func Reset() {
	current.Store(nil)
}

// Current returns the installed table. Calling it before Init is caller
// misuse and panics.
func Current() *FlagFile {
	f := current.Load()
	if f == nil {
		panic("flagfile: not initialized, call Init first")
	}
	return f
}

// Get resolves a flag from the process-wide table.
func Get(name string, ctx Context) (ast.FlagValue, bool) {
	return Current().Eval(name, ctx)
}

// GetWithEnv resolves a flag from the process-wide table against an
// environment.
func GetWithEnv(name string, ctx Context, env string) (ast.FlagValue, bool) {
	return Current().EvalWithEnv(name, ctx, env)
}
