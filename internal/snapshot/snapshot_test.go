package snapshot

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/TimurManjosov/flagfile/ast"
	"github.com/TimurManjosov/flagfile/eval"
)

const demoRaw = `
FF-demo -> true

FF-plan {
	plan = "pro" -> "silver"
	"bronze"
}
`

func TestBuild(t *testing.T) {
	s, err := Build(demoRaw)
	if err != nil {
		t.Fatal(err)
	}
	if s.Raw != demoRaw {
		t.Error("raw text not preserved")
	}
	if names := s.File.Names(); len(names) != 2 {
		t.Errorf("expected 2 flags, got %v", names)
	}
	if v, ok := s.File.Eval("FF-demo", eval.Context{}); !ok || v != ast.OnOff(true) {
		t.Errorf("FF-demo = %#v, %v", v, ok)
	}
}

func TestBuildParseError(t *testing.T) {
	if _, err := Build("FF-bad -> 5.5"); err == nil {
		t.Fatal("want parse error")
	}
}

func TestETagDeterministic(t *testing.T) {
	s1, err := Build(demoRaw)
	if err != nil {
		t.Fatal(err)
	}
	s2, _ := Build(demoRaw)
	if s1.ETag != s2.ETag {
		t.Errorf("same text, different ETags: %s vs %s", s1.ETag, s2.ETag)
	}
	s3, _ := Build("FF-other -> false\n")
	if s3.ETag == s1.ETag {
		t.Error("different text, same ETag")
	}
}

func TestETagFormat(t *testing.T) {
	s, err := Build(demoRaw)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.ETag) < 4 || s.ETag[:3] != `W/"` {
		t.Errorf("expected weak ETag, got %s", s.ETag)
	}
	if s.ETag[len(s.ETag)-1] != '"' {
		t.Errorf("ETag not quote-terminated: %s", s.ETag)
	}
}

func TestLoadAndUpdate(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	initial := Load()
	if initial == nil {
		t.Fatal("Load returned nil")
	}
	if len(initial.File.Names()) != 0 {
		t.Errorf("expected empty initial state, got %v", initial.File.Names())
	}

	s, err := Build(demoRaw)
	if err != nil {
		t.Fatal(err)
	}
	Update(s)

	loaded := Load()
	if loaded.ETag != s.ETag {
		t.Errorf("ETag = %s, want %s", loaded.ETag, s.ETag)
	}
	if len(loaded.File.Names()) != 2 {
		t.Errorf("expected 2 flags after update, got %v", loaded.File.Names())
	}
}

func TestUpdateNotifiesSubscribers(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	updates, unsub := Subscribe()
	defer unsub()

	s, err := Build(demoRaw)
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		Update(s)
	}()

	select {
	case ev := <-updates:
		if ev.Name != EventFlagUpdate {
			t.Errorf("event = %s, want %s", ev.Name, EventFlagUpdate)
		}
		if ev.ETag != s.ETag {
			t.Errorf("ETag = %s, want %s", ev.ETag, s.ETag)
		}
	case <-time.After(1 * time.Second):
		t.Error("timeout waiting for update event")
	}
}

func TestLoadFile(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "Flagfile")
	if err := os.WriteFile(path, []byte("FF-disk -> 42\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := s.File.Eval("FF-disk", eval.Context{}); !ok || v != ast.Integer(42) {
		t.Errorf("FF-disk = %#v, %v", v, ok)
	}
	if Load().ETag != s.ETag {
		t.Error("LoadFile did not install the state")
	}
}

func TestConcurrentAccess(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var wg sync.WaitGroup
	iterations := 100

	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if Load() == nil {
				t.Error("Load returned nil")
			}
		}()
	}

	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := Build(demoRaw)
			if err != nil {
				t.Error(err)
				return
			}
			Update(s)
		}()
	}

	wg.Wait()

	if Load() == nil {
		t.Error("final Load returned nil")
	}
}
