package keel

import "testing"

func TestEnvLookup(t *testing.T) {
	t.Setenv("KEEL_LOOKUP_TEST", "present")

	var l EnvLookup
	got, ok := l.Lookup("KEEL_LOOKUP_TEST")
	if !ok || got != "present" {
		t.Errorf("Lookup = %q, %v", got, ok)
	}
	if _, ok := l.Lookup("KEEL_LOOKUP_TEST_ABSENT"); ok {
		t.Error("absent variable reported found")
	}
}

func TestSysLookup(t *testing.T) {
	SetSystemProperty("keel.lookup.test", "v")
	defer ClearSystemProperty("keel.lookup.test")

	var l SysLookup
	got, ok := l.Lookup("keel.lookup.test")
	if !ok || got != "v" {
		t.Errorf("Lookup = %q, %v", got, ok)
	}

	ClearSystemProperty("keel.lookup.test")
	if _, ok := l.Lookup("keel.lookup.test"); ok {
		t.Error("cleared property reported found")
	}
}

func TestLocalhostLookup_Name(t *testing.T) {
	var l LocalhostLookup
	got, ok := l.Lookup("name")
	if !ok || got == "" {
		t.Errorf("Lookup(name) = %q, %v", got, ok)
	}
	if _, ok := l.Lookup("bogus"); ok {
		t.Error("unknown localhost key reported found")
	}
}

func TestDefaultPrefixLookups(t *testing.T) {
	lookups := DefaultPrefixLookups()
	for _, prefix := range []string{"env", "sys", "localhost"} {
		if _, ok := lookups[prefix]; !ok {
			t.Errorf("missing default prefix %q", prefix)
		}
	}
	if _, ok := lookups["const"]; ok {
		t.Error("const must not be registered by default")
	}
}

func TestLookupFunc(t *testing.T) {
	l := LookupFunc(func(name string) (string, bool) {
		return "echo:" + name, true
	})
	got, ok := l.Lookup("x")
	if !ok || got != "echo:x" {
		t.Errorf("LookupFunc = %q, %v", got, ok)
	}
}
