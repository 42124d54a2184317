package keel

import (
	"errors"
	"testing"
)

// mapLookup resolves from a fixed map; the test stand-in for external
// lookups.
type mapLookup map[string]string

func (m mapLookup) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func newTestInterpolator(defaults map[string]string) *Interpolator {
	ip := NewInterpolator()
	if defaults != nil {
		ip.SetDefault(mapLookup(defaults))
	}
	return ip
}

func TestInterpolator_NoVariablesIsIdentity(t *testing.T) {
	ip := newTestInterpolator(nil)
	for _, s := range []string{"", "plain", "a b c", "100%", "}{", "$ alone", "almost $ {x}"} {
		got, err := ip.Interpolate(s)
		if err != nil {
			t.Fatalf("Interpolate(%q): %v", s, err)
		}
		if got != s {
			t.Errorf("Interpolate(%q) = %q, want identity", s, got)
		}
	}
}

func TestInterpolator_PrefixDispatch(t *testing.T) {
	ip := newTestInterpolator(nil)
	ip.Register("test", mapLookup{"key": "value"})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"registered prefix resolves", "${test:key}", "value"},
		{"embedded in text", "a ${test:key} z", "a value z"},
		{"unknown name stays verbatim", "${test:missing}", "${test:missing}"},
		{"unknown prefix stays verbatim", "${nope:key}", "${nope:key}"},
		{"two variables", "${test:key}/${test:key}", "value/value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ip.Interpolate(tt.input)
			if err != nil {
				t.Fatalf("Interpolate: %v", err)
			}
			if got != tt.want {
				t.Errorf("Interpolate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestInterpolator_DeregisterRestoresVerbatim(t *testing.T) {
	ip := newTestInterpolator(nil)
	ip.Register("test", mapLookup{"key": "value"})

	if !ip.Deregister("test") {
		t.Fatal("Deregister returned false for a registered prefix")
	}
	if ip.Deregister("test") {
		t.Error("Deregister returned true for an absent prefix")
	}

	got, _ := ip.Interpolate("${test:key}")
	if got != "${test:key}" {
		t.Errorf("after deregister got %q", got)
	}
}

func TestInterpolator_DefaultLookup(t *testing.T) {
	ip := newTestInterpolator(map[string]string{
		"base":     "/x",
		"first":    "${base}/y",
		"second":   "${first}/z",
		"has:colon": "colonvalue",
	})

	got, err := ip.Interpolate("${second}")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/x/y/z" {
		t.Errorf("multi-level chain = %q, want /x/y/z", got)
	}

	// Content with an unregistered prefix goes to the default lookup whole.
	got, _ = ip.Interpolate("${has:colon}")
	if got != "colonvalue" {
		t.Errorf("unregistered prefix fallthrough = %q", got)
	}
}

func TestInterpolator_Escaping(t *testing.T) {
	ip := newTestInterpolator(map[string]string{"var": "x"})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"escaped marker", "$${x}", "${x}"},
		{"escape is single-level", "$${var}", "${var}"},
		{"inner variable still resolves", "$${${var}}", "${x}"},
		{"escape in surrounding text", "a $${b} ${var}", "a ${b} x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ip.Interpolate(tt.input)
			if err != nil {
				t.Fatalf("Interpolate: %v", err)
			}
			if got != tt.want {
				t.Errorf("Interpolate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestInterpolator_CycleDetection(t *testing.T) {
	ip := newTestInterpolator(map[string]string{
		"a": "${b}",
		"b": "${a}",
	})

	_, err := ip.Interpolate("${a}")
	if err == nil {
		t.Fatal("expected cycle error")
	}
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("error type = %T, want *CycleError", err)
	}
	if ce.Variable != "a" {
		t.Errorf("cycle variable = %q, want a", ce.Variable)
	}

	// Self-reference is the smallest cycle.
	ip2 := newTestInterpolator(map[string]string{"self": "${self}"})
	if _, err := ip2.Interpolate("${self}"); !errors.As(err, &ce) {
		t.Errorf("self-reference error = %v, want *CycleError", err)
	}
}

func TestInterpolator_CycleSetScopedPerCall(t *testing.T) {
	// The same variable appearing twice in one string is not a cycle.
	ip := newTestInterpolator(map[string]string{"v": "x"})
	got, err := ip.Interpolate("${v} and ${v}")
	if err != nil {
		t.Fatalf("repeated variable treated as cycle: %v", err)
	}
	if got != "x and x" {
		t.Errorf("got %q", got)
	}

	// After a cycle failure, a subsequent clean call succeeds.
	ip2 := newTestInterpolator(map[string]string{"a": "${a}", "ok": "fine"})
	if _, err := ip2.Interpolate("${a}"); err == nil {
		t.Fatal("expected cycle error")
	}
	got, err = ip2.Interpolate("${ok}")
	if err != nil || got != "fine" {
		t.Errorf("clean call after cycle: got %q, err %v", got, err)
	}
}

func TestInterpolator_ResolvedValueReinterpolated(t *testing.T) {
	ip := newTestInterpolator(map[string]string{"inner": "deep"})
	ip.Register("test", mapLookup{"outer": "->${inner}<-"})

	got, err := ip.Interpolate("${test:outer}")
	if err != nil {
		t.Fatal(err)
	}
	if got != "->deep<-" {
		t.Errorf("got %q", got)
	}
}

func TestInterpolator_ParentChaining(t *testing.T) {
	parent := newTestInterpolator(map[string]string{"pkey": "pval"})
	parent.Register("custom", mapLookup{"k": "from-parent"})

	child := NewInterpolator()
	child.SetParent(parent)

	// Prefix miss falls through to the parent's table.
	got, err := child.Interpolate("${custom:k}")
	if err != nil {
		t.Fatal(err)
	}
	if got != "from-parent" {
		t.Errorf("parent prefix chain = %q", got)
	}

	// Default lookup falls through when the child has none.
	got, _ = child.Interpolate("${pkey}")
	if got != "pval" {
		t.Errorf("parent default chain = %q", got)
	}

	// A local registration shadows the parent.
	child.Register("custom", mapLookup{"k": "from-child"})
	got, _ = child.Interpolate("${custom:k}")
	if got != "from-child" {
		t.Errorf("local registration did not shadow parent: %q", got)
	}
}

func TestInterpolator_ParentDefaultConsultedOnMiss(t *testing.T) {
	parent := newTestInterpolator(map[string]string{
		"pkey":   "pval",
		"shared": "from-parent",
	})
	child := newTestInterpolator(map[string]string{
		"ckey":   "cval",
		"shared": "from-child",
	})
	child.SetParent(parent)

	// A key the child's own default cannot resolve reaches the parent's.
	got, err := child.Interpolate("${pkey}")
	if err != nil {
		t.Fatal(err)
	}
	if got != "pval" {
		t.Errorf("parent default on local miss = %q, want pval", got)
	}

	// The local default still wins for keys it knows.
	got, _ = child.Interpolate("${ckey}")
	if got != "cval" {
		t.Errorf("local default = %q, want cval", got)
	}
	got, _ = child.Interpolate("${shared}")
	if got != "from-child" {
		t.Errorf("local default should shadow the parent: %q", got)
	}

	// A miss everywhere still leaves the placeholder verbatim.
	got, _ = child.Interpolate("${nowhere}")
	if got != "${nowhere}" {
		t.Errorf("unresolved variable = %q", got)
	}
}

func TestInterpolator_UnterminatedMarkerCopied(t *testing.T) {
	ip := newTestInterpolator(map[string]string{"v": "x"})
	got, err := ip.Interpolate("start ${v} and ${unterminated")
	if err != nil {
		t.Fatal(err)
	}
	if got != "start x and ${unterminated" {
		t.Errorf("got %q", got)
	}
}

func TestInterpolator_EnvPrefix(t *testing.T) {
	t.Setenv("KEEL_INTERP_TEST", "from-env")

	ip := NewInterpolator()
	got, err := ip.Interpolate("${env:KEEL_INTERP_TEST}")
	if err != nil {
		t.Fatal(err)
	}
	if got != "from-env" {
		t.Errorf("env lookup = %q", got)
	}
}

func TestInterpolator_SysPrefix(t *testing.T) {
	SetSystemProperty("keel.test.prop", "sys-value")
	defer ClearSystemProperty("keel.test.prop")

	ip := NewInterpolator()
	got, err := ip.Interpolate("${sys:keel.test.prop}")
	if err != nil {
		t.Fatal(err)
	}
	if got != "sys-value" {
		t.Errorf("sys lookup = %q", got)
	}

	// Seeded properties are present.
	if _, ok := SystemProperty("os.name"); !ok {
		t.Error("os.name should be seeded")
	}
}
