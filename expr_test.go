package keel

import (
	"errors"
	"testing"
)

// testTree builds:
//
//	database
//	  host = "localhost"
//	  tables
//	    table = "users"   [type=system]
//	    table = "orders"
//	    table = "items"
//	server [port=8080]
//	  name = "web"
func testTree() *Node {
	tables := NewNode("tables").
		WithChild(NewValueNode("table", "users").WithAttribute("type", "system")).
		WithChild(NewValueNode("table", "orders")).
		WithChild(NewValueNode("table", "items"))
	database := NewNode("database").
		WithChild(NewValueNode("host", "localhost")).
		WithChild(tables)
	server := NewNode("server").
		WithAttribute("port", 8080).
		WithChild(NewValueNode("name", "web"))
	return NewNode("").WithChild(database).WithChild(server)
}

func TestParseExpr_Malformed(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty segment", "a..b"},
		{"trailing dot", "a.b."},
		{"leading dot", ".a"},
		{"unterminated index", "a(1.b"},
		{"non-numeric index", "a(x)"},
		{"negative index", "a(-1)"},
		{"unterminated attribute", "a[@attr"},
		{"empty attribute", "a[@]"},
		{"attribute not last", "a[@x].b"},
		{"index without name", "(0)"},
		{"stray bracket", "a]b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExpr(tt.path)
			if err == nil {
				t.Fatalf("ParseExpr(%q) succeeded, want error", tt.path)
			}
			var pse *PathSyntaxError
			if !errors.As(err, &pse) {
				t.Errorf("error type = %T, want *PathSyntaxError", err)
			}
		})
	}
}

func TestExpression_Query(t *testing.T) {
	root := testTree()
	tests := []struct {
		name string
		path string
		want []any // expected Match values, in order
	}{
		{"simple", "database.host", []any{"localhost"}},
		{"unindexed repeated matches all", "database.tables.table", []any{"users", "orders", "items"}},
		{"indexed picks second", "database.tables.table(1)", []any{"orders"}},
		{"indexed picks first", "database.tables.table(0)", []any{"users"}},
		{"index out of range", "database.tables.table(3)", nil},
		{"missing segment", "database.nope.host", nil},
		{"attribute", "server[@port]", []any{8080}},
		{"attribute on repeated", "database.tables.table(0)[@type]", []any{"system"}},
		{"missing attribute", "server[@nope]", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := MustParseExpr(tt.path)
			matches := expr.Query(root)
			if len(matches) != len(tt.want) {
				t.Fatalf("Query(%q) returned %d matches, want %d", tt.path, len(matches), len(tt.want))
			}
			for i, m := range matches {
				if m.Value() != tt.want[i] {
					t.Errorf("match %d = %v, want %v", i, m.Value(), tt.want[i])
				}
			}
		})
	}
}

func TestExpression_QueryEmptyPathMatchesRoot(t *testing.T) {
	root := testTree()
	matches := MustParseExpr("").Query(root)
	if len(matches) != 1 || matches[0].Node != root {
		t.Fatalf("empty path should match the root, got %v", matches)
	}
}

func TestExpression_SetValueReplacesExisting(t *testing.T) {
	root := testTree()
	expr := MustParseExpr("database.host")

	newRoot := expr.SetValue(root, "db.internal")

	if got := expr.Query(newRoot)[0].Value(); got != "db.internal" {
		t.Errorf("new tree value = %v", got)
	}
	// Aliasing: the original tree is untouched.
	if got := expr.Query(root)[0].Value(); got != "localhost" {
		t.Errorf("original tree value changed to %v", got)
	}
}

func TestExpression_SetValueSynthesizesPath(t *testing.T) {
	root := testTree()
	expr := MustParseExpr("cache.redis.addr")

	newRoot := expr.SetValue(root, "localhost:6379")

	matches := expr.Query(newRoot)
	if len(matches) != 1 || matches[0].Value() != "localhost:6379" {
		t.Fatalf("synthesized path query = %v", matches)
	}
	// Intermediate nodes are created empty.
	cache := MustParseExpr("cache").Query(newRoot)
	if len(cache) != 1 || cache[0].Node.Value() != nil {
		t.Error("intermediate node should exist with no value")
	}
	if len(expr.Query(root)) != 0 {
		t.Error("original tree gained the synthesized path")
	}
}

func TestExpression_SetValueIndexed(t *testing.T) {
	root := testTree()
	expr := MustParseExpr("database.tables.table(1)")

	newRoot := expr.SetValue(root, "invoices")

	all := MustParseExpr("database.tables.table").Query(newRoot)
	got := []any{all[0].Value(), all[1].Value(), all[2].Value()}
	want := []any{"users", "invoices", "items"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("table(%d) = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestExpression_SetAttribute(t *testing.T) {
	root := testTree()
	expr := MustParseExpr("server[@port]")

	newRoot := expr.SetValue(root, 9090)

	if got := expr.Query(newRoot)[0].Value(); got != 9090 {
		t.Errorf("attribute = %v, want 9090", got)
	}
	if got := expr.Query(root)[0].Value(); got != 8080 {
		t.Errorf("original attribute changed to %v", got)
	}

	// Synthesizes the node when missing.
	fresh := MustParseExpr("listener[@port]").SetValue(root, 1234)
	if got := MustParseExpr("listener[@port]").Query(fresh)[0].Value(); got != 1234 {
		t.Errorf("synthesized attribute = %v", got)
	}
}

func TestExpression_AddValueAppendsSibling(t *testing.T) {
	root := testTree()
	expr := MustParseExpr("database.tables.table")

	newRoot := expr.AddValue(root, "archive")

	all := expr.Query(newRoot)
	if len(all) != 4 {
		t.Fatalf("expected 4 tables, got %d", len(all))
	}
	if all[3].Value() != "archive" {
		t.Errorf("appended value = %v", all[3].Value())
	}
	if len(expr.Query(root)) != 3 {
		t.Error("original tree changed")
	}
}

func TestExpression_Remove(t *testing.T) {
	root := testTree()

	// Remove one indexed node.
	newRoot, removed := MustParseExpr("database.tables.table(1)").Remove(root)
	if !removed {
		t.Fatal("expected removal")
	}
	rest := MustParseExpr("database.tables.table").Query(newRoot)
	if len(rest) != 2 || rest[0].Value() != "users" || rest[1].Value() != "items" {
		t.Errorf("remaining tables wrong: %v", rest)
	}

	// Remove all nodes with a repeated name.
	newRoot, removed = MustParseExpr("database.tables.table").Remove(root)
	if !removed || len(MustParseExpr("database.tables.table").Query(newRoot)) != 0 {
		t.Error("expected all tables removed")
	}

	// Remove an attribute.
	newRoot, removed = MustParseExpr("server[@port]").Remove(root)
	if !removed || len(MustParseExpr("server[@port]").Query(newRoot)) != 0 {
		t.Error("expected attribute removed")
	}

	// Removing a missing path reports false.
	if _, removed := MustParseExpr("no.such.path").Remove(root); removed {
		t.Error("removal of missing path reported true")
	}
}

func TestNodeKey(t *testing.T) {
	n := NewValueNode("host", "x")
	if got := NodeKey(n, "database"); got != "database.host" {
		t.Errorf("NodeKey = %q", got)
	}
	if got := NodeKey(n, ""); got != "host" {
		t.Errorf("NodeKey with empty parent = %q", got)
	}
	if got := NodeKey(NewNode(""), "database"); got != "database" {
		t.Errorf("NodeKey of unnamed node = %q", got)
	}
	if got := AttributeKey("server", "port"); got != "server[@port]" {
		t.Errorf("AttributeKey = %q", got)
	}
}
