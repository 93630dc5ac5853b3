package ui

import (
	"strings"
	"testing"

	"github.com/IgorPritula/entity-ref-dependency/internal/dependency"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
)

func TestMain(m *testing.M) {
	DisableColor()
	m.Run()
}

func TestRenderTree(t *testing.T) {
	comment := &dependency.Node{Ref: model.Ref("comment", "1")}
	node5 := &dependency.Node{
		Ref:    model.Ref("node", "5"),
		Entity: &model.Entity{Type: "node", ID: "5", Label: "Article 5"},
		Children: map[string]map[string]*dependency.Node{
			"comment": {"1": comment},
		},
	}
	node7 := &dependency.Node{Ref: model.Ref("node", "7"), Seen: true}
	tree := &dependency.Tree{
		Root: &dependency.Node{
			Ref: model.Ref("taxonomy_term", "9"),
			Children: map[string]map[string]*dependency.Node{
				"node": {"5": node5, "7": node7},
			},
		},
		Truncated: true,
	}

	got := RenderTree(tree)
	want := strings.Join([]string{
		"taxonomy_term__9",
		"├── node__5 Article 5",
		"│   └── comment__1",
		"└── node__7 (seen)",
		"⚠ depth limit reached; deeper dependents not shown",
		"",
	}, "\n")
	if got != want {
		t.Fatalf("RenderTree mismatch\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestProgressBarRender(t *testing.T) {
	p := &ProgressBar{display: NewDisplayContextWithWidth(80)}

	tests := []struct {
		fraction float64
		percent  string
		filled   int
	}{
		{0, "  0%", 0},
		{0.5, " 50%", 20},
		{1, "100%", 40},
		{1.7, "100%", 40},
	}
	for _, tt := range tests {
		got := p.Render(tt.fraction, "node/article")
		if !strings.Contains(got, tt.percent) {
			t.Errorf("Render(%v) = %q, want percent %q", tt.fraction, got, tt.percent)
		}
		if n := strings.Count(got, "█"); n != tt.filled {
			t.Errorf("Render(%v) filled %d cells, want %d", tt.fraction, n, tt.filled)
		}
		if !strings.HasSuffix(got, "node/article") {
			t.Errorf("Render(%v) = %q, want label suffix", tt.fraction, got)
		}
	}
}

func TestTable(t *testing.T) {
	tbl := NewTable(3)
	tbl.AddRow("node__5", "field_tags", "taxonomy_term__9")
	tbl.AddRow("comment__12", "field_node", "node__5")

	want := "node__5      field_tags  taxonomy_term__9\n" +
		"comment__12  field_node  node__5\n"
	if got := tbl.String(); got != want {
		t.Fatalf("Table.String() = %q, want %q", got, want)
	}
}

func TestCount(t *testing.T) {
	if got := Count(1, "row"); got != "(1 row)" {
		t.Errorf("Count(1) = %q", got)
	}
	if got := Count(3, "row"); got != "(3 rows)" {
		t.Errorf("Count(3) = %q", got)
	}
}
