//go:build integration

package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/IgorPritula/entity-ref-dependency/internal/testutil"
)

func TestIntegration_ImportDeleteWorker(t *testing.T) {
	t.Parallel()
	site := testutil.NewSite(t).OnDisk().Build()
	site.WriteConfig("[cascade]\nallow_cascade_delete = true\nallowed_entity_types = [\"node\"]")

	file := filepath.Join(site.Dir, "entities.yaml")
	data := "type: taxonomy_term\nid: \"9\"\nbundle: tags\n---\ntype: node\nid: \"5\"\nbundle: article\nfields:\n  field_tags:\n    - target_id: \"9\"\n"
	if err := os.WriteFile(file, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	site.RunCLI("import", file).MustSucceed(t)

	result := site.RunCLI("delete", "taxonomy_term", "9", "--force").MustSucceed(t)
	if queued := result.DataList("queued"); len(queued) != 1 || queued[0] != "node__5" {
		t.Fatalf("queued = %v, want [node__5]", queued)
	}

	result = site.RunCLI("worker", "--once").MustSucceed(t)
	if n := result.DataNumber("deleted"); n != 1 {
		t.Fatalf("deleted = %v, want 1", n)
	}

	site.RunCLI("delete", "node", "5", "--force").MustFail(t, "ENTITY_NOT_FOUND")
}

func TestIntegration_ReindexStdinImport(t *testing.T) {
	t.Parallel()
	site := testutil.NewSite(t).OnDisk().Build()
	site.WriteConfig("")

	site.RunCLIWithStdin("type: comment\nid: \"1\"\nfields:\n  field_node:\n    - target_id: \"5\"\n", "save", "-").MustSucceed(t)

	result := site.RunCLI("reindex").MustSucceed(t)
	if msg := result.DataString("message"); msg != "Was indexed 1 entities" {
		t.Fatalf("message = %q", msg)
	}
	result = site.RunCLI("refs", "node", "5").MustSucceed(t)
	if refs := result.DataList("refs"); len(refs) != 1 {
		t.Fatalf("refs = %v, want one row", refs)
	}
}
