package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/safeprotest/factcheck/internal/model"
)

// mockEvaluator implements Evaluator
type mockEvaluator struct {
	shouldError bool
}

func (m *mockEvaluator) Evaluate(ctx context.Context, claim string, sources []string) (*model.Evaluation, error) {
	time.Sleep(5 * time.Millisecond) // Simulate work
	if m.shouldError || strings.Contains(claim, "fail") {
		return nil, errors.New("evaluate error")
	}
	return &model.Evaluation{
		Claim:  claim,
		Result: model.Result{Status: model.StatusUnverified, Sources: sources},
	}, nil
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchEvaluator_EvaluateItems(t *testing.T) {
	b := NewBatchEvaluator(&mockEvaluator{}, 2)

	items := []BatchItem{
		{Claim: "Road closed"},
		{Claim: "Bridge open", Sources: []string{"npr.org"}},
		{Claim: "March rerouted"},
		{Claim: "Water station moved"},
	}

	results := b.EvaluateItems(context.Background(), items)
	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}

	for i, res := range results {
		if res.Index != i {
			t.Errorf("expected result %d in input order, got index %d", i, res.Index)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %q: %v", res.Item.Claim, res.Error)
		}
		if res.Evaluation == nil || res.Evaluation.Claim != items[i].Claim {
			t.Errorf("expected evaluation for %q", items[i].Claim)
		}
	}
}

func TestBatchEvaluator_EvaluateItems_Error(t *testing.T) {
	b := NewBatchEvaluator(&mockEvaluator{}, 2)

	results := b.EvaluateItems(context.Background(), []BatchItem{{Claim: "ok"}, {Claim: "fail"}})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].GetError() != nil {
		t.Errorf("expected first to succeed, got %v", results[0].Error)
	}
	if results[1].GetError() == nil {
		t.Error("expected error, got nil")
	}
	if results[1].Evaluation != nil {
		t.Error("expected nil evaluation on error")
	}
}

func TestBatchEvaluator_EvaluateItems_Empty(t *testing.T) {
	b := NewBatchEvaluator(&mockEvaluator{}, 2)

	results := b.EvaluateItems(context.Background(), []BatchItem{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadClaimsFromFile(t *testing.T) {
	content := `Road closed on Main St
# comment
Bridge open | npr.org, reuters.com

   Water station moved   `

	items, err := ReadClaimsFromFile(writeTemp(t, "claims.txt", content))
	if err != nil {
		t.Fatalf("ReadClaimsFromFile failed: %v", err)
	}

	expected := []BatchItem{
		{Claim: "Road closed on Main St"},
		{Claim: "Bridge open", Sources: []string{"npr.org", "reuters.com"}},
		{Claim: "Water station moved"},
	}
	if !reflect.DeepEqual(items, expected) {
		t.Errorf("expected %v, got %v", expected, items)
	}
}

func TestReadClaimsFromFile_NonExistent(t *testing.T) {
	_, err := ReadClaimsFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestReadClaimsFromFile_Deduplication(t *testing.T) {
	items, err := ReadClaimsFromFile(writeTemp(t, "dup.txt", "Road closed\nRoad closed\n"))
	if err != nil {
		t.Fatalf("ReadClaimsFromFile failed: %v", err)
	}

	if len(items) != 1 {
		t.Errorf("expected 1 claim after deduplication, got %d", len(items))
	}
}

func TestReadBatchFile_YAMLList(t *testing.T) {
	content := `- claim: Road closed
  sources: [reuters.com]
- claim: "  "
- claim: Bridge open
`
	items, err := ReadBatchFile(writeTemp(t, "claims.yaml", content))
	if err != nil {
		t.Fatalf("ReadBatchFile failed: %v", err)
	}

	expected := []BatchItem{
		{Claim: "Road closed", Sources: []string{"reuters.com"}},
		{Claim: "Bridge open"},
	}
	if !reflect.DeepEqual(items, expected) {
		t.Errorf("expected %v, got %v", expected, items)
	}
}

func TestReadBatchFile_YAMLDocument(t *testing.T) {
	content := `claims:
  - claim: Road closed
  - claim: Bridge open
    sources:
      - bbc.com
`
	items, err := ReadBatchFile(writeTemp(t, "claims.yml", content))
	if err != nil {
		t.Fatalf("ReadBatchFile failed: %v", err)
	}
	if len(items) != 2 || items[1].Sources[0] != "bbc.com" {
		t.Errorf("unexpected items %v", items)
	}
}

func TestReadBatchFile_InvalidYAML(t *testing.T) {
	_, err := ReadBatchFile(writeTemp(t, "bad.yaml", "claims: [unterminated"))
	if err == nil {
		t.Error("expected parse error")
	}
}

func TestBatchEvaluator_EvaluateFile(t *testing.T) {
	path := writeTemp(t, "claims.txt", "Road closed\nBridge open\n# comment\n\nMarch rerouted\n")

	b := NewBatchEvaluator(&mockEvaluator{}, 2)
	results, err := b.EvaluateFile(context.Background(), path)
	if err != nil {
		t.Fatalf("EvaluateFile failed: %v", err)
	}

	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchEvaluator_EvaluateFile_NonExistent(t *testing.T) {
	b := NewBatchEvaluator(&mockEvaluator{}, 2)

	_, err := b.EvaluateFile(context.Background(), "no_such_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestEvaluateResult_GetError(t *testing.T) {
	r1 := &EvaluateResult{Item: BatchItem{Claim: "x"}}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("evaluate failed")
	r2 := &EvaluateResult{Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}

// slowEvaluator takes a fixed time per claim and ignores cancellation
type slowEvaluator struct {
	delay time.Duration
}

func (s *slowEvaluator) Evaluate(ctx context.Context, claim string, sources []string) (*model.Evaluation, error) {
	time.Sleep(s.delay)
	return &model.Evaluation{Claim: claim}, nil
}

func TestBatchEvaluator_EvaluateItems_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := []BatchItem{{Claim: "a"}, {Claim: "b"}, {Claim: "c"}, {Claim: "d"}, {Claim: "e"}}
	results := NewBatchEvaluator(&mockEvaluator{}, 2).EvaluateItems(ctx, items)

	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}
	for i, res := range results {
		if res.Index != i || res.Item.Claim != items[i].Claim {
			t.Errorf("result %d: expected item %q, got index %d %q", i, items[i].Claim, res.Index, res.Item.Claim)
		}
		if !errors.Is(res.Error, context.Canceled) {
			t.Errorf("result %d: expected context.Canceled, got %v", i, res.Error)
		}
	}
}

func TestBatchEvaluator_EvaluateItems_TimeoutKeepsEveryItem(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	items := make([]BatchItem, 20)
	for i := range items {
		items[i] = BatchItem{Claim: strings.Repeat("x", i+1)}
	}

	results := NewBatchEvaluator(&slowEvaluator{delay: 30 * time.Millisecond}, 1).EvaluateItems(ctx, items)
	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}

	failed := 0
	for i, res := range results {
		if res.Index != i {
			t.Errorf("expected result %d in input order, got index %d", i, res.Index)
		}
		if res.Error != nil {
			failed++
			if !errors.Is(res.Error, context.DeadlineExceeded) {
				t.Errorf("result %d: expected deadline error, got %v", i, res.Error)
			}
		}
	}
	if failed == 0 {
		t.Error("expected items cut off by the timeout to report errors")
	}
}
