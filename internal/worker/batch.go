package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/safeprotest/factcheck/internal/model"
)

// Evaluator scores one claim
type Evaluator interface {
	Evaluate(ctx context.Context, claim string, sources []string) (*model.Evaluation, error)
}

// BatchItem is one claim in a batch file
type BatchItem struct {
	Claim   string   `yaml:"claim" json:"claim"`
	Sources []string `yaml:"sources,omitempty" json:"sources,omitempty"`
}

// EvaluateJob evaluates one batch item
type EvaluateJob struct {
	Index     int
	Item      BatchItem
	Evaluator Evaluator
}

// Execute runs the evaluation
func (j *EvaluateJob) Execute(ctx context.Context) *EvaluateResult {
	eval, err := j.Evaluator.Evaluate(ctx, j.Item.Claim, j.Item.Sources)
	return &EvaluateResult{
		Index:      j.Index,
		Item:       j.Item,
		Evaluation: eval,
		Error:      err,
	}
}

// EvaluateResult is the outcome of one batch item
type EvaluateResult struct {
	Index      int               `json:"index"`
	Item       BatchItem         `json:"item"`
	Evaluation *model.Evaluation `json:"evaluation,omitempty"`
	Error      error             `json:"-"`
}

// GetError returns the evaluation error
func (r *EvaluateResult) GetError() error {
	return r.Error
}

// BatchEvaluator evaluates many claims concurrently
type BatchEvaluator struct {
	evaluator   Evaluator
	concurrency int
}

// NewBatchEvaluator creates a batch evaluator
func NewBatchEvaluator(evaluator Evaluator, concurrency int) *BatchEvaluator {
	return &BatchEvaluator{
		evaluator:   evaluator,
		concurrency: concurrency,
	}
}

var errNotRun = errors.New("evaluation not run")

// EvaluateItems evaluates items concurrently. Every item gets exactly one
// result, in input order; items cut off by cancellation carry ctx.Err().
func (b *BatchEvaluator) EvaluateItems(ctx context.Context, items []BatchItem) []*EvaluateResult {
	if len(items) == 0 {
		return []*EvaluateResult{}
	}

	pool := NewPool[*EvaluateResult](ctx, b.concurrency)
	pool.Start()

	for i, item := range items {
		accepted := pool.Submit(&EvaluateJob{
			Index:     i,
			Item:      item,
			Evaluator: b.evaluator,
		})
		if !accepted {
			break
		}
	}

	results := pool.Wait()

	// Items never submitted, or dropped from the queue on cancellation,
	// still get a result
	done := make([]bool, len(items))
	for _, r := range results {
		done[r.Index] = true
	}
	for i, item := range items {
		if done[i] {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = errNotRun
		}
		results = append(results, &EvaluateResult{Index: i, Item: item, Error: err})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})
	return results
}

// EvaluateFile reads a batch file and evaluates it
func (b *BatchEvaluator) EvaluateFile(ctx context.Context, filePath string) ([]*EvaluateResult, error) {
	items, err := ReadBatchFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	return b.EvaluateItems(ctx, items), nil
}

// ReadBatchFile reads claims from a .yaml/.yml file (a list of items, or a
// document with a "claims" list) or from a text file with one claim per line
func ReadBatchFile(filePath string) ([]BatchItem, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		return readYAMLItems(filePath)
	default:
		return ReadClaimsFromFile(filePath)
	}
}

func readYAMLItems(filePath string) ([]BatchItem, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var items []BatchItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		var doc struct {
			Claims []BatchItem `yaml:"claims"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		items = doc.Claims
	}

	out := make([]BatchItem, 0, len(items))
	for _, item := range items {
		item.Claim = strings.TrimSpace(item.Claim)
		if item.Claim == "" {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// ReadClaimsFromFile reads one claim per line. Sources may follow a " | "
// separator as a comma-separated list. Blank lines, # comments and exact
// duplicate lines are skipped.
func ReadClaimsFromFile(filePath string) ([]BatchItem, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var items []BatchItem
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true

		items = append(items, parseClaimLine(line))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return items, nil
}

func parseClaimLine(line string) BatchItem {
	claim, rest, found := strings.Cut(line, " | ")
	item := BatchItem{Claim: strings.TrimSpace(claim)}
	if !found {
		return item
	}
	for _, s := range strings.Split(rest, ",") {
		if s = strings.TrimSpace(s); s != "" {
			item.Sources = append(item.Sources, s)
		}
	}
	return item
}
