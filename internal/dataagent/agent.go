// Package dataagent implements the Data Analysis Agent pipeline: pull rows
// from configured data sources, batch them, use an LLM to filter each
// batch's most relevant titles, summarize the filtered content with
// citations, merge the batch summaries into one factor, and persist the
// result idempotently.
//
// Grounded on
// original_source/contest_trade/agents/data_analysis_agent.py's
// preprocess -> batch_process -> final_summary -> submit_result pipeline.
package dataagent

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"contesttrade/internal/artifact"
	"contesttrade/internal/datasource"
	"contesttrade/internal/llmgateway"
)

// Agent runs one Data Analysis Agent's pipeline for a given trigger time.
type Agent struct {
	cfg      Config
	sources  []datasource.Source
	llm      llmgateway.Provider
	model    string
	store    *artifact.Store
	language string
}

// NewAgent builds an Agent. cfg is normalized via WithDefaults if the
// caller hasn't already done so.
func NewAgent(cfg Config, sources []datasource.Source, llm llmgateway.Provider, model string, store *artifact.Store, language string) *Agent {
	if language == "" {
		language = "English"
	}
	return &Agent{cfg: cfg.WithDefaults(), sources: sources, llm: llm, model: model, store: store, language: language}
}

// Run executes the pipeline for triggerTime. If a factor artifact already
// exists for (agentName, triggerTime), it is returned without recomputing
// (spec.md §7: artifact collisions are success, not error).
func (a *Agent) Run(ctx context.Context, triggerTime string) (Output, error) {
	var existing Output
	found, err := a.store.LoadFactor(a.cfg.AgentName, triggerTime, &existing)
	if err != nil {
		return Output{}, fmt.Errorf("load existing factor for %s/%s: %w", a.cfg.AgentName, triggerTime, err)
	}
	if found {
		return existing, nil
	}

	docs, err := a.preprocess(ctx, triggerTime)
	if err != nil {
		return Output{}, fmt.Errorf("preprocess %s/%s: %w", a.cfg.AgentName, triggerTime, err)
	}

	batches := a.splitBatches(docs)
	batchResults, err := a.processBatches(ctx, triggerTime, batches)
	if err != nil {
		return Output{}, fmt.Errorf("batch process %s/%s: %w", a.cfg.AgentName, triggerTime, err)
	}
	succeeded := len(batches) == 0
	for _, r := range batchResults {
		if r.Err == nil {
			succeeded = true
			break
		}
	}
	if !succeeded {
		return Output{}, fmt.Errorf("batch process %s/%s: every batch failed", a.cfg.AgentName, triggerTime)
	}

	out, err := a.finalSummary(ctx, triggerTime, docs, batchResults)
	if err != nil {
		return Output{}, fmt.Errorf("final summary %s/%s: %w", a.cfg.AgentName, triggerTime, err)
	}

	if err := a.store.SaveFactor(a.cfg.AgentName, triggerTime, out); err != nil {
		return Output{}, fmt.Errorf("save factor %s/%s: %w", a.cfg.AgentName, triggerTime, err)
	}
	return out, nil
}

// preprocess pulls rows from every configured source, drops blank
// title/content rows, and assigns each surviving row a sequential
// reference ID across all sources combined (mirrors the original's
// pd.concat + `id = range(1, n+1)`).
func (a *Agent) preprocess(ctx context.Context, triggerTime string) ([]doc, error) {
	var all []doc
	nextID := 1
	for _, src := range a.sources {
		rows, err := src.GetData(ctx, triggerTime)
		if err != nil {
			return nil, fmt.Errorf("get data from %s: %w", src.Name(), err)
		}
		batch := rowsToDocs(rows, nextID)
		all = append(all, batch...)
		nextID += len(batch)
	}
	return all, nil
}

type inputBatch struct {
	id   int
	docs []doc
}

// splitBatches partitions docs into a.cfg.BatchCount groups of batchSize,
// following the original's (oddly doubled) size calculation:
//
//	batchSize := total/batchCount + 1
//	if total%batchCount != 0 { batchSize++ }
func (a *Agent) splitBatches(docs []doc) []inputBatch {
	total := len(docs)
	batchCount := a.cfg.BatchCount
	if batchCount <= 0 {
		batchCount = 1
	}
	batchSize := total/batchCount + 1
	if total%batchCount != 0 {
		batchSize++
	}

	var batches []inputBatch
	for i := 0; i < batchCount; i++ {
		start := i * batchSize
		if start >= total {
			break
		}
		end := start + batchSize
		if end > total {
			end = total
		}
		if start == end {
			continue
		}
		batches = append(batches, inputBatch{id: i + 1, docs: docs[start:end]})
	}
	return batches
}

type batchResult struct {
	BatchID    int
	Summary    string
	References []Reference
	Err        error
}

// processBatches runs filter+summarize for every batch concurrently, bounded
// by a.cfg.MaxConcurrentTasks (the original's asyncio.Semaphore).
func (a *Agent) processBatches(ctx context.Context, triggerTime string, batches []inputBatch) ([]batchResult, error) {
	results := make([]batchResult, len(batches))
	sem := semaphore.NewWeighted(int64(a.cfg.MaxConcurrentTasks))
	g, gctx := errgroup.WithContext(ctx)

	titlesPerBatch := a.cfg.TitleSelectionPerBatch
	for i, b := range batches {
		i, b := i, b
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			r := a.processOneBatch(gctx, triggerTime, b, titlesPerBatch)
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Agent) processOneBatch(ctx context.Context, triggerTime string, b inputBatch, titlesPerBatch int) batchResult {
	filtered, err := a.filterByTitle(ctx, triggerTime, b.docs, titlesPerBatch)
	if err != nil {
		return batchResult{BatchID: b.id, Err: fmt.Errorf("filter batch %d: %w", b.id, err)}
	}

	summary, err := a.summarizeContent(ctx, triggerTime, filtered)
	if err != nil {
		return batchResult{BatchID: b.id, Err: fmt.Errorf("summarize batch %d: %w", b.id, err)}
	}

	refIDs := extractReferenceIDs(summary)
	refs := selectReferences(filtered, refIDs)
	return batchResult{BatchID: b.id, Summary: summary, References: refs}
}

// filterByTitle uses the LLM to pick titlesToSelect documents when a batch
// has more than that many; otherwise every document in the batch is kept.
func (a *Agent) filterByTitle(ctx context.Context, triggerTime string, docs []doc, titlesToSelect int) ([]doc, error) {
	if len(docs) <= titlesToSelect {
		return docs, nil
	}

	prompt := filterDocPrompt(triggerTime, titlesToSelect, buildTitleContext(docs), a.language)
	reply, err := a.llm.Chat(ctx, []llmgateway.Message{{Role: "user", Content: prompt}}, nil, a.model)
	if err != nil {
		return nil, err
	}

	selected := parseIDList(reply.Content)
	if len(selected) == 0 {
		return headDocs(docs, titlesToSelect), nil
	}

	byID := make(map[int]doc, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	var out []doc
	for _, id := range selected {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return headDocs(docs, titlesToSelect), nil
	}
	return out, nil
}

func headDocs(docs []doc, n int) []doc {
	if n >= len(docs) {
		return docs
	}
	return docs[:n]
}

// summarizeContent summarizes filtered, skipping the LLM call entirely
// (returning the raw concatenated content) when it already fits within
// summaryTargetTokens and there's no bias goal to steer toward — mirroring
// the original's short-circuit in _summarize_doc_content.
func (a *Agent) summarizeContent(ctx context.Context, triggerTime string, filtered []doc) (string, error) {
	if len(filtered) == 0 {
		return "No valid document content.", nil
	}

	docContext := buildDocContext(filtered, a.cfg.ContentCutoffLength)
	if llmgateway.EstimateTokens(docContext) <= a.cfg.SummaryTargetTokens && a.cfg.BiasGoal == "" {
		return rawDocContent(filtered), nil
	}

	prompt := summarizeDocPrompt(triggerTime, docContext, a.cfg.SummaryTargetTokens, a.cfg.BiasGoal, a.language)
	reply, err := a.llm.Chat(ctx, []llmgateway.Message{{Role: "user", Content: prompt}}, nil, a.model)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply.Content), nil
}

func rawDocContent(docs []doc) string {
	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "Title: %s\nPublish Time: %s\nContent: %s\n", d.Title, d.PubTime, d.Content)
	}
	return b.String()
}

// finalSummary merges every successful batch's summary into the factor's
// context string, following the original's combined_summary /
// combined_summary_raw short-circuit, then unions every cited reference ID
// (per batch and from the merged text itself) into the factor's references.
func (a *Agent) finalSummary(ctx context.Context, triggerTime string, docs []doc, results []batchResult) (Output, error) {
	var batchSummaries []BatchSummary
	var labeledParts, rawParts []string
	refIDs := map[int]bool{}

	for _, r := range results {
		if r.Err != nil || r.Summary == "" {
			continue
		}
		batchSummaries = append(batchSummaries, BatchSummary{BatchID: r.BatchID, Summary: r.Summary, References: r.References})
		labeledParts = append(labeledParts, fmt.Sprintf("Batch %d Documents:\n%s", r.BatchID, r.Summary))
		rawParts = append(rawParts, fmt.Sprintf("Documents:\n%s", r.Summary))
		for _, ref := range r.References {
			refIDs[ref.ID] = true
		}
	}

	combinedRaw := strings.Join(rawParts, "\n\n")
	var finalSummary string
	if llmgateway.EstimateTokens(combinedRaw) <= a.cfg.FinalTargetTokens && a.cfg.BiasGoal == "" {
		finalSummary = combinedRaw
	} else {
		combined := strings.Join(labeledParts, "\n\n")
		prompt := mergeSummaryPrompt(triggerTime, combined, a.cfg.FinalTargetTokens, a.cfg.BiasGoal, a.language)
		reply, err := a.llm.Chat(ctx, []llmgateway.Message{{Role: "user", Content: prompt}}, nil, a.model)
		if err != nil {
			return Output{}, err
		}
		finalSummary = strings.TrimSpace(reply.Content)
	}

	for _, id := range extractReferenceIDs(finalSummary) {
		refIDs[id] = true
	}

	return Output{
		AgentName:      a.cfg.AgentName,
		TriggerTime:    triggerTime,
		SourceList:     a.cfg.SourceList,
		BiasGoal:       a.cfg.BiasGoal,
		ContextString:  finalSummary,
		References:     selectReferences(docs, sortedIDs(refIDs)),
		BatchSummaries: batchSummaries,
	}, nil
}

var referencePattern = regexp.MustCompile(`\[(\d+)\]`)

func extractReferenceIDs(text string) []int {
	matches := referencePattern.FindAllStringSubmatch(text, -1)
	ids := make([]int, 0, len(matches))
	for _, m := range matches {
		if n, err := strconv.Atoi(m[1]); err == nil {
			ids = append(ids, n)
		}
	}
	return ids
}

func selectReferences(docs []doc, ids []int) []Reference {
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var refs []Reference
	for _, d := range docs {
		if want[d.ID] {
			refs = append(refs, Reference{ID: d.ID, Title: d.Title, Content: d.Content, PubTime: d.PubTime})
		}
	}
	return refs
}

func sortedIDs(set map[int]bool) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// parseIDList parses the LLM's comma-separated ID reply, skipping entries
// that don't parse as integers (the original keeps non-numeric strings
// too, but this pipeline's IDs are always integers).
func parseIDList(reply string) []int {
	parts := strings.Split(strings.TrimSpace(reply), ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n, err := strconv.Atoi(p); err == nil {
			ids = append(ids, n)
		}
	}
	return ids
}
