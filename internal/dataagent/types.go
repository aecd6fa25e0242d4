package dataagent

import "contesttrade/internal/datasource"

// doc is one row carried through preprocessing with its assigned reference
// id, mirroring the original's `id` column added in `_preprocess`.
type doc struct {
	ID      int
	Title   string
	Content string
	PubTime string
}

// Reference is one cited source document, persisted alongside the factor so
// a reader can trace a claim back to its origin.
type Reference struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	PubTime string `json:"pub_time"`
}

// BatchSummary records one batch's contribution to the final factor.
type BatchSummary struct {
	BatchID    int         `json:"batch_id"`
	Summary    string      `json:"summary"`
	References []Reference `json:"references"`
}

// Output is the persisted factor artifact (spec.md §3's factor shape).
type Output struct {
	AgentName      string         `json:"agentName"`
	TriggerTime    string         `json:"triggerTime"`
	SourceList     []string       `json:"sourceList"`
	BiasGoal       string         `json:"biasGoal"`
	ContextString  string         `json:"contextString"`
	References     []Reference    `json:"references"`
	BatchSummaries []BatchSummary `json:"batchSummaries"`
}

func rowsToDocs(rows []datasource.Row, startID int) []doc {
	docs := make([]doc, 0, len(rows))
	nextID := startID
	for _, r := range rows {
		if trimEmpty(r.Title) || trimEmpty(r.Content) {
			continue
		}
		docs = append(docs, doc{ID: nextID, Title: r.Title, Content: r.Content, PubTime: r.PubTime})
		nextID++
	}
	return docs
}

func trimEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' {
			return false
		}
	}
	return true
}
