package dataagent

import (
	"fmt"
	"strings"
)

// buildTitleContext renders the ID/Title/PublishTime blocks the filter
// prompt presents for one batch, mirroring _filter_docs_by_title's
// titles_context construction.
func buildTitleContext(docs []doc) string {
	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "ID: %d\nTitle: %s\nPublish Time: %s\n\n", d.ID, d.Title, d.PubTime)
	}
	return b.String()
}

func filterDocPrompt(triggerTime string, titlesToSelect int, titlesContext, language string) string {
	return fmt.Sprintf(`You are screening news titles gathered as of %s for the documents most relevant to trading decisions.

Select the %d most valuable documents from the list below. Respond with ONLY a comma-separated list of their ID numbers, nothing else.

%s
Respond in %s.`, triggerTime, titlesToSelect, titlesContext, language)
}

// buildDocContext renders the <doc> blocks the summarize prompt presents
// for one batch, mirroring _summarize_doc_content's doc_context
// construction (content truncated to contentCutoffLength, a trailing
// "23:59:59" publish time collapsed to the bare date).
func buildDocContext(docs []doc, contentCutoffLength int) string {
	var b strings.Builder
	for _, d := range docs {
		content := d.Content
		if len(content) > contentCutoffLength {
			content = content[:contentCutoffLength] + "..."
		}
		pubTime := d.PubTime
		if strings.HasSuffix(pubTime, "23:59:59") {
			if idx := strings.IndexByte(pubTime, ' '); idx >= 0 {
				pubTime = pubTime[:idx]
			}
		}
		fmt.Fprintf(&b, "<doc id=%d> Title: %s\nPublish Time: %s\nContent: %s</doc>\n", d.ID, d.Title, pubTime, content)
	}
	return b.String()
}

func summarizeDocPrompt(triggerTime, docContext string, summaryTargetTokens int, biasGoal, language string) string {
	biasInstruction := "Objectively summarize market dynamics and important events."
	summaryStyle := "Objective summary"
	if biasGoal != "" {
		biasInstruction = fmt.Sprintf("Focus on the goal %q for a targeted summary, emphasizing information related to this goal.", biasGoal)
		summaryStyle = "Goal-oriented summary"
	}
	return fmt.Sprintf(`Summarize the following documents as of %s. %s

%s, target length around %d tokens. Cite each fact you use with the document's ID in square brackets, e.g. [3].

%s
Respond in %s.`, triggerTime, biasInstruction, summaryStyle, summaryTargetTokens, docContext, language)
}

func mergeSummaryPrompt(triggerTime, combinedSummary string, finalTargetTokens int, biasGoal, language string) string {
	goalInstruction := "Objectively integrate market information."
	summaryFocus := "Maintain objectivity and accuracy of information."
	finalDescription := "Final market information summary"
	if biasGoal != "" {
		goalInstruction = fmt.Sprintf("Integrate information around the goal %q.", biasGoal)
		summaryFocus = "Highlight important facts related to the goal."
		finalDescription = "Final goal-oriented information summary"
	}
	return fmt.Sprintf(`You are merging multiple batch summaries gathered as of %s into one %s. %s %s

Target length around %d tokens. Preserve the bracketed citation IDs ([n]) from the batch summaries verbatim.

%s
Respond in %s.`, triggerTime, strings.ToLower(finalDescription), goalInstruction, summaryFocus, finalTargetTokens, combinedSummary, language)
}
