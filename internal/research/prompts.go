package research

import (
	"fmt"
	"strings"
)

const investTask = `Decide whether the target market's symbols are worth acting on and report your findings, citing the tools you used.`

// outputFormatInstructions describes the final-report shape, matching the
// original's prompt_for_research_invest_output_format.
const outputFormatInstructions = `Respond with a structured report covering: a summary verdict, the key evidence gathered (cite which tool produced it), and any risks or open questions.`

func investTaskPrompt() string { return investTask }

func outputFormat() string { return outputFormatInstructions }

// buildBackgroundInformation renders the XML background block Research
// Agents are given, mirroring build_background_information's
// market_information/target_market/your_belief sections.
func buildBackgroundInformation(factors []Factor, targetMarket, belief string) string {
	var global strings.Builder
	for _, f := range factors {
		fmt.Fprintf(&global, "\n<global_summary>\n<source>%s</source>\n<timestamp>%s</timestamp>\n<content>%s</content>\n</global_summary>\n", f.AgentName, f.TriggerTime, f.ContextString)
	}

	return fmt.Sprintf(`<market_information>
%s
</market_information>

<target_market>
%s
</target_market>

<your_belief>
%s
</your_belief>
`, global.String(), targetMarket, belief)
}

func planPrompt(triggerTime, task, backgroundInformation, toolsInfo, language string) string {
	return fmt.Sprintf(`It is %s. Plan how to accomplish the following task using the tools available.

Task: %s

Background information:
%s

Tools available:
%s

Write a short, concrete plan: what to look up first, and in what order. Respond in %s.`, triggerTime, task, backgroundInformation, toolsInfo, language)
}

func chooseToolPrompt(triggerTime, task, plan, backgroundInformation, toolCallContext, toolsInfo, language string) string {
	return fmt.Sprintf(`It is %s. You are working on the following task, selecting one tool at a time to gather evidence.

Task: %s

Plan:
%s

Background information:
%s

Tool calls made so far (one JSON object per line, each with tool_called and tool_result):
%s

Tools available:
%s

Select the single most useful next tool, or select "final_report" if you already have enough information to write your report.

Respond with exactly one <Output>...</Output> block containing a JSON object with "tool_name" and "properties" keys, and nothing else. Example:
<Output>{"tool_name": "final_report", "properties": {}}</Output>

Respond in %s.`, triggerTime, task, plan, backgroundInformation, toolCallContext, toolsInfo, language)
}

func writeResultPrompt(triggerTime, task, backgroundInformation, plan, toolCallContext, toolsInfo, outputFormatText, language string) string {
	return fmt.Sprintf(`It is %s. Write your final report for the following task, using everything you have gathered.

Task: %s

Background information:
%s

Plan:
%s

Tool calls made (one JSON object per line, each with tool_called and tool_result):
%s

Tools available:
%s

%s

Respond in %s.`, triggerTime, task, backgroundInformation, plan, toolCallContext, toolsInfo, outputFormatText, language)
}
