package contest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	signalBlockPattern  = regexp.MustCompile(`(?s)<signal>(.*?)</signal>`)
	evidenceListPattern = regexp.MustCompile(`(?s)<evidence_list>(.*?)</evidence_list>`)
	evidencePattern     = regexp.MustCompile(`(?s)<evidence>(.*?)</evidence>`)
	timePattern         = regexp.MustCompile(`(?s)<time>(.*?)</time>`)
	fromSourcePattern   = regexp.MustCompile(`(?s)<from_source>(.*?)</from_source>`)
	limitationsPattern  = regexp.MustCompile(`(?s)<limitations>(.*?)</limitations>`)
	limitationPattern   = regexp.MustCompile(`(?s)<limitation>(.*?)</limitation>`)
)

func extractField(text, fieldName string) string {
	pattern := regexp.MustCompile(`(?s)<` + fieldName + `>(.*?)</` + fieldName + `>`)
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func extractEvidenceList(text string) []Evidence {
	var out []Evidence
	m := evidenceListPattern.FindStringSubmatch(text)
	if m == nil {
		return out
	}
	for _, block := range evidencePattern.FindAllStringSubmatch(m[1], -1) {
		body := block[1]
		description := body
		if t := timePattern.FindStringSubmatch(body); t != nil {
			description = strings.Replace(description, t[0], "", 1)
		}
		if s := fromSourcePattern.FindStringSubmatch(body); s != nil {
			description = strings.Replace(description, s[0], "", 1)
		}
		ev := Evidence{Description: strings.TrimSpace(description)}
		if t := timePattern.FindStringSubmatch(body); t != nil {
			ev.Time = strings.TrimSpace(t[1])
		}
		if s := fromSourcePattern.FindStringSubmatch(body); s != nil {
			ev.FromSource = strings.TrimSpace(s[1])
		}
		out = append(out, ev)
	}
	return out
}

func extractLimitations(text string) []string {
	var out []string
	m := limitationsPattern.FindStringSubmatch(text)
	if m == nil {
		return out
	}
	for _, l := range limitationPattern.FindAllStringSubmatch(m[1], -1) {
		out = append(out, strings.TrimSpace(l[1]))
	}
	return out
}

// ParseSignals extracts every <signal>...</signal> block from a Research
// Agent's FinalResult, tagging each with agentName (spec.md §6's signal
// output format allows zero or more signals per report).
//
// Grounded on judger_data_converter.py's DataFormatConverter._parse_final_result
// field-by-field regex extraction, generalized to loop over every <signal>
// block instead of treating the whole final_result as exactly one signal
// (the original processes one research agent = one signal; this repo's
// spec explicitly allows "zero or more").
func ParseSignals(agentName, finalResult string) ([]ParsedSignal, error) {
	blocks := signalBlockPattern.FindAllStringSubmatch(finalResult, -1)
	if blocks == nil {
		return nil, nil
	}

	signals := make([]ParsedSignal, 0, len(blocks))
	for _, block := range blocks {
		body := block[1]

		probabilityText := extractField(body, "probability")
		probability := 0
		if probabilityText != "" {
			p, err := strconv.Atoi(strings.TrimSpace(probabilityText))
			if err != nil {
				return nil, fmt.Errorf("parse signal probability %q for %s: %w", probabilityText, agentName, err)
			}
			probability = p
		}

		signals = append(signals, ParsedSignal{
			AgentName:      agentName,
			HasOpportunity: strings.EqualFold(extractField(body, "has_opportunity"), "yes"),
			Action:         extractField(body, "action"),
			SymbolCode:     extractField(body, "symbol_code"),
			SymbolName:     extractField(body, "symbol_name"),
			EvidenceList:   extractEvidenceList(body),
			Limitations:    extractLimitations(body),
			Probability:    probability,
		})
	}
	return signals, nil
}
