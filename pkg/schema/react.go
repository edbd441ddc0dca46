package schema

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	reFinalAnswer = regexp.MustCompile(`(?is)Final\s*Answer:\s*(.*)`)
	reThought     = regexp.MustCompile(`(?i)Thought:\s*([^\n]+)`)
	reAction      = regexp.MustCompile(`(?i)Action:\s*([a-z][a-z0-9_]*)`)
	reActionInput = regexp.MustCompile(`(?i)Action\s*Input:\s*`)
	reBareObject  = regexp.MustCompile(`\{[^}]+\}`)
)

// ParseReActStep decodes one LLM completion in ReAct format
// (Thought / Action / Action Input, or Thought / Final Answer) into a CotStep.
// When the completion carries a final answer, finished_cot is set on the step
// and the answer text is returned alongside it, ready to be wrapped in a
// content envelope. A completion with none of the markers yields a step with
// empty set; parsing never fails.
func ParseReActStep(completion string) (CotStep, string) {
	step := NewCotStep()

	if matches := reFinalAnswer.FindStringSubmatch(completion); len(matches) > 1 {
		step.FinishedCot = true
		if thought := reThought.FindStringSubmatch(completion); len(thought) > 1 {
			step.Thought = strings.TrimSpace(thought[1])
		}
		return step, strings.TrimSpace(matches[1])
	}

	if matches := reThought.FindStringSubmatch(completion); len(matches) > 1 {
		step.Thought = strings.TrimSpace(matches[1])
	}
	if matches := reAction.FindStringSubmatch(completion); len(matches) > 1 {
		step.Action = strings.TrimSpace(matches[1])
	}
	if input := extractActionInput(completion); input != nil {
		step.ActionInput = input
	}

	if step.Thought == "" && step.Action == "" && len(step.ActionInput) == 0 {
		step.Empty = true
	}
	return step, ""
}

// extractActionInput pulls the JSON object following "Action Input:" using
// brace-depth counting so nested objects survive intact.
func extractActionInput(completion string) map[string]any {
	loc := reActionInput.FindStringIndex(completion)
	if loc == nil {
		return nil
	}

	rest := completion[loc[1]:]
	start := strings.Index(rest, "{")
	if start < 0 {
		return nil
	}

	depth := 0
	inStr := false
	escaped := false
	for i := start; i < len(rest); i++ {
		ch := rest[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inStr {
			escaped = true
			continue
		}
		if ch == '"' {
			inStr = !inStr
			continue
		}
		if inStr {
			continue
		}
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				jsonStr := rest[start : i+1]
				var params map[string]any
				if err := json.Unmarshal([]byte(jsonStr), &params); err != nil {
					// Malformed payloads are preserved raw rather than dropped.
					return map[string]any{"raw": jsonStr}
				}
				return params
			}
		}
	}

	// Fallback: a flat object with unbalanced surroundings.
	if match := reBareObject.FindString(rest); match != "" {
		var params map[string]any
		if err := json.Unmarshal([]byte(match), &params); err == nil {
			return params
		}
	}
	return nil
}
