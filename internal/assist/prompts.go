package assist

import (
	"encoding/json"
	"fmt"
	"strings"

	"supportcore/pkg/domain"
)

func analysisPrompt(item domain.EvolutionItem) string {
	var b strings.Builder
	b.WriteString("Analyze the following reusable support insight and summarize why it matters, ")
	b.WriteString("which teams should adopt it, and what evidence would raise confidence in it.\n\n")
	fmt.Fprintf(&b, "Insight: %s\n", item.Value)
	fmt.Fprintf(&b, "Business unit: %s\n", item.BusinessUnit)
	if item.SourceName != "" {
		fmt.Fprintf(&b, "Origin: %s\n", item.SourceName)
	}
	if len(item.ProductLines) > 0 {
		fmt.Fprintf(&b, "Product lines: %s\n", strings.Join(item.ProductLines, ", "))
	}
	fmt.Fprintf(&b, "Observed %d time(s), reliability %.2f.\n", item.MergeCount, item.Reliability)
	return b.String()
}

func optimizePrompt(text string) string {
	return "Rewrite the following value description so it is concise and concrete. " +
		"Keep every factual claim, drop filler, answer with the rewritten text only.\n\n" + text
}

func rankPrompt(items []domain.EvolutionItem) string {
	type rankEntry struct {
		ID          string  `json:"id"`
		Value       string  `json:"value"`
		Lane        string  `json:"lane"`
		Reliability float64 `json:"reliability"`
		MergeCount  int     `json:"merge_count"`
	}
	entries := make([]rankEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, rankEntry{
			ID:          item.ID,
			Value:       item.Value,
			Lane:        string(item.Lane),
			Reliability: item.Reliability,
			MergeCount:  item.MergeCount,
		})
	}
	payload, _ := json.Marshal(entries)
	return "Rank the following insights from most to least valuable for reuse. " +
		"Answer with a JSON array of ids in ranked order and nothing else.\n\n" + string(payload)
}

// parseRankedIDs accepts either a JSON array of ids or one id per line,
// tolerating list numbering and surrounding prose around the array.
func parseRankedIDs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if start := strings.Index(raw, "["); start >= 0 {
		if end := strings.LastIndex(raw, "]"); end > start {
			var ids []string
			if err := json.Unmarshal([]byte(raw[start:end+1]), &ids); err == nil {
				return ids
			}
		}
	}
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.)- ")
		line = strings.Trim(line, "\"',")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
