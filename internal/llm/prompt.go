package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"quality-dashboard/internal/analysis"
)

const contextInsights = 5

const systemTemplate = `You are a senior hospital quality and patient safety consultant. You advise hospital leadership on accreditation readiness, clinical quality, patient experience, digital health and operational efficiency.

Base every recommendation on the following healthcare sources and cite them by name when you use them:
%s
When a recommendation relies on a standard, say which source it comes from (for example "per WHO patient safety goals" or "in line with KEMKES accreditation"). Do not invent sources that are not listed.

The hospital's current analytics are given below as JSON. Refer to the actual numbers when you explain a finding, and say so plainly when the data needed to answer is missing.

Current analytics:
%s

Answer with clear, prioritised and practical actions.`

func (s *Service) systemPrompt(analysisContext any) (string, error) {
	var list strings.Builder
	for _, src := range s.sources {
		fmt.Fprintf(&list, "- %s (%s): %s. %s\n", src.Key, src.Name, src.Focus, src.URL)
	}

	if analysisContext == nil {
		analysisContext = map[string]any{}
	}
	data, err := json.MarshalIndent(analysisContext, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode context: %w", err)
	}
	return fmt.Sprintf(systemTemplate, list.String(), data), nil
}

// BuildContext selects the part of an analysis result sent with a question:
// summary, compliance, sentiment, metrics and the first five insights.
func BuildContext(res analysis.Result) map[string]any {
	insights := res.Insights
	if len(insights) > contextInsights {
		insights = insights[:contextInsights]
	}
	return map[string]any{
		"summary":                  res.Summary,
		"comprehensive_compliance": res.ComprehensiveCompliance,
		"sentiment_analysis":       res.SentimentAnalysis,
		"metrics":                  res.Metrics,
		"insights":                 insights,
	}
}
