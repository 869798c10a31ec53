package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
)

var hedgePrefix = regexp.MustCompile(`(?i)^(According to the context|Based on the context|From the context|According to context|Based on context|From context|According to the text|As per the context|As per context|Per the context|Per context|According to the provided context|Based on the provided context|From the provided context|According to provided context|Based on provided context|From provided context)[,:\s-]+`)

// BuildContext joins chunk contents with newlines, closest first.
func BuildContext(hits []domain.ScoredChunk) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = h.Content
	}
	return strings.Join(parts, "\n")
}

// BuildPrompt renders the grounded-answer prompt.
func BuildPrompt(context, rejection, message string) string {
	return fmt.Sprintf("Context:\n%s\n\nYou are an AI assistant. Answer the user's question ONLY using the information provided in the context above. If the answer is not present in the context, reply: \"%s\".\n\nUser: %s\nAI:",
		context, rejection, message)
}

// StripHedges removes one leading "Based on the context,"-style phrase.
func StripHedges(text string) string {
	return hedgePrefix.ReplaceAllString(text, "")
}

// CollapseRejection returns exactly rejection when it occurs anywhere in text.
func CollapseRejection(text, rejection string) string {
	if rejection != "" && strings.Contains(text, rejection) {
		return rejection
	}
	return text
}

// PostProcess trims, strips hedges and collapses rejections in a model answer.
func PostProcess(raw, rejection string) string {
	return CollapseRejection(StripHedges(strings.TrimSpace(raw)), rejection)
}

// Relevant reports whether the closest hit is within threshold.
func Relevant(hits []domain.ScoredChunk, threshold float64) bool {
	return len(hits) > 0 && hits[0].Distance <= threshold
}
