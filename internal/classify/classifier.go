// Package classify turns an inbound request into a coarse complexity
// estimate and a deterministic cache fingerprint. Classification is a pure
// function: it has no side effects and no failure mode, ambiguous input
// fails open to medium complexity.
package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/focusloop/aidispatch/pkg/types"
)

// Complexity is the coarse cost-of-reasoning estimate for a request.
type Complexity string

const (
	Simple  Complexity = "simple"
	Medium  Complexity = "medium"
	Complex Complexity = "complex"
)

// Result is the outcome of classifying one request.
type Result struct {
	Complexity  Complexity
	Fingerprint string
}

const (
	// complexTokenThreshold is the estimated-token count above which a
	// message is complex regardless of history.
	complexTokenThreshold = 2000

	// deepHistoryThreshold is the conversation depth that, combined with
	// reasoning keywords, marks a request complex.
	deepHistoryThreshold = 8

	fingerprintPrefix = "aidispatch:resp"
)

// simplePatterns are short greeting/acknowledgement utterances that never
// need a high-reasoning backend.
var simplePatterns = []string{
	"hi", "hello", "hey", "yo",
	"thanks", "thank you", "thx",
	"ok", "okay", "sure", "yes", "no", "got it", "sounds good",
	"good morning", "good night", "bye", "goodbye",
}

// reasoningKeywords indicate multi-step reasoning when they appear in a
// long-running conversation.
var reasoningKeywords = []string{
	"why", "analyze", "analyse", "compare", "explain", "reason",
	"plan", "strategy", "strategize", "trade-off", "tradeoff",
	"prioritize", "break down", "step by step",
}

// Classify derives the complexity tag and cache fingerprint for a request.
func Classify(req *types.Request) Result {
	norm := Normalize(req.Message)
	return Result{
		Complexity:  complexity(req, norm),
		Fingerprint: Fingerprint(req.Feature, norm),
	}
}

// Normalize lowercases the message and collapses runs of whitespace, so
// trivially different inputs fingerprint identically only when they are
// truly the same request.
func Normalize(message string) string {
	return strings.Join(strings.Fields(strings.ToLower(message)), " ")
}

// Fingerprint returns the deterministic cache key for a (feature,
// normalized message) pair.
func Fingerprint(feature types.Feature, normalized string) string {
	sum := sha256.Sum256([]byte(string(feature) + "|" + normalized))
	return fingerprintPrefix + ":" + hex.EncodeToString(sum[:])
}

func complexity(req *types.Request, norm string) Complexity {
	if isSimple(norm) {
		return Simple
	}

	tokens := EstimateTokens(req.Message)
	for _, m := range req.History {
		tokens += EstimateTokens(m.Content)
	}
	if tokens > complexTokenThreshold {
		return Complex
	}
	if len(req.History) > deepHistoryThreshold && hasReasoningKeyword(norm) {
		return Complex
	}
	return Medium
}

func isSimple(norm string) bool {
	if norm == "" || len(norm) > 32 {
		return false
	}
	for _, p := range simplePatterns {
		if norm == p || strings.HasPrefix(norm, p+" ") && len(strings.Fields(norm)) <= 3 {
			return true
		}
	}
	return false
}

func hasReasoningKeyword(norm string) bool {
	for _, kw := range reasoningKeywords {
		if strings.Contains(norm, kw) {
			return true
		}
	}
	return false
}

// EstimateTokens approximates the token count of text. Four characters per
// token is close enough for routing thresholds.
func EstimateTokens(text string) int {
	return len(text) / 4
}
