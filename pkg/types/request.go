// Package types defines the unified request/response shapes for the
// AI dispatch layer. Every feature-specific caller (chat UI, task parser,
// note generator, ...) translates its payload into these types before
// calling the dispatcher.
package types

import "time"

// Feature identifies which product capability is requesting AI assistance.
// The set is closed; unknown values are rejected during validation.
type Feature string

const (
	FeatureChat            Feature = "chat"
	FeatureTaskParsing     Feature = "task_parsing"
	FeatureNoteGeneration  Feature = "note_generation"
	FeatureNoteSummary     Feature = "note_summary"
	FeatureMindMap         Feature = "mind_map_generation"
	FeatureBriefing        Feature = "strategic_briefing"
	FeatureVisionOCR       Feature = "vision_ocr"
	FeatureVisionEvents    Feature = "vision_event_detection"
	FeatureResearch        Feature = "grounded_research"
	FeatureImageGeneration Feature = "image_generation"
)

// Features lists every valid feature tag.
var Features = []Feature{
	FeatureChat,
	FeatureTaskParsing,
	FeatureNoteGeneration,
	FeatureNoteSummary,
	FeatureMindMap,
	FeatureBriefing,
	FeatureVisionOCR,
	FeatureVisionEvents,
	FeatureResearch,
	FeatureImageGeneration,
}

// Valid reports whether f is a known feature tag.
func (f Feature) Valid() bool {
	for _, known := range Features {
		if f == known {
			return true
		}
	}
	return false
}

// Tier is the user's subscription tier, looked up from the identity
// service. The dispatcher consumes it; it does not store or bill it.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Priority is an optional scheduling hint supplied by the caller.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Message is a single turn in a conversation, most-recent-last ordering.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Attachment carries binary input (image or file) tagged with its MIME type.
type Attachment struct {
	MIME string `json:"mime"`
	Data []byte `json:"data"`
}

// UserContext is the structured context fetched from the productivity app's
// stores and folded into the prompt.
type UserContext struct {
	Goals       []string `json:"goals,omitempty"`
	RecentTasks []string `json:"recent_tasks,omitempty"`
	RecentNotes []string `json:"recent_notes,omitempty"`
	Profile     string   `json:"profile,omitempty"`
}

// Request is one discrete AI-assisted request. It is created per inbound
// call, is immutable once classification begins, and is owned exclusively
// by the call that created it.
type Request struct {
	UserID      string       `json:"user_id"`
	Feature     Feature      `json:"feature"`
	Message     string       `json:"message"`
	History     []Message    `json:"history,omitempty"`
	Context     *UserContext `json:"context,omitempty"`
	Priority    Priority     `json:"priority,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// HasAttachments reports whether the request carries binary input.
func (r *Request) HasAttachments() bool {
	return len(r.Attachments) > 0
}

// Citation is a source reference attached to citation-grounded responses.
type Citation struct {
	URL       string  `json:"url"`
	Title     string  `json:"title,omitempty"`
	Relevance float64 `json:"relevance,omitempty"`
}

// Usage counts the input/output units consumed by a backend call.
type Usage struct {
	InputUnits  int `json:"input_units"`
	OutputUnits int `json:"output_units"`
}

// Total returns the combined unit count.
func (u Usage) Total() int { return u.InputUnits + u.OutputUnits }

// Response is the canonical response shape returned for every request,
// regardless of which backend served it.
type Response struct {
	ID           string        `json:"id"`
	Content      string        `json:"content"`
	Citations    []Citation    `json:"citations,omitempty"`
	Confidence   float64       `json:"confidence,omitempty"`
	Backend      string        `json:"backend"`
	Usage        Usage         `json:"usage"`
	CostMicros   int64         `json:"cost_micros"` // micro-USD
	Latency      time.Duration `json:"latency_ns"`
	CacheHit     bool          `json:"cache_hit"`
	FallbackUsed bool          `json:"fallback_used"`
}
