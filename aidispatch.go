// Package aidispatch routes AI feature requests to the cheapest backend
// that can serve them well. It classifies each request, checks the
// response cache and the caller's daily quota, picks a backend from the
// catalog based on feature, complexity, tier and remaining budget, and
// falls back to a local zero-cost model when a provider has a transient
// outage.
//
// Basic usage:
//
//	d, err := aidispatch.New(
//	    aidispatch.WithCredential("openai", backend.Credential{
//	        APIKey: os.Getenv("OPENAI_API_KEY"),
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Close()
//
//	resp, err := d.Process(ctx, &aidispatch.Request{
//	    UserID:  "user-123",
//	    Feature: aidispatch.FeatureChat,
//	    Message: "Plan my week",
//	})
package aidispatch

import (
	"github.com/focusloop/aidispatch/internal/backend"
	"github.com/focusloop/aidispatch/internal/catalog"
	"github.com/focusloop/aidispatch/internal/usage"
	"github.com/focusloop/aidispatch/pkg/errors"
	"github.com/focusloop/aidispatch/pkg/types"
)

// Version is the current version of the dispatch layer.
const Version = "1.0.0"

// Re-export the request/response types so callers can stay on this
// package alone.
type (
	// Request is one AI feature request.
	Request = types.Request

	// Response is the canonical response shape across all backends.
	Response = types.Response

	// Message is a single conversation turn.
	Message = types.Message

	// Attachment is binary input for the vision features.
	Attachment = types.Attachment

	// UserContext carries the user's goals, tasks and notes for prompt
	// assembly.
	UserContext = types.UserContext

	// Citation is one source reference from a grounded research answer.
	Citation = types.Citation

	// Usage holds input/output unit counts for a dispatch.
	Usage = types.Usage

	// Feature identifies an app capability backed by an AI call.
	Feature = types.Feature

	// Tier is a subscription tier.
	Tier = types.Tier
)

// Re-export the feature identifiers.
const (
	FeatureChat            = types.FeatureChat
	FeatureTaskParsing     = types.FeatureTaskParsing
	FeatureNoteGeneration  = types.FeatureNoteGeneration
	FeatureNoteSummary     = types.FeatureNoteSummary
	FeatureMindMap         = types.FeatureMindMap
	FeatureBriefing        = types.FeatureBriefing
	FeatureVisionOCR       = types.FeatureVisionOCR
	FeatureVisionEvents    = types.FeatureVisionEvents
	FeatureResearch        = types.FeatureResearch
	FeatureImageGeneration = types.FeatureImageGeneration
)

// Re-export the subscription tiers.
const (
	TierFree       = types.TierFree
	TierPro        = types.TierPro
	TierEnterprise = types.TierEnterprise
)

// Re-export backend wiring types.
type (
	// Credential configures access to one provider.
	Credential = backend.Credential

	// Adapter is a provider adapter. Supply custom ones through
	// WithAdapters.
	Adapter = backend.Adapter

	// Descriptor is one catalog entry.
	Descriptor = catalog.Descriptor

	// UsageRecord is one persisted dispatch outcome.
	UsageRecord = usage.Record
)

// Re-export the error type and its predicates.
type (
	// ServiceError is the canonical error across the dispatch layer.
	ServiceError = errors.ServiceError
)

var (
	// IsTransient reports whether the error is a retryable provider
	// failure.
	IsTransient = errors.IsTransient

	// IsQuotaExceeded reports whether the error is a daily-quota denial.
	IsQuotaExceeded = errors.IsQuotaExceeded
)
