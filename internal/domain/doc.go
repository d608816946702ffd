// Package domain contains the core business entities for trip itinerary
// generation: the Itinerary aggregate, its Generation attempt records, the
// Trip that references an itinerary, and the structured day-by-day Plan.
//
// Domain objects validate themselves and own their state transitions; they
// have no dependencies on storage, queues, or the LLM provider.
package domain
