// Package gemini implements the generation.Planner interface using Google's
// Gemini API. It owns prompt construction, retry with exponential backoff
// for transient provider errors, and parsing of the strict-JSON plan
// response into domain types.
package gemini
