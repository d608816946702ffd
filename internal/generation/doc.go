// Package generation defines the boundary between the orchestrator and the
// external LLM provider that produces travel plans. The Planner interface
// keeps the application core independent of any concrete provider; the
// generation key gives every run a deterministic fingerprint of its inputs.
package generation
