// Package task contains the background worker machinery that executes
// itinerary generation jobs: a rate-limited worker pool consuming the job
// queue and the processor that drives one generation attempt end to end.
package task
