// Package job implements the durable, at-least-once work queue that carries
// itinerary generation work from the orchestrator to the worker pool.
//
// Every job has a deterministic identity derived from the generation attempt
// it executes (IDFor), which is the idempotency mechanism that guarantees at
// most one live queue entry per attempt. Jobs are persisted before dispatch;
// a restart recovers waiting jobs and resets crash-orphaned active jobs so no
// accepted request is lost.
package job
