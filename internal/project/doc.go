// Package project holds the aggregate root for one unit of work: the project
// context. The context carries classification, status, the structured spec,
// and four append-only collections (artifacts, checkpoints, handoffs, audit
// log). It is created once at triage, mutated only by appending and by status
// transitions validated against an explicit per-classification machine, and
// persisted immediately after every mutation.
//
// The audit log is the system's sole source of historical truth: events are
// timestamped, totally ordered per project, and never rewritten.
package project
