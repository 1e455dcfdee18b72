// Package checkpoint persists resumable run state to disk.
//
// A checkpoint records which items a run has seen and acted on, plus the
// running tallies, keyed by account and action name. Saves are atomic
// (write to a temp file, then rename) so an interrupted run never leaves a
// corrupt checkpoint behind.
package checkpoint
