// Package store provides SQLite-backed durable storage for polls and
// submissions.
//
// # Tables
//
//   - polls: published definitions keyed by id, with a content hash
//   - submissions: append-only log of accepted answer sets
//
// # Invariants
//
// Immutable polls:
//   - SavePoll with an existing id succeeds only if the definition hash matches
//   - A different definition under the same id is ErrPollExists
//
// Logical ordering:
//   - Every submission carries a unique seq from the service's logical clock
//   - All listings use ORDER BY seq ASC, id ASC COLLATE BINARY
//
// Content addressing:
//   - Submission ids are computed by ir.SubmissionID over canonical JSON
//   - Answers are stored as the same canonical JSON, so ids can be re-derived
//     from stored rows (see VerifySubmissions)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
