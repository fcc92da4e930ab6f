// Package engine implements the branchpoll core: conditional visibility,
// answer validation and response aggregation.
//
// Everything here is a pure function of its inputs except Clock and the
// session generators. Nothing touches storage or the network.
//
// Dependency Evaluator (ActiveQuestions):
// Questions are visited once in position order. A question without a
// DependsOn is active; a dependent question is active iff its prerequisite
// is active and the prerequisite's answer satisfies the predicate. A
// DependsOn may only name a strictly earlier question, so one pass decides
// everything and no cycle can exist.
//
// Answer Validator (Validate):
// Scans active questions in position order and returns the first failure
// as a *ValidationError. Inactive questions are never validated.
//
// Response Aggregator (Aggregate):
// Recomputes each submission's active set and folds active, non-empty
// answers into per-question tallies and text samples. Submissions are
// processed in (seq, id) order, which makes the output independent of the
// order in which they were loaded.
//
// Participation:
// A per-session answer collector for interactive clients.
package engine
