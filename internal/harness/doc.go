// Package harness runs poll scenarios as executable contract tests.
//
// A scenario publishes one poll, plays a sequence of participant steps
// against a fresh in-memory store, and checks the outcome of each step and
// the final results.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: car_ownership
//	description: "Brand question only shown to car owners"
//	poll_file: car.yaml          # or an inline poll: {...}
//	steps:
//	  - active: { answers: { q1: "Yes" } }
//	    expect_active: [q1, q2]
//	  - submit:
//	      user: alice
//	      answers: { q1: "Yes", q2: "Toyota" }
//	  - submit:
//	      answers: { q1: "Yes" }
//	    expect_error: MISSING_REQUIRED
//	assertions:
//	  - type: tally
//	    question: q1
//	    counts: { "Yes": 1, "No": 0 }
//	  - type: samples
//	    question: q2
//	    samples: ["Toyota"]
//
// Answers are written loosely: a string names a choice (by id or text) for
// choice questions and is the text otherwise, a list is a multiple_choice
// selection, null is unanswered, and a mapping is the tagged JSON form
// ({choice_id: ...}, {choice_ids: [...]}, {text: ...}).
//
// # Determinism
//
// Every run uses a fresh store, a logical clock starting at 1, sequential
// anonymous session ids (session-001, ...) and a frozen wall clock, so the
// same scenario always produces byte-identical golden output.
//
// # Golden Files
//
// RunWithGolden snapshots the trace and results as canonical JSON under
// testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
