// Package ir provides the shared poll, answer, submission and result types
// for branchpoll.
//
// This package contains type definitions and their serialization only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Answers are a sealed tagged union (Unanswered, Choice, ChoiceSet, Text)
//   - Absence of an answer is distinct from an empty answer
//   - All JSON tags use snake_case
//   - Submissions are ordered by logical seq, never by wall-clock time
//   - Results carry raw counts only; percentages are derived by consumers
package ir
