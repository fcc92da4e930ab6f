// Package service exposes the poll operations participants and reporting
// consumers call: publish, get active questions, submit answers, get results.
//
// Service composes the pure engine functions with a Repository. It owns the
// logical clock that stamps submissions and the policy checks that sit
// around validation (closed, expired, anonymous participation).
//
// Thread-safety: a Service is safe for concurrent use.
package service
