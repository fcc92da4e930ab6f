// Package httpapi serves the poll operations over HTTP with gin.
//
// Routes:
//
//	GET  /healthz
//	GET  /api/polls                  published polls, ordered by id
//	POST /api/polls                  create a poll (authenticated)
//	GET  /api/polls/:id              poll definition
//	POST /api/polls/:id/active       active questions for a partial answer set
//	POST /api/polls/:id/submissions  submit a complete answer set
//	GET  /api/polls/:id/results      per-question results with percentages
//
// When a JWT secret is configured, a bearer token (HS256, sub = user id)
// identifies the participant. Requests without a token are anonymous.
//
// Submissions are rate limited per user, or per client IP for anonymous
// callers. Idle buckets are dropped.
package httpapi
