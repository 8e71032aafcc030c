// Package api exposes the question answering engine over HTTP.
//
// Routes:
//
//	GET  /health              engine and policy status
//	POST /api/v1/query        answer one question
//	POST /api/v1/batch_query  answer several questions concurrently
//	GET  /metrics             Prometheus metrics
//
// Requests may name a policy_version; a version other than the one held by
// the store is answered with 404.
package api
