// Package server hosts the TubeFlow HTTP API from a single multiplexer.
//
// The server builds a consistent middleware chain of request IDs, logging,
// audit, CORS, security headers, metrics, rate limiting, and authentication
// so handlers all share common protections and instrumentation.
package server
