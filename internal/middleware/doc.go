// Package middleware provides HTTP middleware for the StaffHub API.
//
// # Available Middleware
//
//   - RequestID: assigns or propagates X-Request-ID
//   - Logger, Recovery: structured request logs and panic recovery
//   - CORS, Compress
//   - Auth, OptionalAuth: bearer token validation
//   - RequireRole, RequireStaff: role checks (admin passes every check)
//   - RateLimit: per-user token bucket with X-RateLimit-* headers
//   - Idempotency: replays responses for repeated Idempotency-Key requests
//
// Middlewares compose with Chain, outermost first:
//
//	h := middleware.Chain(mux,
//	    middleware.RequestID,
//	    middleware.Logger(logger),
//	    middleware.Recovery(logger),
//	)
//
// # Context Values
//
//   - GetUserID(ctx), GetUserEmail(ctx), GetUserRole(ctx), GetClaims(ctx)
//   - GetRequestID(ctx)
package middleware
