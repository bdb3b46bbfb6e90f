// Package trace records what the code lens session does.
//
// Refresh cycles, per-backend responses and individual lens resolutions
// interleave on one event loop, so plain log lines are hard to follow. The
// tracer emits span and point events that can be streamed, kept in a ring
// for post-mortem dumps, or both.
//
// # Usage
//
//	lensctl show --trace=- --trace-level=detail main.go
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: protocol and consistency errors only
//   - LevelCycle: session and refresh cycle boundaries
//   - LevelDetail: per-backend responses
//   - LevelDebug: everything including single lens resolutions
//
// # Formats
//
// Text for humans, NDJSON for tooling, msgpack for compact dumps. The
// format is picked from the output file extension unless set explicitly.
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeRefresh, "refresh", 0)
//	defer span.End("")
package trace
