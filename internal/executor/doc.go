// Package executor runs validated GraphQL operations against a Runtime.
//
// Execution is breadth-first. Every synchronous field reachable at the current
// depth is resolved and completed immediately; fields marked Async are queued.
// When the depth is drained, all queued tasks go to Runtime.BatchResolveAsync
// in a single call, their results are completed, and the fields they expose
// form the next depth.
//
// Null propagation follows GraphQL semantics. A null in a Non-Null position
// nulls the nearest nullable ancestor; when that ancestor lives in an already
// written part of the response (an async completion), the ancestor's path is
// tombstoned and queued tasks under it are dropped before the next batch.
package executor
