// Package refetch issues an HTTP request and tracks its lifecycle
// (pending/fetched/error), re-issuing it automatically when the request
// descriptor changes, when a poll interval elapses, or when the caller
// triggers it by hand. The public API centres around the Resource type,
// which owns a single logical fetch: it mints a token per issued request
// so that superseded responses are discarded, arms at most one poll and
// one reset timer at a time, and surfaces every failure through a single
// normalized Error shape regardless of whether the server returned a
// non-2xx status, a malformed body, or the transport never produced a
// response at all. CheckStatus is usable on its own for callers that only
// need the success/failure classification.
package refetch
