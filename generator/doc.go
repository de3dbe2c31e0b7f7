// Package generator abstracts the non-deterministic text-generation backend
// behind a single Generate operation. Orchestration code never consumes raw
// backend output directly: structured results are decoded through a JSON
// Schema contract, transient failures are retried with bounded exponential
// backoff at the call site, and an interceptor chain can veto a call before
// it is issued. Vendor adapters live in the anthropic and openai
// sub-packages; Mock provides a deterministic in-memory backend for tests
// and offline runs.
package generator
