// Package responders holds what the intent-specific responders share:
// retrieval, context assembly, prompt fitting and generation.
//
// Each responder lives in its own subpackage:
//   - casediscovery: finds and summarises precedent
//   - legalaid: answers questions from retrieved guidance
//   - drafting: drafts documents and clauses
package responders
