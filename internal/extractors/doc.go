// Package extractors provides the TextExtractor registry and the helpers
// shared by the per-format extractors. Each extractor knows how to turn
// the raw bytes of one media type into plain text.
//
// Extractors are registered with the Registry at startup.
package extractors
