// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - TextExtractor: Turns raw document bytes into plain text per media type
//   - Chunker: Splits extracted text into overlapping chunks
//   - DiscoverFunc: Lists the documents under the document root
//   - EmbeddingService: Generates vector embeddings for chunks and queries
//   - SnapshotStore: Persists and restores the embedding index
//   - Responder: Answers a sub-query of one intent
//   - IntentModel: Scores a fragment against each intent
//   - SettingsStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Generator: Language model text generation. Without it, responders
//     return the retrieved passages instead of a generated answer.
//   - AIConfigValidator: Provider reachability checks for "config check"
//
// # Import Rules
//
//   - Can Import: domain and driving port packages only
//   - Cannot Import: Any adapter, extractor, or responder package
package driven
