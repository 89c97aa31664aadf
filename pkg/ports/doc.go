/*
Package ports defines the driven ports (interfaces) for the arbor engine.

These interfaces decouple the analysis core from external implementations, allowing
the engine to work with various model sources and result caches.

# Key Interfaces

  - ModelLoader: loads model definitions by id (e.g., from files, Loam or memory).
  - ResultCache: stores encoded analysis results keyed by request digest.
  - Analyzer: the operations exposed to driving adapters (HTTP, MCP, CLI).
*/
package ports
