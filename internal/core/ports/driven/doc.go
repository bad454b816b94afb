// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - LLMService: Language model completions for every stage
//   - PromptStore: Stage prompt templates
//   - RunStore: Per-session run persistence
//   - TextExtractor / ExtractorRegistry: Uploaded document to text
//   - Exporter: Response document rendering, one per format
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - StageObserver: Stage timing hooks (metrics, progress display)
//   - AIConfigValidator: Connectivity checks for configured providers
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
