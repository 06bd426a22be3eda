package llm

import "context"

// ChatModel is a minimal abstraction for chat-based LLMs used by the domain.
// It intentionally hides concrete providers to preserve dependency direction.
type ChatModel interface {
	Ask(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Embedder turns text into a fixed-length vector. Embeddings are deterministic
// per model, so callers may cache by input text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
