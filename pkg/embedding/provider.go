package embedding

import "context"

// Task types accepted by the embedding backends. Gemini distinguishes
// between indexing documents and embedding a search query.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// Provider generates text embeddings. GenerateBatch must return exactly one
// vector per input text, in input order.
type Provider interface {
	Generate(ctx context.Context, text string, taskType string) ([]float32, error)
	GenerateBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
}
