package embedding

import "context"

// Provider generates a vector embedding for a piece of text. The task type
// hint ("RETRIEVAL_DOCUMENT" vs "RETRIEVAL_QUERY") is honored by providers
// that distinguish the two and ignored otherwise.
type Provider interface {
	Generate(ctx context.Context, text string, taskType string) ([]float32, error)
}

const (
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
	TaskTypeQuery    = "RETRIEVAL_QUERY"
)
