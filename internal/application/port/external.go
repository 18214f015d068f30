package port

import (
	"context"
	"errors"
	"io"

	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
)

// ErrUnsupportedContent is returned by TextExtractor for files it can not read
var ErrUnsupportedContent = errors.New("unsupported content type")

// ChatTurn is one prior exchange passed to the model
type ChatTurn struct {
	Role    string
	Content string
}

// ChatRequest carries everything the model needs to answer a question
type ChatRequest struct {
	Question      string
	PermitSummary string
	Context       []string
	History       []ChatTurn
}

// ChatModel answers permit questions
type ChatModel interface {
	Answer(ctx context.Context, req ChatRequest) (string, error)
}

// Embedder turns texts into vectors, one per input in order
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// TextExtractor reads plain text out of a stored file
type TextExtractor interface {
	Extract(ctx context.Context, fullPath, contentType string) (string, error)
}

// Notifier delivers a text message to the team channel
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// PermitReportWriter renders a permit register
type PermitReportWriter interface {
	Write(w io.Writer, permits []*entity.Permit, properties map[int64]*entity.Property) error
}
