package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/garyjia/permits-on-the-go/internal/domain/permit"
	"github.com/garyjia/permits-on-the-go/internal/rag"
)

// ChatConfig tunes how much context a chat turn carries
type ChatConfig struct {
	TopK             int
	HistoryLimit     int
	CandidateLimit   int
	MaxMessageLength int
}

// ChatInput is one user question
type ChatInput struct {
	ConversationID *int64
	PermitID       *int64
	Message        string
}

// ChatSource points at a chunk used to answer
type ChatSource struct {
	DocumentID int64   `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// ChatReply is the outcome of a chat turn
type ChatReply struct {
	Conversation *entity.Conversation `json:"conversation"`
	Question     *entity.ChatMessage  `json:"question"`
	Answer       *entity.ChatMessage  `json:"answer"`
	Sources      []ChatSource         `json:"sources"`
}

// Retriever ranks indexed chunks for a query
type Retriever interface {
	Retrieve(ctx context.Context, query string, candidates []*entity.DocumentChunk, k int) []rag.Match
}

// ChatService answers questions about permits from their documents
type ChatService interface {
	Send(ctx context.Context, actor string, in ChatInput) (*ChatReply, error)
	Messages(ctx context.Context, conversationID int64) ([]*entity.ChatMessage, error)
}

type chatServiceImpl struct {
	conversationRepo port.ConversationRepository
	permitRepo       port.PermitRepository
	chunkRepo        port.ChunkRepository
	retriever        Retriever
	model            port.ChatModel
	txManager        port.TransactionManager
	config           ChatConfig
	logger           Logger
}

// NewChatService creates a new ChatService. model may be nil, in which
// case Send returns ErrUnavailable.
func NewChatService(
	conversationRepo port.ConversationRepository,
	permitRepo port.PermitRepository,
	chunkRepo port.ChunkRepository,
	retriever Retriever,
	model port.ChatModel,
	txManager port.TransactionManager,
	config ChatConfig,
	logger Logger,
) ChatService {
	if config.TopK <= 0 {
		config.TopK = 4
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 10
	}
	if config.CandidateLimit <= 0 {
		config.CandidateLimit = 200
	}
	if config.MaxMessageLength <= 0 {
		config.MaxMessageLength = 4000
	}
	return &chatServiceImpl{
		conversationRepo: conversationRepo,
		permitRepo:       permitRepo,
		chunkRepo:        chunkRepo,
		retriever:        retriever,
		model:            model,
		txManager:        txManager,
		config:           config,
		logger:           logger,
	}
}

// Send answers a question, starting a conversation when none is given
func (s *chatServiceImpl) Send(ctx context.Context, actor string, in ChatInput) (*ChatReply, error) {
	question := strings.TrimSpace(in.Message)
	if question == "" {
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}
	if len([]rune(question)) > s.config.MaxMessageLength {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrValidation, s.config.MaxMessageLength)
	}
	if s.model == nil {
		return nil, fmt.Errorf("%w: no chat model configured", ErrUnavailable)
	}

	actor = actorOrSystem(actor)
	conv, err := s.conversation(ctx, actor, in, question)
	if err != nil {
		return nil, err
	}

	var p *entity.Permit
	if conv.PermitID != nil {
		p, err = s.permitRepo.GetByID(ctx, *conv.PermitID)
		if err != nil {
			return nil, fmt.Errorf("get permit: %w", err)
		}
	}

	var candidates []*entity.DocumentChunk
	if p != nil {
		candidates, err = s.chunkRepo.ListByPermit(ctx, p.ID)
	} else {
		candidates, err = s.chunkRepo.ListRecent(ctx, s.config.CandidateLimit)
	}
	if err != nil {
		s.logger.Error("Failed to load chunks", "error", err, "conversation_id", conv.ID)
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	matches := s.retriever.Retrieve(ctx, question, candidates, s.config.TopK)
	req := port.ChatRequest{
		Question:      question,
		PermitSummary: summarizePermit(p),
	}
	sources := make([]ChatSource, 0, len(matches))
	for _, m := range matches {
		req.Context = append(req.Context, m.Chunk.Content)
		sources = append(sources, ChatSource{
			DocumentID: m.Chunk.DocumentID,
			ChunkIndex: m.Chunk.ChunkIndex,
			Score:      m.Score,
		})
	}

	history, err := s.conversationRepo.ListMessages(ctx, conv.ID, s.config.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for _, msg := range history {
		req.History = append(req.History, port.ChatTurn{Role: msg.Role, Content: msg.Content})
	}

	answer, err := s.model.Answer(ctx, req)
	if err != nil {
		s.logger.Error("Chat model failed", "error", err, "conversation_id", conv.ID)
		return nil, fmt.Errorf("answer: %w", err)
	}

	reply := &ChatReply{
		Conversation: conv,
		Question:     &entity.ChatMessage{ConversationID: conv.ID, Role: entity.ChatRoleUser, Content: question},
		Answer:       &entity.ChatMessage{ConversationID: conv.ID, Role: entity.ChatRoleAssistant, Content: strings.TrimSpace(answer)},
		Sources:      sources,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.conversationRepo.AddMessage(txCtx, reply.Question); err != nil {
			return fmt.Errorf("store question: %w", err)
		}
		if err := s.conversationRepo.AddMessage(txCtx, reply.Answer); err != nil {
			return fmt.Errorf("store answer: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to store chat messages", "error", err, "conversation_id", conv.ID)
		return nil, err
	}

	s.logger.Info("Chat answered",
		"conversation_id", conv.ID,
		"sources", len(sources),
		"history", len(history),
	)
	return reply, nil
}

// Messages retrieves a conversation's full thread
func (s *chatServiceImpl) Messages(ctx context.Context, conversationID int64) ([]*entity.ChatMessage, error) {
	conv, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: conversation %d", ErrNotFound, conversationID)
	}
	return s.conversationRepo.ListMessages(ctx, conversationID, 0)
}

func (s *chatServiceImpl) conversation(ctx context.Context, actor string, in ChatInput, question string) (*entity.Conversation, error) {
	if in.ConversationID != nil {
		conv, err := s.conversationRepo.GetByID(ctx, *in.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("get conversation: %w", err)
		}
		if conv == nil {
			return nil, fmt.Errorf("%w: conversation %d", ErrNotFound, *in.ConversationID)
		}
		return conv, nil
	}

	if in.PermitID != nil {
		p, err := s.permitRepo.GetByID(ctx, *in.PermitID)
		if err != nil {
			return nil, fmt.Errorf("get permit: %w", err)
		}
		if p == nil {
			return nil, fmt.Errorf("%w: permit %d", ErrNotFound, *in.PermitID)
		}
	}

	conv := &entity.Conversation{
		PermitID:  in.PermitID,
		Title:     truncate(question, 60),
		CreatedBy: actor,
	}
	if err := s.conversationRepo.Create(ctx, conv); err != nil {
		s.logger.Error("Failed to create conversation", "error", err)
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

func summarizePermit(p *entity.Permit) string {
	if p == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Permit #%d %q, type %s, status %s.", p.ID, p.Title, p.PermitType, p.Status)
	if p.Jurisdiction != "" {
		fmt.Fprintf(&b, " Jurisdiction: %s.", p.Jurisdiction)
	}
	if p.PermitNumber != "" {
		fmt.Fprintf(&b, " Permit number: %s.", p.PermitNumber)
	}

	next := permit.AllowedNextStatuses(p.Status)
	if len(next) == 0 {
		b.WriteString(" No further status changes are possible.")
	} else {
		names := make([]string, len(next))
		for i, st := range next {
			names[i] = st.String()
		}
		fmt.Fprintf(&b, " Possible next statuses: %s.", strings.Join(names, ", "))
	}

	stamp := func(label string, t *time.Time) {
		if t != nil {
			fmt.Fprintf(&b, " %s %s.", label, t.Format("2006-01-02"))
		}
	}
	stamp("Submitted", p.SubmittedAt)
	stamp("Approved", p.ApprovedAt)
	stamp("Issued", p.IssuedAt)
	stamp("Expires", p.ExpiresAt)
	stamp("Closed", p.ClosedAt)
	return b.String()
}
