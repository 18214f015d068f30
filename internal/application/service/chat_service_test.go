package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/garyjia/permits-on-the-go/internal/domain/permit"
	"github.com/garyjia/permits-on-the-go/internal/rag"
)

func TestChatService_SendStartsPermitConversation(t *testing.T) {
	permitID := int64(5)
	convRepo := &mockConversationRepo{}
	convRepo.getByIDFunc = func(ctx context.Context, id int64) (*entity.Conversation, error) {
		return convRepo.created, nil
	}
	permitRepo := &mockPermitRepo{getByIDFunc: func(ctx context.Context, id int64) (*entity.Permit, error) {
		return &entity.Permit{ID: id, Title: "Garage", PermitType: "BUILDING", Status: permit.StatusCorrectionsNeeded}, nil
	}}
	listedPermit := int64(0)
	chunkRepo := &mockChunkRepo{listByPermitFunc: func(ctx context.Context, id int64) ([]*entity.DocumentChunk, error) {
		listedPermit = id
		return []*entity.DocumentChunk{{DocumentID: 3, ChunkIndex: 1, Content: "rear setback five feet"}}, nil
	}}
	retriever := &mockRetriever{matches: []rag.Match{{
		Chunk: &entity.DocumentChunk{DocumentID: 3, ChunkIndex: 1, Content: "rear setback five feet"},
		Score: 0.9,
	}}}

	var got port.ChatRequest
	model := &mockChatModel{answerFunc: func(ctx context.Context, req port.ChatRequest) (string, error) {
		got = req
		return "  Five feet.  ", nil
	}}

	svc := NewChatService(convRepo, permitRepo, chunkRepo, retriever, model, &mockTxManager{}, ChatConfig{}, &mockLogger{})

	reply, err := svc.Send(context.Background(), "pat", ChatInput{PermitID: &permitID, Message: "What is the rear setback?"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if convRepo.created == nil || *convRepo.created.PermitID != permitID {
		t.Errorf("conversation not scoped to permit: %+v", convRepo.created)
	}
	if listedPermit != permitID {
		t.Errorf("chunks listed for permit %d, want %d", listedPermit, permitID)
	}
	if got.Question != "What is the rear setback?" || len(got.Context) != 1 {
		t.Errorf("model request = %+v", got)
	}
	if !strings.Contains(got.PermitSummary, "CORRECTIONS_NEEDED") || !strings.Contains(got.PermitSummary, "RESUBMITTED") {
		t.Errorf("summary = %q, want status and next statuses", got.PermitSummary)
	}
	if reply.Answer.Content != "Five feet." {
		t.Errorf("answer = %q", reply.Answer.Content)
	}
	if len(reply.Sources) != 1 || reply.Sources[0].DocumentID != 3 {
		t.Errorf("sources = %+v", reply.Sources)
	}
	if len(convRepo.messages) != 2 || convRepo.messages[0].Role != entity.ChatRoleUser || convRepo.messages[1].Role != entity.ChatRoleAssistant {
		t.Errorf("stored messages = %+v", convRepo.messages)
	}
}

func TestChatService_SendPassesHistory(t *testing.T) {
	convRepo := &mockConversationRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Conversation, error) {
			return &entity.Conversation{ID: id}, nil
		},
		messages: []*entity.ChatMessage{
			{Role: entity.ChatRoleUser, Content: "Do I need a permit for a shed?"},
			{Role: entity.ChatRoleAssistant, Content: "Over 120 sq ft, yes."},
		},
	}
	recent := false
	chunkRepo := &mockChunkRepo{listRecentFunc: func(ctx context.Context, limit int) ([]*entity.DocumentChunk, error) {
		recent = true
		return nil, nil
	}}

	var history []port.ChatTurn
	model := &mockChatModel{answerFunc: func(ctx context.Context, req port.ChatRequest) (string, error) {
		history = req.History
		return "Yes.", nil
	}}

	svc := NewChatService(convRepo, &mockPermitRepo{}, chunkRepo, &mockRetriever{}, model, &mockTxManager{}, ChatConfig{}, &mockLogger{})

	convID := int64(2)
	if _, err := svc.Send(context.Background(), "pat", ChatInput{ConversationID: &convID, Message: "And a carport?"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !recent {
		t.Errorf("unscoped conversation did not search recent chunks")
	}
	if len(history) != 2 || history[1].Role != entity.ChatRoleAssistant {
		t.Errorf("history = %+v", history)
	}
}

func TestChatService_SendErrors(t *testing.T) {
	model := &mockChatModel{answerFunc: func(ctx context.Context, req port.ChatRequest) (string, error) {
		return "", errors.New("upstream timeout")
	}}
	missingConv := int64(99)

	tests := []struct {
		name    string
		model   port.ChatModel
		in      ChatInput
		wantErr error
	}{
		{name: "blank message", model: model, in: ChatInput{Message: "   "}, wantErr: ErrValidation},
		{name: "too long", model: model, in: ChatInput{Message: strings.Repeat("a", 4001)}, wantErr: ErrValidation},
		{name: "no model", model: nil, in: ChatInput{Message: "hello"}, wantErr: ErrUnavailable},
		{name: "unknown conversation", model: model, in: ChatInput{ConversationID: &missingConv, Message: "hello"}, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewChatService(&mockConversationRepo{}, &mockPermitRepo{}, &mockChunkRepo{}, &mockRetriever{}, tt.model, &mockTxManager{}, ChatConfig{}, &mockLogger{})

			_, err := svc.Send(context.Background(), "pat", tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Send() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestChatService_ModelFailureStoresNothing(t *testing.T) {
	convRepo := &mockConversationRepo{}
	model := &mockChatModel{answerFunc: func(ctx context.Context, req port.ChatRequest) (string, error) {
		return "", errors.New("upstream timeout")
	}}
	svc := NewChatService(convRepo, &mockPermitRepo{}, &mockChunkRepo{}, &mockRetriever{}, model, &mockTxManager{}, ChatConfig{}, &mockLogger{})

	if _, err := svc.Send(context.Background(), "pat", ChatInput{Message: "hello"}); err == nil {
		t.Fatalf("Send() error = nil, want model failure")
	}
	if len(convRepo.messages) != 0 {
		t.Errorf("messages stored after model failure: %+v", convRepo.messages)
	}
}
