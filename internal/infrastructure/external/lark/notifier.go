package lark

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

const defaultReceiveIDType = "chat_id"

// Notifier posts permit updates as text messages to a Lark chat
type Notifier struct {
	client        *SDKClient
	receiveIDType string
	receiveID     string
	logger        *zap.Logger
}

// NewNotifier creates a Notifier that sends to the configured receiver
func NewNotifier(client *SDKClient, cfg Config, logger *zap.Logger) *Notifier {
	receiveIDType := cfg.ReceiveIDType
	if receiveIDType == "" {
		receiveIDType = defaultReceiveIDType
	}
	return &Notifier{
		client:        client,
		receiveIDType: receiveIDType,
		receiveID:     cfg.ReceiveID,
		logger:        logger,
	}
}

// Notify sends text to the team channel
func (n *Notifier) Notify(ctx context.Context, text string) error {
	content, err := textContent(text)
	if err != nil {
		return err
	}

	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType(n.receiveIDType).
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(n.receiveID).
			MsgType("text").
			Content(content).
			Build()).
		Build()

	resp, err := n.client.GetClient().Im.Message.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send message",
			zap.String("receive_id", n.receiveID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		n.logger.Error("API returned failure",
			zap.String("receive_id", n.receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	n.logger.Info("Message sent", zap.String("message_id", messageID))
	return nil
}

// textContent builds the JSON body Lark expects for msg_type text
func textContent(text string) (string, error) {
	data, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}
	return string(data), nil
}

var _ port.Notifier = (*Notifier)(nil)
