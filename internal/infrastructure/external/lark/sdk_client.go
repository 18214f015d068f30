package lark

import (
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// DefaultRequestTimeout bounds a single Open API call
const DefaultRequestTimeout = 10 * time.Second

// Config holds Lark client configuration
type Config struct {
	AppID     string
	AppSecret string
	// ReceiveIDType is one of chat_id, open_id, user_id, union_id, email
	ReceiveIDType string
	ReceiveID     string
	Timeout       time.Duration
}

// Enabled reports whether enough is configured to send messages
func (c Config) Enabled() bool {
	return c.AppID != "" && c.AppSecret != "" && c.ReceiveID != ""
}

// SDKClient owns the Lark SDK client. The SDK caches the tenant access
// token between calls.
type SDKClient struct {
	client *lark.Client
	logger *zap.Logger
}

// NewSDKClient creates a new Lark SDK client
func NewSDKClient(cfg Config, logger *zap.Logger) *SDKClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelWarn),
		lark.WithEnableTokenCache(true),
		lark.WithReqTimeout(timeout),
	)
	logger.Info("Lark client created", zap.String("app_id", cfg.AppID), zap.Duration("timeout", timeout))

	return &SDKClient{
		client: client,
		logger: logger,
	}
}

// GetClient returns the underlying Lark SDK client
func (c *SDKClient) GetClient() *lark.Client {
	return c.client
}
