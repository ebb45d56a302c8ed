package lark

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Receive ID types accepted by the IM API
const (
	ReceiveIDChat  = "chat_id"
	ReceiveIDOpen  = "open_id"
	ReceiveIDEmail = "email"
)

// Config holds Lark client configuration
type Config struct {
	AppID     string
	AppSecret string
	// SafetyChatID receives safety alerts; ReceiveIDType says what kind of ID it is
	SafetyChatID  string
	ReceiveIDType string
}

// Enabled reports whether credentials and a recipient are configured
func (c Config) Enabled() bool {
	return c.AppID != "" && c.AppSecret != "" && c.SafetyChatID != ""
}

// MessageSender sends a plain text message and returns its message ID
type MessageSender interface {
	SendText(ctx context.Context, receiveIDType, receiveID, text string) (string, error)
}

// Client wraps the Lark SDK client for IM messaging
type Client struct {
	client *lark.Client
	logger *zap.Logger
}

// NewClient creates a new Lark client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)
	return &Client{
		client: client,
		logger: logger,
	}
}

// SendText sends a text message to a chat or user
func (c *Client) SendText(ctx context.Context, receiveIDType, receiveID, text string) (string, error) {
	if receiveID == "" {
		return "", fmt.Errorf("receive id cannot be empty")
	}
	content, err := textContent(text)
	if err != nil {
		return "", err
	}

	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType("text").
			Content(content).
			Build()).
		Build()

	resp, err := c.client.Im.Message.Create(ctx, req)
	if err != nil {
		c.logger.Error("Failed to send message",
			zap.String("receive_id", receiveID),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		c.logger.Error("API returned failure",
			zap.String("receive_id", receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	c.logger.Debug("Message sent", zap.String("message_id", messageID), zap.String("receive_id", receiveID))
	return messageID, nil
}

// textContent builds the {"text": ...} body of a text message
func textContent(text string) (string, error) {
	data, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}
	return string(data), nil
}

var _ MessageSender = (*Client)(nil)
