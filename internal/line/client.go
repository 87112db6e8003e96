// Package line adapts the LINE Messaging API for the relay pipeline: reply
// delivery, message-content retrieval, and profile lookup, all behind one
// client so the rest of the code never touches the SDK.
package line

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// DefaultMaxContentBytes caps how much image content is drained per event.
const DefaultMaxContentBytes int64 = 10 << 20

// Profile is the subset of the platform user profile the resolver consumes.
type Profile struct {
	UserID      string
	DisplayName string
	Language    string
}

// Client wraps the Messaging API SDK.
type Client struct {
	bot             *linebot.Client
	channelSecret   string
	maxContentBytes int64
	logger          *slog.Logger
}

// New builds a client. maxContentBytes <= 0 selects DefaultMaxContentBytes.
func New(log *slog.Logger, channelSecret, channelAccessToken string, maxContentBytes int64) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	bot, err := linebot.New(channelSecret, channelAccessToken)
	if err != nil {
		return nil, fmt.Errorf("init line client: %w", err)
	}
	if maxContentBytes <= 0 {
		maxContentBytes = DefaultMaxContentBytes
	}
	return &Client{
		bot:             bot,
		channelSecret:   channelSecret,
		maxContentBytes: maxContentBytes,
		logger:          log.With(slog.String("component", "line")),
	}, nil
}

// Reply sends one plain-text message for the given single-use reply token.
// A stale or reused token fails here; the caller logs and moves on.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	if strings.TrimSpace(replyToken) == "" {
		return fmt.Errorf("reply token is required")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("reply text is required")
	}
	if _, err := c.bot.ReplyMessage(replyToken, linebot.NewTextMessage(text)).WithContext(ctx).Do(); err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	return nil
}

// GetContent retrieves the full content of a message as a single buffer,
// draining the platform's incremental stream in arrival order.
func (c *Client) GetContent(ctx context.Context, contentID string) ([]byte, error) {
	if strings.TrimSpace(contentID) == "" {
		return nil, fmt.Errorf("content id is required")
	}
	res, err := c.bot.GetMessageContent(contentID).WithContext(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get message content: %w", err)
	}
	defer func() {
		_ = res.Content.Close()
	}()
	buf, err := drainLimited(res.Content, c.maxContentBytes)
	if err != nil {
		return nil, fmt.Errorf("read message content: %w", err)
	}
	c.logger.Debug("message content drained",
		slog.String("content_id", contentID),
		slog.Int("bytes", len(buf)))
	return buf, nil
}

// GetProfile fetches the platform profile for a user. Fails when the user
// has blocked the channel or unsubscribed; the resolver recovers from that.
func (c *Client) GetProfile(ctx context.Context, userID string) (Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return Profile{}, fmt.Errorf("user id is required")
	}
	res, err := c.bot.GetProfile(userID).WithContext(ctx).Do()
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return Profile{
		UserID:      res.UserID,
		DisplayName: res.DisplayName,
		Language:    res.Language,
	}, nil
}

// ProfileLanguage returns the declared locale from the user's profile, which
// may be empty even on success.
func (c *Client) ProfileLanguage(ctx context.Context, userID string) (string, error) {
	profile, err := c.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	return profile.Language, nil
}

// ValidateSignature checks the X-Line-Signature header against the channel
// secret. The SDK keeps its validator unexported behind ParseRequest, which
// would also force its event types on us, so the HMAC check lives here.
func (c *Client) ValidateSignature(signature string, body []byte) bool {
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.channelSecret))
	mac.Write(body)
	return hmac.Equal(decoded, mac.Sum(nil))
}

// drainLimited reads r to completion, rejecting sources larger than max.
// The result is a byte-exact concatenation regardless of chunk boundaries.
func drainLimited(r io.Reader, max int64) ([]byte, error) {
	limited := &io.LimitedReader{R: r, N: max + 1}
	buf, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(buf)) > max {
		return nil, fmt.Errorf("content exceeds %d bytes", max)
	}
	return buf, nil
}
