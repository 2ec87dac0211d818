package dryrun

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ETAnderson/offersync/internal/channels"
)

// Channel logs every call instead of publishing and hands out fake message ids.
type Channel struct {
	logger *zap.Logger

	mu     sync.Mutex
	nextID int64
}

func New(logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{logger: logger.With(zap.String("component", "dryrun")), nextID: 1}
}

func (c *Channel) Name() string { return "dryrun" }

func (c *Channel) Create(ctx context.Context, text string, markup channels.Markup, silent bool) (channels.Response, error) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.mu.Unlock()

	c.logger.Info("create message",
		zap.Int64("message_id", id),
		zap.Bool("silent", silent),
		zap.Int("buttons", countButtons(markup)),
		zap.String("text", text),
	)
	return channels.Response{OK: true, MessageID: id}, nil
}

func (c *Channel) UpdateText(ctx context.Context, messageID int64, text string, markup channels.Markup) (channels.Response, error) {
	c.logger.Info("update text", zap.Int64("message_id", messageID), zap.String("text", text))
	return channels.Response{OK: true}, nil
}

func (c *Channel) UpdateMarkup(ctx context.Context, messageID int64, markup channels.Markup) (channels.Response, error) {
	c.logger.Info("update markup", zap.Int64("message_id", messageID), zap.Int("buttons", countButtons(markup)))
	return channels.Response{OK: true}, nil
}

func (c *Channel) Delete(ctx context.Context, messageID int64) (channels.Response, error) {
	c.logger.Info("delete message", zap.Int64("message_id", messageID))
	return channels.Response{OK: true}, nil
}

func countButtons(m channels.Markup) int {
	n := 0
	for _, row := range m.InlineKeyboard {
		n += len(row)
	}
	return n
}
