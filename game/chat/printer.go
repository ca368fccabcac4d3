package chat

import (
	"context"
	"time"

	"github.com/kasuganosora/autoinvite/cache"
	"go.uber.org/zap"
)

const (
	// Channel carries every plugin line to live listeners (SSE).
	Channel    = "chat:plugin"
	historyKey = "chat:plugin:history"

	defaultHistory = 50
	publishTimeout = 2 * time.Second
)

// Printer is the in-game chat log: one human-readable line per call.
type Printer interface {
	Print(line string)
}

// PrinterFunc adapts a function to Printer.
type PrinterFunc func(line string)

func (f PrinterFunc) Print(line string) { f(line) }

// LogPrinter writes lines to the structured log.
type LogPrinter struct {
	logger *zap.Logger
}

// NewLogPrinter creates a LogPrinter.
func NewLogPrinter(logger *zap.Logger) *LogPrinter {
	return &LogPrinter{logger: logger}
}

func (p *LogPrinter) Print(line string) {
	p.logger.Info("chat", zap.String("line", line))
}

// ChannelPrinter publishes lines to the plugin channel and keeps the
// most recent ones in a capped cache list.
type ChannelPrinter struct {
	cache  cache.Cache
	pubsub cache.PubSub
	size   int
	logger *zap.Logger
}

// NewChannelPrinter creates a ChannelPrinter keeping historySize lines.
func NewChannelPrinter(c cache.Cache, ps cache.PubSub, historySize int, logger *zap.Logger) *ChannelPrinter {
	if historySize <= 0 {
		historySize = defaultHistory
	}
	return &ChannelPrinter{cache: c, pubsub: ps, size: historySize, logger: logger}
}

func (p *ChannelPrinter) Print(line string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.pubsub.Publish(ctx, Channel, line); err != nil {
		p.logger.Warn("chat publish failed", zap.Error(err))
	}
	if err := p.cache.LPush(ctx, historyKey, line); err != nil {
		p.logger.Warn("chat history push failed", zap.Error(err))
		return
	}
	_ = p.cache.LTrim(ctx, historyKey, 0, int64(p.size-1))
}

// History returns up to n recent lines, oldest first.
func (p *ChannelPrinter) History(ctx context.Context, n int) ([]string, error) {
	if n <= 0 || n > p.size {
		n = p.size
	}
	lines, err := p.cache.LRange(ctx, historyKey, 0, int64(n-1))
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines, nil
}

// MultiPrinter fans each line out to several printers in order.
type MultiPrinter []Printer

func (m MultiPrinter) Print(line string) {
	for _, p := range m {
		p.Print(line)
	}
}
