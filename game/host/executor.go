package host

import (
	"context"

	"github.com/kasuganosora/autoinvite/game/chat"
	"go.uber.org/zap"
)

// ChatCommandExecutor "runs" a chat command by echoing it to chat.
type ChatCommandExecutor struct {
	out    chat.Printer
	logger *zap.Logger
}

// NewChatCommandExecutor creates a ChatCommandExecutor.
func NewChatCommandExecutor(out chat.Printer, logger *zap.Logger) *ChatCommandExecutor {
	return &ChatCommandExecutor{out: out, logger: logger}
}

func (e *ChatCommandExecutor) Execute(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.out.Print("Executing: " + line)
	e.logger.Debug("command executed", zap.String("line", line))
	return nil
}
