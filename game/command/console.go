package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/kasuganosora/autoinvite/game/chat"
	"go.uber.org/zap"
)

// HandlerFunc handles one typed command. argument is the rest of the
// line after the command word, trimmed.
type HandlerFunc func(ctx context.Context, command, argument string) error

type registration struct {
	help string
	fn   HandlerFunc
}

// Console reads slash commands line by line and dispatches them to
// registered handlers.
type Console struct {
	handlers map[string]registration
	out      chat.Printer
	logger   *zap.Logger
}

// NewConsole creates a Console that reports to out.
func NewConsole(out chat.Printer, logger *zap.Logger) *Console {
	return &Console{
		handlers: make(map[string]registration),
		out:      out,
		logger:   logger,
	}
}

// Register adds a command. name includes the leading slash.
func (c *Console) Register(name, help string, fn HandlerFunc) {
	c.handlers[name] = registration{help: help, fn: fn}
}

// ParseLine splits a typed line into its command word and argument.
func ParseLine(line string) (command, argument string) {
	line = strings.TrimSpace(line)
	command, argument, _ = strings.Cut(line, " ")
	return command, strings.TrimSpace(argument)
}

// Dispatch runs the handler for one line. Blank lines are ignored.
func (c *Console) Dispatch(ctx context.Context, line string) {
	cmd, arg := ParseLine(line)
	if cmd == "" {
		return
	}
	if cmd == "/help" {
		c.printHelp()
		return
	}
	reg, ok := c.handlers[cmd]
	if !ok {
		c.out.Print(fmt.Sprintf("Unknown command %s. Type /help for a list.", cmd))
		return
	}
	if err := reg.fn(ctx, cmd, arg); err != nil {
		c.logger.Warn("command failed", zap.String("command", cmd), zap.Error(err))
		c.out.Print(fmt.Sprintf("%s: %v", cmd, err))
	}
}

// Serve dispatches every line of r until EOF or ctx is done.
func (c *Console) Serve(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.Dispatch(ctx, sc.Text())
	}
	return sc.Err()
}

func (c *Console) printHelp() {
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.out.Print(fmt.Sprintf("%s  %s", name, c.handlers[name].help))
	}
}
