package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vaibhav23244/multi-agent-backend/config"
	"github.com/vaibhav23244/multi-agent-backend/handlers"
	"github.com/vaibhav23244/multi-agent-backend/logging"
	"github.com/vaibhav23244/multi-agent-backend/services"
)

const (
	ColorReset  = "\033[0m"
	ColorBlue   = "\033[34m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
)

func colorize(color, text string) string {
	return color + text + ColorReset
}

type Session struct {
	chat           handlers.ChatProcessor
	getUserMessage func() (string, bool)
	out            io.Writer
}

func NewSession(chat handlers.ChatProcessor, in io.Reader, out io.Writer) *Session {
	scanner := bufio.NewScanner(in)
	return &Session{
		chat: chat,
		out:  out,
		getUserMessage: func() (string, bool) {
			fmt.Fprint(out, colorize(ColorBlue, "You")+": ")
			if !scanner.Scan() {
				return "", false
			}
			text := strings.TrimSpace(scanner.Text())
			if text == "exit" || text == "quit" {
				return "", false
			}
			return text, true
		},
	}
}

// Run reads one message per line and prints each answer until the input ends
// or the user types exit or quit. Blank lines are skipped.
func (s *Session) Run(ctx context.Context) {
	fmt.Fprintln(s.out, "Chat started. Type 'exit' or 'quit' to stop.")

	for {
		userInput, ok := s.getUserMessage()
		if !ok {
			break
		}
		if userInput == "" {
			continue
		}

		result, err := s.chat.Chat(ctx, userInput)
		if err != nil {
			fmt.Fprintf(s.out, "%s: %v\n", colorize(ColorRed, "Error"), err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		fmt.Fprintf(s.out, "%s: %s\n", colorize(ColorYellow, "Assistant"), result.AI)
	}

	fmt.Fprintln(s.out, "Goodbye!")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Warnings and above only, so log lines do not drown the conversation.
	logger := logging.Setup("warn", "console")

	stack, err := services.NewStack(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer stack.Close()

	ctx := logger.WithContext(context.Background())
	NewSession(stack.Chat, os.Stdin, os.Stdout).Run(ctx)
}
