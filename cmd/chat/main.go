package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"skhpc/internal/app"
	"skhpc/internal/domain"
	"skhpc/internal/service"

	"github.com/google/uuid"
)

// Terminal REPL against the booking assistant. One process, one session.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, logCloser, err := app.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger, logCloser)
	if err != nil {
		return err
	}
	defer application.Close()

	application.StartWorkers(ctx)

	sessionID := uuid.NewString()
	fmt.Println("SK HPC Services booking assistant. Type 'exit' to quit, 'reset' to start over.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "reset":
			if err := application.Chat.Reset(ctx, sessionID); err != nil {
				fmt.Printf("reset failed: %v\n", err)
				continue
			}
			sessionID = uuid.NewString()
			fmt.Println("Conversation reset.")
			continue
		}

		reply, err := application.Chat.HandleMessage(ctx, sessionID, line)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrRateLimited):
				fmt.Println("You're sending messages too quickly. Wait a minute and try again.")
			case errors.Is(err, domain.ErrAgentUnavailable):
				fmt.Println("The assistant is temporarily unavailable. Try again in a moment.")
			default:
				fmt.Printf("error: %v\n", err)
			}
			continue
		}

		fmt.Println(reply)
	}
}
