package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cartpilot/internal/chat"
	"cartpilot/internal/models"
	"cartpilot/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the shopping assistant",
	Long: `Start an interactive session with the shopping assistant. The
assistant collects your preferences, searches the catalog once it knows
enough, and answers questions about the products it found.

On a terminal this opens a full-screen chat UI; on a pipe it reads one
message per line and prints replies.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	svc, err := getCatalog()
	if err != nil {
		return err
	}
	m, err := getModel()
	if err != nil {
		return err
	}
	engine := chat.NewEngine(svc, m, cfg.Collection, nil)

	if term.IsTerminal(int(os.Stdin.Fd())) {
		return tui.Run(engine)
	}
	return replLoop(engine)
}

// replLoop is the line-oriented fallback for piped input.
func replLoop(engine *chat.Engine) error {
	state := models.NewConversationState()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		engine.Turn(context.Background(), state, text)
		fmt.Println(state.LastAssistantMessage())
	}
	return scanner.Err()
}
