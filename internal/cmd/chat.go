package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"rageddy/internal/tui"
	"rageddy/pkg/rageddy"
)

var flagTUI bool

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask questions about your documents",
	Long: `Ask a single question, or start an interactive session when no
question is given. Answers stream as they are generated and cite the
documents they came from.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&flagTUI, "tui", false, "full-screen chat interface")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	engine, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(args) > 0 {
		return askOnce(ctx, engine, strings.Join(args, " "))
	}

	if flagTUI {
		return tui.Run(ctx, engine)
	}

	return chatLoop(ctx, engine)
}

func askOnce(ctx context.Context, engine *rageddy.Engine, question string) error {
	answer, err := engine.AskStream(ctx, question, func(tok string) {
		fmt.Print(tok)
	})
	if err != nil {
		return err
	}
	fmt.Println()

	return newFormatter().Sources(answer.Sources)
}

func chatLoop(ctx context.Context, engine *rageddy.Engine) error {
	fmt.Println("Chat with your documents. Type a question, or /help for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := handleSlashCommand(engine, line)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
			}
			if done {
				return nil
			}
			continue
		}

		if err := askOnce(ctx, engine, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
}

// handleSlashCommand runs a REPL command. Returns true when the session
// should end.
func handleSlashCommand(engine *rageddy.Engine, line string) (bool, error) {
	switch strings.Fields(line)[0] {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/status":
		status, err := engine.Status()
		if err != nil {
			return false, err
		}
		info := engine.ModelInfo()
		return false, newFormatter().Status(status, info.ChatModel, info.BaseURL)

	case "/update":
		report, err := engine.UpdateArchive(context.Background())
		if err != nil {
			return false, err
		}
		fmt.Printf("Indexed %d, unchanged %d, embedded %d.\n", report.Indexed, report.Unchanged, report.Embedded)
		return false, nil

	case "/help":
		fmt.Println("Commands: /status  /update  /quit")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %q (try /help)", line)
	}
}
