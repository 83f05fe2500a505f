package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/loom/pkg/chat"
	"github.com/go-go-golems/loom/pkg/persist"
	"github.com/go-go-golems/loom/pkg/remote"
	"github.com/go-go-golems/loom/pkg/store"
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Branching conversation client for streaming chat models",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return errors.Wrap(err, "invalid log level")
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "Remote chat server base URL")
	rootCmd.PersistentFlags().String("cache-dir", "", "Local cache directory (default: ~/.loom)")
	rootCmd.PersistentFlags().String("cache-backend", "file", "Cache backend (file, sqlite, memory)")
	rootCmd.PersistentFlags().String("model", "", "Model to use for new chats")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level")

	_ = viper.BindPFlags(rootCmd.PersistentFlags())
	viper.SetEnvPrefix("LOOM")
	viper.AutomaticEnv()

	rootCmd.AddCommand(newChatCommand())
	rootCmd.AddCommand(newModelsCommand())
	rootCmd.AddCommand(newPersonasCommand())
}

func openCache() (persist.CacheStore, error) {
	dir := viper.GetString("cache-dir")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dir = filepath.Join(home, ".loom")
	}

	switch viper.GetString("cache-backend") {
	case "memory":
		return persist.NewMemoryStore(), nil
	case "sqlite":
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		return persist.NewSQLiteStore(filepath.Join(dir, "loom.db"))
	case "file":
		return persist.NewFileStore(dir)
	}
	return nil, errors.Errorf("unknown cache backend %q", viper.GetString("cache-backend"))
}

func openStore(ctx context.Context) (*store.StoreImpl, error) {
	cache, err := openCache()
	if err != nil {
		return nil, err
	}

	client := remote.NewClient(viper.GetString("server"))
	s := store.NewStore(
		store.WithCache(cache),
		store.WithRemote(client),
	)
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models offered by the remote server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := remote.NewClient(viper.GetString("server"))
			models, err := client.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range models {
				fmt.Printf("%s\t%s\n", m.ID, m.Name)
			}
			return nil
		},
	}
}

func newPersonasCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = s.Close()
			}()

			for _, p := range s.ListPersonas() {
				kind := "ai"
				if p.IsUser {
					kind = "user"
				}
				fmt.Printf("%s\t%s\t%s\n", p.ID, kind, p.Name)
			}
			return nil
		},
	}
}

func newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [title]",
		Short: "Start an interactive branching chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			title := "New chat"
			if len(args) > 0 {
				title = strings.Join(args, " ")
			}

			ctx := cmd.Context()
			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = s.Close()
			}()

			c, err := s.CreateChat(ctx, title, chat.WithChatModel(viper.GetString("model")))
			if err != nil {
				return err
			}

			return chatLoop(ctx, s, c.ID)
		},
	}
}

var (
	userColor      = color.New(color.FgGreen, color.Bold)
	assistantColor = color.New(color.FgCyan)
	branchColor    = color.New(color.FgYellow)
	errColor       = color.New(color.FgRed)
)

func chatLoop(ctx context.Context, s *store.StoreImpl, id chat.ChatID) error {
	fmt.Println("Type a message, /branches, /switch <id>, /edit <message-id> <text>, or /quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		userColor.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return nil
		case line == "/branches":
			printBranches(s, id)
		case strings.HasPrefix(line, "/switch "):
			switchBranch(ctx, s, id, strings.TrimPrefix(line, "/switch "))
		case strings.HasPrefix(line, "/edit "):
			editMessage(ctx, s, id, strings.TrimPrefix(line, "/edit "))
		default:
			send(ctx, s, id, line)
		}
	}
}

func send(ctx context.Context, s *store.StoreImpl, id chat.ChatID, content string) {
	placeholder, err := s.SendMessage(ctx, id, content)
	if err != nil {
		errColor.Fprintln(os.Stderr, err)
		return
	}

	// Poll the placeholder until the stream finishes, echoing content as it
	// grows. The engine applies events by message id, so this stays correct
	// even if the user switches branches mid-stream.
	printed := 0
	for {
		c, ok := s.GetChat(id)
		if !ok {
			return
		}
		msg, _, found := c.FindMessage(placeholder.ID)
		if found && len(msg.Content) > printed {
			assistantColor.Print(msg.Content[printed:])
			printed = len(msg.Content)
		}
		if found && !msg.Pending {
			if msg.Mood != "" {
				branchColor.Printf("  [%s]", msg.Mood)
			}
			fmt.Println()
			return
		}
		if !found {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func printBranches(s *store.StoreImpl, id chat.ChatID) {
	tree, err := s.BranchTree(id)
	if err != nil {
		errColor.Fprintln(os.Stderr, err)
		return
	}
	var walk func(nodes []*chat.BranchNode, depth int)
	walk = func(nodes []*chat.BranchNode, depth int) {
		for _, n := range nodes {
			marker := " "
			if n.Selected {
				marker = "*"
			}
			branchColor.Printf("%s%s %s  %s (%d messages)\n",
				strings.Repeat("  ", depth), marker, n.Branch.ID, n.Branch.Name, len(n.Branch.Messages))
			walk(n.Children, depth+1)
		}
	}
	walk(tree, 0)
}

func switchBranch(ctx context.Context, s *store.StoreImpl, id chat.ChatID, arg string) {
	branchID, err := chat.ParseBranchID(strings.TrimSpace(arg))
	if err != nil {
		errColor.Fprintln(os.Stderr, "invalid branch id")
		return
	}
	if err := s.SwitchBranch(ctx, id, branchID); err != nil {
		errColor.Fprintln(os.Stderr, err)
	}
}

func editMessage(ctx context.Context, s *store.StoreImpl, id chat.ChatID, arg string) {
	parts := strings.SplitN(strings.TrimSpace(arg), " ", 2)
	if len(parts) != 2 {
		errColor.Fprintln(os.Stderr, "usage: /edit <message-id> <new text>")
		return
	}
	messageID, err := chat.ParseMessageID(parts[0])
	if err != nil {
		errColor.Fprintln(os.Stderr, "invalid message id")
		return
	}

	branch, err := s.EditMessage(ctx, id, messageID, parts[1], "")
	if err != nil {
		errColor.Fprintln(os.Stderr, err)
		return
	}
	branchColor.Printf("forked to branch %s (%s)\n", branch.ID, branch.Name)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
