// Command zkllm-client is a sample CLI built on the client package: it
// sends one-shot chat prompts through the envelope protocol and prints the
// decrypted response. It is an example consumer, not part of the core SDK.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/advatar/zk-llm-gateway-go/pkg/chatconvenience"
	"github.com/advatar/zk-llm-gateway-go/pkg/client"
	"github.com/advatar/zk-llm-gateway-go/pkg/config"
	"github.com/advatar/zk-llm-gateway-go/pkg/ticket"
	"github.com/advatar/zk-llm-gateway-go/pkg/tokenclass"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "zkllm-client",
		Short:   "Send requests to a zk-llm-gateway through the envelope protocol",
		Version: Version,
	}

	rootCmd.AddCommand(inferCmd())
	rootCmd.AddCommand(sizesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func inferCmd() *cobra.Command {
	var (
		configPath        string
		prompt            string
		model             string
		classStr          string
		maxTokens         int
		bearerTokenPrompt bool
	)

	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Send a single chat prompt and print the decrypted reply",
		Long: `Infer loads the client configuration, draws one ticket for the
requested size class, and sends a single chat-style prompt through the
sealed envelope protocol.

The prompt is read from --prompt, or from stdin if --prompt is not given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if v := os.Getenv("GATEWAY_URL"); v != "" {
				cfg.Gateway.URL = v
			}
			if v := os.Getenv("GATEWAY_PUBLIC_KEY_B64"); v != "" {
				cfg.Gateway.PublicKeyB64 = v
			}
			if v := os.Getenv("MODEL"); v != "" && !cmd.Flags().Changed("model") {
				model = v
			}

			if bearerTokenPrompt {
				token, err := readBearerToken()
				if err != nil {
					return err
				}
				cfg.Gateway.BearerToken = token
			}

			class, err := tokenclass.Parse(classStr)
			if err != nil {
				return fmt.Errorf("invalid --class: %w", err)
			}

			if prompt == "" {
				p, err := readPromptFromStdin()
				if err != nil {
					return fmt.Errorf("read prompt from stdin: %w", err)
				}
				prompt = p
			}
			if prompt == "" {
				return fmt.Errorf("no prompt given: pass --prompt or pipe text on stdin")
			}

			logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

			tickets, err := ticketSource(cfg)
			if err != nil {
				return err
			}

			gw, err := client.New(cfg, tickets, logger)
			if err != nil {
				return fmt.Errorf("build gateway client: %w", err)
			}
			gw.SetMetrics(client.NewMetrics())

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Request+5*time.Second)
			defer cancel()

			req := chatconvenience.NewChatRequest(model, prompt)
			req.MaxTokens = maxTokens

			result, err := gw.Infer(ctx, class, req)
			if err != nil {
				return fmt.Errorf("infer: %w", err)
			}

			completion, err := chatconvenience.ToChatCompletion(result)
			if err != nil {
				return fmt.Errorf("decode reply: %w", err)
			}

			if len(completion.Choices) == 0 {
				return fmt.Errorf("gateway reply had no choices")
			}
			fmt.Println(completion.Choices[0].Message.Content)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./zkllm-client.yaml", "Path to configuration file")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt text (reads stdin if omitted)")
	cmd.Flags().StringVar(&model, "model", "default", "Upstream model identifier")
	cmd.Flags().StringVar(&classStr, "class", "c1024", "Size class (c256, c512, c1024, c2048, c4096)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Max output tokens (0 uses the class's default hint)")
	cmd.Flags().BoolVar(&bearerTokenPrompt, "bearer-token-prompt", false, "Read the bearer token interactively instead of from the config file")

	return cmd
}

func sizesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sizes",
		Short: "List the gateway's size-class table",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("%-8s %-5s %-12s %-12s %-10s\n", "CLASS", "ID", "REQUEST", "RESPONSE", "MAX OUT")
			for _, c := range tokenclass.All() {
				fmt.Printf("%-8s %-5d %-12s %-12s %-10d\n",
					c.String(),
					c.ID(),
					humanize.Bytes(uint64(c.RequestPaddedLen())),
					humanize.Bytes(uint64(c.ResponsePaddedLen())),
					c.MaxOutputTokensHint(),
				)
			}
			return nil
		},
	}
	return cmd
}

func ticketSource(cfg *config.Config) (ticket.Source, error) {
	if cfg.TicketPool.Path == "" {
		return ticket.NewDummySource(), nil
	}
	pool, err := ticket.LoadPool(cfg.TicketPool.Path)
	if err != nil {
		return nil, fmt.Errorf("load ticket pool: %w", err)
	}
	return pool, nil
}

// newLogger builds the CLI's slog.Logger from the config file's level/format
// strings. An unrecognized level falls back to info; format is text unless
// "json" is given.
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func readBearerToken() (string, error) {
	fmt.Print("Bearer token: ")
	tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read bearer token: %w", err)
	}
	return strings.TrimSpace(string(tokenBytes)), nil
}

func readPromptFromStdin() (string, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return "", err
	}
	if stat.Mode()&os.ModeCharDevice != 0 {
		// No piped input; avoid blocking on an interactive terminal.
		return "", nil
	}

	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
