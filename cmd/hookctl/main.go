package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/tjfontaine/hookgen/internal/auth"
	"github.com/tjfontaine/hookgen/internal/client"
	"github.com/tjfontaine/hookgen/internal/config"
	"github.com/tjfontaine/hookgen/internal/domain"
	"github.com/tjfontaine/hookgen/internal/runtime"
	"github.com/tjfontaine/hookgen/internal/storage"
)

func main() {
	_ = godotenv.Load()

	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "hookctl:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "hookctl",
		Usage: "manage hookgen balances and call a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to config file",
				Sources: cli.EnvVars("HOOKGEN_CONFIG"),
			},
		},
		Writer: out,
		Commands: []*cli.Command{
			balanceCommand(out),
			keyhashCommand(out),
			generateCommand(out),
		},
	}
}

func balanceCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "inspect and adjust user token balances",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "show a user's balance",
				ArgsUsage: "<user-id>",
				Action: withStore(func(ctx context.Context, store storage.Store, userID string, _ *cli.Command) (*storage.Balance, error) {
					return store.GetBalance(ctx, userID)
				}, out),
			},
			{
				Name:      "set",
				Usage:     "set a user's balance, creating the record if needed",
				ArgsUsage: "<user-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "tokens", Aliases: []string{"t"}, Required: true, Usage: "new balance"},
				},
				Action: withStore(func(ctx context.Context, store storage.Store, userID string, cmd *cli.Command) (*storage.Balance, error) {
					return store.SetBalance(ctx, userID, cmd.Int("tokens"))
				}, out),
			},
			{
				Name:      "grant",
				Usage:     "add (or with a negative value, remove) tokens",
				ArgsUsage: "<user-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "tokens", Aliases: []string{"t"}, Required: true, Usage: "tokens to add"},
				},
				Action: withStore(func(ctx context.Context, store storage.Store, userID string, cmd *cli.Command) (*storage.Balance, error) {
					return store.GrantTokens(ctx, userID, cmd.Int("tokens"))
				}, out),
			},
		},
	}
}

type balanceOp func(ctx context.Context, store storage.Store, userID string, cmd *cli.Command) (*storage.Balance, error)

// withStore opens the configured store around op and prints the resulting balance.
func withStore(op balanceOp, out io.Writer) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		userID := strings.TrimSpace(cmd.Args().First())
		if userID == "" {
			return errors.New("user id is required")
		}

		cfg, err := config.LoadFile(cmd.String("config"))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		store, err := runtime.OpenStore(cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		bal, err := op(ctx, store, userID, cmd)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no balance for %q", userID)
		}
		if err != nil {
			return err
		}
		printBalance(out, bal)
		return nil
	}
}

func printBalance(out io.Writer, b *storage.Balance) {
	fmt.Fprintf(out, "%s\t%s tokens\tupdated %s\n", b.UserID, humanize.Comma(int64(b.Tokens)), humanize.Time(b.UpdatedAt))
}

func keyhashCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "keyhash",
		Usage:     "hash a service API key for auth.api_keys",
		ArgsUsage: "[api-key]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "generate", Aliases: []string{"g"}, Usage: "mint a new random key"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key := cmd.Args().First()
			if cmd.Bool("generate") {
				buf := make([]byte, 24)
				if _, err := rand.Read(buf); err != nil {
					return err
				}
				key = "hk_" + hex.EncodeToString(buf)
				fmt.Fprintf(out, "API Key: %s\n", key)
			}
			if key == "" {
				return errors.New("api key is required (or pass --generate)")
			}

			fmt.Fprintf(out, "SHA-256 Hash: %s\n", auth.HashAPIKey(key))
			fmt.Fprintln(out, "\nAdd this to your config.yaml:")
			fmt.Fprintf(out, "auth:\n  api_keys:\n    - key_hash: %q\n      description: \"Generated key\"\n", auth.HashAPIKey(key))
			return nil
		},
	}
}

func generateCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "request hooks from a running server",
		ArgsUsage: "<topic>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "server base URL", Sources: cli.EnvVars("HOOKGEN_URL")},
			&cli.StringFlag{Name: "path", Value: "/api/generate", Usage: "generate endpoint path"},
			&cli.StringFlag{Name: "api-key", Usage: "service API key", Sources: cli.EnvVars("HOOKGEN_API_KEY")},
			&cli.StringFlag{Name: "platform", Usage: "target platform, e.g. TikTok"},
			&cli.StringFlag{Name: "tone", Usage: "tone, e.g. playful"},
			&cli.StringFlag{Name: "user", Usage: "user id for balance-gated servers"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			topic := strings.Join(cmd.Args().Slice(), " ")
			if strings.TrimSpace(topic) == "" {
				return errors.New("topic is required")
			}

			c := client.New(cmd.String("url"),
				client.WithAPIKey(cmd.String("api-key")),
				client.WithPath(cmd.String("path")))
			res, err := c.Generate(ctx, &domain.GenerationRequest{
				Topic:    topic,
				Platform: cmd.String("platform"),
				Tone:     cmd.String("tone"),
				UserID:   cmd.String("user"),
			})
			if err != nil {
				return err
			}

			for i, h := range res.Hooks {
				fmt.Fprintf(out, "%d. %s\n", i+1, h)
			}
			if res.TokensRemaining != nil {
				fmt.Fprintf(out, "\n%s tokens remaining (%s)\n", humanize.Comma(int64(*res.TokensRemaining)), res.Source)
			}
			return nil
		},
	}
}
