package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/daybook/internal"
	pkgconfig "github.com/starford/daybook/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.Root().String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func encrypt(_ context.Context, cmd *cli.Command) error {
	pw, err := passwordFor(cmd, true)
	if err != nil {
		return err
	}
	in, out := cmd.String("in"), cmd.String("out")
	if err := internal.EncryptFile(in, out, pw); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "encrypted %s -> %s\n", in, out)
	return nil
}

func decrypt(_ context.Context, cmd *cli.Command) error {
	pw, err := passwordFor(cmd, false)
	if err != nil {
		return err
	}
	plain, err := internal.DecryptFile(cmd.String("in"), pw)
	if err != nil {
		return err
	}
	if out := cmd.String("out"); out != "" {
		return os.WriteFile(out, plain, 0o600)
	}
	_, err = os.Stdout.Write(append(plain, '\n'))
	return err
}

func passwordFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "password",
		Usage:   "Password (prefer the environment variable over the flag)",
		Sources: cli.EnvVars("DAYBOOK_PASSWORD"),
	}
}

func main() {

	cmd := &cli.Command{
		Name:    "daybook",
		Usage:   "Local-first journal with encrypted file storage",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve note tools over MCP stdio",
				Action: serveMCP,
			},
			{
				Name:   "encrypt",
				Usage:  "Encrypt a plaintext journal file",
				Action: encrypt,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Usage: "Plaintext journal", Required: true},
					&cli.StringFlag{Name: "out", Usage: "Destination envelope", Required: true},
					passwordFlag(),
				},
			},
			{
				Name:   "decrypt",
				Usage:  "Print the plaintext of an encrypted journal file",
				Action: decrypt,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Usage: "Encrypted journal", Required: true},
					&cli.StringFlag{Name: "out", Usage: "Write plaintext here instead of stdout"},
					passwordFlag(),
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
