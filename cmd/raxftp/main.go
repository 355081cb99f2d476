// Command raxftp is an interactive terminal for the raxftp client.
//
// It loads config.toml (overridable with RAX_FTP_* environment variables),
// connects with retries, and drops into a prompt loop where FTP commands
// are typed directly. HELP lists the supported commands.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/raxftp/raxftp"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "raxftp: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RAX FTP Client - Interactive Session")
	fmt.Printf("Server: %s\n", cfg.DisplayName())
	fmt.Println("Type 'HELP' for available commands or 'QUIT' to exit")
	fmt.Println()

	opts := append(cfg.ClientOptions(),
		raxftp.WithLogger(logger),
		raxftp.WithProgress(renderProgress),
	)

	fmt.Println("Connecting to server...")
	client, err := raxftp.Dial(cfg.Addr(), opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "raxftp: connection failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Connected. State: %s\n\n", client.State())

	term := newTerminal(client, cfg, os.Stdin, os.Stdout)
	if err := term.run(); err != nil {
		fmt.Fprintf(os.Stderr, "raxftp: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults (plus
// environment overrides) when the file does not exist.
func loadConfig(path string) (*raxftp.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg := raxftp.DefaultConfig()
		cfg.ApplyEnv()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return raxftp.LoadConfig(path)
}
