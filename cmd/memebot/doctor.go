package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"memebot/internal/config"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	var checkAPI bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your MemeBot installation",
		Long: `Verifies that MemeBot's configuration, credentials, database, and
workspace are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("MemeBot Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				failed++
				fmt.Printf("\nRun 'memebot init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
			} else {
				printPass("Config validation", "valid")
				passed++
			}

			if cfg == nil {
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return nil
			}

			// 3. Workspace directory exists
			if info, err := os.Stat(cfg.General.Workspace); err != nil {
				printWarn("Workspace", fmt.Sprintf("not found: %s (created on first run)", cfg.General.Workspace))
				warned++
			} else if !info.IsDir() {
				printFail("Workspace", fmt.Sprintf("not a directory: %s", cfg.General.Workspace))
				failed++
			} else {
				printPass("Workspace", cfg.General.Workspace)
				passed++
			}

			// 4. History database writable
			if cfg.History.Enabled {
				if err := checkDatabase(cfg.History.DBPath); err != nil {
					printFail("History database", err.Error())
					failed++
				} else {
					printPass("History database", cfg.History.DBPath)
					passed++
				}
			} else {
				printWarn("History database", "disabled")
				warned++
			}

			// 5. Imgflip credentials
			if cfg.Imgflip.Username == "" || cfg.Imgflip.Password == "" {
				printFail("Imgflip account", "username/password not configured")
				failed++
			} else {
				printPass("Imgflip account", cfg.Imgflip.Username)
				passed++
			}

			// 6. Channel credentials
			switch cfg.General.Channel {
			case "twilio":
				tw := cfg.Twilio
				if tw.AccountSID == "" || tw.APIKeySID == "" || tw.APIKeySecret == "" {
					printFail("Twilio credentials", "accountSid/apiKeySid/apiKeySecret not configured")
					failed++
				} else {
					printPass("Twilio credentials", tw.AccountSID)
					passed++
				}
				if tw.UserNumber == "" || tw.BotNumber == "" {
					printFail("WhatsApp numbers", "userNumber/botNumber not configured")
					failed++
				} else {
					printPass("WhatsApp numbers", fmt.Sprintf("%s <-> %s", tw.UserNumber, tw.BotNumber))
					passed++
				}
			case "telegram":
				if cfg.Telegram.Token == "" {
					printFail("Telegram token", "not configured")
					failed++
				} else {
					printPass("Telegram token", "configured")
					passed++
				}
				if cfg.Telegram.ChatID == 0 {
					printWarn("Telegram chat", "chatId not set; bot will ignore all chats")
					warned++
				} else {
					printPass("Telegram chat", fmt.Sprintf("%d", cfg.Telegram.ChatID))
					passed++
				}
			}

			// 7. Imgflip API reachable (optional, hits the network)
			if checkAPI {
				if err := checkImgflip(cfg.Imgflip.APIBase); err != nil {
					printWarn("Imgflip API", err.Error())
					warned++
				} else {
					printPass("Imgflip API", "reachable")
					passed++
				}
			}

			// 8. Gallery port
			if cfg.Gallery.Enabled {
				if err := checkPort(cfg.Gallery.Port); err != nil {
					printWarn("Gallery port", fmt.Sprintf("port %d may be in use: %v", cfg.Gallery.Port, err))
					warned++
				} else {
					printPass("Gallery port", fmt.Sprintf(":%d available", cfg.Gallery.Port))
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running MemeBot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nMemeBot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! MemeBot is ready to run.\n")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkAPI, "check-api", false, "also probe the Imgflip API over the network")
	return cmd
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}

	// Try a write.
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")

	return nil
}

func checkImgflip(apiBase string) error {
	if apiBase == "" {
		apiBase = "https://api.imgflip.com"
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(apiBase + "/get_memes")
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

func checkPort(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
