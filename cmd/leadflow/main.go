package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/leadflow/internal/config"
	"github.com/stellarlinkco/leadflow/internal/gateway"
	"github.com/stellarlinkco/leadflow/internal/intake"
	"github.com/stellarlinkco/leadflow/internal/profile"
)

var rootCmd = &cobra.Command{
	Use:   "leadflow",
	Short: "leadflow - lead qualification assistant",
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the full gateway (webchat + session lifecycle + notifications)",
	RunE:  runGateway,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run the guided qualification conversation in the terminal",
	RunE:  runChat,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and data directories",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show leadflow status",
	RunE:  runStatus,
}

var funnelFlag string

func init() {
	chatCmd.Flags().StringVar(&funnelFlag, "funnel", "", "Funnel variant: full or scripted (default from config)")
	rootCmd.AddCommand(gatewayCmd, chatCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("API key not set. Run 'leadflow onboard' or set LEADFLOW_API_KEY / OPENAI_API_KEY")
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return gw.Run(context.Background())
}

// ChatOptions carries injectable IO for testing
type ChatOptions struct {
	Funnel string
	Stdin  io.Reader
	Stdout io.Writer
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	funnel := cfg.Assistant.Funnel
	if funnelFlag != "" {
		funnel = funnelFlag
	}
	return runChatWithOptions(ChatOptions{Funnel: funnel})
}

// runChatWithOptions drives the intake machine over a terminal transcript.
// The guided funnel and scoring run entirely locally; no backend needed.
func runChatWithOptions(opts ChatOptions) error {
	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	machine := intake.New(opts.Funnel)
	p := profile.New(time.Now())

	fmt.Fprintln(stdout, "leadflow chat (type 'exit' to quit)")
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		turn := machine.ProcessTurn(input, p)
		fmt.Fprintln(stdout, turn.Reply)
		if len(turn.Suggestions) > 0 {
			fmt.Fprintf(stdout, "  [%s]\n", strings.Join(turn.Suggestions, " | "))
		}
		if turn.Analysis != nil {
			s := turn.Analysis.Scores
			fmt.Fprintf(stdout, "\n-- analysis --\nfit %d  engagement %d  urgency %d  budget %d  authority %d\n",
				s.Fit, s.Engagement, s.Urgency, s.Budget, s.Authority)
			fmt.Fprintf(stdout, "est. deal $%.0f, ~%d days to close, success %.0f%%\n",
				turn.Analysis.Predictions.DealSize,
				turn.Analysis.Predictions.TimeToCloseDays,
				turn.Analysis.Predictions.SuccessProbability*100)
		}
	}
	return nil
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		data, _ := json.MarshalIndent(cfg, "", "  ")
		if err := os.WriteFile(cfgPath, data, 0644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Session.DBPath), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your API key\n", cfgPath)
	fmt.Println("  2. Or set LEADFLOW_API_KEY environment variable")
	fmt.Println("  3. Run 'leadflow chat' to try the guided conversation")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Model: %s\n", cfg.Assistant.Model)
	fmt.Printf("Funnel: %s\n", cfg.Assistant.Funnel)
	if cfg.Provider.APIKey != "" && len(cfg.Provider.APIKey) > 8 {
		masked := cfg.Provider.APIKey[:4] + "..." + cfg.Provider.APIKey[len(cfg.Provider.APIKey)-4:]
		fmt.Printf("API Key: %s\n", masked)
	} else if cfg.Provider.APIKey != "" {
		fmt.Println("API Key: set")
	} else {
		fmt.Println("API Key: not set")
	}
	fmt.Printf("Gateway: %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Printf("Session DB: %s\n", cfg.Session.DBPath)
	fmt.Printf("Enrichment: enabled=%v\n", cfg.Enrich.Enabled)
	fmt.Printf("Telegram notify: enabled=%v\n", cfg.Notify.Telegram.Enabled)
	fmt.Printf("Webhook notify: enabled=%v\n", cfg.Notify.Webhook.Enabled)

	if _, err := os.Stat(cfg.Session.DBPath); err != nil {
		fmt.Println("Session DB: not created yet (run 'leadflow gateway')")
	}

	return nil
}
