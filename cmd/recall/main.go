package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nortechlabs/recall/internal/config"
	"github.com/nortechlabs/recall/internal/gateway"
	"github.com/nortechlabs/recall/internal/memory"
	"github.com/nortechlabs/recall/internal/rules"
	"github.com/nortechlabs/recall/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "recall - cross-channel client memory service",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the full service (HTTP API + channels + gc sweep)",
	RunE:  runServe,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and data directory",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recall status",
	RunE:  runStatus,
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Force memory compaction for one client",
	RunE:  runGC,
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the raw memory store as JSON",
	RunE:  runDump,
}

var (
	gcClientFlag          string
	includeQuarantineFlag bool
)

func init() {
	gcCmd.Flags().StringVar(&gcClientFlag, "client", "", "Client id to compact")
	dumpCmd.Flags().BoolVar(&includeQuarantineFlag, "include-quarantined", false, "Include quarantined events")
	rootCmd.AddCommand(serveCmd, onboardCmd, statusCmd, gcCmd, dumpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return gw.Run(context.Background())
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to enable channels or switch the store backend\n", cfgPath)
	fmt.Println("  2. Run 'recall serve' to start the service")
	fmt.Println("  3. POST /interact to record the first interaction")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Listen: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Store: %s (%s)\n", cfg.Store.Backend, cfg.Store.Path)
	fmt.Printf("Limits: %d tokens / %d events per client\n", cfg.Engine.MaxTokens, cfg.Engine.MaxEvents)
	fmt.Printf("GC sweep: enabled=%v schedule=%q\n", cfg.GC.SweepEnabled, cfg.GC.SweepSchedule)
	fmt.Printf("Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)
	fmt.Printf("WebChat: enabled=%v\n", cfg.Channels.WebChat.Enabled)

	engine, closer, err := openEngine(cfg)
	if err != nil {
		fmt.Printf("Memory: error (%v)\n", err)
		return nil
	}
	defer closeQuietly(closer)

	clients := engine.ListClients()
	if len(clients) == 0 {
		fmt.Println("Memory: empty")
	} else {
		fmt.Printf("Memory: %d clients\n", len(clients))
		for _, id := range clients {
			fmt.Printf("  %s\n", id)
		}
	}

	return nil
}

func runGC(cmd *cobra.Command, args []string) error {
	if gcClientFlag == "" {
		return fmt.Errorf("--client is required")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	engine, closer, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer closeQuietly(closer)

	report, err := engine.ForceGC(gcClientFlag)
	if err != nil {
		return err
	}

	data, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(data))
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	engine, closer, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer closeQuietly(closer)

	data, err := json.MarshalIndent(engine.Dump(includeQuarantineFlag), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dump: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// openEngine builds a standalone engine over the configured store for
// offline commands that bypass the gateway.
func openEngine(cfg *config.Config) (*memory.Engine, io.Closer, error) {
	table, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("load rules: %w", err)
	}

	var persister memory.Persister
	var closer io.Closer
	switch cfg.Store.Backend {
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		persister, closer = s, s
	case "", "file":
		persister = store.NewJSONStore(cfg.Store.Path)
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	engine, err := memory.NewEngine(table, persister, memory.Options{
		MaxTokens:    cfg.Engine.MaxTokens,
		MaxEvents:    cfg.Engine.MaxEvents,
		ContextLimit: cfg.Engine.ContextLimit,
	})
	if err != nil {
		closeQuietly(closer)
		return nil, nil, fmt.Errorf("init engine: %w", err)
	}
	return engine, closer, nil
}

func closeQuietly(c io.Closer) {
	if c != nil {
		c.Close()
	}
}
