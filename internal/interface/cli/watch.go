package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/bus"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow live session activity",
	Long: `Load everything, then watch the filesystem and print each change
as it lands in the store. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, cfg, cleanup, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	w, err := watcher.New(cfg.ClaudeDir, s, s.Events(), newLogger())
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() {
		_ = w.Close()
	}()

	project := projectPath
	if project == "" {
		if wd, err := os.Getwd(); err == nil {
			project = wd
		}
	}
	if project != "" {
		w.WatchProjectSettings(project)
	}

	events, unsubscribe := s.Events().Subscribe()
	defer unsubscribe()

	w.Start(ctx)
	fmt.Printf("Watching %s (%d sessions loaded). Ctrl-C to stop.\n",
		cfg.ClaudeDir, s.SessionCount())

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopping.")
			return nil
		case ev := <-events:
			switch ev.Type {
			case bus.SessionCreated, bus.SessionUpdated, bus.SessionRemoved:
				fmt.Printf("%s  %s\n", ev.Type, ev.SessionID)
			case bus.ConfigChanged:
				fmt.Printf("%s  scope=%s\n", ev.Type, ev.Scope)
			case bus.WatcherError:
				fmt.Printf("%s  %s\n", ev.Type, ev.Message)
			default:
				fmt.Println(ev.Type)
			}
		}
	}
}
