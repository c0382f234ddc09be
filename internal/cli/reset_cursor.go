package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/firstbuy/internal/control"
	"github.com/vietddude/firstbuy/internal/core/domain"
)

var resetCursorCmd = &cobra.Command{
	Use:   "reset-cursor <block_height>",
	Short: "Overwrite the synced block cursor",
	Long:  `Overwrite the synced block cursor. Stop the service first; a running syncer keeps its cached cursor.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResetCursor,
}

func init() {
	rootCmd.AddCommand(resetCursorCmd)
}

func runResetCursor(cmd *cobra.Command, args []string) error {
	height, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid block height %q: %w", args[0], err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	cp, err := control.OpenCheckpoint(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer func() {
		_ = cp.Close()
	}()

	previous, err := cp.Store.GetSyncedBlock(ctx)
	if err != nil {
		return fmt.Errorf("read block cursor: %w", err)
	}
	if err := cp.Store.SetSyncedBlock(ctx, height); err != nil {
		return fmt.Errorf("reset cursor: %w", err)
	}

	slog.Info("Cursor reset", "key", cp.Store.Key(domain.CheckpointSyncedBlock), "from", previous, "to", height)
	return nil
}
