package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/firstbuy/internal/control"
	"github.com/vietddude/firstbuy/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored cursors and the chain head",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	block, err := cp.Store.GetSyncedBlock(ctx)
	if err != nil {
		return fmt.Errorf("read block cursor: %w", err)
	}
	externalID, err := cp.Store.GetSyncedExternalID(ctx)
	if err != nil {
		return fmt.Errorf("read external cursor: %w", err)
	}

	client, adapter := control.NewChainClient(cfg)
	defer func() {
		_ = client.Close()
	}()

	// The cursors are still worth printing when the node is down.
	head, headErr := adapter.GetLatestBlock(ctx)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "KEY\tVALUE")
	_, _ = fmt.Fprintf(w, "%s\t%d\n", cp.Store.Key(domain.CheckpointSyncedBlock), block)
	_, _ = fmt.Fprintf(w, "%s\t%d\n", cp.Store.Key(domain.CheckpointSyncedExternalID), externalID)
	if headErr != nil {
		_, _ = fmt.Fprintf(w, "chain_head\tunavailable (%v)\n", headErr)
	} else {
		var lag uint64
		if head > block {
			lag = head - block
		}
		_, _ = fmt.Fprintf(w, "chain_head\t%d\n", head)
		_, _ = fmt.Fprintf(w, "lag\t%d\n", lag)
	}
	return w.Flush()
}
