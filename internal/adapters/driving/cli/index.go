package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexroute/internal/connectors/filesystem"
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
	"github.com/custodia-labs/lexroute/internal/logger"
)

// persistDelay batches snapshot writes while watching.
const persistDelay = 2 * time.Second

var (
	indexWatch   bool
	indexRebuild bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the case index from the document root",
	Long: `Discovers every text, PDF and image file under the configured document root,
extracts and chunks it, embeds the chunks and saves the index snapshot.

Documents that fail are reported and skipped. With --watch the index is kept
up to date as files are added, changed or removed.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "keep indexing as documents change")
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "ignore the existing snapshot")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	root := svc.Settings.Documents.Root

	if !indexRebuild {
		if err := loadIndex(ctx, svc); err != nil {
			return err
		}
	}

	cmd.Printf("Indexing %s...\n", root)
	report, err := svc.Index.BuildFromDirectory(ctx, root)
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}
	printReport(cmd, report)

	if err := svc.Index.Persist(ctx); err != nil {
		return err
	}

	if !indexWatch {
		return nil
	}
	return watchIndex(ctx, cmd, svc, root)
}

func printReport(cmd *cobra.Command, report driving.BuildReport) {
	cmd.Printf("Indexed %d documents (%d chunks), %d empty, %d skipped.\n",
		report.Indexed, report.Chunks, report.Empty, len(report.Skipped))
	for _, s := range report.Skipped {
		cmd.Printf("  skipped %s: %s\n", s.DocumentID, s.Reason)
	}
}

// watchIndex applies filesystem changes to the index until ctx is done.
// The snapshot is saved once changes settle.
func watchIndex(ctx context.Context, cmd *cobra.Command, svc *Services, root string) error {
	if svc.Ingest == nil {
		return errors.New("ingest service not configured")
	}

	conn := filesystem.New(root)
	defer conn.Close()

	changes, err := conn.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	cmd.Printf("Watching %s for changes (Ctrl+C to stop)...\n", root)

	timer := time.NewTimer(persistDelay)
	timer.Stop()
	dirty := false

	for {
		select {
		case change, ok := <-changes:
			if !ok {
				return persistIfDirty(cmd, svc, dirty)
			}
			if applyChange(ctx, svc, change) {
				dirty = true
				timer.Reset(persistDelay)
			}
		case <-timer.C:
			if err := svc.Index.Persist(ctx); err != nil {
				logger.Warn("Saving index failed: %v", err)
				continue
			}
			dirty = false
			logger.Info("Index saved: %d chunks", svc.Index.Stats().Chunks)
		case <-ctx.Done():
			return persistIfDirty(cmd, svc, dirty)
		}
	}
}

// applyChange re-ingests or removes one document. It reports whether
// the index changed.
func applyChange(ctx context.Context, svc *Services, change filesystem.Change) bool {
	id := change.Source.ID
	if change.Type == filesystem.ChangeDeleted {
		n, err := svc.Index.DeleteDocument(ctx, id)
		if err != nil {
			logger.Warn("Removing %s failed: %v", id, err)
			return false
		}
		logger.Info("Removed %s (%d chunks)", id, n)
		return n > 0
	}

	chunks, err := svc.Ingest.Ingest(ctx, change.Source)
	if err != nil {
		logger.Warn("Skipping %s: %v", id, err)
		return false
	}
	if err := svc.Index.ReplaceDocument(ctx, id, chunks); err != nil {
		logger.Warn("Indexing %s failed: %v", id, err)
		return false
	}
	logger.Info("Indexed %s (%d chunks)", id, len(chunks))
	return true
}

// persistIfDirty saves outstanding changes on shutdown. The caller's
// context is already done, so a fresh one bounds the write.
func persistIfDirty(cmd *cobra.Command, svc *Services, dirty bool) error {
	if !dirty {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := svc.Index.Persist(ctx); err != nil {
		return err
	}
	cmd.Println("Index saved.")
	return nil
}
