package commands

import (
	"fmt"

	"github.com/tokenvault/tokenvault/internal/app"
	"github.com/tokenvault/tokenvault/internal/config"
	"github.com/tokenvault/tokenvault/internal/export"
)

// RunExport loads the card registry snapshot from disk and writes the
// card-token report to io.Writer in the requested orientation. It never
// writes the snapshot back, so a stale or corrupt snapshot on disk is left
// untouched.
func RunExport(orientationStr string, io IOTuple) error {
	orientation, err := parseOrientation(orientationStr)
	if err != nil {
		return err
	}

	cfg := config.Load()
	container := app.NewContainer(cfg)

	container.SnapshotManager().Load()

	cards := container.CardRepository().Snapshot()
	if err := export.Write(io.Writer, cards, orientation); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	return nil
}
