// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tokenvault/tokenvault/internal/app"
	"github.com/tokenvault/tokenvault/internal/export"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// parseOrientation converts an orientation string to export.Orientation.
// Returns an error if the orientation string is invalid.
func parseOrientation(orientation string) (export.Orientation, error) {
	switch orientation {
	case "card":
		return export.ByCard, nil
	case "token":
		return export.ByToken, nil
	default:
		return "", fmt.Errorf("invalid orientation: %s (valid options: card, token)", orientation)
	}
}
