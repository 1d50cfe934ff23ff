package backend

import (
	"context"
	"fmt"

	"gestion/internal/log"
	gsheet "gestion/internal/sheets/google"
	"gestion/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new mirror factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger}
}

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case NoMirror:
		f.logger.Info("Spreadsheet mirror disabled")
		return &Result{}, nil
	case MemoryMirror:
		f.logger.Info("Initialized in-memory mirror")
		return &Result{Mirror: memory.New()}, nil
	case SheetsMirror:
		return f.createSheetsMirror(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported mirror type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsMirror(ctx context.Context, config Config) (*Result, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		CredentialsFile: config.GoogleCredentialsFile,
		CredentialsJSON: config.GoogleCredentialsJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	if config.EnsureTabs {
		if err := cli.EnsureTabs(ctx); err != nil {
			return nil, fmt.Errorf("prepare mirror tabs: %w", err)
		}
	}

	f.logger.Info("Initialized Google Sheets mirror", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &Result{Mirror: cli}, nil
}
