package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/services"
	"github.com/ersonp/lineage-core/internal/infrastructure/parsers"
)

// ImportHandler handles importing family data from files.
type ImportHandler struct {
	service *services.ImportService
}

// NewImportHandler creates a new import handler.
func NewImportHandler(service *services.ImportService) *ImportHandler {
	return &ImportHandler{
		service: service,
	}
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format string `json:"format" validate:"omitempty,oneof=auto json csv"` // "json", "csv", or "auto"
	DryRun bool   `json:"dry_run"`                                         // Validate without saving
}

// Handle parses a file and imports its persons, links and unions.
func (h *ImportHandler) Handle(ctx context.Context, scope entities.Scope, filePath string, opts ImportOptions) (*services.ImportResult, error) {
	if err := validateRequest(opts); err != nil {
		return nil, err
	}

	// Get parser
	var parser parsers.Parser
	if opts.Format == "" || opts.Format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(opts.Format)
	}

	if parser == nil {
		return nil, entities.NewValidationError("unsupported format for file: %s", filePath)
	}

	// Open file
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	ds, err := parser.Parse(file)
	if err != nil {
		return nil, entities.NewValidationError("parsing file: %v", err)
	}

	return h.service.Import(ctx, scope, ds, services.ImportOptions{DryRun: opts.DryRun})
}
