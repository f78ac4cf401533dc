package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/lineage-core/internal/application/handlers"
	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/ports"
	"github.com/ersonp/lineage-core/internal/domain/services"
	"github.com/ersonp/lineage-core/internal/infrastructure/cache"
	"github.com/ersonp/lineage-core/internal/infrastructure/config"
	"github.com/ersonp/lineage-core/internal/infrastructure/logging"
	"github.com/ersonp/lineage-core/internal/infrastructure/relationaldb/sqlite"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config    *config.Config
	Logger    *slog.Logger
	Scope     entities.Scope
	Persons   *handlers.PersonHandler
	Edges     *handlers.EdgeHandler
	Genealogy *handlers.GenealogyHandler
	Import    *handlers.ImportHandler
}

// openStore opens the SQLite graph store at path.
func openStore(path string) (ports.GraphStore, error) {
	repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: path})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// withDeps loads config, resolves the --tree scope and builds dependencies,
// then calls the provided function. It handles cleanup automatically.
func withDeps(cmd *cobra.Command, fn func(*Deps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	scope, err := handlers.NewTreesHandler(openStore).Scope(cwd, globalTree)
	if err != nil {
		return err
	}

	sqlitePath := cfg.SQLite.Path
	if sqlitePath == "" {
		sqlitePath = config.SQLitePathForTree(cwd, globalTree)
	}
	repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: sqlitePath})
	if err != nil {
		return fmt.Errorf("creating sqlite repository: %w", err)
	}
	defer repo.Close()

	// Ensure schema exists
	if err := repo.EnsureSchema(cmd.Context()); err != nil {
		return fmt.Errorf("ensuring sqlite schema: %w", err)
	}

	traversalCache := cache.FromConfig(cfg.Cache)
	personService := services.NewPersonService(repo)
	edgeService := services.NewEdgeService(repo, traversalCache, logger)
	genealogyService := services.NewGenealogyService(repo,
		services.WithCache(traversalCache),
		services.WithLogger(logger),
		services.WithLimits(traversalLimits(cfg.Traversal)),
	)

	deps := &Deps{
		Config:    cfg,
		Logger:    logger,
		Scope:     scope,
		Persons:   handlers.NewPersonHandler(personService),
		Edges:     handlers.NewEdgeHandler(edgeService, personService),
		Genealogy: handlers.NewGenealogyHandler(genealogyService, personService),
		Import:    handlers.NewImportHandler(services.NewImportService(personService, edgeService)),
	}

	logger.DebugContext(cmd.Context(), "dependencies ready",
		"tree", globalTree, "tree_id", scope.TreeID, "db", sqlitePath, "cache", cfg.Cache.Enabled)
	return fn(deps)
}

func traversalLimits(t config.TraversalConfig) services.TraversalLimits {
	return services.TraversalLimits{
		PedigreeDepth:    t.PedigreeDepth,
		DescendantDepth:  t.DescendantDepth,
		HourglassDepth:   t.HourglassDepth,
		MaxGenerations:   t.MaxGenerations,
		MaxSearchDepth:   t.MaxSearchDepth,
		MaxAncestorDepth: t.MaxAncestorDepth,
	}
}
