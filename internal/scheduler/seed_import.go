// Package scheduler runs the background seed importer.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/smartmark/smartmark/internal/domain"
	"github.com/smartmark/smartmark/internal/feed"
	"github.com/smartmark/smartmark/internal/logger"
	"github.com/smartmark/smartmark/internal/sources/seedfile"
	"github.com/smartmark/smartmark/internal/store/sqlite"
)

// SeedImporter periodically imports bookmarks from a YAML seed file into
// one user's collection. Imports are idempotent: entries whose URL the
// owner already has are skipped, so re-running the pass never duplicates.
type SeedImporter struct {
	loader        *seedfile.Loader
	mapper        *seedfile.Mapper
	store         *sqlite.Repository
	broadcaster   *feed.Broadcaster
	ownerEmail    string
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewSeedImporter creates a new seed importer
func NewSeedImporter(
	seedFile string,
	ownerEmail string,
	store *sqlite.Repository,
	broadcaster *feed.Broadcaster,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *SeedImporter {
	return &SeedImporter{
		loader:        seedfile.NewLoader(seedFile),
		mapper:        seedfile.NewMapper(),
		store:         store,
		broadcaster:   broadcaster,
		ownerEmail:    ownerEmail,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs an immediate import pass, then keeps importing on the
// configured interval and on manual triggers.
func (si *SeedImporter) Start(ctx context.Context) error {
	if err := si.Import(ctx); err != nil {
		return fmt.Errorf("initial seed import failed: %w", err)
	}

	ticker := time.NewTicker(si.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := si.Import(ctx); err != nil {
					si.logger.Error("failed to import seed bookmarks",
						logger.Error(err))
				}
			case <-si.manualTrigger:
				si.logger.Info("manual seed import triggered")
				if err := si.Import(ctx); err != nil {
					si.logger.Error("failed to import seed bookmarks",
						logger.Error(err))
				}
			case <-si.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the importer
func (si *SeedImporter) Stop() {
	close(si.stopCh)
}

// Import loads the seed file and inserts every entry the owner does not
// already have. The owner must have signed in at least once; until then
// the pass is skipped with a warning.
func (si *SeedImporter) Import(ctx context.Context) error {
	si.logger.Info("importing bookmarks from seed file")

	config, err := si.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load seed file: %w", err)
	}

	inputs, err := si.mapper.MapBookmarks(config)
	if err != nil {
		return fmt.Errorf("failed to map seed bookmarks: %w", err)
	}

	owner, err := si.store.UserByEmail(ctx, si.ownerEmail)
	if err == sqlite.ErrNotFound {
		si.logger.Warn("seed owner has not signed in yet, skipping import",
			logger.String("owner_email", si.ownerEmail))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve seed owner: %w", err)
	}

	imported := 0
	for _, input := range inputs {
		exists, err := si.store.ExistsByURL(ctx, owner.ID, input.URL)
		if err != nil {
			return fmt.Errorf("failed to check existing bookmark: %w", err)
		}
		if exists {
			continue
		}

		row, err := si.store.Insert(ctx, owner.ID, input.Title, input.URL)
		if err != nil {
			return fmt.Errorf("failed to insert seed bookmark: %w", err)
		}
		imported++

		// Open dashboards pick the new rows up live.
		if si.broadcaster != nil {
			si.broadcaster.Publish(ctx, domain.ChangeEvent{
				Type:     domain.EventCreated,
				Bookmark: &row,
			})
		}
	}

	si.logger.Info("seed import pass finished",
		logger.Int("total", len(inputs)),
		logger.Int("imported", imported))

	return nil
}
