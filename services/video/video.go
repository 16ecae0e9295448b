package video

import (
	"context"
	"errors"
	"fmt"
	"log"

	"academy/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssetProvider is the external video host. Assets are referenced locally
// only by the opaque ids it returns.
type AssetProvider interface {
	CreateAsset(ctx context.Context, sourceURL string) (assetID, playbackID string, err error)
	GetAsset(ctx context.Context, assetID string) (status, playbackID string, err error)
	DeleteAsset(ctx context.Context, assetID string) error
}

// AssetDeletionError means a provider asset could not be deleted. The
// operation that needed the deletion is aborted so local state and provider
// state stay consistent for a retry.
type AssetDeletionError struct {
	AssetID string
	Err     error
}

func (e *AssetDeletionError) Error() string {
	return fmt.Sprintf("failed to delete provider asset %s: %v", e.AssetID, e.Err)
}

func (e *AssetDeletionError) Unwrap() error {
	return e.Err
}

// ErrConcurrentEdit means another request changed the section's video while
// this sync was in flight. The store kept the winner's asset; the loser's
// provider asset has already been cleaned up.
var ErrConcurrentEdit = errors.New("section video was changed concurrently")

// Coordinator keeps a section's provider-hosted video in lockstep with its
// video URL field: create on first set, delete-then-replace on change, delete
// on clear and on section/course removal. Neither side may hold an orphan:
// no provider asset without a local owner, no local row naming a deleted
// provider asset. Syncs are serialized per section through a row lock so two
// concurrent edits cannot both run the delete-then-create sequence.
type Coordinator struct {
	db       *gorm.DB
	provider AssetProvider
}

func NewCoordinator(db *gorm.DB, provider AssetProvider) *Coordinator {
	return &Coordinator{db: db, provider: provider}
}

// SyncSectionVideo reconciles the provider asset after a section update that
// carried a video URL value; newSource is the incoming value (empty means
// cleared). The section row still holds the previous video URL, so setting
// the same source twice is a no-op.
func (c *Coordinator) SyncSectionVideo(ctx context.Context, section *models.Section, newSource string) error {
	tx := c.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	// The row lock serializes concurrent syncs on this section for the whole
	// delete-then-create sequence.
	var current models.Section
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&current, section.ID).Error; err != nil {
		tx.Rollback()
		return err
	}

	existing, err := c.findAsset(tx, section.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	switch {
	case existing == nil && newSource == "":
		tx.Rollback()
		return nil
	case existing != nil && newSource == current.VideoURL:
		// Unchanged source: leave the bound asset alone.
		tx.Rollback()
		return nil
	}

	if existing != nil {
		// Delete before create. Skipping the delete would orphan the old
		// provider asset; a failed delete aborts so nothing is half-swapped.
		if err := c.releaseAsset(ctx, tx, existing); err != nil {
			tx.Rollback()
			return err
		}
	}

	if newSource == "" {
		return tx.Commit().Error
	}

	if err := c.createAsset(ctx, tx, section.ID, newSource); err != nil {
		// The old provider asset is gone for real, so its row removal must
		// stick even though the replacement failed.
		if commitErr := tx.Commit().Error; commitErr != nil {
			tx.Rollback()
		}
		return err
	}
	return tx.Commit().Error
}

// ReleaseSection deletes the provider asset bound to a section, if any. It
// must run before the section row is removed so a storage failure afterwards
// cannot leave a local reference to a deleted provider asset.
func (c *Coordinator) ReleaseSection(ctx context.Context, sectionID uint) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		var current models.Section
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, sectionID).Error; err != nil {
			return err
		}

		existing, err := c.findAsset(tx, sectionID)
		if err != nil {
			return err
		}
		if existing == nil {
			return nil
		}
		return c.releaseAsset(ctx, tx, existing)
	})
}

// ReleaseCourse deletes every provider asset bound to the course's sections.
// A provider failure aborts the whole course deletion; already-released
// sections stay consistent and the operation can be retried.
func (c *Coordinator) ReleaseCourse(ctx context.Context, courseID uint) error {
	var sectionIDs []uint
	if err := c.db.Model(&models.Section{}).
		Where("course_id = ?", courseID).
		Pluck("id", &sectionIDs).Error; err != nil {
		return err
	}

	for _, sectionID := range sectionIDs {
		if err := c.ReleaseSection(ctx, sectionID); err != nil {
			return err
		}
	}
	return nil
}

// RefreshPendingAssets polls the provider for assets still preparing and
// records the playback id once ready. Called from the scheduler.
func (c *Coordinator) RefreshPendingAssets(ctx context.Context) error {
	var pending []models.VideoAsset
	if err := c.db.Where("status = ?", models.AssetStatusPreparing).
		Find(&pending).Error; err != nil {
		return err
	}

	for _, asset := range pending {
		status, playbackID, err := c.provider.GetAsset(ctx, asset.AssetID)
		if err != nil {
			log.Printf("Failed to refresh asset %s: %v", asset.AssetID, err)
			continue
		}
		if status == asset.Status {
			continue
		}
		updates := map[string]interface{}{"status": status}
		if playbackID != "" {
			updates["playback_id"] = playbackID
		}
		if err := c.db.Model(&models.VideoAsset{}).
			Where("id = ?", asset.ID).
			Updates(updates).Error; err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) findAsset(db *gorm.DB, sectionID uint) (*models.VideoAsset, error) {
	var asset models.VideoAsset
	err := db.Where("section_id = ?", sectionID).First(&asset).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (c *Coordinator) releaseAsset(ctx context.Context, db *gorm.DB, asset *models.VideoAsset) error {
	if err := c.provider.DeleteAsset(ctx, asset.AssetID); err != nil {
		return &AssetDeletionError{AssetID: asset.AssetID, Err: err}
	}
	// Provider asset is gone; the local row must not outlive it.
	return db.Unscoped().Delete(asset).Error
}

func (c *Coordinator) createAsset(ctx context.Context, tx *gorm.DB, sectionID uint, sourceURL string) error {
	assetID, playbackID, err := c.provider.CreateAsset(ctx, sourceURL)
	if err != nil {
		return err
	}

	status := models.AssetStatusPreparing
	if playbackID != "" {
		status = models.AssetStatusReady
	}
	asset := models.VideoAsset{
		SectionID:  sectionID,
		AssetID:    assetID,
		PlaybackID: playbackID,
		Status:     status,
	}

	// The insert runs under a savepoint so a failed bind does not poison the
	// surrounding transaction.
	if err := tx.SavePoint("bind_asset").Error; err != nil {
		return err
	}
	if err := tx.Create(&asset).Error; err != nil {
		tx.RollbackTo("bind_asset")
		// The section's single asset slot was taken while this sync ran.
		// Remove the just-created provider asset so it does not survive
		// without a local owner.
		if delErr := c.provider.DeleteAsset(ctx, assetID); delErr != nil {
			log.Printf("Failed to delete unbound provider asset %s: %v", assetID, delErr)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConcurrentEdit
		}
		return err
	}
	return nil
}
