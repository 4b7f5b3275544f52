package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/komponente/internal/assets"
	"github.com/erazemk/komponente/internal/imaging"
	"github.com/erazemk/komponente/internal/metrics"
	"github.com/erazemk/komponente/internal/model"
	"github.com/erazemk/komponente/internal/store"
)

// Inventory manages the component catalog.
type Inventory struct {
	DB     *sqlx.DB
	Assets assets.Store
}

// List returns components matching f, ordered by ID.
func (inv *Inventory) List(ctx context.Context, f model.ComponentFilter) ([]model.Component, error) {
	components, err := store.ListComponents(ctx, inv.DB, f)
	if err != nil {
		return nil, err
	}
	if components == nil {
		components = []model.Component{}
	}
	return components, nil
}

// Get returns one component.
func (inv *Inventory) Get(ctx context.Context, id int64) (*model.Component, error) {
	c, err := store.GetComponent(ctx, inv.DB, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, model.ErrComponentNotFound
	}
	return c, nil
}

// Create adds a component. When image is non-empty it is uploaded first and
// the row is only inserted once the upload has produced a URL. A failed
// insert leaves the uploaded asset in place.
func (inv *Inventory) Create(ctx context.Context, s *model.Session, in model.ComponentInput, image []byte) (*model.Component, error) {
	if err := Authorize(s, model.RoleAdmin); err != nil {
		return nil, err
	}

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	imageURL, err := inv.upload(ctx, image)
	if err != nil {
		return nil, err
	}

	c, err := store.CreateComponent(ctx, inv.DB, in, imageURL)
	if err != nil {
		if imageURL != nil {
			slog.Error("component insert failed after upload, asset orphaned",
				"url", *imageURL, "error", err)
		}
		return nil, err
	}

	slog.Info("component created", "user", s.Username, "id", c.ID, "name", c.Name)
	return c, nil
}

// Update overwrites a component's fields. The image is replaced only when
// new bytes are given; the previous asset is then removed best-effort.
func (inv *Inventory) Update(ctx context.Context, s *model.Session, id int64, in model.ComponentInput, image []byte) (*model.Component, error) {
	if err := Authorize(s, model.RoleAdmin); err != nil {
		return nil, err
	}

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := inv.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	imageURL, err := inv.upload(ctx, image)
	if err != nil {
		return nil, err
	}

	if err := store.UpdateComponent(ctx, inv.DB, id, in, imageURL); err != nil {
		return nil, err
	}

	if imageURL != nil && existing.ImageURL != nil {
		inv.removeAsset(ctx, *existing.ImageURL)
	}

	slog.Info("component updated", "user", s.Username, "id", id)
	return inv.Get(ctx, id)
}

// Delete removes a component: first its movements, then its image asset
// (best-effort), then the row.
func (inv *Inventory) Delete(ctx context.Context, s *model.Session, id int64) error {
	if err := Authorize(s, model.RoleAdmin); err != nil {
		return err
	}

	c, err := inv.Get(ctx, id)
	if err != nil {
		return err
	}

	removed, err := store.DeleteComponentMovements(ctx, inv.DB, id)
	if err != nil {
		return err
	}

	if c.ImageURL != nil {
		inv.removeAsset(ctx, *c.ImageURL)
	}

	if err := store.DeleteComponent(ctx, inv.DB, id); err != nil {
		return err
	}

	slog.Info("component deleted", "user", s.Username, "id", id, "movements", removed)
	return nil
}

// upload normalizes and stores image, returning nil when there is none.
func (inv *Inventory) upload(ctx context.Context, image []byte) (*string, error) {
	if len(image) == 0 {
		return nil, nil
	}

	photo, err := imaging.Normalize(image)
	if errors.Is(err, imaging.ErrUnsupportedFormat) {
		return nil, &model.ValidationError{Field: "image", Message: "must be a JPEG, PNG, GIF or WebP image"}
	}
	if err != nil {
		return nil, &model.ValidationError{Field: "image", Message: err.Error()}
	}

	if inv.Assets == nil {
		return nil, &model.ExternalError{Service: "asset store", Err: errors.New("not configured")}
	}

	url, err := inv.Assets.Upload(ctx, photo.Data, photo.ContentType)
	metrics.ObserveAsset("upload", err)
	if err != nil {
		return nil, &model.ExternalError{Service: "asset store", Err: fmt.Errorf("uploading image: %w", err)}
	}
	return &url, nil
}

// removeAsset deletes the asset behind url. Failures are logged, never returned.
func (inv *Inventory) removeAsset(ctx context.Context, url string) {
	id, ok := assets.AssetIDFromURL(url)
	if !ok || inv.Assets == nil {
		slog.Warn("skipping asset delete, no asset id in url", "url", url)
		return
	}

	err := inv.Assets.Delete(ctx, id)
	metrics.ObserveAsset("delete", err)
	if err != nil {
		slog.Warn("asset delete failed", "asset", id, "error", err)
	}
}
