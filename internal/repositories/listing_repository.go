package repositories

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"conversation-service/internal/apperr"
	"conversation-service/internal/models"
)

var ErrListingNotFound = apperr.NotFound("listing not found")

// ListingCatalog is the read side of the listing catalog used when starting conversations.
type ListingCatalog interface {
	GetListing(ctx context.Context, listingID int64) (models.Listing, error)
	IncrementContacts(ctx context.Context, listingID int64) error
}

// ListingRepo reads listings from the shared marketplace database.
type ListingRepo struct {
	db *sqlx.DB
}

func NewListingRepo(db *sqlx.DB) *ListingRepo {
	return &ListingRepo{db: db}
}

func (r *ListingRepo) GetListing(ctx context.Context, listingID int64) (models.Listing, error) {
	var listing models.Listing
	err := r.db.GetContext(ctx, &listing, r.db.Rebind(`SELECT id, user_id, status FROM listings WHERE id = ?`), listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Listing{}, ErrListingNotFound
	}
	return listing, errors.Wrap(err, "listingRepo.GetListing")
}

func (r *ListingRepo) IncrementContacts(ctx context.Context, listingID int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE listings SET contacts_count = contacts_count + 1 WHERE id = ?`), listingID)
	return errors.Wrap(err, "listingRepo.IncrementContacts")
}
