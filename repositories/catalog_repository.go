package repositories

import (
	"context"
	"database/sql"
	"errors"

	"sparepart-marketplace/apperrors"
	"sparepart-marketplace/models"
)

// CatalogRepository reads the catalog and user-directory tables. The order
// workflow never writes through it.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) UserExists(ctx context.Context, id int64) (bool, error) {
	var found int64
	err := r.db.QueryRowContext(ctx, "SELECT id FROM users WHERE id = ?", id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &apperrors.PersistenceError{Op: "check user", Err: err}
	}
	return true, nil
}

// MissingSpareParts returns the subset of ids with no live spare part.
func (r *CatalogRepository) MissingSpareParts(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := "SELECT id FROM spare_parts WHERE deleted_at IS NULL AND id IN (" + placeholders(len(ids)) + ")"
	rows, err := r.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "check spare parts", Err: err}
	}
	defer rows.Close()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, &apperrors.PersistenceError{Op: "check spare parts", Err: err}
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.PersistenceError{Op: "check spare parts", Err: err}
	}

	var missing []int64
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !found[id] && !seen[id] {
			seen[id] = true
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r *CatalogRepository) GetSparePart(ctx context.Context, id int64) (*models.SparePart, error) {
	var part models.SparePart
	err := r.db.QueryRowContext(ctx,
		"SELECT id, shop_id, sparepart_name, COALESCE(unit_id, 0), price FROM spare_parts WHERE id = ? AND deleted_at IS NULL",
		id,
	).Scan(&part.ID, &part.ShopID, &part.Name, &part.UnitID, &part.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperrors.NotFoundError{Resource: "spare part", ID: id}
	}
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "load spare part", Err: err}
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT image_url FROM spare_part_images WHERE spare_part_id = ? ORDER BY id", id)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "load spare part images", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, &apperrors.PersistenceError{Op: "load spare part images", Err: err}
		}
		part.Images = append(part.Images, url)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.PersistenceError{Op: "load spare part images", Err: err}
	}
	return &part, nil
}

// ShopIDsForSpareParts returns the distinct shops selling the given parts,
// used to fan out one vendor notification per shop touched by a cart.
func (r *CatalogRepository) ShopIDsForSpareParts(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := "SELECT DISTINCT shop_id FROM spare_parts WHERE id IN (" + placeholders(len(ids)) + ") ORDER BY shop_id"
	rows, err := r.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "load shops for cart", Err: err}
	}
	defer rows.Close()

	var shopIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, &apperrors.PersistenceError{Op: "load shops for cart", Err: err}
		}
		shopIDs = append(shopIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.PersistenceError{Op: "load shops for cart", Err: err}
	}
	return shopIDs, nil
}

func (r *CatalogRepository) UserEmail(ctx context.Context, userID int64) (string, error) {
	var email string
	err := r.db.QueryRowContext(ctx, "SELECT email FROM users WHERE id = ?", userID).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &apperrors.NotFoundError{Resource: "user", ID: userID}
	}
	if err != nil {
		return "", &apperrors.PersistenceError{Op: "load user email", Err: err}
	}
	return email, nil
}

// ShopOwnerEmail resolves the owning vendor's address for notification
// delivery.
func (r *CatalogRepository) ShopOwnerEmail(ctx context.Context, shopID int64) (string, error) {
	var email string
	err := r.db.QueryRowContext(ctx,
		"SELECT u.email FROM shops s JOIN users u ON u.id = s.user_id WHERE s.id = ?",
		shopID,
	).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &apperrors.NotFoundError{Resource: "shop", ID: shopID}
	}
	if err != nil {
		return "", &apperrors.PersistenceError{Op: "load shop owner", Err: err}
	}
	return email, nil
}
