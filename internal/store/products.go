package store

import (
	"context"
	"time"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/models"
)

const upsertProductQuery = `
	INSERT INTO products (
		url, brand, name, product_id, apk, vpk, price, alcohol, volume,
		country, type, img, last_on_site_at, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW(), NOW())
	ON CONFLICT (url) DO UPDATE SET
		brand = EXCLUDED.brand,
		name = EXCLUDED.name,
		product_id = EXCLUDED.product_id,
		apk = EXCLUDED.apk,
		vpk = EXCLUDED.vpk,
		price = EXCLUDED.price,
		alcohol = EXCLUDED.alcohol,
		volume = EXCLUDED.volume,
		country = EXCLUDED.country,
		type = EXCLUDED.type,
		img = EXCLUDED.img,
		last_on_site_at = NOW(),
		updated_at = NOW()`

// UpsertProductsBatch writes one batch of normalized products inside a
// single transaction, keyed by the canonical product URL.
func (s *Store) UpsertProductsBatch(ctx context.Context, batch []models.Product) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range batch {
		p := &batch[i]
		_, err := tx.ExecContext(ctx, upsertProductQuery,
			p.URL, p.Brand, p.Name, p.ProductID, p.APK, p.VPK,
			p.Price, p.Alcohol, p.Volume, p.Country, p.Type, p.Img)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteStaleProducts removes products last seen before the cutoff,
// deleting their ranking history first so the FK stays satisfied.
// Returns the number of products deleted.
func (s *Store) DeleteStaleProducts(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM ranking_history WHERE product_id IN
			(SELECT id FROM products WHERE last_on_site_at < $1)`, cutoff)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM products WHERE last_on_site_at < $1", cutoff)
	if err != nil {
		return 0, err
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return deleted, tx.Commit()
}

// GetRankingRows loads every product's (id, apk, price) ordered by APK
// descending, with id as a stable tiebreaker.
func (s *Store) GetRankingRows(ctx context.Context) ([]models.RankingRow, error) {
	var rows []models.RankingRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, apk, price FROM products ORDER BY apk DESC, id ASC")
	return rows, err
}

// GetLatestRanks returns each product's most recent snapshot rank.
// Products with no history are absent from the map.
func (s *Store) GetLatestRanks(ctx context.Context) (map[int64]int, error) {
	var rows []struct {
		ProductID int64 `db:"product_id"`
		Rank      int   `db:"rank"`
	}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT DISTINCT ON (product_id) product_id, rank
		 FROM ranking_history
		 ORDER BY product_id, snapshot_at DESC`)
	if err != nil {
		return nil, err
	}

	ranks := make(map[int64]int, len(rows))
	for _, r := range rows {
		ranks[r.ProductID] = r.Rank
	}
	return ranks, nil
}

// InsertRankingSnapshot appends one ranking history row
func (s *Store) InsertRankingSnapshot(ctx context.Context, snap *models.RankingSnapshot) error {
	query := `
		INSERT INTO ranking_history (product_id, snapshot_at, rank, apk, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return s.db.GetContext(ctx, &snap.ID, query,
		snap.ProductID, snap.SnapshotAt, snap.Rank, snap.APK, snap.Price)
}

// GetRankingHistory retrieves a product's ranking history, newest first
func (s *Store) GetRankingHistory(ctx context.Context, productID int64) ([]models.RankingSnapshot, error) {
	var snaps []models.RankingSnapshot
	err := s.db.SelectContext(ctx, &snaps,
		`SELECT * FROM ranking_history
		 WHERE product_id = $1
		 ORDER BY snapshot_at DESC`, productID)
	return snaps, err
}
