package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ehdrbdndns/steelart-dashboard/internal/domain"
	"github.com/ehdrbdndns/steelart-dashboard/internal/infrastructure/database/models"
	"github.com/ehdrbdndns/steelart-dashboard/internal/usecase"
)

// homeBannerLockKey identifies the transaction-scoped advisory lock guarding
// the global banner ordering.
const homeBannerLockKey int64 = 0x68626e72 // "hbnr"

type HomeBannerRepository struct {
	db *gorm.DB
}

func NewHomeBannerRepository(db *gorm.DB) *HomeBannerRepository {
	return &HomeBannerRepository{db: db}
}

// Transaction ignores parentID; banners form one collection.
func (r *HomeBannerRepository) Transaction(ctx context.Context, _ int64, fn func(tx usecase.SequenceTx) error) error {
	ctx, span := tracer.Start(ctx, "HomeBanner.Repository.Transaction")
	defer span.End()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", homeBannerLockKey).Error; err != nil {
			return errors.Wrap(err, "HomeBannerRepository.Transaction: advisory lock")
		}
		return fn(&homeBannerTx{db: tx})
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (r *HomeBannerRepository) List(ctx context.Context, _ int64) ([]domain.Member, error) {
	var rows []models.HomeBanner
	err := r.db.WithContext(ctx).
		Order("display_order ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, "HomeBannerRepository.List")
	}
	return homeBannerMembers(rows), nil
}

type homeBannerRow struct {
	ID           int64
	ArtworkID    int64
	DisplayOrder int
	IsActive     bool
	TitleKo      string
	TitleEn      string
	PhotoDayURL  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (row homeBannerRow) toDomain() domain.HomeBanner {
	return domain.HomeBanner{
		ID:           row.ID,
		ArtworkID:    row.ArtworkID,
		DisplayOrder: row.DisplayOrder,
		IsActive:     row.IsActive,
		TitleKo:      row.TitleKo,
		TitleEn:      row.TitleEn,
		PhotoDayURL:  row.PhotoDayURL,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (r *HomeBannerRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("home_banners AS hb").
		Select("hb.id, hb.artwork_id, hb.display_order, hb.is_active, hb.created_at, hb.updated_at, a.title_ko, a.title_en, a.photo_day_url").
		Joins("INNER JOIN artworks a ON a.id = hb.artwork_id")
}

func (r *HomeBannerRepository) ListBanners(ctx context.Context) ([]domain.HomeBanner, error) {
	ctx, span := tracer.Start(ctx, "HomeBanner.Repository.ListBanners")
	defer span.End()

	var rows []homeBannerRow
	err := r.joined(ctx).
		Order("hb.display_order ASC").
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, translate(err, "HomeBannerRepository.ListBanners")
	}

	banners := make([]domain.HomeBanner, len(rows))
	for i, row := range rows {
		banners[i] = row.toDomain()
	}
	return banners, nil
}

func (r *HomeBannerRepository) GetBanner(ctx context.Context, id int64) (domain.HomeBanner, error) {
	var rows []homeBannerRow
	err := r.joined(ctx).
		Where("hb.id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return domain.HomeBanner{}, translate(err, "HomeBannerRepository.GetBanner")
	}
	if len(rows) == 0 {
		return domain.HomeBanner{}, domain.NotFoundError{Resource: "home banner"}
	}
	return rows[0].toDomain(), nil
}

// SetActive toggles visibility outside the ordering lock; it never touches
// display_order.
func (r *HomeBannerRepository) SetActive(ctx context.Context, id int64, active bool) (domain.HomeBanner, error) {
	result := r.db.WithContext(ctx).
		Model(&models.HomeBanner{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return domain.HomeBanner{}, translate(result.Error, "HomeBannerRepository.SetActive")
	}
	if result.RowsAffected == 0 {
		return domain.HomeBanner{}, domain.NotFoundError{Resource: "home banner"}
	}
	return r.GetBanner(ctx, id)
}

type homeBannerTx struct {
	db *gorm.DB
}

func (t *homeBannerTx) LockedRead(ctx context.Context) ([]domain.Member, error) {
	var rows []models.HomeBanner
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("display_order ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, "HomeBannerRepository.LockedRead")
	}
	return homeBannerMembers(rows), nil
}

func (t *homeBannerTx) ShiftAll(ctx context.Context, delta int) error {
	err := t.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&models.HomeBanner{}).
		Update("display_order", gorm.Expr("display_order + ?", delta)).Error
	return translate(err, "HomeBannerRepository.ShiftAll")
}

func (t *homeBannerTx) WritePosition(ctx context.Context, memberID int64, position int) error {
	result := t.db.WithContext(ctx).
		Model(&models.HomeBanner{}).
		Where("id = ?", memberID).
		Update("display_order", position)
	if result.Error != nil {
		return translate(result.Error, "HomeBannerRepository.WritePosition")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "home banner"}
	}
	return nil
}

func (t *homeBannerTx) Insert(ctx context.Context, artworkID int64, position int) (domain.Member, error) {
	row := models.HomeBanner{
		ArtworkID:    artworkID,
		DisplayOrder: position,
	}
	err := t.db.WithContext(ctx).
		Omit(clause.Associations).
		Create(&row).Error
	if err != nil {
		return domain.Member{}, translate(err, "HomeBannerRepository.Insert")
	}
	return homeBannerMember(row), nil
}

func (t *homeBannerTx) SetActive(ctx context.Context, memberID int64, active bool) error {
	result := t.db.WithContext(ctx).
		Model(&models.HomeBanner{}).
		Where("id = ?", memberID).
		Update("is_active", active)
	if result.Error != nil {
		return translate(result.Error, "HomeBannerRepository.SetActive")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "home banner"}
	}
	return nil
}

func (t *homeBannerTx) Delete(ctx context.Context, memberID int64) error {
	result := t.db.WithContext(ctx).
		Where("id = ?", memberID).
		Delete(&models.HomeBanner{})
	if result.Error != nil {
		return translate(result.Error, "HomeBannerRepository.Delete")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "home banner"}
	}
	return nil
}

// Banners have no dependents.
func (t *homeBannerTx) DependentCount(context.Context, int64) (int64, error) {
	return 0, nil
}

func homeBannerMember(row models.HomeBanner) domain.Member {
	return domain.Member{
		ID:         row.ID,
		ParentID:   domain.GlobalCollection,
		Position:   row.DisplayOrder,
		PayloadRef: row.ArtworkID,
	}
}

func homeBannerMembers(rows []models.HomeBanner) []domain.Member {
	members := make([]domain.Member, len(rows))
	for i, row := range rows {
		members[i] = homeBannerMember(row)
	}
	return members
}
