package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ehdrbdndns/steelart-dashboard/internal/domain"
	"github.com/ehdrbdndns/steelart-dashboard/internal/infrastructure/database/models"
	"github.com/ehdrbdndns/steelart-dashboard/internal/usecase"
)

var tracer = otel.Tracer("repository")

type CourseItemRepository struct {
	db *gorm.DB
}

func NewCourseItemRepository(db *gorm.DB) *CourseItemRepository {
	return &CourseItemRepository{db: db}
}

// Transaction locks the course row and then hands fn the item primitives.
// Locking the parent serializes writers even while the course has no items.
func (r *CourseItemRepository) Transaction(ctx context.Context, courseID int64, fn func(tx usecase.SequenceTx) error) error {
	ctx, span := tracer.Start(ctx, "CourseItem.Repository.Transaction")
	defer span.End()
	span.SetAttributes(attribute.Int64("courseID", courseID))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course models.Course
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", courseID).
			Take(&course).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFoundError{Resource: "course"}
		}
		if err != nil {
			return translate(err, "CourseItemRepository.Transaction: lock course")
		}

		return fn(&courseItemTx{db: tx, courseID: courseID})
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (r *CourseItemRepository) List(ctx context.Context, courseID int64) ([]domain.Member, error) {
	var rows []models.CourseItem
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, "CourseItemRepository.List")
	}
	return courseItemMembers(rows), nil
}

type courseItemRow struct {
	ID          int64
	CourseID    int64
	Seq         int
	ArtworkID   int64
	TitleKo     string
	TitleEn     string
	PhotoDayURL string
	CreatedAt   time.Time
}

func (row courseItemRow) toDomain() domain.CourseItem {
	return domain.CourseItem{
		ID:          row.ID,
		CourseID:    row.CourseID,
		Seq:         row.Seq,
		ArtworkID:   row.ArtworkID,
		TitleKo:     row.TitleKo,
		TitleEn:     row.TitleEn,
		PhotoDayURL: row.PhotoDayURL,
		CreatedAt:   row.CreatedAt,
	}
}

func (r *CourseItemRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("course_items AS ci").
		Select("ci.id, ci.course_id, ci.seq, ci.artwork_id, ci.created_at, a.title_ko, a.title_en, a.photo_day_url").
		Joins("INNER JOIN artworks a ON a.id = ci.artwork_id")
}

func (r *CourseItemRepository) ListItems(ctx context.Context, courseID int64) ([]domain.CourseItem, error) {
	ctx, span := tracer.Start(ctx, "CourseItem.Repository.ListItems")
	defer span.End()

	var rows []courseItemRow
	err := r.joined(ctx).
		Where("ci.course_id = ?", courseID).
		Order("ci.seq ASC").
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, translate(err, "CourseItemRepository.ListItems")
	}

	items := make([]domain.CourseItem, len(rows))
	for i, row := range rows {
		items[i] = row.toDomain()
	}
	return items, nil
}

func (r *CourseItemRepository) GetItem(ctx context.Context, itemID int64) (domain.CourseItem, error) {
	var rows []courseItemRow
	err := r.joined(ctx).
		Where("ci.id = ?", itemID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return domain.CourseItem{}, translate(err, "CourseItemRepository.GetItem")
	}
	if len(rows) == 0 {
		return domain.CourseItem{}, domain.NotFoundError{Resource: "course item"}
	}
	return rows[0].toDomain(), nil
}

// courseItemTx implements usecase.SequenceTx for one locked course.
type courseItemTx struct {
	db       *gorm.DB
	courseID int64
}

func (t *courseItemTx) LockedRead(ctx context.Context) ([]domain.Member, error) {
	var rows []models.CourseItem
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("course_id = ?", t.courseID).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, "CourseItemRepository.LockedRead")
	}
	return courseItemMembers(rows), nil
}

func (t *courseItemTx) ShiftAll(ctx context.Context, delta int) error {
	err := t.db.WithContext(ctx).
		Model(&models.CourseItem{}).
		Where("course_id = ?", t.courseID).
		Update("seq", gorm.Expr("seq + ?", delta)).Error
	return translate(err, "CourseItemRepository.ShiftAll")
}

func (t *courseItemTx) WritePosition(ctx context.Context, memberID int64, position int) error {
	result := t.db.WithContext(ctx).
		Model(&models.CourseItem{}).
		Where("course_id = ? AND id = ?", t.courseID, memberID).
		Update("seq", position)
	if result.Error != nil {
		return translate(result.Error, "CourseItemRepository.WritePosition")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "course item"}
	}
	return nil
}

func (t *courseItemTx) Insert(ctx context.Context, artworkID int64, position int) (domain.Member, error) {
	row := models.CourseItem{
		CourseID:  t.courseID,
		Seq:       position,
		ArtworkID: artworkID,
	}
	err := t.db.WithContext(ctx).
		Omit(clause.Associations).
		Create(&row).Error
	if err != nil {
		return domain.Member{}, translate(err, "CourseItemRepository.Insert")
	}
	return courseItemMember(row), nil
}

func (t *courseItemTx) Delete(ctx context.Context, memberID int64) error {
	result := t.db.WithContext(ctx).
		Where("course_id = ? AND id = ?", t.courseID, memberID).
		Delete(&models.CourseItem{})
	if result.Error != nil {
		return translate(result.Error, "CourseItemRepository.Delete")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "course item"}
	}
	return nil
}

// DependentCount counts check-ins; any check-in protects the item from removal.
func (t *courseItemTx) DependentCount(ctx context.Context, memberID int64) (int64, error) {
	var count int64
	err := t.db.WithContext(ctx).
		Model(&models.CourseCheckin{}).
		Where("course_item_id = ?", memberID).
		Count(&count).Error
	if err != nil {
		return 0, translate(err, "CourseItemRepository.DependentCount")
	}
	return count, nil
}

func courseItemMember(row models.CourseItem) domain.Member {
	return domain.Member{
		ID:         row.ID,
		ParentID:   row.CourseID,
		Position:   row.Seq,
		PayloadRef: row.ArtworkID,
	}
}

func courseItemMembers(rows []models.CourseItem) []domain.Member {
	members := make([]domain.Member, len(rows))
	for i, row := range rows {
		members[i] = courseItemMember(row)
	}
	return members
}
