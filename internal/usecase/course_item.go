package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ehdrbdndns/steelart-dashboard/internal/domain"
)

// AddCourseItemInput is the validated input for adding an artwork to a course.
type AddCourseItemInput struct {
	CourseID  int64
	ArtworkID int64
	Seq       *int
}

type CourseItemUsecase struct {
	repo      CourseItemRepository
	sequencer *Sequencer
	cache     ListCache
	guard     listGuard
	publisher EventPublisher
}

func NewCourseItemUsecase(
	repo CourseItemRepository,
	cache ListCache,
	publisher EventPublisher,
	opts ...SequencerOption,
) *CourseItemUsecase {
	opts = append([]SequencerOption{WithDependentConflict(domain.ErrCheckinExists)}, opts...)
	return &CourseItemUsecase{
		repo:      repo,
		sequencer: NewSequencer(repo, "course item", opts...),
		cache:     cache,
		publisher: publisher,
	}
}

func CourseItemsCacheKey(courseID int64) string {
	return fmt.Sprintf("%s:%d", domain.CollectionCourseItems, courseID)
}

// ListCacheKey returns the cached listing a change event makes stale.
func ListCacheKey(event domain.CollectionEvent) string {
	if event.Collection == domain.CollectionHomeBanners {
		return HomeBannersCacheKey
	}
	return CourseItemsCacheKey(event.ParentID)
}

func (uc *CourseItemUsecase) List(ctx context.Context, courseID int64) ([]domain.CourseItem, error) {
	ctx, span := tracer.Start(ctx, "CourseItem.Usecase.List")
	defer span.End()

	key := CourseItemsCacheKey(courseID)

	var cached []domain.CourseItem
	hit, err := uc.cache.Get(ctx, key, &cached)
	if err != nil {
		slog.WarnContext(ctx, "course item cache read failed",
			slog.String("error", err.Error()),
			slog.String("module", "course-item"),
		)
	}
	if hit {
		span.SetAttributes(attribute.Bool("cacheHit", true))
		return cached, nil
	}

	gen := uc.guard.generation(key)
	items, err := uc.repo.ListItems(ctx, courseID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if _, err := uc.guard.fill(ctx, uc.cache, key, gen, items); err != nil {
		slog.WarnContext(ctx, "course item cache write failed",
			slog.String("error", err.Error()),
			slog.String("module", "course-item"),
		)
	}

	return items, nil
}

func (uc *CourseItemUsecase) Add(ctx context.Context, input AddCourseItemInput) (domain.CourseItem, error) {
	ctx, span := tracer.Start(ctx, "CourseItem.Usecase.Add")
	defer span.End()

	member, err := uc.sequencer.Insert(ctx, input.CourseID, input.ArtworkID, input.Seq)
	if err != nil {
		span.RecordError(err)
		return domain.CourseItem{}, err
	}

	uc.committed(ctx, input.CourseID, domain.ActionInsert, member.ID)

	item, err := uc.repo.GetItem(ctx, member.ID)
	if err != nil {
		// the row is committed; fall back to what the sequencer returned
		return domain.CourseItem{
			ID:        member.ID,
			CourseID:  member.ParentID,
			Seq:       member.Position,
			ArtworkID: member.PayloadRef,
		}, nil
	}

	return item, nil
}

func (uc *CourseItemUsecase) Remove(ctx context.Context, courseID, itemID int64) error {
	ctx, span := tracer.Start(ctx, "CourseItem.Usecase.Remove")
	defer span.End()

	if err := uc.sequencer.Remove(ctx, courseID, itemID); err != nil {
		span.RecordError(err)
		return err
	}

	uc.committed(ctx, courseID, domain.ActionRemove, itemID)
	return nil
}

func (uc *CourseItemUsecase) Reorder(ctx context.Context, courseID int64, items []domain.Placement) error {
	ctx, span := tracer.Start(ctx, "CourseItem.Usecase.Reorder")
	defer span.End()

	if err := uc.sequencer.Reorder(ctx, courseID, items); err != nil {
		span.RecordError(err)
		return err
	}

	uc.committed(ctx, courseID, domain.ActionReorder, 0)
	return nil
}

// committed runs after a successful transaction. Failures here are logged only:
// the change is already durable and readers tolerate a stale listing.
func (uc *CourseItemUsecase) committed(ctx context.Context, courseID int64, action string, memberID int64) {
	if err := uc.guard.invalidate(ctx, uc.cache, CourseItemsCacheKey(courseID)); err != nil {
		slog.WarnContext(ctx, "course item cache invalidation failed",
			slog.String("error", err.Error()),
			slog.Int64("courseID", courseID),
			slog.String("module", "course-item"),
		)
	}

	event := domain.CollectionEvent{
		Collection: domain.CollectionCourseItems,
		ParentID:   courseID,
		Action:     action,
		MemberID:   memberID,
		At:         time.Now().UTC(),
	}
	if err := uc.publisher.PublishCollectionEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "course item event publish failed",
			slog.String("error", err.Error()),
			slog.Int64("courseID", courseID),
			slog.String("module", "course-item"),
		)
	}
}
