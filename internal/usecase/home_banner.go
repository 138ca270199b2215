package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ehdrbdndns/steelart-dashboard/internal/domain"
)

// HomeBannersCacheKey is the cache key of the single banner collection.
const HomeBannersCacheKey = domain.CollectionHomeBanners

// CreateHomeBannerInput is the validated input for featuring an artwork.
type CreateHomeBannerInput struct {
	ArtworkID    int64
	IsActive     bool
	DisplayOrder *int
}

// HomeBannerUsecase manages the global banner ordering. Removal does not
// look for dependent records.
type HomeBannerUsecase struct {
	repo      HomeBannerRepository
	sequencer *Sequencer
	cache     ListCache
	guard     listGuard
	publisher EventPublisher
}

func NewHomeBannerUsecase(
	repo HomeBannerRepository,
	cache ListCache,
	publisher EventPublisher,
	opts ...SequencerOption,
) *HomeBannerUsecase {
	return &HomeBannerUsecase{
		repo:      repo,
		sequencer: NewSequencer(repo, "home banner", append([]SequencerOption{WithoutDependentGuard()}, opts...)...),
		cache:     cache,
		publisher: publisher,
	}
}

func (uc *HomeBannerUsecase) List(ctx context.Context) ([]domain.HomeBanner, error) {
	ctx, span := tracer.Start(ctx, "HomeBanner.Usecase.List")
	defer span.End()

	var cached []domain.HomeBanner
	hit, err := uc.cache.Get(ctx, HomeBannersCacheKey, &cached)
	if err != nil {
		slog.WarnContext(ctx, "home banner cache read failed",
			slog.String("error", err.Error()),
			slog.String("module", "home-banner"),
		)
	}
	if hit {
		span.SetAttributes(attribute.Bool("cacheHit", true))
		return cached, nil
	}

	gen := uc.guard.generation(HomeBannersCacheKey)
	banners, err := uc.repo.ListBanners(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if _, err := uc.guard.fill(ctx, uc.cache, HomeBannersCacheKey, gen, banners); err != nil {
		slog.WarnContext(ctx, "home banner cache write failed",
			slog.String("error", err.Error()),
			slog.String("module", "home-banner"),
		)
	}

	return banners, nil
}

func (uc *HomeBannerUsecase) Create(ctx context.Context, input CreateHomeBannerInput) (domain.HomeBanner, error) {
	ctx, span := tracer.Start(ctx, "HomeBanner.Usecase.Create")
	defer span.End()

	activate := func(ctx context.Context, tx SequenceTx, created domain.Member) error {
		atx, ok := tx.(ActivationTx)
		if !ok {
			return fmt.Errorf("home banner store cannot set activation")
		}
		return atx.SetActive(ctx, created.ID, input.IsActive)
	}

	member, err := uc.sequencer.InsertWith(ctx, domain.GlobalCollection, input.ArtworkID, input.DisplayOrder, activate)
	if err != nil {
		span.RecordError(err)
		return domain.HomeBanner{}, err
	}

	uc.committed(ctx, domain.ActionInsert, member.ID)

	banner, err := uc.repo.GetBanner(ctx, member.ID)
	if err != nil {
		return domain.HomeBanner{
			ID:           member.ID,
			ArtworkID:    member.PayloadRef,
			DisplayOrder: member.Position,
			IsActive:     input.IsActive,
		}, nil
	}

	return banner, nil
}

func (uc *HomeBannerUsecase) SetActive(ctx context.Context, id int64, active bool) (domain.HomeBanner, error) {
	ctx, span := tracer.Start(ctx, "HomeBanner.Usecase.SetActive")
	defer span.End()

	banner, err := uc.repo.SetActive(ctx, id, active)
	if err != nil {
		span.RecordError(err)
		return domain.HomeBanner{}, err
	}

	uc.committed(ctx, domain.ActionUpdate, id)
	return banner, nil
}

func (uc *HomeBannerUsecase) Remove(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "HomeBanner.Usecase.Remove")
	defer span.End()

	if err := uc.sequencer.Remove(ctx, domain.GlobalCollection, id); err != nil {
		span.RecordError(err)
		return err
	}

	uc.committed(ctx, domain.ActionRemove, id)
	return nil
}

func (uc *HomeBannerUsecase) Reorder(ctx context.Context, items []domain.Placement) error {
	ctx, span := tracer.Start(ctx, "HomeBanner.Usecase.Reorder")
	defer span.End()

	if err := uc.sequencer.Reorder(ctx, domain.GlobalCollection, items); err != nil {
		span.RecordError(err)
		return err
	}

	uc.committed(ctx, domain.ActionReorder, 0)
	return nil
}

func (uc *HomeBannerUsecase) committed(ctx context.Context, action string, memberID int64) {
	if err := uc.guard.invalidate(ctx, uc.cache, HomeBannersCacheKey); err != nil {
		slog.WarnContext(ctx, "home banner cache invalidation failed",
			slog.String("error", err.Error()),
			slog.String("module", "home-banner"),
		)
	}

	event := domain.CollectionEvent{
		Collection: domain.CollectionHomeBanners,
		ParentID:   domain.GlobalCollection,
		Action:     action,
		MemberID:   memberID,
		At:         time.Now().UTC(),
	}
	if err := uc.publisher.PublishCollectionEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "home banner event publish failed",
			slog.String("error", err.Error()),
			slog.String("module", "home-banner"),
		)
	}
}
