package usecase

import (
	"context"

	"github.com/ehdrbdndns/steelart-dashboard/internal/domain"
)

// SequenceStore gives transactional access to one family of ordered collections.
type SequenceStore interface {
	// Transaction runs fn inside one atomic transaction holding the collection
	// lock for parentID. Any error returned by fn rolls everything back.
	Transaction(ctx context.Context, parentID int64, fn func(tx SequenceTx) error) error
	// List returns members ordered by position without locking.
	List(ctx context.Context, parentID int64) ([]domain.Member, error)
}

// SequenceTx is the set of primitives available while the collection lock is held.
type SequenceTx interface {
	LockedRead(ctx context.Context) ([]domain.Member, error)
	ShiftAll(ctx context.Context, delta int) error
	WritePosition(ctx context.Context, memberID int64, position int) error
	Insert(ctx context.Context, payloadRef int64, position int) (domain.Member, error)
	Delete(ctx context.Context, memberID int64) error
	DependentCount(ctx context.Context, memberID int64) (int64, error)
}

// ActivationTx is implemented by transactions of stores whose members can be
// switched on and off, such as home banners.
type ActivationTx interface {
	SequenceTx
	SetActive(ctx context.Context, memberID int64, active bool) error
}

// CourseItemRepository stores course items and their joined read model.
type CourseItemRepository interface {
	SequenceStore
	ListItems(ctx context.Context, courseID int64) ([]domain.CourseItem, error)
	GetItem(ctx context.Context, itemID int64) (domain.CourseItem, error)
}

// HomeBannerRepository stores home banners and their joined read model.
type HomeBannerRepository interface {
	SequenceStore
	ListBanners(ctx context.Context) ([]domain.HomeBanner, error)
	GetBanner(ctx context.Context, id int64) (domain.HomeBanner, error)
	SetActive(ctx context.Context, id int64, active bool) (domain.HomeBanner, error)
}

// ListCache caches rendered collection listings.
type ListCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher announces committed collection changes.
type EventPublisher interface {
	PublishCollectionEvent(ctx context.Context, event domain.CollectionEvent) error
}
