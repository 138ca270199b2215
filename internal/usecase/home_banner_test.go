package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/ehdrbdndns/steelart-dashboard/internal/domain"
)

type mockHomeBannerRepo struct {
	*memStore
}

func (m *mockHomeBannerRepo) banner(row memRow) domain.HomeBanner {
	return domain.HomeBanner{
		ID:           row.member.ID,
		ArtworkID:    row.member.PayloadRef,
		DisplayOrder: row.member.Position,
		IsActive:     row.active,
	}
}

func (m *mockHomeBannerRepo) ListBanners(ctx context.Context) ([]domain.HomeBanner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	members := sortedMembers(m.rows[domain.GlobalCollection])
	banners := make([]domain.HomeBanner, len(members))
	for i, mem := range members {
		banners[i] = m.banner(m.rows[domain.GlobalCollection][mem.ID])
	}
	return banners, nil
}

func (m *mockHomeBannerRepo) GetBanner(ctx context.Context, id int64) (domain.HomeBanner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[domain.GlobalCollection][id]
	if !ok {
		return domain.HomeBanner{}, domain.NotFoundError{Resource: "home banner"}
	}
	return m.banner(row), nil
}

func (m *mockHomeBannerRepo) SetActive(ctx context.Context, id int64, active bool) (domain.HomeBanner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[domain.GlobalCollection][id]
	if !ok {
		return domain.HomeBanner{}, domain.NotFoundError{Resource: "home banner"}
	}
	row.active = active
	m.rows[domain.GlobalCollection][id] = row
	return m.banner(row), nil
}

// plainStore hides the activation capability of the in-memory transaction.
type plainStore struct {
	*mockHomeBannerRepo
}

func (p plainStore) Transaction(ctx context.Context, parentID int64, fn func(tx SequenceTx) error) error {
	return p.mockHomeBannerRepo.Transaction(ctx, parentID, func(tx SequenceTx) error {
		return fn(struct{ SequenceTx }{tx})
	})
}

func newHomeBannerFixture() (*HomeBannerUsecase, *mockHomeBannerRepo, *mockCache, *mockPublisher) {
	repo := &mockHomeBannerRepo{memStore: newMemStore()}
	cache := newMockCache()
	pub := &mockPublisher{}
	return NewHomeBannerUsecase(repo, cache, pub), repo, cache, pub
}

func TestHomeBannerUsecaseCreate(t *testing.T) {
	uc, repo, cache, pub := newHomeBannerFixture()
	ids := repo.seed(domain.GlobalCollection, 10, 20)

	banner, err := uc.Create(context.Background(), CreateHomeBannerInput{ArtworkID: 30, IsActive: true, DisplayOrder: ptr(2)})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !banner.IsActive || banner.DisplayOrder != 2 || banner.ArtworkID != 30 {
		t.Fatalf("unexpected banner %+v", banner)
	}

	want := []pair{{ids[0], 1}, {banner.ID, 2}, {ids[1], 3}}
	got := snapshot(t, repo.memStore, domain.GlobalCollection)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v got %v", want, got)
		}
	}

	if len(cache.deleted) != 1 || cache.deleted[0] != HomeBannersCacheKey {
		t.Fatalf("expected cache invalidation got %v", cache.deleted)
	}
	if len(pub.events) != 1 || pub.events[0].Collection != domain.CollectionHomeBanners || pub.events[0].Action != domain.ActionInsert {
		t.Fatalf("unexpected events %+v", pub.events)
	}
}

func TestHomeBannerUsecaseCreateInactiveAppends(t *testing.T) {
	uc, repo, _, _ := newHomeBannerFixture()
	repo.seed(domain.GlobalCollection, 10)

	banner, err := uc.Create(context.Background(), CreateHomeBannerInput{ArtworkID: 30})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if banner.IsActive || banner.DisplayOrder != 2 {
		t.Fatalf("unexpected banner %+v", banner)
	}
	active, ok := repo.active(banner.ID)
	if !ok || active {
		t.Fatalf("expected stored inactive banner")
	}
}

func TestHomeBannerUsecaseCreateRequiresActivation(t *testing.T) {
	repo := &mockHomeBannerRepo{memStore: newMemStore()}
	store := plainStore{repo}
	uc := &HomeBannerUsecase{
		repo:      repo,
		sequencer: NewSequencer(store, "home banner"),
		cache:     newMockCache(),
		publisher: &mockPublisher{},
	}

	if _, err := uc.Create(context.Background(), CreateHomeBannerInput{ArtworkID: 1, IsActive: true}); err == nil {
		t.Fatalf("expected error without activation support")
	}
	if got := len(snapshot(t, repo.memStore, domain.GlobalCollection)); got != 0 {
		t.Fatalf("insert must roll back, found %d banners", got)
	}
}

func TestHomeBannerUsecaseSetActive(t *testing.T) {
	uc, repo, cache, pub := newHomeBannerFixture()
	ids := repo.seed(domain.GlobalCollection, 10, 20)

	banner, err := uc.SetActive(context.Background(), ids[1], true)
	if err != nil {
		t.Fatalf("set active failed: %v", err)
	}
	if !banner.IsActive || banner.DisplayOrder != 2 {
		t.Fatalf("unexpected banner %+v", banner)
	}
	if len(cache.deleted) != 1 || len(pub.events) != 1 || pub.events[0].Action != domain.ActionUpdate {
		t.Fatalf("expected invalidation and update event")
	}

	_, err = uc.SetActive(context.Background(), 999, true)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestHomeBannerUsecaseRemoveIsUnguarded(t *testing.T) {
	uc, repo, _, _ := newHomeBannerFixture()
	ids := repo.seed(domain.GlobalCollection, 10, 20, 30)
	repo.checkins[ids[0]] = 5

	if err := uc.Remove(context.Background(), ids[0]); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	want := []pair{{ids[1], 1}, {ids[2], 2}}
	got := snapshot(t, repo.memStore, domain.GlobalCollection)
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestHomeBannerUsecaseReorder(t *testing.T) {
	uc, repo, _, pub := newHomeBannerFixture()
	ids := repo.seed(domain.GlobalCollection, 10, 20)

	err := uc.Reorder(context.Background(), []domain.Placement{
		{MemberID: ids[1], Position: 1},
		{MemberID: ids[0], Position: 2},
	})
	if err != nil {
		t.Fatalf("reorder failed: %v", err)
	}

	banners, err := uc.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if banners[0].ID != ids[1] || banners[1].ID != ids[0] {
		t.Fatalf("unexpected order %+v", banners)
	}
	if len(pub.events) != 1 || pub.events[0].ParentID != domain.GlobalCollection {
		t.Fatalf("unexpected events %+v", pub.events)
	}
}

type removingHomeBannerRepo struct {
	*mockHomeBannerRepo
	during func()
}

func (r *removingHomeBannerRepo) ListBanners(ctx context.Context) ([]domain.HomeBanner, error) {
	banners, err := r.mockHomeBannerRepo.ListBanners(ctx)
	if f := r.during; f != nil {
		r.during = nil
		f()
	}
	return banners, err
}

func TestHomeBannerUsecaseListSkipsFillAfterInvalidation(t *testing.T) {
	ctx := context.Background()
	repo := &removingHomeBannerRepo{mockHomeBannerRepo: &mockHomeBannerRepo{memStore: newMemStore()}}
	ids := repo.seed(domain.GlobalCollection, 10, 20)
	uc := NewHomeBannerUsecase(repo, newMockCache(), &mockPublisher{})

	repo.during = func() {
		if err := uc.Remove(ctx, ids[0]); err != nil {
			t.Errorf("remove failed: %v", err)
		}
	}

	if _, err := uc.List(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}

	banners, err := uc.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(banners) != 1 || banners[0].ID != ids[1] || banners[0].DisplayOrder != 1 {
		t.Fatalf("listing after remove served old banners %+v", banners)
	}
}
