package usecase

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ehdrbdndns/steelart-dashboard/internal/domain"
)

var tracer = otel.Tracer("usecase")

// DefaultPositionOffset moves every position out of the 1..N range before a
// renumbering so that a non-deferred unique index on position never sees two
// rows with the same value mid-transaction. Collections larger than the offset
// are shifted by their size instead.
const DefaultPositionOffset = 1000

// Sequencer maintains dense 1..N positions for the collections of one store.
type Sequencer struct {
	store        SequenceStore
	resource     string
	offset       int
	guarded      bool
	dependentErr error
}

type SequencerOption func(*Sequencer)

// WithPositionOffset sets the temporary offset applied before renumbering.
// Zero disables the offset step; only use it with stores whose position
// uniqueness is deferred to commit or not enforced at all.
func WithPositionOffset(offset int) SequencerOption {
	return func(s *Sequencer) {
		s.offset = offset
	}
}

// WithoutDependentGuard removes members without counting their dependents.
func WithoutDependentGuard() SequencerOption {
	return func(s *Sequencer) {
		s.guarded = false
	}
}

// WithDependentConflict sets the error returned when a member cannot be removed
// because dependent records reference it.
func WithDependentConflict(err error) SequencerOption {
	return func(s *Sequencer) {
		s.dependentErr = err
	}
}

func NewSequencer(store SequenceStore, resource string, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		store:        store,
		resource:     resource,
		offset:       DefaultPositionOffset,
		guarded:      true,
		dependentErr: domain.ConflictError{Code: domain.CodeConflict, Reason: resource + " is referenced by other records"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the collection ordered by position. The read takes no lock and
// may observe an ordering that a concurrent writer is about to replace.
func (s *Sequencer) List(ctx context.Context, parentID int64) ([]domain.Member, error) {
	return s.store.List(ctx, parentID)
}

// Insert adds a member at requested (1-based), or appends when requested is nil.
// Siblings at or after the insertion point move down by one.
func (s *Sequencer) Insert(ctx context.Context, parentID, payloadRef int64, requested *int) (domain.Member, error) {
	return s.InsertWith(ctx, parentID, payloadRef, requested, nil)
}

// InsertWith is Insert with a hook that runs inside the same transaction once
// the member row exists, for stores that keep extra per-member state.
func (s *Sequencer) InsertWith(
	ctx context.Context,
	parentID, payloadRef int64,
	requested *int,
	then func(ctx context.Context, tx SequenceTx, created domain.Member) error,
) (domain.Member, error) {
	ctx, span := tracer.Start(ctx, "Sequence.Usecase.Insert")
	defer span.End()
	span.SetAttributes(attribute.String("resource", s.resource), attribute.Int64("parentID", parentID))

	var created domain.Member
	err := s.store.Transaction(ctx, parentID, func(tx SequenceTx) error {
		members, err := tx.LockedRead(ctx)
		if err != nil {
			return err
		}

		position, err := insertPosition(len(members), requested)
		if err != nil {
			return err
		}

		plan := make([]domain.Placement, 0, len(members))
		for i, m := range members {
			final := i + 1
			if final >= position {
				final++
			}
			plan = append(plan, domain.Placement{MemberID: m.ID, Position: final})
		}

		if err := s.apply(ctx, tx, members, plan); err != nil {
			return err
		}

		created, err = tx.Insert(ctx, payloadRef, position)
		if err != nil {
			return err
		}

		if then != nil {
			if err := then(ctx, tx, created); err != nil {
				return err
			}
		}

		return s.verify(ctx, tx)
	})
	if err != nil {
		span.RecordError(err)
		return domain.Member{}, err
	}

	return created, nil
}

// Remove deletes memberID from the collection and closes the gap it leaves.
// Nothing changes when the member is missing or still has dependents.
func (s *Sequencer) Remove(ctx context.Context, parentID, memberID int64) error {
	ctx, span := tracer.Start(ctx, "Sequence.Usecase.Remove")
	defer span.End()
	span.SetAttributes(
		attribute.String("resource", s.resource),
		attribute.Int64("parentID", parentID),
		attribute.Int64("memberID", memberID),
	)

	err := s.store.Transaction(ctx, parentID, func(tx SequenceTx) error {
		members, err := tx.LockedRead(ctx)
		if err != nil {
			return err
		}

		remaining := make([]domain.Member, 0, len(members))
		found := false
		for _, m := range members {
			if m.ID == memberID {
				found = true
				continue
			}
			remaining = append(remaining, m)
		}
		if !found {
			return domain.NotFoundError{Resource: s.resource}
		}

		if s.guarded {
			dependents, err := tx.DependentCount(ctx, memberID)
			if err != nil {
				return err
			}
			if dependents > 0 {
				return s.dependentErr
			}
		}

		if err := tx.Delete(ctx, memberID); err != nil {
			return err
		}

		plan := make([]domain.Placement, len(remaining))
		for i, m := range remaining {
			plan[i] = domain.Placement{MemberID: m.ID, Position: i + 1}
		}

		if err := s.apply(ctx, tx, remaining, plan); err != nil {
			return err
		}

		return s.verify(ctx, tx)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

// Reorder replaces every position of the collection with placements. The
// placements must name each current member exactly once and use 1..N.
func (s *Sequencer) Reorder(ctx context.Context, parentID int64, placements []domain.Placement) error {
	ctx, span := tracer.Start(ctx, "Sequence.Usecase.Reorder")
	defer span.End()
	span.SetAttributes(
		attribute.String("resource", s.resource),
		attribute.Int64("parentID", parentID),
		attribute.Int("size", len(placements)),
	)

	if err := ValidatePlacements(placements); err != nil {
		span.RecordError(err)
		return err
	}

	err := s.store.Transaction(ctx, parentID, func(tx SequenceTx) error {
		members, err := tx.LockedRead(ctx)
		if err != nil {
			return err
		}

		if !sameMembers(members, placements) {
			return domain.ValidationError{Reason: fmt.Sprintf("reorder must include every %s of the collection exactly once", s.resource)}
		}

		if err := s.apply(ctx, tx, members, placements); err != nil {
			return err
		}

		return s.verify(ctx, tx)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

// apply moves members to the positions in plan. With an offset configured the
// whole collection is first shifted out of range and every row rewritten;
// without one only rows whose position changes are written.
func (s *Sequencer) apply(ctx context.Context, tx SequenceTx, current []domain.Member, plan []domain.Placement) error {
	before := make(map[int64]int, len(current))
	for _, m := range current {
		before[m.ID] = m.Position
	}

	changed := false
	for _, p := range plan {
		if before[p.MemberID] != p.Position {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}

	if s.offset > 0 {
		// the shifted range must clear every final position, 1..len(current)+1
		if err := tx.ShiftAll(ctx, max(s.offset, len(current)+1)); err != nil {
			return err
		}
		for _, p := range plan {
			if err := tx.WritePosition(ctx, p.MemberID, p.Position); err != nil {
				return err
			}
		}
		return nil
	}

	// Rows moving down are written last-first and rows moving up first-first,
	// which keeps pure shifts collision free. Cyclic permutations still need
	// a store that defers the uniqueness check.
	var down, up []domain.Placement
	for _, p := range plan {
		switch old := before[p.MemberID]; {
		case p.Position > old:
			down = append(down, p)
		case p.Position < old:
			up = append(up, p)
		}
	}
	sort.Slice(down, func(i, j int) bool { return down[i].Position > down[j].Position })
	sort.Slice(up, func(i, j int) bool { return up[i].Position < up[j].Position })

	for _, p := range append(down, up...) {
		if err := tx.WritePosition(ctx, p.MemberID, p.Position); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) verify(ctx context.Context, tx SequenceTx) error {
	members, err := tx.LockedRead(ctx)
	if err != nil {
		return err
	}
	if err := CheckDense(members); err != nil {
		return fmt.Errorf("%s sequence left inconsistent: %w", s.resource, err)
	}
	return nil
}

func insertPosition(count int, requested *int) (int, error) {
	if requested == nil {
		return count + 1, nil
	}
	if *requested < 1 || *requested > count+1 {
		return 0, domain.ValidationError{Reason: fmt.Sprintf("position must be between 1 and %d", count+1)}
	}
	return *requested, nil
}

// ValidatePlacements checks a reorder request on its own: it must be non-empty,
// free of duplicate ids and positions, and use exactly the positions 1..len.
func ValidatePlacements(placements []domain.Placement) error {
	if len(placements) == 0 {
		return domain.ValidationError{Reason: "items must not be empty"}
	}

	ids := make(map[int64]struct{}, len(placements))
	positions := make(map[int]struct{}, len(placements))
	for _, p := range placements {
		if _, dup := ids[p.MemberID]; dup {
			return domain.ValidationError{Reason: fmt.Sprintf("duplicate id %d", p.MemberID)}
		}
		ids[p.MemberID] = struct{}{}

		if _, dup := positions[p.Position]; dup {
			return domain.ValidationError{Reason: fmt.Sprintf("duplicate position %d", p.Position)}
		}
		positions[p.Position] = struct{}{}
	}

	for i := 1; i <= len(placements); i++ {
		if _, ok := positions[i]; !ok {
			return domain.ValidationError{Reason: "positions must be consecutive starting at 1"}
		}
	}

	return nil
}

func sameMembers(members []domain.Member, placements []domain.Placement) bool {
	if len(members) != len(placements) {
		return false
	}
	existing := make(map[int64]struct{}, len(members))
	for _, m := range members {
		existing[m.ID] = struct{}{}
	}
	for _, p := range placements {
		if _, ok := existing[p.MemberID]; !ok {
			return false
		}
	}
	return true
}

// CheckDense reports whether members hold exactly the positions 1..N with
// no duplicate ids.
func CheckDense(members []domain.Member) error {
	positions := make([]int, len(members))
	ids := make(map[int64]struct{}, len(members))
	for i, m := range members {
		if _, dup := ids[m.ID]; dup {
			return fmt.Errorf("duplicate member %d", m.ID)
		}
		ids[m.ID] = struct{}{}
		positions[i] = m.Position
	}

	sort.Ints(positions)
	for i, p := range positions {
		if p != i+1 {
			return fmt.Errorf("expected position %d, found %d", i+1, p)
		}
	}
	return nil
}
