package app

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cimillas/travel-waitlist/internal/clock"
	"github.com/cimillas/travel-waitlist/internal/domain"
)

func TestWaitlistService_Join(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("joins sold-out package", func(t *testing.T) {
		store := newFakeStore()
		store.addPackage(domain.Package{ID: "pkg-1", Capacity: 2, AvailableRooms: 0})
		svc := NewWaitlistService(store, &fakeAdvancer{}, clock.NewFixed(now), zap.NewNop())

		entry, err := svc.Join(context.Background(), JoinInput{PackageID: "pkg-1", UserID: "alice", Email: "alice@example.com"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if entry.ID == "" {
			t.Fatalf("expected entry ID assigned")
		}
		if entry.Seq == 0 {
			t.Fatalf("expected insertion sequence assigned")
		}
		if !entry.CreatedAt.Equal(now) {
			t.Fatalf("expected creation timestamp %v, got %v", now, entry.CreatedAt)
		}
	})

	t.Run("rejects while rooms remain", func(t *testing.T) {
		store := newFakeStore()
		store.addPackage(domain.Package{ID: "pkg-1", Capacity: 2, AvailableRooms: 1})
		svc := NewWaitlistService(store, &fakeAdvancer{}, clock.NewFixed(now), zap.NewNop())

		_, err := svc.Join(context.Background(), JoinInput{PackageID: "pkg-1", UserID: "alice"})
		if err != domain.ErrRoomsAvailable {
			t.Fatalf("expected ErrRoomsAvailable, got %v", err)
		}
	})

	t.Run("rejects second active entry for the same pair", func(t *testing.T) {
		store := newFakeStore()
		store.addPackage(domain.Package{ID: "pkg-1", Capacity: 2, AvailableRooms: 0})
		store.addEntry(domain.WaitlistEntry{ID: "e-a", PackageID: "pkg-1", UserID: "alice", CreatedAt: now.Add(-time.Hour)})
		svc := NewWaitlistService(store, &fakeAdvancer{}, clock.NewFixed(now), zap.NewNop())

		_, err := svc.Join(context.Background(), JoinInput{PackageID: "pkg-1", UserID: "alice"})
		if err != domain.ErrAlreadyQueued {
			t.Fatalf("expected ErrAlreadyQueued, got %v", err)
		}
		if len(store.entries) != 1 {
			t.Fatalf("expected queue unchanged, got %d entries", len(store.entries))
		}
	})

	t.Run("unknown package", func(t *testing.T) {
		store := newFakeStore()
		svc := NewWaitlistService(store, &fakeAdvancer{}, clock.NewFixed(now), zap.NewNop())

		_, err := svc.Join(context.Background(), JoinInput{PackageID: "missing", UserID: "alice"})
		if err != domain.ErrPackageNotFound {
			t.Fatalf("expected ErrPackageNotFound, got %v", err)
		}
	})

	t.Run("missing identifiers", func(t *testing.T) {
		store := newFakeStore()
		svc := NewWaitlistService(store, &fakeAdvancer{}, clock.NewFixed(now), zap.NewNop())

		if _, err := svc.Join(context.Background(), JoinInput{UserID: "alice"}); err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})
}

func TestWaitlistService_Leave(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("removes entry and re-evaluates", func(t *testing.T) {
		store := newFakeStore()
		store.addPackage(domain.Package{ID: "pkg-1", Capacity: 1, AvailableRooms: 0})
		store.addEntry(domain.WaitlistEntry{ID: "e-a", PackageID: "pkg-1", UserID: "alice", CreatedAt: now.Add(-time.Hour)})
		advancer := &fakeAdvancer{}
		svc := NewWaitlistService(store, advancer, clock.NewFixed(now), zap.NewNop())

		if err := svc.Leave(context.Background(), "pkg-1", "alice"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(store.entries) != 0 {
			t.Fatalf("expected entry removed")
		}
		if len(advancer.calls) != 1 || advancer.calls[0] != "pkg-1" {
			t.Fatalf("expected re-evaluation for pkg-1, got %v", advancer.calls)
		}
	})

	t.Run("withdrawing the offeree advances the queue", func(t *testing.T) {
		store := newFakeStore()
		store.addPackage(domain.Package{ID: "pkg-1", Destination: "Rome", Country: "Italy", Capacity: 1, AvailableRooms: 1})
		offeredAt := now
		store.addEntry(domain.WaitlistEntry{ID: "e-a", PackageID: "pkg-1", UserID: "alice", CreatedAt: now.Add(-2 * time.Hour), OfferedAt: &offeredAt})
		store.addEntry(domain.WaitlistEntry{ID: "e-b", PackageID: "pkg-1", UserID: "bob", Email: "bob@example.com", CreatedAt: now.Add(-time.Hour)})

		notifier := &fakeNotifier{}
		offers := NewOfferService(store, notifier, clock.NewFixed(now), zap.NewNop())
		svc := NewWaitlistService(store, offers, clock.NewFixed(now), zap.NewNop())

		if err := svc.Leave(context.Background(), "pkg-1", "alice"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := store.entryByID("e-b"); got.OfferedAt == nil {
			t.Fatalf("expected bob offered after alice withdrew")
		}
		if to := notifier.sentTo(); len(to) != 1 || to[0] != "bob@example.com" {
			t.Fatalf("expected notification to bob, got %v", to)
		}
	})

	t.Run("not queued", func(t *testing.T) {
		store := newFakeStore()
		store.addPackage(domain.Package{ID: "pkg-1", Capacity: 1, AvailableRooms: 0})
		svc := NewWaitlistService(store, &fakeAdvancer{}, clock.NewFixed(now), zap.NewNop())

		if err := svc.Leave(context.Background(), "pkg-1", "alice"); err != domain.ErrEntryNotFound {
			t.Fatalf("expected ErrEntryNotFound, got %v", err)
		}
	})
}

func TestWaitlistService_Position(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.addPackage(domain.Package{ID: "pkg-1", Capacity: 1, AvailableRooms: 0})
	store.addEntry(domain.WaitlistEntry{ID: "e-a", PackageID: "pkg-1", UserID: "alice", CreatedAt: now.Add(-3 * time.Hour)})
	store.addEntry(domain.WaitlistEntry{ID: "e-b", PackageID: "pkg-1", UserID: "bob", CreatedAt: now.Add(-2 * time.Hour)})
	store.addEntry(domain.WaitlistEntry{ID: "e-c", PackageID: "pkg-1", UserID: "carol", CreatedAt: now.Add(-1 * time.Hour)})

	svc := NewWaitlistService(store, &fakeAdvancer{}, clock.NewFixed(now), zap.NewNop())

	t.Run("ranks are one-based and exclude own entry", func(t *testing.T) {
		for user, want := range map[string]int{"alice": 1, "bob": 2, "carol": 3} {
			res, err := svc.Position(context.Background(), "pkg-1", user)
			if err != nil {
				t.Fatalf("%s: expected no error, got %v", user, err)
			}
			if res.Position != want {
				t.Fatalf("%s: expected position %d, got %d", user, want, res.Position)
			}
		}
	})

	t.Run("estimate scales with position", func(t *testing.T) {
		res, err := svc.Position(context.Background(), "pkg-1", "bob")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		want := now.Add(2 * estimatedWaitPerPosition)
		if !res.EstimatedAvailableAt.Equal(want) {
			t.Fatalf("expected estimate %v, got %v", want, res.EstimatedAvailableAt)
		}
	})

	t.Run("timestamp ties broken by insertion order", func(t *testing.T) {
		tied := newFakeStore()
		tied.addPackage(domain.Package{ID: "pkg-1", Capacity: 1, AvailableRooms: 0})
		tied.addEntry(domain.WaitlistEntry{ID: "e-x", PackageID: "pkg-1", UserID: "xena", CreatedAt: now})
		tied.addEntry(domain.WaitlistEntry{ID: "e-y", PackageID: "pkg-1", UserID: "yuri", CreatedAt: now})

		tiedSvc := NewWaitlistService(tied, &fakeAdvancer{}, clock.NewFixed(now), zap.NewNop())
		res, err := tiedSvc.Position(context.Background(), "pkg-1", "yuri")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Position != 2 {
			t.Fatalf("expected later insertion ranked second, got %d", res.Position)
		}
	})

	t.Run("not queued", func(t *testing.T) {
		if _, err := svc.Position(context.Background(), "pkg-1", "dave"); err != domain.ErrEntryNotFound {
			t.Fatalf("expected ErrEntryNotFound, got %v", err)
		}
	})
}
