package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/senyabanana/furniture-market/internal/models"

	"github.com/shopspring/decimal"
)

var base = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newRequest(id, owner, region string, createdAt time.Time) *models.Request {
	return &models.Request{
		ID:        id,
		OwnerID:   owner,
		Title:     "Kitchen",
		Region:    region,
		Status:    models.PendingRequest,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func newProposal(id, requestID, masterID string, createdAt time.Time) *models.Proposal {
	return &models.Proposal{
		ID:        id,
		RequestID: requestID,
		MasterID:  masterID,
		Price:     decimal.NewFromInt(100),
		Status:    models.PendingProposal,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestMemoryStorePhotosRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	req := newRequest("r1", "c1", "Almaty", base)
	req.Photos = []string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"}
	if err := store.CreateRequest(ctx, req); err != nil {
		t.Fatal(err)
	}
	req.Photos[0] = "mutated"

	got, err := store.GetRequest(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"}
	if len(got.Photos) != len(want) {
		t.Fatalf("photos = %v, want %v", got.Photos, want)
	}
	for i := range want {
		if got.Photos[i] != want[i] {
			t.Fatalf("photos = %v, want %v", got.Photos, want)
		}
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.GetRequest(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetRequest error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetProposal(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetProposal error = %v, want ErrNotFound", err)
	}
	err := store.WithinRequestLock(context.Background(), "nope", func(Store) error {
		t.Fatal("fn called for unknown request")
		return nil
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("WithinRequestLock error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i, id := range []string{"r1", "r2", "r3"} {
		if err := store.CreateRequest(ctx, newRequest(id, "c1", "Almaty", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.CreateRequest(ctx, newRequest("r4", "c2", "almaty", base)); err != nil {
		t.Fatal(err)
	}

	mine, err := store.ListRequestsByOwner(ctx, "c1", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	assertRequestIDs(t, mine, "r3", "r2", "r1")

	paged, _ := store.ListRequestsByOwner(ctx, "c1", 1, 1)
	assertRequestIDs(t, paged, "r2")

	if err := store.UpdateRequestStatus(ctx, "r2", models.ActiveRequest, base); err != nil {
		t.Fatal(err)
	}
	pending, _ := store.ListRequestsByRegion(ctx, "ALMATY", []models.RequestStatus{models.PendingRequest}, 10, 0)
	assertRequestIDs(t, pending, "r3", "r4", "r1")

	// Одинаковое время создания: порядок вставки.
	for _, id := range []string{"p1", "p2", "p3"} {
		if err := store.CreateProposal(ctx, newProposal(id, "r1", "m-"+id, base)); err != nil {
			t.Fatal(err)
		}
	}
	proposals, _ := store.ListProposalsByRequest(ctx, "r1")
	if len(proposals) != 3 || proposals[0].ID != "p1" || proposals[1].ID != "p2" || proposals[2].ID != "p3" {
		t.Fatalf("unexpected proposal order: %+v", proposals)
	}
}

func TestMemoryStoreUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.CreateRequest(ctx, newRequest("r1", "c1", "Almaty", base))

	if err := store.CreateProposal(ctx, newProposal("p1", "r1", "m1", base)); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateProposal(ctx, newProposal("p2", "r1", "m1", base)); !errors.Is(err, ErrDuplicateProposal) {
		t.Fatalf("second proposal error = %v, want ErrDuplicateProposal", err)
	}
	if err := store.UpdateProposalStatus(ctx, "p1", models.WithdrawnProposal, base); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateProposal(ctx, newProposal("p3", "r1", "m1", base)); err != nil {
		t.Fatalf("proposal after withdrawal: %v", err)
	}
	found, err := store.FindMasterProposal(ctx, "r1", "m1")
	if err != nil {
		t.Fatal(err)
	}
	if found.ID != "p3" {
		t.Fatalf("FindMasterProposal = %s, want p3", found.ID)
	}

	_ = store.CreateProposal(ctx, newProposal("p4", "r1", "m2", base))
	if err := store.UpdateProposalStatus(ctx, "p3", models.AcceptedProposal, base); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateProposalStatus(ctx, "p4", models.AcceptedProposal, base); !errors.Is(err, ErrAlreadyAccepted) {
		t.Fatalf("second accept error = %v, want ErrAlreadyAccepted", err)
	}
}

func TestMemoryStoreRollback(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.CreateRequest(ctx, newRequest("r1", "c1", "Almaty", base))
	_ = store.CreateProposal(ctx, newProposal("p1", "r1", "m1", base))

	boom := errors.New("boom")
	err := store.WithinRequestLock(ctx, "r1", func(tx Store) error {
		if err := tx.UpdateRequestStatus(ctx, "r1", models.AcceptedRequest, base); err != nil {
			return err
		}
		if err := tx.CreateProposal(ctx, newProposal("p2", "r1", "m2", base)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}

	req, _ := store.GetRequest(ctx, "r1")
	if req.Status != models.PendingRequest {
		t.Errorf("request status = %s after rollback, want pending", req.Status)
	}
	if _, err := store.GetProposal(ctx, "p2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("proposal p2 survived rollback: %v", err)
	}
}

func assertRequestIDs(t *testing.T, got []models.Request, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d requests, want %v", len(got), want)
	}
	for i, id := range want {
		if got[i].ID != id {
			ids := make([]string, len(got))
			for j := range got {
				ids[j] = got[j].ID
			}
			t.Fatalf("got %v, want %v", ids, want)
		}
	}
}

func TestMemoryStoreNegativeOffset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for i, id := range []string{"r1", "r2"} {
		if err := store.CreateRequest(ctx, newRequest(id, "c1", "Almaty", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.ListRequestsByOwner(ctx, "c1", 5, -1)
	if err != nil {
		t.Fatal(err)
	}
	assertRequestIDs(t, got, "r2", "r1")
}
