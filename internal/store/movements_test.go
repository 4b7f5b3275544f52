package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/komponente/internal/db"
	"github.com/erazemk/komponente/internal/model"
)

func createStock(t *testing.T, database *sqlx.DB, name string, qty int) *model.Component {
	t.Helper()
	c, err := CreateComponent(context.Background(), database, model.ComponentInput{
		Name: name, Quantity: qty, Status: model.StatusAvailable,
	}, nil)
	if err != nil {
		t.Fatalf("CreateComponent: %v", err)
	}
	return c
}

func TestApplyMovement(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	c := createStock(t, database, "Multímetro", 10)

	m, err := ApplyMovement(ctx, database, model.Movement{
		ComponentID: c.ID, Kind: model.KindLoan, Quantity: 4, Person: "Ana",
	}, -4)
	if err != nil {
		t.Fatalf("ApplyMovement: %v", err)
	}
	if m.ID == 0 || m.ComponentName != "Multímetro" || m.Kind != model.KindLoan {
		t.Errorf("unexpected movement: %+v", m)
	}
	if m.CreatedAt.IsZero() {
		t.Error("expected timestamp to be set")
	}

	got, _ := GetComponent(ctx, database, c.ID)
	if got.Quantity != 6 {
		t.Errorf("expected quantity 6, got %d", got.Quantity)
	}
}

func TestApplyMovementInsufficientStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	c := createStock(t, database, "Osciloscopio", 6)

	_, err := ApplyMovement(ctx, database, model.Movement{
		ComponentID: c.ID, Kind: model.KindLoan, Quantity: 7,
	}, -7)
	if !errors.Is(err, model.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	got, _ := GetComponent(ctx, database, c.ID)
	if got.Quantity != 6 {
		t.Errorf("expected quantity unchanged at 6, got %d", got.Quantity)
	}
	movements, _ := ListMovements(ctx, database, model.MovementFilter{})
	if len(movements) != 0 {
		t.Errorf("expected no movements, got %d", len(movements))
	}
}

func TestApplyMovementCapsStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	c := createStock(t, database, "Resistencias 1k", model.MaxQuantity-5)

	_, err := ApplyMovement(ctx, database, model.Movement{
		ComponentID: c.ID, Kind: model.KindEntry, Quantity: 6,
	}, 6)
	if !errors.Is(err, model.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}

	if _, err := ApplyMovement(ctx, database, model.Movement{
		ComponentID: c.ID, Kind: model.KindEntry, Quantity: 5,
	}, 5); err != nil {
		t.Fatalf("filling stock to the limit: %v", err)
	}

	all, err := ListComponents(ctx, database, model.ComponentFilter{})
	if err != nil {
		t.Fatalf("ListComponents: %v", err)
	}
	if len(all) != 1 || all[0].Quantity != model.MaxQuantity {
		t.Errorf("expected stock at %d, got %+v", model.MaxQuantity, all)
	}
	movements, _ := ListMovements(ctx, database, model.MovementFilter{})
	if len(movements) != 1 {
		t.Errorf("expected only the accepted entry to be recorded, got %d", len(movements))
	}
}

func TestApplyMovementMissingComponent(t *testing.T) {
	database := db.NewTestDB(t)

	_, err := ApplyMovement(context.Background(), database, model.Movement{
		ComponentID: 99, Kind: model.KindEntry, Quantity: 1,
	}, 1)
	if !errors.Is(err, model.ErrComponentNotFound) {
		t.Errorf("expected ErrComponentNotFound, got %v", err)
	}
}

func TestApplyMovementConcurrentExits(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "ledger.sqlite3"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()
	if err := db.EnsureSchema(database); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	ctx := context.Background()
	c := createStock(t, database, "Fuente de poder", 6)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ApplyMovement(ctx, database, model.Movement{
				ComponentID: c.ID, Kind: model.KindExit, Quantity: 6,
			}, -6)
		}(i)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, model.ErrInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Errorf("expected 1 success and 1 rejection, got %d and %d", succeeded, rejected)
	}

	got, _ := GetComponent(ctx, database, c.ID)
	if got.Quantity != 0 {
		t.Errorf("expected quantity 0, got %d", got.Quantity)
	}
}

func TestListMovementsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := createStock(t, database, "Protoboard", 20)
	b := createStock(t, database, "Cautín", 20)

	ApplyMovement(ctx, database, model.Movement{ComponentID: a.ID, Kind: model.KindLoan, Quantity: 1, Person: "Ana Mora"}, -1)
	ApplyMovement(ctx, database, model.Movement{ComponentID: b.ID, Kind: model.KindLoan, Quantity: 2, Person: "Luis"}, -2)
	ApplyMovement(ctx, database, model.Movement{ComponentID: a.ID, Kind: model.KindEntry, Quantity: 3, Person: "ana mora"}, 3)

	all, err := ListMovements(ctx, database, model.MovementFilter{})
	if err != nil {
		t.Fatalf("ListMovements: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 movements, got %d", len(all))
	}
	if all[0].Kind != model.KindEntry || all[2].Person != "Ana Mora" {
		t.Errorf("expected newest first, got %v", all)
	}

	ana, _ := ListMovements(ctx, database, model.MovementFilter{PersonContains: "ANA"})
	if len(ana) != 2 {
		t.Errorf("expected 2 movements for ana, got %d", len(ana))
	}

	today := time.Now().UTC()
	yesterday := today.AddDate(0, 0, -1)
	inRange, _ := ListMovements(ctx, database, model.MovementFilter{DateFrom: &today, DateTo: &today})
	if len(inRange) != 3 {
		t.Errorf("expected today's range to include all 3, got %d", len(inRange))
	}
	before, _ := ListMovements(ctx, database, model.MovementFilter{DateTo: &yesterday})
	if len(before) != 0 {
		t.Errorf("expected nothing up to yesterday, got %d", len(before))
	}

	onlyB, _ := ListMovements(ctx, database, model.MovementFilter{ComponentID: &b.ID})
	if len(onlyB) != 1 || onlyB[0].ComponentName != "Cautín" {
		t.Errorf("expected only Cautín movement, got %v", onlyB)
	}
}

func TestDeleteComponentMovementsIsolated(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := createStock(t, database, "A", 5)
	b := createStock(t, database, "B", 5)

	ApplyMovement(ctx, database, model.Movement{ComponentID: a.ID, Kind: model.KindExit, Quantity: 1}, -1)
	ApplyMovement(ctx, database, model.Movement{ComponentID: a.ID, Kind: model.KindExit, Quantity: 1}, -1)
	ApplyMovement(ctx, database, model.Movement{ComponentID: b.ID, Kind: model.KindExit, Quantity: 1}, -1)

	n, err := DeleteComponentMovements(ctx, database, a.ID)
	if err != nil {
		t.Fatalf("DeleteComponentMovements: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}

	rest, _ := ListMovements(ctx, database, model.MovementFilter{})
	if len(rest) != 1 || rest[0].ComponentID != b.ID {
		t.Errorf("expected only B's movement to remain, got %v", rest)
	}
}
