package testutil

import (
	"context"
	"testing"

	"github.com/brfledger/utilitybilling/internal/domain/household"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHousehold(id, number string, status types.HouseholdStatus) *household.Household {
	return &household.Household{
		ID:              id,
		HouseholdNumber: number,
		Name:            "Household " + number,
		ShareRatio:      decimal.NewFromFloat(0.25),
		HouseholdStatus: status,
		Metadata:        types.Metadata{"floor": "2"},
		BaseModel:       types.GetDefaultBaseModel(context.Background()),
	}
}

func TestInMemoryHouseholdStore_Create(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryHouseholdStore()

	t.Run("successful creation", func(t *testing.T) {
		h := newTestHousehold("hh_1", "1101", types.HouseholdStatusActive)
		require.NoError(t, store.Create(ctx, h))

		got, err := store.Get(ctx, "hh_1")
		require.NoError(t, err)
		assert.Equal(t, "1101", got.HouseholdNumber)
		assert.Equal(t, "2", got.Metadata["floor"])
	})

	t.Run("returned copies are detached", func(t *testing.T) {
		got, err := store.Get(ctx, "hh_1")
		require.NoError(t, err)
		got.Metadata["floor"] = "9"

		again, err := store.Get(ctx, "hh_1")
		require.NoError(t, err)
		assert.Equal(t, "2", again.Metadata["floor"])
	})

	t.Run("duplicate household number", func(t *testing.T) {
		err := store.Create(ctx, newTestHousehold("hh_2", "1101", types.HouseholdStatusActive))
		assert.True(t, ierr.IsAlreadyExists(err))
	})

	t.Run("nil household", func(t *testing.T) {
		err := store.Create(ctx, nil)
		assert.True(t, ierr.IsValidation(err))
	})
}

func TestInMemoryHouseholdStore_List(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryHouseholdStore()

	require.NoError(t, store.Create(ctx, newTestHousehold("hh_c", "1103", types.HouseholdStatusActive)))
	require.NoError(t, store.Create(ctx, newTestHousehold("hh_a", "1101", types.HouseholdStatusActive)))
	require.NoError(t, store.Create(ctx, newTestHousehold("hh_b", "1102", types.HouseholdStatusInactive)))

	t.Run("filters by status and orders by number", func(t *testing.T) {
		items, err := store.List(ctx, types.NewActiveHouseholdFilter())
		require.NoError(t, err)
		assert.Equal(t, []string{"1101", "1103"}, lo.Map(items, func(h *household.Household, _ int) string {
			return h.HouseholdNumber
		}))

		count, err := store.Count(ctx, types.NewActiveHouseholdFilter())
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("paginates", func(t *testing.T) {
		filter := types.NewHouseholdFilter()
		filter.Limit = lo.ToPtr(1)
		filter.Offset = lo.ToPtr(1)

		items, err := store.List(ctx, filter)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "1102", items[0].HouseholdNumber)
	})

	t.Run("lookup by number", func(t *testing.T) {
		h, err := store.GetByNumber(ctx, "1102")
		require.NoError(t, err)
		assert.Equal(t, "hh_b", h.ID)

		_, err = store.GetByNumber(ctx, "9999")
		assert.True(t, ierr.IsNotFound(err))
	})
}

func TestMockPostgresClient_Locks(t *testing.T) {
	ctx := context.Background()
	db := NewMockPostgresClient()
	req := types.LockRequest{Key: "reconciliation:period_id=bp_1:service_id=svc_1"}

	t.Run("lock outside transaction fails", func(t *testing.T) {
		assert.Error(t, db.LockKey(ctx, req))
	})

	t.Run("lock released at end of transaction", func(t *testing.T) {
		require.NoError(t, db.WithTx(ctx, func(ctx context.Context) error {
			require.NoError(t, db.LockKey(ctx, req))
			// re-entrant inside the same transaction
			return db.LockKey(ctx, req)
		}))
		require.NoError(t, db.WithTx(ctx, func(ctx context.Context) error {
			return db.LockKey(ctx, req)
		}))
	})

	t.Run("held lock is a concurrency conflict", func(t *testing.T) {
		db.HoldLock(req.Key)
		defer db.ReleaseLock(req.Key)

		err := db.WithTx(ctx, func(ctx context.Context) error {
			return db.LockKey(ctx, req)
		})
		assert.True(t, ierr.IsConcurrencyConflict(err))
	})
}
