package cron

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/abhiruchieats/storefront-api/internal/cart"
	"github.com/abhiruchieats/storefront-api/pkg/db/dbtest"
	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	"github.com/abhiruchieats/storefront-api/pkg/enums"
	"github.com/abhiruchieats/storefront-api/pkg/outbox"
)

var fixedNow = time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)

func TestOutboxRetentionKeepsPendingAndRecentRows(t *testing.T) {
	conn := dbtest.Open(t, dbtest.OutboxEvents)
	insert := func(publishedAt *time.Time) uuid.UUID {
		row := models.OutboxEvent{
			ID:            uuid.New(),
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			PublishedAt:   publishedAt,
		}
		require.NoError(t, conn.Create(&row).Error)
		return row.ID
	}
	old := fixedNow.AddDate(0, 0, -45)
	recent := fixedNow.AddDate(0, 0, -2)
	insert(&old)
	keptRecent := insert(&recent)
	keptPending := insert(nil)

	job, err := NewOutboxRetentionJob(outbox.NewRepository(conn), 30)
	require.NoError(t, err)
	job.(*retentionJob).now = func() time.Time { return fixedNow }

	deleted, err := job.Run(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	var remaining []uuid.UUID
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Pluck("id", &remaining).Error)
	require.ElementsMatch(t, []uuid.UUID{keptRecent, keptPending}, remaining)
}

func TestSessionCartRetentionLeavesUserCarts(t *testing.T) {
	conn := dbtest.Open(t, dbtest.CartItems)
	line := func(kind enums.OwnerKind, owner string, touched time.Time) uuid.UUID {
		item := models.CartItem{
			ID:                 uuid.New(),
			OwnerKind:          kind,
			OwnerID:            owner,
			ProductID:          uuid.New(),
			ProductName:        "Gongura Pickle",
			ProductDescription: "Sorrel leaf pickle",
			ProductPrice:       decimal.RequireFromString("249.00"),
			ProductImageURL:    "https://cdn.example.com/gongura.jpg",
			ProductCategory:    enums.ProductCategoryPickles,
			Quantity:           1,
			TotalPrice:         decimal.RequireFromString("249.00"),
		}
		require.NoError(t, conn.Create(&item).Error)
		require.NoError(t, conn.Model(&models.CartItem{}).Where("id = ?", item.ID).
			UpdateColumn("updated_at", touched).Error)
		return item.ID
	}
	stale := fixedNow.AddDate(0, 0, -30)
	line(enums.OwnerKindSession, "abandoned-session", stale)
	keptUser := line(enums.OwnerKindUser, "user-1", stale)
	keptFresh := line(enums.OwnerKindSession, "active-session", fixedNow.Add(-time.Hour))

	job, err := NewSessionCartRetentionJob(cart.NewRepository(conn), 14)
	require.NoError(t, err)
	job.(*retentionJob).now = func() time.Time { return fixedNow }

	deleted, err := job.Run(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	var remaining []uuid.UUID
	require.NoError(t, conn.Model(&models.CartItem{}).Pluck("id", &remaining).Error)
	require.ElementsMatch(t, []uuid.UUID{keptUser, keptFresh}, remaining)
}

func TestRetentionJobsRequireRepositories(t *testing.T) {
	_, err := NewOutboxRetentionJob(nil, 1)
	require.Error(t, err)
	_, err = NewSessionCartRetentionJob(nil, 1)
	require.Error(t, err)
}
