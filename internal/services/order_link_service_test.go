package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/db/repositories"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
)

type stubOrders map[int64]bool

func (s stubOrders) Exists(ctx context.Context, orderID int64) (bool, error) {
	return s[orderID], nil
}

func TestOrderLinkService_CreateDefaults(t *testing.T) {
	f := newFixture(t)
	conn := f.createConnection(t, "Plant ERP")

	link := f.createLink(t, conn.ID, "WO-1001", 7)
	assert.Equal(t, constants.LinkStatusPending, link.SyncStatus)
	assert.Equal(t, string(constants.SystemTypeGenericRest), link.ExternalSystem)
	require.NotNil(t, link.LastSyncAt)
	assert.True(t, link.ConflictData.IsZero())
}

func TestOrderLinkService_DuplicateExternalID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.createConnection(t, "Plant ERP")
	other := f.createConnection(t, "Second ERP")

	f.createLink(t, conn.ID, "WO-1001", 7)

	_, err := f.links.Create(ctx, dtos.CreateOrderLinkRequest{OrderID: 8, ConnectionID: conn.ID, ExternalID: "WO-1001"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateExternalID)

	// the same external id under another connection is a different record
	_, err = f.links.Create(ctx, dtos.CreateOrderLinkRequest{OrderID: 8, ConnectionID: other.ID, ExternalID: "WO-1001"})
	assert.NoError(t, err)
}

func TestOrderLinkService_CreateChecksReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.createConnection(t, "Plant ERP")

	_, err := f.links.Create(ctx, dtos.CreateOrderLinkRequest{OrderID: 1, ConnectionID: "missing", ExternalID: "A"})
	assert.ErrorIs(t, err, ErrNotFound)

	withOrders := NewOrderLinkService(repositories.NewOrderLinkRepo(f.db), repositories.NewERPConnectionRepo(f.db), stubOrders{42: true}, nil)

	_, err = withOrders.Create(ctx, dtos.CreateOrderLinkRequest{OrderID: 41, ConnectionID: conn.ID, ExternalID: "A"})
	assert.ErrorIs(t, err, ErrNotFound)

	link, err := withOrders.Create(ctx, dtos.CreateOrderLinkRequest{OrderID: 42, ConnectionID: conn.ID, ExternalID: "A"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), link.OrderID)

	_, err = f.links.Create(ctx, dtos.CreateOrderLinkRequest{OrderID: 42, ConnectionID: conn.ID, ExternalID: "B", SyncStatus: constants.LinkStatusConflict})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrderLinkService_Lookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.createConnection(t, "Plant ERP")
	other := f.createConnection(t, "Second ERP")

	f.createLink(t, conn.ID, "WO-1", 7)
	f.createLink(t, other.ID, "SO-9", 7)
	f.createLink(t, conn.ID, "WO-2", 8)

	found, err := f.links.FindByExternalID(ctx, "WO-2", conn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), found.OrderID)

	_, err = f.links.FindByExternalID(ctx, "WO-2", other.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	byOrder, err := f.links.FindByOrderID(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, byOrder, 2)

	forConn, err := f.links.FindAll(ctx, dtos.OrderLinkFilter{ConnectionID: conn.ID})
	require.NoError(t, err)
	assert.Len(t, forConn, 2)
}

func TestOrderLinkService_TransitionTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.createConnection(t, "Plant ERP")
	link := f.createLink(t, conn.ID, "WO-1", 7)

	f.clock.Advance(time.Minute)
	synced, err := f.links.UpdateSyncStatus(ctx, link.ID, constants.LinkStatusSynced, dtos.SyncStatusExtra{})
	require.NoError(t, err)
	assert.Equal(t, constants.LinkStatusSynced, synced.SyncStatus)
	assert.True(t, synced.LastSyncAt.Equal(f.clock.Now()))

	_, err = f.links.UpdateSyncStatus(ctx, link.ID, constants.LinkStatusConflict, dtos.SyncStatusExtra{})
	assert.ErrorIs(t, err, ErrValidation, "conflict needs a payload")

	_, err = f.links.MarkConflict(ctx, link.ID, dtos.MarkConflictRequest{ConflictType: "quantity_mismatch"})
	require.NoError(t, err)

	_, err = f.links.UpdateSyncStatus(ctx, link.ID, constants.LinkStatusSynced, dtos.SyncStatusExtra{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.links.UpdateSyncStatus(ctx, link.ID, constants.LinkStatusPending, dtos.SyncStatusExtra{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	errored, err := f.links.UpdateSyncStatus(ctx, link.ID, constants.LinkStatusError, dtos.SyncStatusExtra{})
	require.NoError(t, err)
	assert.Equal(t, constants.LinkStatusError, errored.SyncStatus)

	_, err = f.links.UpdateSyncStatus(ctx, link.ID, "archived", dtos.SyncStatusExtra{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrderLinkService_MarkConflictComputesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.createConnection(t, "Plant ERP")
	link := f.createLink(t, conn.ID, "WO-1", 7)

	marked, err := f.links.MarkConflict(ctx, link.ID, dtos.MarkConflictRequest{
		ConflictType: "data_mismatch",
		LocalData:    map[string]interface{}{"quantity": 10, "due_date": "2024-03-10", "status": "released"},
		ExternalData: map[string]interface{}{"quantity": 12, "due_date": "2024-03-10", "priority": "high"},
	})
	require.NoError(t, err)
	assert.Equal(t, constants.LinkStatusConflict, marked.SyncStatus)
	assert.Equal(t, []string{"priority", "quantity", "status"}, marked.ConflictData.Fields)
	assert.Equal(t, constants.ConflictUnresolved, marked.ConflictData.Status)

	stored, err := f.links.FindByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, "data_mismatch", stored.ConflictData.ConflictType)
	assert.Equal(t, 1, stored.ConflictData.SchemaVersion)

	conflicts, err := f.links.GetConflicts(ctx, conn.ID)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, link.ID, conflicts[0].ID)
}

func TestOrderLinkService_ResolveConflictRequiresConflictStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.createConnection(t, "Plant ERP")
	link := f.createLink(t, conn.ID, "WO-1", 7)

	before, err := f.links.FindByID(ctx, link.ID)
	require.NoError(t, err)

	_, err = f.links.ResolveConflict(ctx, link.ID, dtos.ResolveConflictRequest{Strategy: constants.ResolutionLocalWins})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLinkNotInConflict)

	after, err := f.links.FindByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, before.SyncStatus, after.SyncStatus)
	assert.Equal(t, before.LastSyncAt, after.LastSyncAt)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)

	history, err := f.links.ResolutionHistory(ctx, link.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestOrderLinkService_ResolveConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.createConnection(t, "Plant ERP")
	link := f.createLink(t, conn.ID, "WO-1", 7)

	_, err := f.links.MarkConflict(ctx, link.ID, dtos.MarkConflictRequest{
		ConflictType: "quantity_mismatch",
		LocalData:    map[string]interface{}{"quantity": 10},
		ExternalData: map[string]interface{}{"quantity": 12},
	})
	require.NoError(t, err)

	_, err = f.links.ResolveConflict(ctx, link.ID, dtos.ResolveConflictRequest{Strategy: constants.ResolutionMerge})
	assert.ErrorIs(t, err, ErrValidation, "merge needs resolved_data")

	_, err = f.links.ResolveConflict(ctx, link.ID, dtos.ResolveConflictRequest{Strategy: "coin_flip"})
	assert.ErrorIs(t, err, ErrValidation)

	resolver := int64(99)
	resolved, err := f.links.ResolveConflict(ctx, link.ID, dtos.ResolveConflictRequest{
		Strategy:   constants.ResolutionExternalWins,
		ResolvedBy: &resolver,
	})
	require.NoError(t, err)
	assert.Equal(t, constants.LinkStatusSynced, resolved.SyncStatus)
	assert.Equal(t, constants.ConflictResolved, resolved.ConflictData.Status)
	assert.Equal(t, constants.ResolutionExternalWins, resolved.ConflictData.ResolutionStrategy)
	assert.EqualValues(t, 12, resolved.ConflictData.ResolvedData["quantity"])

	history, err := f.links.ResolutionHistory(ctx, link.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "quantity_mismatch", history[0].ConflictType)
	require.NotNil(t, history[0].ResolvedBy)
	assert.Equal(t, resolver, *history[0].ResolvedBy)

	_, err = f.links.ResolveConflict(ctx, link.ID, dtos.ResolveConflictRequest{Strategy: constants.ResolutionLocalWins})
	assert.ErrorIs(t, err, ErrLinkNotInConflict, "a resolved link cannot be resolved twice")

	err = f.links.Delete(ctx, link.ID)
	assert.ErrorIs(t, err, ErrResolutionHistoryExists)
}

func TestOrderLinkService_NeedingSyncOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.createConnection(t, "Plant ERP")

	first := f.createLink(t, conn.ID, "WO-1", 1)
	second := f.createLink(t, conn.ID, "WO-2", 2)
	done := f.createLink(t, conn.ID, "WO-3", 3)

	_, err := f.links.UpdateSyncStatus(ctx, done.ID, constants.LinkStatusSynced, dtos.SyncStatusExtra{})
	require.NoError(t, err)
	_, err = f.links.UpdateSyncStatus(ctx, second.ID, constants.LinkStatusError, dtos.SyncStatusExtra{})
	require.NoError(t, err)

	links, err := f.links.GetNeedingSync(ctx, conn.ID, 0)
	require.NoError(t, err)
	require.Len(t, links, 2)
	ids := []string{links[0].ID, links[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)

	limited, err := f.links.GetNeedingSync(ctx, conn.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOrderLinkService_BulkUpdateIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.createConnection(t, "Plant ERP")

	a := f.createLink(t, conn.ID, "WO-1", 1)
	b := f.createLink(t, conn.ID, "WO-2", 2)

	_, err := f.links.BulkUpdateSyncStatus(ctx, []string{a.ID, "missing-id"}, constants.LinkStatusSynced)
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := f.links.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.LinkStatusPending, stored.SyncStatus, "nothing is written when one id is missing")

	_, err = f.links.MarkConflict(ctx, b.ID, dtos.MarkConflictRequest{ConflictType: "deleted_externally"})
	require.NoError(t, err)
	_, err = f.links.BulkUpdateSyncStatus(ctx, []string{a.ID, b.ID}, constants.LinkStatusSynced)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, err = f.links.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.LinkStatusPending, stored.SyncStatus, "a disallowed transition rolls back the batch")

	c := f.createLink(t, conn.ID, "WO-3", 3)
	n, err := f.links.BulkUpdateSyncStatus(ctx, []string{a.ID, c.ID, a.ID}, constants.LinkStatusSynced)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOrderLinkService_UpdateExternalTimestampKeepsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.createConnection(t, "Plant ERP")
	link := f.createLink(t, conn.ID, "WO-1", 1)

	ts := time.Date(2024, 2, 28, 8, 30, 0, 0, time.UTC)
	updated, err := f.links.UpdateExternalTimestamp(ctx, link.ID, ts)
	require.NoError(t, err)
	assert.Equal(t, constants.LinkStatusPending, updated.SyncStatus)
	require.NotNil(t, updated.ExternalUpdatedAt)
	assert.True(t, updated.ExternalUpdatedAt.Equal(ts))
}

func TestOrderLinkService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.createConnection(t, "Plant ERP")
	link := f.createLink(t, conn.ID, "WO-1", 1)

	require.NoError(t, f.links.Delete(ctx, link.ID))
	_, err := f.links.FindByID(ctx, link.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.links.Delete(ctx, link.ID), ErrNotFound)
}

func TestDiffFields(t *testing.T) {
	assert.Empty(t, DiffFields(nil, nil))
	assert.Equal(t, []string{"a"}, DiffFields(map[string]interface{}{"a": 1}, nil))
	assert.Equal(t, []string{"b"}, DiffFields(
		map[string]interface{}{"a": "x", "b": []interface{}{1, 2}},
		map[string]interface{}{"a": "x", "b": []interface{}{1, 3}},
	))
}
