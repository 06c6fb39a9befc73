package share

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/drawhub/drawhub/backend/go-services/internal/access"
	"github.com/drawhub/drawhub/backend/go-services/internal/diagram"
	"github.com/drawhub/drawhub/backend/go-services/internal/diagram/repository"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct{ known map[string]bool }

func (f *fakeDirectory) Exists(ctx context.Context, sub string) (bool, error) {
	return f.known[sub], nil
}

func newTestService(t *testing.T) (*Service, *repository.MemoryRepo, string) {
	t.Helper()
	diagrams := repository.NewMemoryRepo()
	shares := NewMemoryRepository()
	eval := access.NewEvaluator(shares)
	dir := &fakeDirectory{known: map[string]bool{"alice": true, "bob": true, "carol": true, "dave": true}}
	svc := NewService(diagrams, shares, eval, dir)

	id, err := diagrams.Create(context.Background(), &diagram.Diagram{OwnerID: "alice", Name: "schema", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	return svc, diagrams, id
}

func TestGrant(t *testing.T) {
	svc, _, id := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, id, "alice", "bob", diagram.PermissionEditor))

	// grant is not idempotent
	require.ErrorIs(t, svc.Grant(ctx, id, "alice", "bob", diagram.PermissionViewer), ErrAlreadyShared)

	// grantee must resolve
	require.ErrorIs(t, svc.Grant(ctx, id, "alice", "ghost", diagram.PermissionViewer), ErrUnknownGrantee)

	// only manage-shares holders may grant
	require.ErrorIs(t, svc.Grant(ctx, id, "bob", "carol", diagram.PermissionViewer), access.ErrForbidden)

	// unknown diagram
	require.ErrorIs(t, svc.Grant(ctx, "missing", "alice", "bob", diagram.PermissionViewer), repository.ErrNotFound)

	// the creator needs no entry
	require.ErrorIs(t, svc.Grant(ctx, id, "alice", "alice", diagram.PermissionEditor), ErrAlreadyShared)
}

func TestOwnerLevelGranteeCanManage(t *testing.T) {
	svc, _, id := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, id, "alice", "dave", diagram.PermissionOwner))
	// dave holds owner via share and may grant onward
	require.NoError(t, svc.Grant(ctx, id, "dave", "carol", diagram.PermissionViewer))

	entries, err := svc.ListFor(ctx, id, "dave")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestUpdateLevel(t *testing.T) {
	svc, _, id := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, id, "alice", "bob", diagram.PermissionViewer))
	require.NoError(t, svc.UpdateLevel(ctx, id, "alice", "bob", diagram.PermissionEditor))

	entries, err := svc.ListFor(ctx, id, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, diagram.PermissionEditor, entries[0].Level)

	require.ErrorIs(t, svc.UpdateLevel(ctx, id, "alice", "carol", diagram.PermissionEditor), ErrNotFound)
	require.ErrorIs(t, svc.UpdateLevel(ctx, id, "bob", "bob", diagram.PermissionOwner), access.ErrForbidden)
}

func TestRevoke(t *testing.T) {
	svc, _, id := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, id, "alice", "bob", diagram.PermissionEditor))
	require.ErrorIs(t, svc.Revoke(ctx, id, "bob", "bob"), access.ErrForbidden)
	require.NoError(t, svc.Revoke(ctx, id, "alice", "bob"))
	require.ErrorIs(t, svc.Revoke(ctx, id, "alice", "bob"), ErrNotFound)

	// revoked grantee is back to none
	shared, err := svc.ListSharedWith(ctx, "bob")
	require.NoError(t, err)
	require.Empty(t, shared)
}

func TestListForRequiresManageRights(t *testing.T) {
	svc, _, id := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, id, "alice", "bob", diagram.PermissionEditor))
	_, err := svc.ListFor(ctx, id, "bob")
	require.ErrorIs(t, err, access.ErrForbidden)
	_, err = svc.ListFor(ctx, id, "nobody")
	require.ErrorIs(t, err, access.ErrForbidden)
}

func TestListSharedWith(t *testing.T) {
	svc, diagrams, id := newTestService(t)
	ctx := context.Background()

	id2, err := diagrams.Create(ctx, &diagram.Diagram{OwnerID: "carol", Name: "other", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)

	require.NoError(t, svc.Grant(ctx, id, "alice", "bob", diagram.PermissionEditor))
	require.NoError(t, svc.Grant(ctx, id2, "carol", "bob", diagram.PermissionViewer))

	shared, err := svc.ListSharedWith(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, shared, 2)
	byID := map[string]diagram.Permission{}
	for _, s := range shared {
		require.True(t, s.Diagram.Shared)
		byID[s.Diagram.ID] = s.Level
	}
	require.Equal(t, diagram.PermissionEditor, byID[id])
	require.Equal(t, diagram.PermissionViewer, byID[id2])

	// actors with no grants get an empty list, not an error
	shared, err = svc.ListSharedWith(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, shared)
}
