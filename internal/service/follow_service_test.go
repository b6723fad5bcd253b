package service

import (
	"context"
	"fmt"
	"testing"

	"socialgraph/internal/identity"
	"socialgraph/internal/models"
	"socialgraph/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFollowService_RejectsBeforeTouchingStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	follows := &followRepoStub{
		existsFn: func(context.Context, string, string) (bool, error) {
			t.Fatal("store must not be read")
			return false, nil
		},
	}
	svc := NewFollowService(follows, nil, &uowRecorder{}, nil, nil)

	_, err := svc.ToggleFollow(ctx, identity.Anonymous, "alice")
	assertCode(t, err, models.CodeUnauthenticated)

	_, err = svc.ToggleFollow(ctx, identity.For("alice"), "alice")
	assertCode(t, err, models.CodeSelfActionForbidden)
}

func TestFollowService_RaceIsAlreadyFollowing(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")

	follows := &followRepoStub{existsFn: func(context.Context, string, string) (bool, error) { return false, nil }}
	uow := &uowRecorder{err: fmt.Errorf("insert follow: %w", gorm.ErrDuplicatedKey)}
	svc := NewFollowService(follows, repositories(db).users, uow, nil, nil)

	following, err := svc.ToggleFollow(context.Background(), identity.For("bob"), alice.ID)
	require.NoError(t, err)
	assert.True(t, following)
}

func TestFollowService_IsFollowingAnonymous(t *testing.T) {
	t.Parallel()
	svc := NewFollowService(&followRepoStub{}, nil, &uowRecorder{}, nil, nil)
	following, err := svc.IsFollowing(context.Background(), identity.Anonymous, "alice")
	require.NoError(t, err)
	assert.False(t, following)
}
