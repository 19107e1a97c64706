package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charly05tr/ClassMatchAPI/internal/domain"
	"github.com/charly05tr/ClassMatchAPI/internal/store/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	// a single connection keeps every statement on the same in-memory database
	db.SetMaxOpenConns(1)
	require.NoError(t, sqlite.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, repo *sqlite.UserRepo, n int) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:       fmt.Sprintf("user%d", n),
		Email:          fmt.Sprintf("user%d@example.com", n),
		Name:           "Test",
		FirstName:      fmt.Sprintf("User%d", n),
		HashedPassword: "x",
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepo(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewUserRepo(db)
	ctx := context.Background()

	a := createUser(t, repo, 1)
	b := createUser(t, repo, 2)
	assert.NotZero(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	t.Run("GetByEmail", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, b.Email)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, b.ID, got.ID)

		missing, err := repo.GetByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("FindExistingIDs", func(t *testing.T) {
		found, err := repo.FindExistingIDs(ctx, []int64{a.ID, b.ID, 999})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{a.ID, b.ID}, found)
	})
}

func TestFindActiveDirect(t *testing.T) {
	db := newTestDB(t)
	userRepo := sqlite.NewUserRepo(db)
	convRepo := sqlite.NewConversationRepo(db)
	ctx := context.Background()

	a := createUser(t, userRepo, 1)
	b := createUser(t, userRepo, 2)
	c := createUser(t, userRepo, 3)

	t.Run("FindsUnnamedPair", func(t *testing.T) {
		conv := &domain.Conversation{CreatorID: &a.ID}
		require.NoError(t, convRepo.Create(ctx, conv, []int64{a.ID, b.ID}))

		found, err := convRepo.FindActiveDirect(ctx, a.ID, b.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, conv.ID, found.ID)

		// symmetric lookup
		found, err = convRepo.FindActiveDirect(ctx, b.ID, a.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, conv.ID, found.ID)
	})

	t.Run("IgnoresNamedConversations", func(t *testing.T) {
		name := "project"
		conv := &domain.Conversation{Name: &name, CreatorID: &a.ID}
		require.NoError(t, convRepo.Create(ctx, conv, []int64{a.ID, c.ID}))

		found, err := convRepo.FindActiveDirect(ctx, a.ID, c.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("IgnoresLargerGroups", func(t *testing.T) {
		conv := &domain.Conversation{CreatorID: &b.ID}
		require.NoError(t, convRepo.Create(ctx, conv, []int64{a.ID, b.ID, c.ID}))

		found, err := convRepo.FindActiveDirect(ctx, b.ID, c.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestLeaveAndReactivate(t *testing.T) {
	db := newTestDB(t)
	userRepo := sqlite.NewUserRepo(db)
	convRepo := sqlite.NewConversationRepo(db)
	partRepo := sqlite.NewParticipantRepo(db)
	ctx := context.Background()

	a := createUser(t, userRepo, 1)
	b := createUser(t, userRepo, 2)

	conv := &domain.Conversation{CreatorID: &a.ID}
	require.NoError(t, convRepo.Create(ctx, conv, []int64{a.ID, b.ID}))

	t.Run("LeaveNonParticipantIsNotFound", func(t *testing.T) {
		_, err := convRepo.Leave(ctx, conv.ID, 999)
		require.Error(t, err)
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	})

	t.Run("FirstLeaveKeepsConversation", func(t *testing.T) {
		deleted, err := convRepo.Leave(ctx, conv.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		count, err := partRepo.Count(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("LastLeaveSoftDeletes", func(t *testing.T) {
		deleted, err := convRepo.Leave(ctx, conv.ID, a.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		got, err := convRepo.GetByID(ctx, conv.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.IsDeleted())

		active, err := convRepo.FindActiveDirect(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.Nil(t, active)
	})

	t.Run("ReactivateRestoresConversationAndParticipants", func(t *testing.T) {
		candidate, err := convRepo.FindSoftDeletedDirectCandidate(ctx, a.ID, b.ID)
		require.NoError(t, err)
		require.NotNil(t, candidate)
		assert.Equal(t, conv.ID, candidate.ID)

		require.NoError(t, convRepo.Reactivate(ctx, candidate.ID, []int64{a.ID, b.ID}))

		got, err := convRepo.GetByID(ctx, conv.ID)
		require.NoError(t, err)
		assert.False(t, got.IsDeleted())

		count, err := partRepo.Count(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		active, err := convRepo.FindActiveDirect(ctx, a.ID, b.ID)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, conv.ID, active.ID)
	})
}

func TestParticipantApply(t *testing.T) {
	db := newTestDB(t)
	userRepo := sqlite.NewUserRepo(db)
	convRepo := sqlite.NewConversationRepo(db)
	partRepo := sqlite.NewParticipantRepo(db)
	ctx := context.Background()

	a := createUser(t, userRepo, 1)
	b := createUser(t, userRepo, 2)
	c := createUser(t, userRepo, 3)

	name := "group"
	conv := &domain.Conversation{Name: &name, CreatorID: &a.ID}
	require.NoError(t, convRepo.Create(ctx, conv, []int64{a.ID, b.ID}))

	require.NoError(t, partRepo.Apply(ctx, conv.ID, []int64{c.ID, b.ID}, nil))

	ids, err := partRepo.ListIDs(ctx, conv.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{a.ID, b.ID, c.ID}, ids)

	require.NoError(t, partRepo.Apply(ctx, conv.ID, nil, []int64{b.ID}))

	isPart, err := partRepo.IsParticipant(ctx, conv.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, isPart)

	users, err := partRepo.ListByConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestMessagePagination(t *testing.T) {
	db := newTestDB(t)
	userRepo := sqlite.NewUserRepo(db)
	convRepo := sqlite.NewConversationRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	a := createUser(t, userRepo, 1)
	b := createUser(t, userRepo, 2)

	conv := &domain.Conversation{CreatorID: &a.ID}
	require.NoError(t, convRepo.Create(ctx, conv, []int64{a.ID, b.ID}))

	for i := 1; i <= 5; i++ {
		msg := &domain.Message{
			SenderID:       a.ID,
			ConversationID: conv.ID,
			Content:        fmt.Sprintf("message %d", i),
		}
		require.NoError(t, msgRepo.Create(ctx, msg))
	}

	t.Run("FirstPage", func(t *testing.T) {
		msgs, total, err := msgRepo.ListPage(ctx, conv.ID, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, msgs, 2)
		assert.Equal(t, "message 1", msgs[0].Content)
		assert.Equal(t, "message 2", msgs[1].Content)
		require.NotNil(t, msgs[0].Sender)
		assert.Equal(t, a.ID, msgs[0].Sender.ID)
	})

	t.Run("LastPageIsPartial", func(t *testing.T) {
		msgs, total, err := msgRepo.ListPage(ctx, conv.ID, 3, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, msgs, 1)
		assert.Equal(t, "message 5", msgs[0].Content)
	})

	t.Run("PageMetaDerivation", func(t *testing.T) {
		meta := domain.NewPageMeta(5, 1, 2)
		assert.Equal(t, 3, meta.TotalPages)
		assert.True(t, meta.HasNext)
		assert.False(t, meta.HasPrev)
		require.NotNil(t, meta.NextPage)
		assert.Equal(t, 2, *meta.NextPage)
		assert.Nil(t, meta.PrevPage)
	})

	t.Run("UnknownConversationIsNotFound", func(t *testing.T) {
		_, _, err := msgRepo.ListPage(ctx, 999, 1, 2)
		require.Error(t, err)
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	})
}

func TestListForUser(t *testing.T) {
	db := newTestDB(t)
	userRepo := sqlite.NewUserRepo(db)
	convRepo := sqlite.NewConversationRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	a := createUser(t, userRepo, 1)
	b := createUser(t, userRepo, 2)
	c := createUser(t, userRepo, 3)

	quiet := &domain.Conversation{CreatorID: &a.ID}
	require.NoError(t, convRepo.Create(ctx, quiet, []int64{a.ID, b.ID}))

	name := "active group"
	busy := &domain.Conversation{Name: &name, CreatorID: &a.ID}
	require.NoError(t, convRepo.Create(ctx, busy, []int64{a.ID, c.ID}))
	require.NoError(t, msgRepo.Create(ctx, &domain.Message{
		SenderID: c.ID, ConversationID: busy.ID, Content: "hey",
	}))

	gone := &domain.Conversation{CreatorID: &a.ID}
	require.NoError(t, convRepo.Create(ctx, gone, []int64{a.ID}))
	_, err := convRepo.Leave(ctx, gone.ID, a.ID)
	require.NoError(t, err)

	summaries, err := convRepo.ListForUser(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// conversations with messages sort before quiet ones
	assert.Equal(t, busy.ID, summaries[0].ID)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "hey", summaries[0].LastMessage.Content)
	assert.Equal(t, 1, summaries[0].MessageCount)
	assert.Len(t, summaries[0].Participants, 2)
	require.NotNil(t, summaries[0].Creator)
	assert.Equal(t, a.ID, summaries[0].Creator.ID)

	assert.Equal(t, quiet.ID, summaries[1].ID)
	assert.Nil(t, summaries[1].LastMessage)
}
