// Package storetest holds the behaviour every store driver must share. Each
// driver's tests call Run with a constructor for a fresh, migrated store.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/idx"
	"github.com/stretchr/testify/require"
)

// NewRecord builds a valid record for username. Timestamps are truncated
// to the second so drivers with coarse clocks compare equal.
func NewRecord(username string) store.Record {
	now := time.Now().UTC().Truncate(time.Second)
	return store.Record{
		ID:             idx.New().String(),
		Username:       username,
		SearchUsername: username,
		Email:          username + "@example.com",
		SearchEmail:    username + "@example.com",
		Firstname:      "00112233445566778899aabbccddeeff:00112233445566778899aabbccddeeff",
		Lastname:       "ffeeddccbbaa99887766554433221100:ffeeddccbbaa99887766554433221100",
		PasswordHash:   "$2a$10$abcdefghijklmnopqrstuuvwxyzABCDEFGHIJKLMNOPQRSTUVWXY",
		ProfileInfo: store.ProfileInfo{
			Tags: []string{},
		},
		FriendList: []store.Friend{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Run exercises s against the store contract.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("insert and get", func(t *testing.T) {
		users := newStore(t).Users()
		ctx := context.Background()

		rec := NewRecord("juuso23")
		rec.ProfileInfo = store.ProfileInfo{
			Location:      "Pori",
			Gender:        "MALE",
			MaritalStatus: "SINGLE",
			DateOfBirth:   "aa:bb",
			ProfileLikes:  3,
			Bio:           "hello",
			Tags:          []string{"a", "b"},
		}
		rec.FriendList = []store.Friend{{UserID: "other", Status: 1}}
		require.NoError(t, users.Insert(ctx, rec))

		got, err := users.Get(ctx, rec.ID)
		require.NoError(t, err)
		requireRecordEqual(t, rec, got)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := newStore(t).Users().Get(context.Background(), idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("insert conflicts", func(t *testing.T) {
		users := newStore(t).Users()
		ctx := context.Background()

		first := NewRecord("juuso23")
		require.NoError(t, users.Insert(ctx, first))

		sameUsername := NewRecord("juuso23")
		sameUsername.Email, sameUsername.SearchEmail = "other@example.com", "other@example.com"
		require.ErrorIs(t, users.Insert(ctx, sameUsername), store.ErrAlreadyExists)

		sameEmail := NewRecord("someone")
		sameEmail.Email, sameEmail.SearchEmail = first.Email, first.SearchEmail
		require.ErrorIs(t, users.Insert(ctx, sameEmail), store.ErrAlreadyExists)

		sameID := NewRecord("third")
		sameID.ID = first.ID
		require.ErrorIs(t, users.Insert(ctx, sameID), store.ErrAlreadyExists)

		n, err := users.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("update groups", func(t *testing.T) {
		users := newStore(t).Users()
		ctx := context.Background()

		rec := NewRecord("juuso23")
		require.NoError(t, users.Insert(ctx, rec))

		later := rec.UpdatedAt.Add(time.Minute)
		info := store.ProfileInfo{Location: "Pori", Bio: "x", Tags: []string{"a"}}
		require.NoError(t, users.Update(ctx, rec.ID, store.Attributes{ProfileInfo: &info, UpdatedAt: later}))

		got, err := users.Get(ctx, rec.ID)
		require.NoError(t, err)
		require.Equal(t, info, got.ProfileInfo)
		require.Equal(t, rec.Username, got.Username)
		require.Equal(t, rec.PasswordHash, got.PasswordHash)
		require.True(t, later.Equal(got.UpdatedAt))

		hash := "$2a$10$newnewnewnewnewnewnewnewnewnewnewnewnewnewnewnewnewne"
		require.NoError(t, users.Update(ctx, rec.ID, store.Attributes{PasswordHash: &hash, UpdatedAt: later}))

		acct := store.Account{
			Username: "Juuso24", SearchUsername: "juuso24",
			Email: "new@example.com", SearchEmail: "new@example.com",
			Firstname: "c1:c1", Lastname: "c2:c2",
		}
		require.NoError(t, users.Update(ctx, rec.ID, store.Attributes{Account: &acct, UpdatedAt: later}))

		got, err = users.Get(ctx, rec.ID)
		require.NoError(t, err)
		require.Equal(t, hash, got.PasswordHash)
		require.Equal(t, "Juuso24", got.Username)
		require.Equal(t, "juuso24", got.SearchUsername)
		require.Equal(t, "new@example.com", got.SearchEmail)
		require.Equal(t, "c1:c1", got.Firstname)
		require.Equal(t, info, got.ProfileInfo)

		// The old keys are free again.
		require.NoError(t, users.Insert(ctx, NewRecord("juuso23")))
	})

	t.Run("update keeping own keys", func(t *testing.T) {
		users := newStore(t).Users()
		ctx := context.Background()

		rec := NewRecord("juuso23")
		require.NoError(t, users.Insert(ctx, rec))

		acct := store.Account{
			Username: "JUUSO23", SearchUsername: rec.SearchUsername,
			Email: rec.Email, SearchEmail: rec.SearchEmail,
			Firstname: "n:n", Lastname: "m:m",
		}
		require.NoError(t, users.Update(ctx, rec.ID, store.Attributes{Account: &acct, UpdatedAt: rec.UpdatedAt}))
	})

	t.Run("update conflicts", func(t *testing.T) {
		users := newStore(t).Users()
		ctx := context.Background()

		a := NewRecord("alpha")
		b := NewRecord("bravo")
		require.NoError(t, users.Insert(ctx, a))
		require.NoError(t, users.Insert(ctx, b))

		acct := store.Account{
			Username: "alpha", SearchUsername: "alpha",
			Email: b.Email, SearchEmail: b.SearchEmail,
			Firstname: b.Firstname, Lastname: b.Lastname,
		}
		err := users.Update(ctx, b.ID, store.Attributes{Account: &acct, UpdatedAt: time.Now().UTC()})
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		got, err := users.Get(ctx, b.ID)
		require.NoError(t, err)
		require.Equal(t, "bravo", got.Username)
	})

	t.Run("update missing", func(t *testing.T) {
		hash := "x"
		err := newStore(t).Users().Update(context.Background(), idx.New().String(),
			store.Attributes{PasswordHash: &hash, UpdatedAt: time.Now().UTC()})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		users := newStore(t).Users()
		ctx := context.Background()

		rec := NewRecord("juuso23")
		require.NoError(t, users.Insert(ctx, rec))
		require.NoError(t, users.Delete(ctx, rec.ID))

		_, err := users.Get(ctx, rec.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, users.Delete(ctx, rec.ID), store.ErrNotFound)

		// Deleting frees both search keys.
		require.NoError(t, users.Insert(ctx, NewRecord("juuso23")))
	})

	t.Run("scan and count", func(t *testing.T) {
		users := newStore(t).Users()
		ctx := context.Background()

		var ids []string
		for i := range 5 {
			rec := NewRecord(fmt.Sprintf("user%d", i))
			ids = append(ids, rec.ID)
			require.NoError(t, users.Insert(ctx, rec))
		}

		n, err := users.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, 5, n)

		all, err := users.Scan(ctx, store.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 5)
		for i, rec := range all {
			require.Equal(t, ids[i], rec.ID, "scan is ordered by id")
		}

		byName, err := users.Scan(ctx, store.Filter{SearchUsername: "user3"})
		require.NoError(t, err)
		require.Len(t, byName, 1)
		require.Equal(t, ids[3], byName[0].ID)

		byEmail, err := users.Scan(ctx, store.Filter{SearchEmail: "user1@example.com"})
		require.NoError(t, err)
		require.Len(t, byEmail, 1)
		require.Equal(t, ids[1], byEmail[0].ID)

		mismatch, err := users.Scan(ctx, store.Filter{SearchUsername: "user3", SearchEmail: "user1@example.com"})
		require.NoError(t, err)
		require.Empty(t, mismatch)

		none, err := users.Scan(ctx, store.Filter{SearchUsername: "nobody"})
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, newStore(t).Ping(context.Background()))
	})
}

func requireRecordEqual(t *testing.T, want, got store.Record) {
	t.Helper()

	require.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", want.CreatedAt, got.CreatedAt)
	require.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updated_at %s != %s", want.UpdatedAt, got.UpdatedAt)

	want.CreatedAt, got.CreatedAt = time.Time{}, time.Time{}
	want.UpdatedAt, got.UpdatedAt = time.Time{}, time.Time{}
	require.Equal(t, want, got)
}
