package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/youssefsn2/PFE/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "envmon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUsers(t *testing.T, s *SQLiteStore, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, s.CreateUser(context.Background(), &domain.User{ID: id, Handle: id, DisplayName: "User " + id}))
	}
}

func strPtr(s string) *string { return &s }

func TestCreateUser_DuplicateHandle(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	req.NoError(s.CreateUser(ctx, &domain.User{ID: "u1", Handle: "alice", DisplayName: "Alice"}))
	err := s.CreateUser(ctx, &domain.User{ID: "u2", Handle: "alice", DisplayName: "Other"})
	req.ErrorIs(err, domain.ErrConflict)

	got, err := s.GetUserByHandle(ctx, "alice")
	req.NoError(err)
	req.Equal("u1", got.ID)

	missing, err := s.GetUser(ctx, "nobody")
	req.NoError(err)
	req.Nil(missing)
}

func TestSearchUsers_EscapesWildcards(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	req.NoError(s.CreateUser(ctx, &domain.User{ID: "1", Handle: "alice", DisplayName: "Alice Martin"}))
	req.NoError(s.CreateUser(ctx, &domain.User{ID: "2", Handle: "bob", DisplayName: "Bob 100%"}))

	found, err := s.SearchUsers(ctx, "MART", 10)
	req.NoError(err)
	req.Len(found, 1)
	req.Equal("alice", found[0].Handle)

	found, err = s.SearchUsers(ctx, "%", 10)
	req.NoError(err)
	req.Len(found, 1)
	req.Equal("bob", found[0].Handle)
}

func TestPrivateHistory_OrderAndTieBreak(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()
	seedUsers(t, s, "a", "b", "c")

	at := time.Now().UTC().Truncate(time.Millisecond)
	// Same timestamp: insertion order decides.
	m1 := &domain.Message{SenderID: "a", RecipientID: strPtr("b"), Content: "first", Sent: true, Timestamp: at}
	m2 := &domain.Message{SenderID: "b", RecipientID: strPtr("a"), Content: "second", Sent: true, Timestamp: at}
	m3 := &domain.Message{SenderID: "a", RecipientID: strPtr("c"), Content: "other", Sent: true, Timestamp: at}
	for _, m := range []*domain.Message{m1, m2, m3} {
		req.NoError(s.CreateMessage(ctx, m))
	}
	req.Greater(m2.ID, m1.ID)

	history, err := s.PrivateHistory(ctx, "b", "a")
	req.NoError(err)
	req.Len(history, 2)
	req.Equal("first", history[0].Content)
	req.Equal("second", history[1].Content)
	req.True(at.Equal(history[0].Timestamp))
}

func TestCreateMessage_RejectsBothTargets(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateMessage(context.Background(), &domain.Message{
		SenderID: "a", RecipientID: strPtr("b"), GroupID: strPtr("g"), Content: "x",
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestMarkPrivateRead(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()
	seedUsers(t, s, "a", "b")

	for i := 0; i < 3; i++ {
		req.NoError(s.CreateMessage(ctx, &domain.Message{SenderID: "a", RecipientID: strPtr("b"), Content: "hi", Sent: true}))
	}
	req.NoError(s.CreateMessage(ctx, &domain.Message{SenderID: "b", RecipientID: strPtr("a"), Content: "yo", Sent: true}))

	n, err := s.CountPrivateUnread(ctx, "b", "a")
	req.NoError(err)
	req.EqualValues(3, n)

	changed, err := s.MarkPrivateRead(ctx, "b", "a")
	req.NoError(err)
	req.EqualValues(3, changed)

	n, err = s.CountPrivateUnread(ctx, "b", "a")
	req.NoError(err)
	req.Zero(n)

	// The reverse direction is untouched.
	n, err = s.CountPrivateUnread(ctx, "a", "b")
	req.NoError(err)
	req.EqualValues(1, n)

	changed, err = s.MarkPrivateRead(ctx, "b", "a")
	req.NoError(err)
	req.Zero(changed)

	unread, err := s.UnreadPrivate(ctx, "a")
	req.NoError(err)
	req.Len(unread, 1)
	req.Equal("yo", unread[0].Content)
}

func TestGroups_MembershipAndWatermark(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()
	seedUsers(t, s, "a", "b", "c")

	g := &domain.Group{ID: "g1", Name: "Site Nord", City: "Safi", Members: []string{"a", "b"}}
	req.NoError(s.CreateGroup(ctx, g))

	added, err := s.AddGroupMember(ctx, "g1", "c")
	req.NoError(err)
	req.True(added)

	added, err = s.AddGroupMember(ctx, "g1", "c")
	req.NoError(err)
	req.False(added)

	_, err = s.AddGroupMember(ctx, "g1", "ghost")
	req.ErrorIs(err, domain.ErrNotFound)
	_, err = s.AddGroupMember(ctx, "nope", "a")
	req.ErrorIs(err, domain.ErrNotFound)

	got, err := s.GetGroup(ctx, "g1")
	req.NoError(err)
	req.ElementsMatch([]string{"a", "b", "c"}, got.Members)

	for _, sender := range []string{"a", "b", "a"} {
		req.NoError(s.CreateMessage(ctx, &domain.Message{SenderID: sender, GroupID: strPtr("g1"), Content: "m", Sent: true}))
	}

	n, err := s.CountGroupUnread(ctx, "g1", "b")
	req.NoError(err)
	req.EqualValues(2, n)

	n, err = s.CountGroupUnread(ctx, "g1", "c")
	req.NoError(err)
	req.EqualValues(3, n)

	_, err = s.MarkGroupRead(ctx, "g1", "c")
	req.NoError(err)
	n, err = s.CountGroupUnread(ctx, "g1", "c")
	req.NoError(err)
	req.Zero(n)

	// Read state is per member.
	n, err = s.CountGroupUnread(ctx, "g1", "b")
	req.NoError(err)
	req.EqualValues(2, n)

	req.NoError(s.CreateMessage(ctx, &domain.Message{SenderID: "a", GroupID: strPtr("g1"), Content: "late", Sent: true}))
	n, err = s.CountGroupUnread(ctx, "g1", "c")
	req.NoError(err)
	req.EqualValues(1, n)

	groups, err := s.GroupsForUser(ctx, "c")
	req.NoError(err)
	req.Len(groups, 1)
	req.Equal("Site Nord", groups[0].Name)
}

func TestAddGroupMember_Concurrent(t *testing.T) {
	const n = 20
	s := newTestStore(t)
	ctx := context.Background()

	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%02d", i)
	}
	seedUsers(t, s, append([]string{"owner"}, ids...)...)
	require.NoError(t, s.CreateGroup(ctx, &domain.Group{ID: "g1", Name: "Ops", Members: []string{"owner"}, CreatedAt: time.Now()}))

	t.Run("distinct users are all kept", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for _, id := range ids {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := s.AddGroupMember(ctx, "g1", id); err != nil {
					errs <- err
				}
			}(id)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		members, err := s.GroupMembers(ctx, "g1")
		require.NoError(t, err)
		require.ElementsMatch(t, append([]string{"owner"}, ids...), members)
	})

	t.Run("same user is added exactly once", func(t *testing.T) {
		require.NoError(t, s.CreateGroup(ctx, &domain.Group{ID: "g2", Name: "Lab", Members: []string{"owner"}, CreatedAt: time.Now()}))

		var wg sync.WaitGroup
		var added, failed atomic.Int32
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.AddGroupMember(ctx, "g2", "u00")
				if err != nil {
					failed.Add(1)
					return
				}
				if ok {
					added.Add(1)
				}
			}()
		}
		wg.Wait()

		require.Zero(t, failed.Load())
		require.EqualValues(t, 1, added.Load())
		members, err := s.GroupMembers(ctx, "g2")
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"owner", "u00"}, members)
	})
}

func TestCreateGroup_UnknownMemberRollsBack(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()
	seedUsers(t, s, "a")

	err := s.CreateGroup(ctx, &domain.Group{ID: "g1", Name: "x", Members: []string{"a", "ghost"}})
	req.True(errors.Is(err, domain.ErrNotFound))

	got, err := s.GetGroup(ctx, "g1")
	req.NoError(err)
	req.Nil(got)
}

func TestPreferences_EnsureAndUpsert(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	none, err := s.GetPreferences(ctx, "u1")
	req.NoError(err)
	req.Nil(none)

	p, err := s.EnsurePreferences(ctx, "u1")
	req.NoError(err)
	req.Equal(100.0, p.AQI)
	req.True(p.AlertsEnabled)

	p.AQI = 80
	p.AlertsEnabled = false
	req.NoError(s.UpsertPreferences(ctx, p))

	// Ensure never overwrites an existing row.
	p, err = s.EnsurePreferences(ctx, "u1")
	req.NoError(err)
	req.Equal(80.0, p.AQI)
	req.False(p.AlertsEnabled)

	_, err = s.EnsurePreferences(ctx, "u2")
	req.NoError(err)
	ids, err := s.AlertingUsers(ctx)
	req.NoError(err)
	req.Equal([]string{"u2"}, ids)
}

func TestAlertsForUser_NewestFirst(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	req.NoError(s.CreateAlert(ctx, &domain.AlertRecord{UserID: "u", Type: domain.AlertPM25, Message: "old", Timestamp: base.Add(-time.Minute)}))
	req.NoError(s.CreateAlert(ctx, &domain.AlertRecord{UserID: "u", Type: domain.AlertPollution, Message: "new", Timestamp: base}))
	req.NoError(s.CreateAlert(ctx, &domain.AlertRecord{UserID: "v", Type: domain.AlertCO, Message: "other", Timestamp: base}))

	alerts, err := s.AlertsForUser(ctx, "u", 0)
	req.NoError(err)
	req.Len(alerts, 2)
	req.Equal("new", alerts[0].Message)
	req.Equal(domain.AlertPM25, alerts[1].Type)
}

func TestSearchGroups_MatchesLocation(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()
	seedUsers(t, s, "owner")

	req.NoError(s.CreateGroup(ctx, &domain.Group{
		ID: "g1", Name: "Ops", Department: "Maintenance", City: "Safi", Site: "Jorf",
		Members: []string{"owner"}, CreatedAt: time.Now(),
	}))
	req.NoError(s.CreateGroup(ctx, &domain.Group{
		ID: "g2", Name: "Safety", Members: []string{"owner"}, CreatedAt: time.Now(),
	}))

	tests := []struct {
		q    string
		want []string
	}{
		{"ops", []string{"g1"}},
		{"mainten", []string{"g1"}},
		{"jorf", []string{"g1"}},
		{"saf", []string{"g1", "g2"}},
		{"casa", nil},
	}
	for _, tt := range tests {
		found, err := s.SearchGroups(ctx, tt.q, 10)
		req.NoError(err)
		ids := make([]string, 0, len(found))
		for _, g := range found {
			ids = append(ids, g.ID)
		}
		req.ElementsMatch(tt.want, ids, "query %q", tt.q)
	}
}

func TestNewSQLite_InMemorySharesSchema(t *testing.T) {
	req := require.New(t)
	s, err := NewSQLite(":memory:")
	req.NoError(err)
	defer s.Close()
	ctx := context.Background()

	// Concurrent callers must all see the schema and rows of the single database.
	seedUsers(t, s, "owner")
	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := s.GetUser(ctx, "owner")
			if err == nil && u == nil {
				err = errors.New("user not visible")
			}
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}
}
