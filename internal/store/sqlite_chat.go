package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/youssefsn2/PFE/internal/domain"
)

const messageColumns = `id, sender_id, recipient_id, group_id, content, is_read, is_sent, sent_at`

func scanMessage(row interface{ Scan(...any) error }) (*domain.Message, error) {
	var msg domain.Message
	var recipientID, groupID sql.NullString
	var sentAt int64
	if err := row.Scan(&msg.ID, &msg.SenderID, &recipientID, &groupID,
		&msg.Content, &msg.Read, &msg.Sent, &sentAt); err != nil {
		return nil, err
	}
	if recipientID.Valid {
		msg.RecipientID = &recipientID.String
	}
	if groupID.Valid {
		msg.GroupID = &groupID.String
	}
	msg.Timestamp = fromMillis(sentAt)
	return &msg, nil
}

func nullable(p *string) any {
	if p == nil || *p == "" {
		return nil
	}
	return *p
}

// CreateMessage inserts a message and assigns its ID.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *domain.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	query := `INSERT INTO messages (sender_id, recipient_id, group_id, content, is_read, is_sent, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	return s.withTx(ctx, "create message", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, msg.SenderID, nullable(msg.RecipientID), nullable(msg.GroupID),
			msg.Content, msg.Read, msg.Sent, millis(msg.Timestamp))
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("message last insert id: %w", err)
		}
		msg.ID = id
		return nil
	})
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*domain.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan message row: %w", err)
	}
	return msg, nil
}

// PrivateHistory returns messages exchanged between a and b in either direction,
// ordered by timestamp with the insertion ID breaking ties.
func (s *SQLiteStore) PrivateHistory(ctx context.Context, a, b string) ([]*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)
		ORDER BY sent_at ASC, id ASC`
	return s.queryMessages(ctx, "private history", query, a, b, b, a)
}

// GroupHistory returns the group's messages, oldest first.
func (s *SQLiteStore) GroupHistory(ctx context.Context, groupID string) ([]*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE group_id = ? ORDER BY sent_at ASC, id ASC`
	return s.queryMessages(ctx, "group history", query, groupID)
}

// UnreadPrivate returns every unread private message addressed to owner.
func (s *SQLiteStore) UnreadPrivate(ctx context.Context, owner string) ([]*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE recipient_id = ? AND is_read = 0 ORDER BY sent_at ASC, id ASC`
	return s.queryMessages(ctx, "unread messages", query, owner)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, what, query string, args ...any) ([]*domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer closeRows(rows, what)

	msgs := []*domain.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", what, err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return msgs, nil
}

// MarkPrivateRead flips every unread message from counterpart to owner in a single statement.
// Messages inserted after the statement runs stay unread.
func (s *SQLiteStore) MarkPrivateRead(ctx context.Context, owner, counterpart string) (int64, error) {
	var changed int64
	err := s.withTx(ctx, "mark private read", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE messages SET is_read = 1 WHERE recipient_id = ? AND sender_id = ? AND is_read = 0`,
			owner, counterpart)
		if err != nil {
			return fmt.Errorf("update read flags: %w", err)
		}
		changed, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// CountPrivateUnread counts unread messages from counterpart to owner.
func (s *SQLiteStore) CountPrivateUnread(ctx context.Context, owner, counterpart string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = ? AND sender_id = ? AND is_read = 0`,
		owner, counterpart).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count private unread: %w", err)
	}
	return n, nil
}

// MarkGroupRead moves the owner's watermark to the newest group message.
// The watermark never decreases.
func (s *SQLiteStore) MarkGroupRead(ctx context.Context, groupID, owner string) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var watermark int64
	err := s.withTx(ctx, "mark group read", func(tx *sql.Tx) error {
		var latest int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(id), 0) FROM messages WHERE group_id = ?`, groupID).Scan(&latest); err != nil {
			return fmt.Errorf("latest group message: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO group_reads (group_id, user_id, last_read_id, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(group_id, user_id) DO UPDATE SET
				last_read_id = MAX(group_reads.last_read_id, excluded.last_read_id),
				updated_at = excluded.updated_at`,
			groupID, owner, latest, millis(time.Now()))
		if err != nil {
			return fmt.Errorf("upsert group watermark: %w", err)
		}
		return tx.QueryRowContext(ctx,
			`SELECT last_read_id FROM group_reads WHERE group_id = ? AND user_id = ?`,
			groupID, owner).Scan(&watermark)
	})
	if err != nil {
		return 0, err
	}
	return watermark, nil
}

// CountGroupUnread counts messages from other senders above the owner's watermark.
func (s *SQLiteStore) CountGroupUnread(ctx context.Context, groupID, owner string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE group_id = ? AND sender_id <> ?
		  AND id > COALESCE((SELECT last_read_id FROM group_reads WHERE group_id = ? AND user_id = ?), 0)`,
		groupID, owner, groupID, owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count group unread: %w", err)
	}
	return n, nil
}

// CreateGroup inserts the group and its initial members. Every member must exist.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *domain.Group) error {
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.withTx(ctx, "create group", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chat_groups (group_id, name, department, city, site, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			group.ID, group.Name, group.Department, group.City, group.Site, millis(group.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert group: %w", err)
		}
		for _, userID := range group.Members {
			if err := addMemberTx(ctx, tx, group.ID, userID, group.CreatedAt, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func addMemberTx(ctx context.Context, tx *sql.Tx, groupID, userID string, at time.Time, added *bool) error {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE user_id = ?`, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lookup member: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)`,
		groupID, userID, millis(at))
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	if added != nil {
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		*added = n > 0
	}
	return nil
}

// AddGroupMember adds userID to the group. Both must exist.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, groupID, userID string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var added bool
	err := s.withTx(ctx, "add group member", func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM chat_groups WHERE group_id = ?`, groupID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("group %s: %w", groupID, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lookup group: %w", err)
		}
		return addMemberTx(ctx, tx, groupID, userID, time.Now().UTC(), &added)
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// GroupMembers returns the member IDs of a group in join order.
func (s *SQLiteStore) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM group_members WHERE group_id = ? ORDER BY joined_at, user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer closeRows(rows, "group members")

	members := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group members: %w", err)
	}
	return members, nil
}

const groupColumns = `g.group_id, g.name, g.department, g.city, g.site, g.created_at`

func scanGroup(row interface{ Scan(...any) error }) (*domain.Group, error) {
	var g domain.Group
	var createdAt int64
	if err := row.Scan(&g.ID, &g.Name, &g.Department, &g.City, &g.Site, &createdAt); err != nil {
		return nil, err
	}
	g.CreatedAt = fromMillis(createdAt)
	g.Members = []string{}
	return &g, nil
}

// GetGroup retrieves a group with its members.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM chat_groups g WHERE g.group_id = ?`, groupID)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan group row: %w", err)
	}
	if g.Members, err = s.GroupMembers(ctx, groupID); err != nil {
		return nil, err
	}
	return g, nil
}

// GroupsForUser lists the groups userID belongs to, with members.
func (s *SQLiteStore) GroupsForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM chat_groups g
		JOIN group_members m ON m.group_id = g.group_id
		WHERE m.user_id = ? ORDER BY g.name`
	groups, err := s.queryGroups(ctx, "groups for user", query, userID)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if g.Members, err = s.GroupMembers(ctx, g.ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// SearchGroups matches group name, department, city or site.
func (s *SQLiteStore) SearchGroups(ctx context.Context, q string, limit int) ([]*domain.Group, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + groupColumns + ` FROM chat_groups g
		WHERE g.name LIKE ?1 ESCAPE '\' OR g.department LIKE ?1 ESCAPE '\'
			OR g.city LIKE ?1 ESCAPE '\' OR g.site LIKE ?1 ESCAPE '\'
		ORDER BY g.name LIMIT ?2`
	return s.queryGroups(ctx, "search groups", query, likePattern(q), limit)
}

// ListGroups returns every group without members.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	return s.queryGroups(ctx, "list groups", `SELECT `+groupColumns+` FROM chat_groups g ORDER BY g.name`)
}

func (s *SQLiteStore) queryGroups(ctx context.Context, what, query string, args ...any) ([]*domain.Group, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer closeRows(rows, what)

	groups := []*domain.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", what, err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return groups, nil
}
