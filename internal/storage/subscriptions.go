package storage

import (
	"context"
	"fmt"
	"strings"

	"healthwatch/internal/model"
)

// Subscribe is a find-or-create on (chat, region). The region must already exist;
// created reports whether a new row was written.
func (s *Store) Subscribe(ctx context.Context, chatID int64, regionName string) (sub model.Subscription, created bool, err error) {
	region, err := s.RegionByName(ctx, regionName)
	if err != nil {
		return model.Subscription{}, false, err
	}
	res, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO subscription(chat_id, region_id, created_at) VALUES(?, ?, ?)
		 ON CONFLICT(chat_id, region_id) DO NOTHING`),
		chatID, region.ID, s.nowMilli(),
	)
	if err != nil {
		return model.Subscription{}, false, fmt.Errorf("subscribe: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		created = true
	}
	sub = model.Subscription{ChatID: chatID, RegionID: region.ID, Region: region.Name}
	if err := s.db.QueryRowContext(ctx,
		s.q(`SELECT id FROM subscription WHERE chat_id = ? AND region_id = ?`), chatID, region.ID,
	).Scan(&sub.ID); err != nil {
		return model.Subscription{}, false, fmt.Errorf("subscribe: %w", err)
	}
	return sub, created, nil
}

// Unsubscribe removes the (chat, region) subscription. It returns ErrNotFound
// when there was nothing to remove.
func (s *Store) Unsubscribe(ctx context.Context, chatID int64, regionName string) error {
	res, err := s.db.ExecContext(ctx,
		s.q(`DELETE FROM subscription WHERE chat_id = ? AND region_id = (SELECT id FROM region WHERE name = ?)`),
		chatID, regionName,
	)
	if err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SubscriptionsOf lists a chat's subscriptions ordered by region name.
func (s *Store) SubscriptionsOf(ctx context.Context, chatID int64) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT s.id, s.chat_id, s.region_id, r.name
		 FROM subscription s JOIN region r ON r.id = s.region_id
		 WHERE s.chat_id = ? ORDER BY r.name`), chatID)
	if err != nil {
		return nil, fmt.Errorf("subscriptions of %d: %w", chatID, err)
	}
	defer rows.Close()
	var out []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		if err := rows.Scan(&sub.ID, &sub.ChatID, &sub.RegionID, &sub.Region); err != nil {
			return nil, fmt.Errorf("subscriptions of %d: %w", chatID, err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// SubscribersOf returns the distinct recipients subscribed to any of the named regions.
func (s *Store) SubscribersOf(ctx context.Context, regionNames ...string) ([]model.Recipient, error) {
	if len(regionNames) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(regionNames))
	for _, n := range regionNames {
		args = append(args, n)
	}
	query := `SELECT DISTINCT s.chat_id FROM subscription s JOIN region r ON r.id = s.region_id
		 WHERE r.name IN (` + placeholders(len(regionNames)) + `) ORDER BY s.chat_id`
	return s.recipients(ctx, s.q(query), args...)
}

// SubscribersMatching returns the distinct recipients of every region whose name
// contains substr, case-insensitively.
func (s *Store) SubscribersMatching(ctx context.Context, substr string) ([]model.Recipient, error) {
	substr = strings.TrimSpace(substr)
	if substr == "" {
		return nil, nil
	}
	pattern := "%" + strings.ToLower(substr) + "%"
	return s.recipients(ctx, s.q(
		`SELECT DISTINCT s.chat_id FROM subscription s JOIN region r ON r.id = s.region_id
		 WHERE LOWER(r.name) LIKE ? ORDER BY s.chat_id`), pattern)
}

func (s *Store) recipients(ctx context.Context, query string, args ...any) ([]model.Recipient, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("subscribers: %w", err)
	}
	defer rows.Close()
	var out []model.Recipient
	for rows.Next() {
		var r model.Recipient
		if err := rows.Scan(&r.ChatID); err != nil {
			return nil, fmt.Errorf("subscribers: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
