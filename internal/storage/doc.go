// Package storage is the relational persistence layer.
//
// It keeps:
//   - reference rows (news sources, regions), created lazily by name
//   - news items, one row per (source, link); re-upserting a known link is a no-op
//   - subscriptions, unique per (chat, region)
//   - watermarks, the last known value per key (used by the "sql" state driver)
//
// Two dialects are supported: SQLite (modernc, pure Go) and PostgreSQL (lib/pq).
// Queries are written with '?' placeholders and rebound for PostgreSQL.
package storage
