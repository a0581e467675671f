package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shiminize/creatorhub/pkg/models"
)

// InsertClick appends a click record. Clicks are immutable and never
// deduplicated at write time; over-counting raw clicks is acceptable,
// over-crediting commissions is not.
func (s *Store) InsertClick(ctx context.Context, c *models.ReferralClick) error {
	q := s.rebind(`INSERT INTO referral_clicks
		(id, link_id, creator_id, session_id, ip_address, user_agent, referrer, clicked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, q,
		c.ID, c.LinkID, c.CreatorID, c.SessionID,
		c.IPAddress, c.UserAgent, c.Referrer, fmtTime(c.ClickedAt))
	if err != nil {
		return fmt.Errorf("failed to insert click: %w", err)
	}
	return nil
}

// LatestAttributableClick returns the most recent click for the session
// whose owning link is currently active and whose clicked_at is not
// before cutoff. This is last-click attribution in one query.
func (s *Store) LatestAttributableClick(ctx context.Context, sessionID string, cutoff time.Time) (*models.ReferralClick, error) {
	q := s.rebind(`SELECT c.id, c.link_id, c.creator_id, c.session_id,
			c.ip_address, c.user_agent, c.referrer, c.clicked_at
		FROM referral_clicks c
		JOIN referral_links l ON l.id = c.link_id
		WHERE c.session_id = ? AND l.is_active = 1 AND c.clicked_at >= ?
		ORDER BY c.clicked_at DESC
		LIMIT 1`)

	var (
		c         models.ReferralClick
		clickedAt string
	)
	err := s.db.QueryRowContext(ctx, q, sessionID, fmtTime(cutoff)).
		Scan(&c.ID, &c.LinkID, &c.CreatorID, &c.SessionID,
			&c.IPAddress, &c.UserAgent, &c.Referrer, &clickedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up attributable click: %w", err)
	}
	if c.ClickedAt, err = parseTime(clickedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CountClicksByLink recomputes a link's click count from the event log
func (s *Store) CountClicksByLink(ctx context.Context, linkID string) (int, error) {
	var n int
	q := s.rebind(`SELECT COUNT(*) FROM referral_clicks WHERE link_id = ?`)
	if err := s.db.QueryRowContext(ctx, q, linkID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count clicks for link: %w", err)
	}
	return n, nil
}

// CountClicksByCreator recomputes a creator's click total from the event log
func (s *Store) CountClicksByCreator(ctx context.Context, creatorID string) (int, error) {
	var n int
	q := s.rebind(`SELECT COUNT(*) FROM referral_clicks WHERE creator_id = ?`)
	if err := s.db.QueryRowContext(ctx, q, creatorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count clicks for creator: %w", err)
	}
	return n, nil
}
