// Package imessage reads incoming messages by polling the macOS chat.db
// and sends replies through Messages.app via AppleScript. Requires Full
// Disk Access for the polling side.
package imessage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tinyland-inc/wingmate/pkg/logger"
)

// Seconds between the Unix epoch and the Apple epoch (2001-01-01).
const appleEpochOffset = 978307200

const pollBatchLimit = 50

// record is one row pulled from chat.db.
type record struct {
	RowID     int64
	Text      string
	HandleID  string
	ChatID    string
	ChatName  string
	Timestamp time.Time
	IsFromMe  bool
	IsGroup   bool
}

// poller tails the message table by ROWID watermark.
type poller struct {
	db        *sql.DB
	interval  time.Duration
	lastRowID int64
}

func newPoller(dbPath string, interval time.Duration) (*poller, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open chat.db: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &poller{db: db, interval: interval}, nil
}

func (p *poller) close() error { return p.db.Close() }

// seek moves the watermark to the current end of the table so only
// messages arriving after startup are delivered.
func (p *poller) seek(ctx context.Context) error {
	var maxID sql.NullInt64
	if err := p.db.QueryRowContext(ctx, "SELECT MAX(ROWID) FROM message").Scan(&maxID); err != nil {
		return fmt.Errorf("failed to read message watermark: %w", err)
	}
	p.lastRowID = maxID.Int64
	return nil
}

// run polls until ctx is cancelled, invoking fn for each new record.
func (p *poller) run(ctx context.Context, fn func(record)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			records, err := p.fetchNew(ctx)
			if err != nil {
				if strings.Contains(err.Error(), "database is locked") {
					logger.DebugC("imessage", "chat.db locked, retrying next tick")
					continue
				}
				logger.ErrorCF("imessage", "Poll failed", map[string]any{"error": err.Error()})
				continue
			}
			for _, rec := range records {
				fn(rec)
				if rec.RowID > p.lastRowID {
					p.lastRowID = rec.RowID
				}
			}
		}
	}
}

const fetchQuery = `
SELECT
    m.ROWID,
    m.text,
    m.attributedBody,
    m.date,
    m.is_from_me,
    COALESCE(h.id, ''),
    COALESCE(c.chat_identifier, ''),
    COALESCE(c.display_name, ''),
    COALESCE(c.style, 0)
FROM message m
LEFT JOIN handle h ON m.handle_id = h.ROWID
LEFT JOIN chat_message_join cmj ON m.ROWID = cmj.message_id
LEFT JOIN chat c ON cmj.chat_id = c.ROWID
WHERE m.ROWID > ?
ORDER BY m.ROWID ASC
LIMIT ?`

func (p *poller) fetchNew(ctx context.Context) ([]record, error) {
	rows, err := p.db.QueryContext(ctx, fetchQuery, p.lastRowID, pollBatchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query new messages: %w", err)
	}
	defer rows.Close()

	var out []record
	for rows.Next() {
		var (
			rec            record
			text           sql.NullString
			attributedBody []byte
			appleDate      sql.NullInt64
			fromMe         int
			style          int
		)
		if err := rows.Scan(&rec.RowID, &text, &attributedBody, &appleDate,
			&fromMe, &rec.HandleID, &rec.ChatID, &rec.ChatName, &style); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}

		rec.Text = extractText(text.String, attributedBody)
		if rec.Text == "" {
			continue
		}
		rec.IsFromMe = fromMe != 0
		// Styles above 43 are group chats.
		rec.IsGroup = style > 43
		if appleDate.Valid && appleDate.Int64 > 0 {
			// Stored as nanoseconds since the Apple epoch.
			rec.Timestamp = time.Unix(appleDate.Int64/1e9+appleEpochOffset, 0)
		} else {
			rec.Timestamp = time.Now()
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// extractText returns the message body, falling back to the
// attributedBody blob used by macOS Ventura and later, where the text
// lives inside a serialized NSAttributedString.
func extractText(text string, attributedBody []byte) string {
	if s := strings.TrimSpace(text); s != "" {
		return s
	}
	if len(attributedBody) == 0 {
		return ""
	}
	return parseAttributedBody(attributedBody)
}

var attributedMarkers = map[string]bool{
	"streamtyped":               true,
	"NSAttributedString":        true,
	"NSMutableAttributedString": true,
	"NSString":                  true,
	"NSMutableString":           true,
	"NSObject":                  true,
	"NSDictionary":              true,
	"NSNumber":                  true,
	"NSValue":                   true,
	"__kIMMessagePartAttributeName": true,
}

// parseAttributedBody pulls printable runs out of the blob and drops the
// serialization class names, which recovers the user-visible text well
// enough for plain messages.
func parseAttributedBody(blob []byte) string {
	var parts []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 3 {
			s := current.String()
			if !attributedMarkers[s] {
				parts = append(parts, s)
			}
		}
		current.Reset()
	}
	for _, b := range blob {
		if b >= 32 && b <= 126 {
			current.WriteByte(b)
		} else {
			flush()
		}
	}
	flush()
	return strings.TrimSpace(strings.Join(parts, " "))
}
