package db

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/lib/pq"
)

// DefaultNotifyChannel carries consultation completion events.
const DefaultNotifyChannel = "consultation_complete"

// Notifier wraps the Postgres LISTEN/NOTIFY mechanism. The server notifies
// when a workflow completes so clinician dashboards can refresh without
// polling.
type Notifier struct {
	DB      *sql.DB
	DSN     string
	Channel string
}

// NewNotifier constructs a Notifier over the given connection and DSN. The
// DSN is needed because LISTEN requires a dedicated connection.
func NewNotifier(db *sql.DB, dsn, channel string) *Notifier {
	if channel == "" {
		channel = DefaultNotifyChannel
	}
	return &Notifier{DB: db, DSN: dsn, Channel: channel}
}

// Notify publishes a session ID on the channel.
func (n *Notifier) Notify(ctx context.Context, sessionID string) error {
	_, err := n.DB.ExecContext(ctx, "SELECT pg_notify($1, $2)", n.Channel, sessionID)
	return err
}

// Listen yields session IDs as they are published. The returned channel
// closes when the context is cancelled.
func (n *Notifier) Listen(ctx context.Context) (<-chan string, error) {
	listener := pq.NewListener(n.DSN, time.Second, time.Minute, func(_ pq.ListenerEventType, err error) {
		if err != nil {
			log.Println("notifier listener event:", err)
		}
	})
	if err := listener.Listen(n.Channel); err != nil {
		listener.Close()
		return nil, err
	}
	ch := make(chan string)
	go func() {
		defer func() {
			_ = listener.Close()
			close(ch)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case notification, ok := <-listener.Notify:
				if !ok {
					return
				}
				if notification == nil {
					// reconnect marker from pq, nothing to deliver
					continue
				}
				select {
				case ch <- notification.Extra:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
