// Package events connects the pipeline to cloud storage notifications
// delivered over NATS. Each object-created event for a campaign recording is
// translated into a single-item processing run.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/callsight-ai/callsight/internal/campaign"
	"github.com/callsight-ai/callsight/internal/logging"
	"github.com/callsight-ai/callsight/internal/model"
)

// StorageEvent is the object-created notification payload. Key follows the
// bucket layout campaigns/<campaign>/audios/<file>.
type StorageEvent struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Item maps the event key onto the local campaign layout rooted at
// campaignsDir. Keys outside the layout or the audio allow-list are
// rejected.
func (e StorageEvent) Item(campaignsDir string) (model.AudioItem, error) {
	parts := strings.Split(strings.Trim(e.Key, "/"), "/")
	if len(parts) != 4 || parts[0] != "campaigns" || parts[2] != "audios" {
		return model.AudioItem{}, fmt.Errorf("%w: unexpected object key %q", model.ErrInvalidInput, e.Key)
	}
	name, file := parts[1], parts[3]
	if !campaign.IsAudioFile(file) {
		return model.AudioItem{}, fmt.Errorf("%w: %q is not a supported recording", model.ErrInvalidInput, file)
	}
	return model.AudioItem{
		Campaign: name,
		File:     file,
		Path:     filepath.Join(campaignsDir, name, "audios", file),
	}, nil
}

// Handler processes one recording announced by a storage event.
type Handler func(ctx context.Context, item model.AudioItem)

type Client struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

func NewClient(ctx context.Context, url, token string) (*Client, error) {
	log := logging.NewLogger(ctx)

	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("nats_disconnected error=%v", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Infof("nats_reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Client{conn: conn}, nil
}

// SubscribeStorageEvents feeds every valid object-created event on subject to
// the handler. Malformed payloads and keys outside the campaign layout are
// logged and dropped; the subscription stays alive.
func (c *Client) SubscribeStorageEvents(ctx context.Context, subject, campaignsDir string, handler Handler) error {
	log := logging.NewLogger(ctx)

	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		event := StorageEvent{}
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Warnf("storage_event_malformed subject=%q error=%v", msg.Subject, err)
			return
		}
		item, err := event.Item(campaignsDir)
		if err != nil {
			log.Warnf("storage_event_skipped subject=%q key=%q error=%v", msg.Subject, event.Key, err)
			return
		}
		handler(ctx, item)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	log.Infof("subscribed subject=%q", subject)
	return nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
