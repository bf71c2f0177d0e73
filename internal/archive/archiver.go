package archive

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/emberware/ticketbot/internal/domain"
	"github.com/emberware/ticketbot/internal/transcript"
)

// ObjectStore persists attachment bytes under a key and exposes them at a
// public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PublicURL(key string) string
}

// Archiver migrates attachments referenced in a channel's history to durable
// object storage, so transcripts outlive the platform's own (possibly
// expiring) hosting.
type Archiver struct {
	store  ObjectStore
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewArchiver constructs an archiver. A nil store disables archival: Archive
// returns an empty map and transcripts keep the original links.
func NewArchiver(store ObjectStore, client *http.Client, logger *zap.Logger) *Archiver {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Archiver{store: store, client: client, logger: logger, now: time.Now}
}

// Archive fetches each attachment referenced in messages exactly once (dedup
// by original URL within this invocation) and re-uploads it under a
// collision-resistant key. Per-attachment failures are logged and skipped:
// the attachment is omitted from the map and the renderer falls back to the
// original link. The operation as a whole never fails.
func (a *Archiver) Archive(ctx context.Context, messages []domain.ChannelMessage, ticketID, channelID string) map[string]domain.ArchivedAttachment {
	rewrites := make(map[string]domain.ArchivedAttachment)
	if a.store == nil {
		return rewrites
	}

	for _, msg := range messages {
		for _, att := range msg.Attachments {
			if _, ok := rewrites[att.URL]; ok {
				continue
			}

			name := att.Name
			if name == "" {
				name = "file"
			}
			contentType := att.ContentType
			if contentType == "" {
				contentType = transcript.GuessContentType(name)
			}

			body, err := a.fetch(ctx, att.URL)
			if err != nil {
				a.logger.Warn("attachment fetch failed",
					zap.String("url", att.URL), zap.Error(err))
				continue
			}

			key := a.objectKey(ticketID, channelID, name)
			if err := a.store.Put(ctx, key, bytes.NewReader(body), int64(len(body)), contentType); err != nil {
				a.logger.Warn("attachment upload failed",
					zap.String("url", att.URL), zap.String("key", key), zap.Error(err))
				continue
			}

			rewrites[att.URL] = domain.ArchivedAttachment{
				URL:         a.store.PublicURL(key),
				ContentType: contentType,
				Name:        name,
			}
		}
	}
	return rewrites
}

func (a *Archiver) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// objectKey namespaces by ticket and channel and appends a timestamp plus a
// random suffix so re-archival runs never collide.
func (a *Archiver) objectKey(ticketID, channelID, filename string) string {
	suffix := make([]byte, 8)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("tickets/%s/%s/%d-%s%s",
		ticketID, channelID, a.now().UnixMilli(), hex.EncodeToString(suffix), path.Ext(filename))
}
