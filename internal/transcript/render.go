package transcript

import (
	"fmt"
	"html"
	"path"
	"strings"
	"time"

	"github.com/emberware/ticketbot/internal/domain"
)

// Renderer turns an ordered message list into a self-contained HTML
// transcript. Render is pure: it never mutates its inputs, has no side
// effects, and produces byte-identical output for identical input.
type Renderer struct {
	loc *time.Location
}

// NewRenderer constructs a renderer. Timestamps are formatted in loc; nil
// defaults to UTC.
func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{loc: loc}
}

// Render emits one block per message, in the order supplied. The caller
// guarantees ascending creation time. Attachments resolve through the
// rewrite map; entries missing from the map fall back to the original
// platform URL.
func (r *Renderer) Render(messages []domain.ChannelMessage, rewrites map[string]domain.ArchivedAttachment) string {
	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		blocks = append(blocks, r.renderMessage(msg, rewrites))
	}
	return strings.Join(blocks, "\n")
}

func (r *Renderer) renderMessage(msg domain.ChannelMessage, rewrites map[string]domain.ArchivedAttachment) string {
	when := msg.CreatedAt.In(r.loc).Format("02.01.2006, 15:04:05")
	who := html.EscapeString(displayName(msg))

	content := ""
	if msg.Content != "" {
		content = html.EscapeString(msg.Content)
	} else {
		content = `<span class="text-gray-500 italic">(no content)</span>`
	}

	attachmentsHTML := ""
	if len(msg.Attachments) > 0 {
		parts := make([]string, 0, len(msg.Attachments))
		for _, att := range msg.Attachments {
			parts = append(parts, renderAttachment(att, rewrites))
		}
		attachmentsHTML = `<div class="text-sm text-gray-800">` + strings.Join(parts, "") + `</div>`
	}

	return fmt.Sprintf(`
<div class="px-6 py-4">
  <div class="flex items-start gap-3">
    <div class="flex-1">
      <div class="flex items-center gap-2">
        <span class="font-semibold text-gray-900">%s</span>
        <span class="text-xs text-gray-500">%s</span>
      </div>
      <div class="message-bubble mt-1 rounded-xl border border-orange-100 bg-orange-50/40 p-3 shadow-sm">
        <div class="message-content" style="white-space:pre-wrap;word-break:break-word;overflow-wrap:anywhere;">
          %s
        </div>
        %s
      </div>
    </div>
  </div>
</div>`, who, when, content, attachmentsHTML)
}

func renderAttachment(att domain.MessageAttachment, rewrites map[string]domain.ArchivedAttachment) string {
	finalURL := att.URL
	name := att.Name
	contentType := att.ContentType

	if archived, ok := rewrites[att.URL]; ok {
		finalURL = archived.URL
		if archived.Name != "" {
			name = archived.Name
		}
		if archived.ContentType != "" {
			contentType = archived.ContentType
		}
	}
	if name == "" {
		name = "file"
	}
	if contentType == "" {
		contentType = GuessContentType(name)
	}

	escapedURL := html.EscapeString(finalURL)
	escapedName := html.EscapeString(name)

	if strings.HasPrefix(contentType, "image/") {
		return fmt.Sprintf(`<div class="mt-2">
  <a href="%s" target="_blank" rel="noopener" class="underline hover:text-flame">%s</a>
  <div class="mt-1"><img src="%s" alt="%s" style="max-width:100%%;height:auto;border-radius:12px;border:1px solid #fde68a;" /></div>
</div>`, escapedURL, escapedName, escapedURL, escapedName)
	}
	return fmt.Sprintf(`<div class="mt-2">
  Attachment: <a href="%s" target="_blank" rel="noopener" class="underline hover:text-flame">%s</a>
</div>`, escapedURL, escapedName)
}

func displayName(msg domain.ChannelMessage) string {
	if msg.AuthorName != "" {
		return msg.AuthorName
	}
	return "User"
}

// GuessContentType maps a filename extension to a content type, falling back
// to a generic binary type.
func GuessContentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
