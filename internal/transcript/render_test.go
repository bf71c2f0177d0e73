package transcript

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberware/ticketbot/internal/domain"
)

func testMessages() []domain.ChannelMessage {
	return []domain.ChannelMessage{
		{
			ID:         "1",
			AuthorName: "alice",
			Content:    "hello <world> & friends",
			CreatedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:         "2",
			AuthorName: "bob",
			CreatedAt:  time.Date(2024, 3, 1, 12, 1, 0, 0, time.UTC),
			Attachments: []domain.MessageAttachment{
				{URL: "https://cdn.example/a.png", Name: "a.png", ContentType: "image/png"},
			},
		},
	}
}

func TestRender_Deterministic(t *testing.T) {
	r := NewRenderer(time.UTC)
	msgs := testMessages()

	first := r.Render(msgs, nil)
	second := r.Render(msgs, nil)
	assert.Equal(t, first, second, "identical input must produce byte-identical output")
}

func TestRender_DoesNotMutateInput(t *testing.T) {
	r := NewRenderer(time.UTC)
	msgs := testMessages()
	original := msgs[0].Content

	r.Render(msgs, map[string]domain.ArchivedAttachment{})
	assert.Equal(t, original, msgs[0].Content)
}

func TestRender_EscapesContentAndNames(t *testing.T) {
	r := NewRenderer(time.UTC)
	out := r.Render([]domain.ChannelMessage{{
		ID:         "1",
		AuthorName: `<script>alert("x")</script>`,
		Content:    "a < b & c > d",
		CreatedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}}, nil)

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "a &lt; b &amp; c &gt; d")
}

func TestRender_EmptyContentPlaceholder(t *testing.T) {
	r := NewRenderer(time.UTC)
	out := r.Render([]domain.ChannelMessage{{
		ID:        "1",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}}, nil)

	assert.Contains(t, out, "(no content)")
}

func TestRender_ImageAttachmentInlined(t *testing.T) {
	r := NewRenderer(time.UTC)
	msgs := []domain.ChannelMessage{{
		ID:        "1",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Attachments: []domain.MessageAttachment{
			{URL: "https://cdn.example/pic.png", Name: "pic.png", ContentType: "image/png"},
		},
	}}
	rewrites := map[string]domain.ArchivedAttachment{
		"https://cdn.example/pic.png": {
			URL:         "https://store.example/tickets/t1/c1/123-ab.png",
			ContentType: "image/png",
			Name:        "pic.png",
		},
	}

	out := r.Render(msgs, rewrites)
	assert.Contains(t, out, `<img src="https://store.example/tickets/t1/c1/123-ab.png"`)
	assert.NotContains(t, out, "https://cdn.example/pic.png",
		"archived attachments must not reference the original host")
}

func TestRender_NonImageAttachmentLinked(t *testing.T) {
	r := NewRenderer(time.UTC)
	out := r.Render([]domain.ChannelMessage{{
		ID:        "1",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Attachments: []domain.MessageAttachment{
			{URL: "https://cdn.example/report.pdf", Name: "report.pdf", ContentType: "application/pdf"},
		},
	}}, nil)

	assert.Contains(t, out, "Attachment:")
	assert.NotContains(t, out, "<img")
}

func TestRender_UnarchivedAttachmentKeepsOriginalURL(t *testing.T) {
	r := NewRenderer(time.UTC)
	out := r.Render([]domain.ChannelMessage{{
		ID:        "1",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Attachments: []domain.MessageAttachment{
			{URL: "https://cdn.example/lost.bin", Name: "lost.bin"},
		},
	}}, map[string]domain.ArchivedAttachment{})

	assert.Contains(t, out, "https://cdn.example/lost.bin",
		"entries missing from the rewrite map fall back to the original link")
}

func TestRender_TimestampInLocation(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)

	r := NewRenderer(warsaw)
	out := r.Render([]domain.ChannelMessage{{
		ID:        "1",
		Content:   "hi",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}}, nil)

	assert.Contains(t, out, "01.03.2024, 13:00:00")
}

func TestGuessContentType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"pic.PNG", "image/png"},
		{"photo.jpeg", "image/jpeg"},
		{"clip.mp4", "video/mp4"},
		{"notes.txt", "text/plain; charset=utf-8"},
		{"archive.zip", "application/octet-stream"},
		{"noextension", "application/octet-stream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GuessContentType(tt.filename), tt.filename)
	}
}
