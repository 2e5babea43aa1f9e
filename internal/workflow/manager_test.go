package workflow

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yuklab/yuklab-bot/internal/cache"
	"github.com/yuklab/yuklab-bot/internal/extract"
	"github.com/yuklab/yuklab-bot/internal/model"
	"github.com/yuklab/yuklab-bot/internal/transport"
)

// fakeClient records every transport call and hands out sequential message
// ids.
type fakeClient struct {
	mu     sync.Mutex
	nextID int

	texts      []string
	edits      []string
	deleted    []int
	photoURLs  []string
	videoURLs  []string
	videoFiles []string
	audioFiles []string
	prompts    []string
	copied     []int

	photoErr map[string]error
}

func (f *fakeClient) send(chatID int64) transport.SentMessage {
	f.nextID++
	return transport.SentMessage{ChatID: chatID, MessageID: f.nextID}
}

func (f *fakeClient) SendText(_ context.Context, chatID int64, text string) (transport.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.send(chatID), nil
}

func (f *fakeClient) EditText(_ context.Context, _ int64, _ int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeClient) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeClient) SendPhotoURL(_ context.Context, chatID int64, url string) (transport.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.photoErr[url]; ok {
		return transport.SentMessage{}, err
	}
	f.photoURLs = append(f.photoURLs, url)
	return f.send(chatID), nil
}

func (f *fakeClient) SendVideoURL(_ context.Context, chatID int64, url string) (transport.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videoURLs = append(f.videoURLs, url)
	return f.send(chatID), nil
}

func (f *fakeClient) SendVideoFile(_ context.Context, chatID int64, name string, r io.Reader) (transport.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, _ = io.Copy(io.Discard, r)
	f.videoFiles = append(f.videoFiles, name)
	return f.send(chatID), nil
}

func (f *fakeClient) SendAudioFile(_ context.Context, chatID int64, name string, r io.Reader) (transport.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, _ = io.Copy(io.Discard, r)
	f.audioFiles = append(f.audioFiles, name)
	return f.send(chatID), nil
}

func (f *fakeClient) SendButtons(_ context.Context, chatID int64, text, _ string, _ [][]transport.Button) (transport.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, text)
	return f.send(chatID), nil
}

func (f *fakeClient) CopyMessage(_ context.Context, toChatID, _ int64, messageID int, _ string) (transport.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copied = append(f.copied, messageID)
	return f.send(toChatID), nil
}

func (f *fakeClient) ForwardMessage(_ context.Context, toChatID, _ int64, _ int) (transport.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.send(toChatID), nil
}

func (f *fakeClient) SendChatAction(context.Context, int64, transport.ChatAction) error {
	return nil
}

func (f *fakeClient) React(context.Context, int64, int, string) error { return nil }

func (f *fakeClient) AnswerCallback(context.Context, string) error { return nil }

func (f *fakeClient) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// fakeStore is an in-memory cache.Store with real key matching.
type fakeStore struct {
	mu      sync.Mutex
	records []*model.DownloadRecord
	fwds    []model.ForwardRecord
}

func (f *fakeStore) FindDownload(_ context.Context, key cache.Key) (*model.DownloadRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.UserID != key.UserID || rec.URL != key.URL || rec.Platform != key.Platform {
			continue
		}
		if len(key.MediaTypes) > 0 && !containsType(key.MediaTypes, rec.MediaType) {
			continue
		}
		if key.Height != nil && rec.Height != *key.Height {
			continue
		}
		return rec, nil
	}
	return nil, cache.ErrNotFound
}

func containsType(set []model.MediaType, mt model.MediaType) bool {
	for _, t := range set {
		if t == mt {
			return true
		}
	}
	return false
}

func (f *fakeStore) CreateDownload(_ context.Context, rec *model.DownloadRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) CreateForward(_ context.Context, fwd *model.ForwardRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fwds = append(f.fwds, *fwd)
	return nil
}

func (f *fakeStore) CreateForwards(_ context.Context, fwds []model.ForwardRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fwds = append(f.fwds, fwds...)
	return nil
}

type fakeBeats struct{}

func (fakeBeats) Start(int64, transport.ChatAction) func() { return func() {} }
func (fakeBeats) Stop(int64)                               {}

// fakeYouTube serves canned metadata and materializes real working folders.
type fakeYouTube struct {
	mu        sync.Mutex
	root      string
	meta      *extract.VideoMetadata
	downloads int

	started chan struct{} // closed when Download begins, optional
	block   chan struct{} // Download waits for close, optional
}

func (f *fakeYouTube) FetchMetadata(context.Context, string) (*extract.VideoMetadata, error) {
	return f.meta, nil
}

func (f *fakeYouTube) Download(_ context.Context, _, sourceID string, _ model.Variant) (*extract.Workdir, error) {
	f.mu.Lock()
	f.downloads++
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.block != nil {
		<-f.block
	}
	wd, err := extract.NewWorkdir(f.root, sourceID)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(wd.Path(), "clip.mp4"), []byte("media"), 0o644); err != nil {
		return nil, err
	}
	return wd, nil
}

func (f *fakeYouTube) ExtractAudio(_ context.Context, videoPath string) (string, error) {
	return videoPath, nil
}

func (f *fakeYouTube) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads
}

type fakeInstagram struct {
	meta *extract.PostMetadata
}

func (f *fakeInstagram) FetchMetadata(context.Context, string) (*extract.PostMetadata, error) {
	return f.meta, nil
}

func (f *fakeInstagram) Download(context.Context, string, string) (*extract.Workdir, error) {
	return nil, errors.New("not used")
}

func (f *fakeInstagram) ExtractAudio(context.Context, string) (string, error) {
	return "", errors.New("not used")
}

type fakeTikTok struct{}

func (fakeTikTok) FetchMetadata(context.Context, string) (*extract.ShortVideoMetadata, error) {
	return &extract.ShortVideoMetadata{ID: "tt1", Title: "clip"}, nil
}

func (fakeTikTok) FitsSizeLimit(*extract.ShortVideoMetadata) bool { return true }

func (fakeTikTok) Download(context.Context, string, string, model.Variant) (*extract.Workdir, error) {
	return nil, errors.New("not used")
}

type harness struct {
	m      *Manager
	client *fakeClient
	store  *fakeStore
	yt     *fakeYouTube
	ig     *fakeInstagram
	root   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client := &fakeClient{photoErr: map[string]error{}}
	store := &fakeStore{}
	root := t.TempDir()
	yt := &fakeYouTube{
		root: root,
		meta: &extract.VideoMetadata{
			ID:    "abc",
			Title: "test video",
			Formats: []extract.FormatOption{
				{Label: "720p", Height: 720},
				{Label: "360p", Height: 360},
			},
		},
	}
	ig := &fakeInstagram{}
	m := NewManager(Deps{
		Client:     client,
		Cache:      cache.New(store, client, zap.NewNop()),
		Heartbeats: fakeBeats{},
		YouTube:    yt,
		Instagram:  ig,
		TikTok:     fakeTikTok{},
	}, zap.NewNop())
	return &harness{m: m, client: client, store: store, yt: yt, ig: ig, root: root}
}

func urlMessage(chatID int64) transport.Message {
	return transport.Message{ChatID: chatID, MessageID: 1, UserID: 42}
}

func (h *harness) tap(ctx context.Context, chatID int64, data string) {
	h.m.HandleCallback(ctx, transport.Callback{
		ID: "cb", ChatID: chatID, UserID: 42, Data: data,
	})
}

func TestFreshVideoDownload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	const url = "https://youtube.com/watch?v=abc"

	h.m.HandleURL(ctx, urlMessage(100), url)
	require.True(t, h.m.Active(100), "workflow must wait for a choice")

	h.tap(ctx, 100, cbVideo)
	h.tap(ctx, 100, "q:720")

	assert.False(t, h.m.Active(100))
	assert.Equal(t, 1, h.yt.downloadCount())
	assert.Equal(t, []string{"clip.mp4"}, h.client.videoFiles)

	require.Len(t, h.store.records, 1)
	rec := h.store.records[0]
	assert.Equal(t, model.MediaTypeVideo, rec.MediaType)
	assert.Equal(t, 720, rec.Height)
	assert.Equal(t, url, rec.URL)

	entries, err := os.ReadDir(h.root)
	require.NoError(t, err)
	assert.Empty(t, entries, "working folder must not survive delivery")
}

func TestRepeatRequestReplaysFromCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	const url = "https://youtube.com/watch?v=abc"

	h.m.HandleURL(ctx, urlMessage(100), url)
	h.tap(ctx, 100, cbVideo)
	h.tap(ctx, 100, "q:720")
	require.Equal(t, 1, h.yt.downloadCount())
	require.Len(t, h.store.records, 1)
	originalMsgID := h.store.records[0].MessageID

	h.m.HandleURL(ctx, urlMessage(100), url)
	h.tap(ctx, 100, cbVideo)
	h.tap(ctx, 100, "q:720")

	assert.Equal(t, 1, h.yt.downloadCount(), "cache hit must not re-download")
	assert.Equal(t, []int{originalMsgID}, h.client.copied)
	assert.Len(t, h.store.fwds, 1)
	assert.Len(t, h.store.records, 1)
}

func TestCarouselPartialFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ig.meta = &extract.PostMetadata{
		ID:        "p1",
		Title:     "three photos",
		MediaType: model.MediaTypePost,
		Carousel: []extract.CarouselEntry{
			{ID: "i1", MediaType: model.MediaTypeImage, ImageURL: "https://cdn/1.jpg"},
			{ID: "i2", MediaType: model.MediaTypeImage, ImageURL: "https://cdn/2.jpg"},
			{ID: "i3", MediaType: model.MediaTypeImage, ImageURL: "https://cdn/3.jpg"},
		},
	}
	h.client.photoErr["https://cdn/2.jpg"] = errors.New("flood wait")

	h.m.HandleURL(ctx, urlMessage(200), "https://instagram.com/p/p1/")

	assert.False(t, h.m.Active(200))
	assert.Equal(t, []string{"https://cdn/1.jpg", "https://cdn/3.jpg"}, h.client.photoURLs,
		"remaining items still deliver in order")

	require.Len(t, h.store.records, 1)
	rec := h.store.records[0]
	assert.Equal(t, model.MediaTypePost, rec.MediaType)
	require.Len(t, rec.Carousel, 2)
	assert.Equal(t, "i1", rec.Carousel[0].ItemID)
	assert.Equal(t, "i3", rec.Carousel[1].ItemID)
}

func TestCarouselAllItemsFailing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ig.meta = &extract.PostMetadata{
		ID:        "p1",
		MediaType: model.MediaTypePost,
		Carousel: []extract.CarouselEntry{
			{ID: "i1", MediaType: model.MediaTypeImage, ImageURL: "https://cdn/1.jpg"},
		},
	}
	h.client.photoErr["https://cdn/1.jpg"] = errors.New("down")

	h.m.HandleURL(ctx, urlMessage(200), "https://instagram.com/p/p1/")

	assert.False(t, h.m.Active(200))
	assert.Empty(t, h.store.records, "nothing delivered, nothing persisted")
	assert.Contains(t, h.client.sentTexts(), msgFailed)
}

func TestSecondURLDuringExtraction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	started := make(chan struct{})
	block := make(chan struct{})
	h.yt.started = started
	h.yt.block = block

	h.m.HandleURL(ctx, urlMessage(100), "https://youtube.com/watch?v=abc")
	h.tap(ctx, 100, cbVideo)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.tap(ctx, 100, "q:720")
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("download never started")
	}

	h.m.HandleURL(ctx, urlMessage(100), "https://youtube.com/watch?v=xyz")
	assert.Contains(t, h.client.sentTexts(), msgInProgress)

	close(block)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workflow did not finish")
	}
	assert.Equal(t, 1, h.yt.downloadCount(), "second URL must not start work")
	assert.False(t, h.m.Active(100))
}

func TestCancelFromVariantSelection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.m.HandleURL(ctx, urlMessage(100), "https://youtube.com/watch?v=abc")
	require.True(t, h.m.Active(100))

	h.tap(ctx, 100, cbCancel)

	assert.False(t, h.m.Active(100))
	assert.Contains(t, h.client.sentTexts(), msgCancelled)
	assert.Zero(t, h.yt.downloadCount())
}

func TestRejectedURLs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.m.HandleURL(ctx, urlMessage(100), "ftp://youtube.com/watch")
	assert.Contains(t, h.client.sentTexts(), msgInvalidURL)
	assert.False(t, h.m.Active(100))

	h.m.HandleURL(ctx, urlMessage(100), "https://example.com/video")
	assert.Contains(t, h.client.sentTexts(), msgUnsupported)
	assert.False(t, h.m.Active(100))
}

func TestStaleCallbackIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// no workflow at all
	h.tap(ctx, 100, cbVideo)
	assert.Empty(t, h.client.prompts)
	assert.Zero(t, h.yt.downloadCount())
}

func TestQualityPayloadParsing(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		height int
		ok     bool
	}{
		{"valid", "q:720", 720, true},
		{"no prefix", "720", 0, false},
		{"garbage", "q:abc", 0, false},
		{"negative", "q:-1", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := qualityHeight(tt.data)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.height, h)
		})
	}
}
