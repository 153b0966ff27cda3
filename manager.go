package schedule

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"baltictransit.dev/schedule/downloader"
	"baltictransit.dev/schedule/parse"
	"baltictransit.dev/schedule/storage"
)

const (
	DefaultStaticTimeout = 60 * time.Second
	DefaultStaticMaxSize = 800 << 20 // 800 MB
)

// Manager handles feed lifecycle: retrieval, parsing, persistence and
// handing out Resolvers over stored feeds.
type Manager struct {
	StaticTimeout time.Duration
	StaticMaxSize int
	Downloader    downloader.Downloader
	Logger        *slog.Logger

	storage storage.Storage
}

// Creates a new Manager on top of the given storage.
func NewManager(s storage.Storage) *Manager {
	return &Manager{
		StaticTimeout: DefaultStaticTimeout,
		StaticMaxSize: DefaultStaticMaxSize,

		Downloader: downloader.NewMemoryDownloader(),
		Logger:     slog.Default(),

		storage: s,
	}
}

// Load retrieves a feed archive, parses it into storage and returns a
// Resolver over it. Feeds are keyed by content hash: if the archive at
// the URL has not changed since a previous load, the stored copy is
// reused.
func (m *Manager) Load(ctx context.Context, feedURL string) (*Resolver, error) {
	m.Logger.Info("loading feed", "url", feedURL)

	body, err := m.Downloader.Get(ctx, feedURL, downloader.GetOptions{
		Timeout: m.StaticTimeout,
		MaxSize: m.StaticMaxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving feed at %s: %w", feedURL, err)
	}

	hash := fmt.Sprintf("%x", sha256.Sum256(body))

	// The data we just retrieved may already exist in storage.
	feeds, err := m.storage.ListFeeds(storage.ListFeedsFilter{Hash: hash})
	if err != nil {
		return nil, fmt.Errorf("listing feeds: %w", err)
	}
	if len(feeds) > 0 {
		reader, err := m.storage.GetReader(hash)
		if err == nil {
			m.Logger.Info("feed unchanged, reusing stored copy", "url", feedURL, "hash", hash)
			return NewResolver(reader, feeds[0]), nil
		}
		// Metadata without parsed data (e.g. fresh in-memory
		// storage). Fall through and parse.
	}

	writer, err := m.storage.GetWriter(hash)
	if err != nil {
		return nil, fmt.Errorf("getting writer: %w", err)
	}

	metadata, err := parse.ParseFeed(writer, body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed at %s: %w", feedURL, err)
	}

	metadata.Hash = hash
	metadata.URL = feedURL
	metadata.RetrievedAt = time.Now().UTC()

	err = m.storage.WriteFeedMetadata(metadata)
	if err != nil {
		return nil, fmt.Errorf("writing metadata: %w", err)
	}

	m.Logger.Info("feed parsed",
		"url", feedURL,
		"hash", hash,
		"calendar_start", metadata.CalendarStartDate,
		"calendar_end", metadata.CalendarEndDate,
	)

	reader, err := m.storage.GetReader(hash)
	if err != nil {
		return nil, fmt.Errorf("getting reader: %w", err)
	}

	return NewResolver(reader, metadata), nil
}

// Resolve opens a Resolver over the most recently retrieved stored
// feed for the URL whose calendar covers the given time. No network
// access happens; if nothing in storage qualifies, ErrNoActiveFeed is
// returned.
func (m *Manager) Resolve(feedURL string, when time.Time) (*Resolver, error) {
	feeds, err := m.storage.ListFeeds(storage.ListFeedsFilter{URL: feedURL})
	if err != nil {
		return nil, fmt.Errorf("listing feeds: %w", err)
	}

	sort.Slice(feeds, func(i, j int) bool {
		return feeds[i].RetrievedAt.Before(feeds[j].RetrievedAt)
	})

	day := when.UTC().Format("20060102")

	for i := len(feeds) - 1; i >= 0; i-- {
		feed := feeds[i]
		if feed.CalendarStartDate > day || feed.CalendarEndDate < day {
			continue
		}

		reader, err := m.storage.GetReader(feed.Hash)
		if err != nil {
			m.Logger.Warn("stored feed has no parsed data", "hash", feed.Hash, "error", err)
			continue
		}

		return NewResolver(reader, feed), nil
	}

	return nil, ErrNoActiveFeed
}
