package youtube

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/gavasques/scribesync/quota"
	"github.com/gavasques/scribesync/ratelimit"
)

// Quota costs per Data API call type, in units.
const (
	costChannelsList  = 1
	costPlaylistItems = 1
	costVideosList    = 1
)

// DefaultPageSize is the Data API ceiling for playlistItems.list.
const DefaultPageSize = 50

// Circuit breaker settings for the Data API dispatch path.
const (
	breakerFailureThreshold = 5
	breakerRecoveryTimeout  = 30 * time.Second
)

// Sentinel errors for catalog operations.
var (
	// ErrChannelNotFound indicates the channel does not exist.
	ErrChannelNotFound = errors.New("youtube: channel not found")
	// ErrInvalidChannel indicates the channel reference could not be parsed.
	ErrInvalidChannel = errors.New("youtube: invalid channel reference")
)

var channelIDRegex = regexp.MustCompile(`^UC[\w-]{22}$`)

// FetcherDeps carries the collaborators a DataAPIFetcher gates through.
type FetcherDeps struct {
	// Quota guards the external daily budget. Required.
	Quota *quota.Tracker
	// Limiter is the local fixed-window gate. Required.
	Limiter *ratelimit.Limiter
	// Logger receives fetch diagnostics.
	Logger zerolog.Logger
}

// DataAPIFetcher implements PageFetcher over the YouTube Data API v3
// uploads playlist. Every external call passes the quota tracker and the
// rate limiter before dispatch; a denied gate costs no external call.
// The fetcher never retries internally.
type DataAPIFetcher struct {
	service *youtube.Service
	deps    FetcherDeps
	breaker *gobreaker.CircuitBreaker[any]

	// channel is the reference given at construction: a channel ID
	// ("UC...") or a handle ("@name").
	channel string

	mu              sync.Mutex
	channelID       string
	channelTitle    string
	uploadsPlaylist string
}

// NewDataAPIFetcher creates a fetcher authorized by an API key.
func NewDataAPIFetcher(ctx context.Context, channel, apiKey string, deps FetcherDeps) (*DataAPIFetcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube: api key required")
	}
	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("youtube: create service: %w", err)
	}
	return NewDataAPIFetcherWithService(service, channel, deps)
}

// NewDataAPIFetcherTokenSource creates a fetcher authorized by a bearer
// credential. The token source is treated as opaque; refreshing expired
// credentials is the auth collaborator's job.
func NewDataAPIFetcherTokenSource(ctx context.Context, channel string, ts oauth2.TokenSource, deps FetcherDeps) (*DataAPIFetcher, error) {
	if ts == nil {
		return nil, fmt.Errorf("youtube: token source required")
	}
	service, err := youtube.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("youtube: create service: %w", err)
	}
	return NewDataAPIFetcherWithService(service, channel, deps)
}

// NewDataAPIFetcherWithService creates a fetcher over a pre-built
// service. Useful for tests with a stubbed transport.
func NewDataAPIFetcherWithService(service *youtube.Service, channel string, deps FetcherDeps) (*DataAPIFetcher, error) {
	if deps.Quota == nil || deps.Limiter == nil {
		return nil, fmt.Errorf("youtube: quota tracker and rate limiter required")
	}

	f := &DataAPIFetcher{
		service: service,
		deps:    deps,
		channel: strings.TrimSpace(channel),
	}
	f.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "youtube-data-api",
		Timeout: breakerRecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		// Only transport-level failures count against the breaker; auth
		// and quota denials say nothing about service health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return !classify(err).IsTransient()
		},
	})
	return f, nil
}

// ChannelID returns the resolved channel ID, empty before the first
// successful fetch.
func (f *DataAPIFetcher) ChannelID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channelID
}

// ChannelTitle returns the resolved channel display name, empty before
// the first successful fetch.
func (f *DataAPIFetcher) ChannelTitle() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channelTitle
}

// FetchPage fetches one page of the channel's uploads playlist. An empty
// cursor means the first page. All failures are reported as *FetchError.
func (f *DataAPIFetcher) FetchPage(ctx context.Context, cursor string, cfg FetchConfig) (*PageResult, error) {
	if err := f.ensureResolved(ctx); err != nil {
		return nil, err
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}

	f.mu.Lock()
	playlistID := f.uploadsPlaylist
	channelID := f.channelID
	f.mu.Unlock()

	var resp *youtube.PlaylistItemListResponse
	err := f.dispatch(ctx, costPlaylistItems, func() error {
		call := f.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(pageSize).
			Context(ctx)
		if cursor != "" {
			call = call.PageToken(cursor)
		}
		var err error
		resp, err = call.Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &PageResult{
		Items:      make([]CatalogItem, 0, len(resp.Items)),
		NextCursor: resp.NextPageToken,
	}
	if resp.PageInfo != nil {
		page.TotalEstimate = int(resp.PageInfo.TotalResults)
	}

	for _, item := range resp.Items {
		ci := CatalogItem{Type: ItemTypeRegular}
		if item.ContentDetails != nil {
			ci.ID = item.ContentDetails.VideoId
		}
		if item.Snippet != nil {
			ci.Title = item.Snippet.Title
			ci.Description = item.Snippet.Description
			if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
				ci.PublishedAt = t
			}
		}
		if ci.ID == "" {
			continue
		}
		page.Items = append(page.Items, ci)
	}

	if cfg.SyncMetadata && len(page.Items) > 0 {
		if err := f.hydrateMetadata(ctx, page); err != nil {
			return nil, err
		}
	}

	f.deps.Logger.Debug().
		Str("channel", channelID).
		Int("items", len(page.Items)).
		Bool("has_next", page.NextCursor != "").
		Msg("page fetched")

	return page, nil
}

// ensureResolved resolves the channel reference to its uploads playlist
// once, caching the result across pages (saves one unit per page).
func (f *DataAPIFetcher) ensureResolved(ctx context.Context) error {
	f.mu.Lock()
	resolved := f.uploadsPlaylist != ""
	f.mu.Unlock()
	if resolved {
		return nil
	}

	// Validate the reference before touching the service: a malformed
	// channel never costs a network call.
	isID := channelIDRegex.MatchString(f.channel)
	if !isID && !strings.HasPrefix(f.channel, "@") {
		return &FetchError{Kind: KindUnknown, Err: fmt.Errorf("%w: %q", ErrInvalidChannel, f.channel)}
	}

	call := f.service.Channels.List([]string{"contentDetails", "snippet"})
	if isID {
		call = call.Id(f.channel)
	} else {
		call = call.ForHandle(f.channel)
	}

	var resp *youtube.ChannelListResponse
	err := f.dispatch(ctx, costChannelsList, func() error {
		var err error
		resp, err = call.Context(ctx).Do()
		return err
	})
	if err != nil {
		return err
	}

	if len(resp.Items) == 0 {
		return &FetchError{Kind: KindUnknown, Err: fmt.Errorf("%w: %q", ErrChannelNotFound, f.channel)}
	}

	channel := resp.Items[0]
	f.mu.Lock()
	f.channelID = channel.Id
	if channel.Snippet != nil {
		f.channelTitle = channel.Snippet.Title
	}
	if channel.ContentDetails != nil && channel.ContentDetails.RelatedPlaylists != nil {
		f.uploadsPlaylist = channel.ContentDetails.RelatedPlaylists.Uploads
	}
	uploads := f.uploadsPlaylist
	f.mu.Unlock()

	if uploads == "" {
		return &FetchError{Kind: KindUnknown, Err: fmt.Errorf("%w: no uploads playlist", ErrChannelNotFound)}
	}
	return nil
}

// hydrateMetadata fills durations and full descriptions for a page via
// videos.list, then reclassifies Shorts.
func (f *DataAPIFetcher) hydrateMetadata(ctx context.Context, page *PageResult) error {
	ids := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		ids = append(ids, item.ID)
	}

	var resp *youtube.VideoListResponse
	err := f.dispatch(ctx, costVideosList, func() error {
		var err error
		resp, err = f.service.Videos.List([]string{"contentDetails", "snippet"}).
			Id(ids...).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return err
	}

	byID := make(map[string]*youtube.Video, len(resp.Items))
	for _, v := range resp.Items {
		byID[v.Id] = v
	}

	for i := range page.Items {
		v, ok := byID[page.Items[i].ID]
		if !ok {
			continue
		}
		if v.ContentDetails != nil {
			page.Items[i].Duration = parseISODuration(v.ContentDetails.Duration)
		}
		if v.Snippet != nil && v.Snippet.Description != "" {
			page.Items[i].Description = v.Snippet.Description
		}
		page.Items[i].Type = classifyItem(page.Items[i].Duration)
	}
	return nil
}

// dispatch runs one external call: gate, breaker-wrapped execution, then
// usage accounting. A denied gate makes no network call.
func (f *DataAPIFetcher) dispatch(ctx context.Context, cost int, call func() error) error {
	if err := f.gate(ctx, cost); err != nil {
		return err
	}

	_, err := f.breaker.Execute(func() (any, error) {
		return nil, call()
	})
	if err != nil {
		return classify(err)
	}

	// Usage is recorded only after a successful dispatch. A failed
	// persist undercounts by one call, which the tracker tolerates.
	if err := f.deps.Quota.RecordUsage(ctx, cost); err != nil {
		f.deps.Logger.Warn().Err(err).Msg("failed to persist quota usage")
	}
	f.deps.Limiter.Increment()
	return nil
}

// gate checks the quota tracker and the rate limiter, in that order.
func (f *DataAPIFetcher) gate(ctx context.Context, cost int) error {
	if err := f.deps.Quota.CheckAndReserve(ctx, cost); err != nil {
		var qe *quota.ExceededError
		if errors.As(err, &qe) {
			return &FetchError{Kind: KindQuotaExceeded, ResetAt: qe.ResetAt, Err: err}
		}
		return &FetchError{Kind: KindUnknown, Err: err}
	}

	if f.deps.Limiter.IsLimited() {
		return &FetchError{
			Kind:    KindRateLimited,
			ResetAt: time.Now().Add(f.deps.Limiter.RemainingTime()),
		}
	}
	return nil
}

// classify translates transport and API errors into the typed taxonomy.
func classify(err error) *FetchError {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &FetchError{Kind: KindNetwork, Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case hasReason(apiErr, "quotaExceeded", "dailyLimitExceeded"):
			return &FetchError{Kind: KindQuotaExceeded, Err: err}
		case hasReason(apiErr, "rateLimitExceeded", "userRateLimitExceeded") || apiErr.Code == 429:
			return &FetchError{Kind: KindRateLimited, Err: err}
		case apiErr.Code == 401 || apiErr.Code == 403:
			return &FetchError{Kind: KindAuthExpired, Err: err}
		case apiErr.Code >= 500:
			return &FetchError{Kind: KindNetwork, Err: err}
		default:
			return &FetchError{Kind: KindUnknown, Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &FetchError{Kind: KindNetwork, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &FetchError{Kind: KindNetwork, Err: err}
	}

	return &FetchError{Kind: KindUnknown, Err: err}
}

// hasReason reports whether a googleapi error carries any of the given
// reason codes.
func hasReason(err *googleapi.Error, reasons ...string) bool {
	for _, item := range err.Errors {
		for _, reason := range reasons {
			if item.Reason == reason {
				return true
			}
		}
	}
	return false
}
