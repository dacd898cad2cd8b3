package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/domain/repository"
)

var (
	// ErrInvalidURL is returned when the input is not an http(s) URL.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrUnsupportedURL is returned when no platform pattern matches the URL.
	ErrUnsupportedURL = errors.New("unsupported URL")
)

// MediaResolver downloads the media behind a URL.
// *extractor.Resolver satisfies this interface.
type MediaResolver interface {
	Resolve(ctx context.Context, rawURL string, platform model.Platform) (*model.AssetDescriptor, error)
}

// Detection is the result of classifying a URL without any I/O.
type Detection struct {
	Valid        bool
	Platform     model.Platform
	Supported    bool
	CanonicalURL string
}

// MediaService is the entry point for link handling.
type MediaService interface {
	// Detect validates rawURL and maps it to a platform and cache key.
	Detect(rawURL string) Detection

	// ResolveMedia downloads rawURL. Failures are ErrInvalidURL, ErrUnsupportedURL
	// or a *model.ClassifiedError. The caller owns the returned descriptor.
	ResolveMedia(ctx context.Context, rawURL string) (*model.AssetDescriptor, error)

	// EnqueueResolve validates rawURL and hands it to a worker.
	EnqueueResolve(ctx context.Context, rawURL, requestedBy string) (uuid.UUID, error)
}

type mediaService struct {
	resolver MediaResolver
	queue    repository.MessageQueue
}

// NewMediaService creates a new MediaService instance.
func NewMediaService(resolver MediaResolver, queue repository.MessageQueue) MediaService {
	return &mediaService{
		resolver: resolver,
		queue:    queue,
	}
}

// Detect is pure.
func (s *mediaService) Detect(rawURL string) Detection {
	rawURL = strings.TrimSpace(rawURL)

	d := Detection{Valid: model.IsValidURL(rawURL)}
	if !d.Valid {
		return d
	}

	d.Platform, d.Supported = model.DetectPlatform(rawURL)
	d.CanonicalURL = model.CanonicalURL(rawURL)
	return d
}

// ResolveMedia validates, detects and resolves.
func (s *mediaService) ResolveMedia(ctx context.Context, rawURL string) (*model.AssetDescriptor, error) {
	d, err := s.detectSupported(rawURL)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, d.CanonicalURL, d.Platform)
}

// EnqueueResolve publishes a ResolveTask for rawURL.
func (s *mediaService) EnqueueResolve(ctx context.Context, rawURL, requestedBy string) (uuid.UUID, error) {
	d, err := s.detectSupported(rawURL)
	if err != nil {
		return uuid.Nil, err
	}

	task := repository.ResolveTask{
		TaskID:      uuid.New(),
		URL:         d.CanonicalURL,
		RequestedBy: requestedBy,
	}
	if err := s.queue.PublishResolveTask(ctx, task); err != nil {
		return uuid.Nil, fmt.Errorf("publish resolve task: %w", err)
	}
	return task.TaskID, nil
}

func (s *mediaService) detectSupported(rawURL string) (Detection, error) {
	d := s.Detect(rawURL)
	if !d.Valid {
		return d, ErrInvalidURL
	}
	if !d.Supported {
		return d, ErrUnsupportedURL
	}
	return d, nil
}
