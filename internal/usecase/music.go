package usecase

import (
	"context"

	"github.com/hszk-dev/mediacache/internal/domain/model"
)

// MusicRecognizer identifies the track in an audio or video clip.
// It returns nil when nothing was recognised; it never fails.
// *recognizer.Recognizer satisfies this interface.
type MusicRecognizer interface {
	Recognize(ctx context.Context, clipPath string) *model.MusicMatch
}
