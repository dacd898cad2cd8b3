package transcoder

import (
	"context"
)

// ClipOutput is the result of an audio clip extraction.
type ClipOutput struct {
	// Path is the generated WAV file.
	Path string
	// Size is the file size in bytes.
	Size int64
}

// Transcoder defines the media conversions the recognizer needs.
type Transcoder interface {
	// ExtractAudioClip decodes the first seconds of any audio or video file into a
	// mono PCM WAV file, the input format recognition providers accept.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - inputPath: Path to the source file (voice note, video note, any container ffmpeg reads)
	//   - outputDir: Directory where clip.wav will be written
	//
	// The output directory must exist before calling this method.
	ExtractAudioClip(ctx context.Context, inputPath, outputDir string) (*ClipOutput, error)
}
