package transcoder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// FFmpegConfig holds configuration for the FFmpeg transcoder.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// ClipSeconds is how much audio from the start of the input is kept.
	// Default: 15
	ClipSeconds int

	// SampleRate is the output sample rate in Hz.
	// Default: 44100
	SampleRate int

	// Channels is the number of output channels.
	// Default: 1
	Channels int
}

// DefaultFFmpegConfig returns an FFmpegConfig with production-ready defaults.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		FFmpegPath:  "ffmpeg",
		ClipSeconds: 15,
		SampleRate:  44100,
		Channels:    1,
	}
}

// FFmpegTranscoder implements Transcoder using FFmpeg CLI.
type FFmpegTranscoder struct {
	config FFmpegConfig
}

// Compile-time verification that FFmpegTranscoder implements Transcoder.
var _ Transcoder = (*FFmpegTranscoder)(nil)

// NewFFmpegTranscoder creates a new FFmpeg-based transcoder.
func NewFFmpegTranscoder(cfg FFmpegConfig) *FFmpegTranscoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &FFmpegTranscoder{
		config: cfg,
	}
}

// ExtractAudioClip runs FFmpeg as a subprocess and waits for completion.
func (t *FFmpegTranscoder) ExtractAudioClip(ctx context.Context, inputPath, outputDir string) (*ClipOutput, error) {
	if err := t.validateInput(inputPath); err != nil {
		return nil, err
	}

	if err := t.validateOutputDir(outputDir); err != nil {
		return nil, err
	}

	outputPath := filepath.Join(outputDir, "clip.wav")
	args := t.buildClipArgs(inputPath, outputPath)

	cmd := exec.CommandContext(ctx, t.config.FFmpegPath, args...)
	cmd.Stdout = nil // Discard stdout
	cmd.Stderr = nil // Discard stderr (FFmpeg outputs progress to stderr)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("clip extraction cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	return t.collectClip(outputPath)
}

// validateInput checks if the input file exists and is readable.
func (t *FFmpegTranscoder) validateInput(inputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", inputPath)
		}
		return fmt.Errorf("failed to access input file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("input path is a directory, expected a file: %s", inputPath)
	}

	return nil
}

// validateOutputDir checks if the output directory exists.
func (t *FFmpegTranscoder) validateOutputDir(outputDir string) error {
	info, err := os.Stat(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", outputDir)
		}
		return fmt.Errorf("failed to access output directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("output path is not a directory: %s", outputDir)
	}

	return nil
}

// buildClipArgs constructs the FFmpeg command arguments.
func (t *FFmpegTranscoder) buildClipArgs(inputPath, outputPath string) []string {
	return []string{
		"-i", inputPath,
		"-t", strconv.Itoa(t.config.ClipSeconds),
		"-vn", // Drop any video stream
		"-ac", strconv.Itoa(t.config.Channels),
		"-ar", strconv.Itoa(t.config.SampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		"-y", // Overwrite output files without asking
		outputPath,
	}
}

// collectClip verifies FFmpeg produced a non-empty clip.
func (t *FFmpegTranscoder) collectClip(outputPath string) (*ClipOutput, error) {
	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("clip not generated: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("generated clip is empty")
	}
	return &ClipOutput{Path: outputPath, Size: info.Size()}, nil
}
