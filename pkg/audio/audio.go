// Package audio inspects audio files sent to and received from the speech endpoints.
package audio

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// MaxUploadBytes is the vendor size limit for transcription and translation input.
const MaxUploadBytes = 25 << 20

// decoded PCM from go-mp3 is 16-bit stereo.
const bytesPerFrame = 4

var uploadExts = map[string]string{
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".mp4":  "audio/mp4",
	".mpeg": "audio/mpeg",
	".mpga": "audio/mpeg",
	".oga":  "audio/ogg",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".webm": "audio/webm",
}

// File is an audio upload held in memory.
type File struct {
	Name string
	Data []byte
}

// ContentType guesses the MIME type from the file extension.
func (f File) ContentType() string {
	if ct, ok := uploadExts[strings.ToLower(filepath.Ext(f.Name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Validate checks the upload against the formats and size the endpoints accept.
func (f File) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("audio file name is empty")
	}
	if _, ok := uploadExts[strings.ToLower(filepath.Ext(f.Name))]; !ok {
		return fmt.Errorf("audio file %s: unsupported format %q", f.Name, filepath.Ext(f.Name))
	}
	if len(f.Data) == 0 {
		return fmt.Errorf("audio file %s is empty", f.Name)
	}
	if len(f.Data) > MaxUploadBytes {
		return fmt.Errorf("audio file %s is %d bytes, limit is %d", f.Name, len(f.Data), MaxUploadBytes)
	}
	return nil
}

// Read loads an upload from r, failing once more than MaxUploadBytes are read.
func Read(name string, r io.Reader) (File, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return File{}, fmt.Errorf("read audio %s: %w", name, err)
	}
	f := File{Name: filepath.Base(name), Data: b}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// MP3Duration decodes the stream header and frame table of an mp3 and
// returns its playing time.
func MP3Duration(b []byte) (time.Duration, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(b))
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}
	rate := d.SampleRate()
	n := d.Length()
	if rate <= 0 || n < 0 {
		return 0, fmt.Errorf("decode mp3: unknown length")
	}
	frames := n / bytesPerFrame
	return time.Duration(frames) * time.Second / time.Duration(rate), nil
}

// Duration returns the playing time of f when it is an mp3 and 0 otherwise.
func (f File) Duration() time.Duration {
	if f.ContentType() != "audio/mpeg" {
		return 0
	}
	d, err := MP3Duration(f.Data)
	if err != nil {
		return 0
	}
	return d
}

var speechTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"opus": "audio/ogg",
	"aac":  "audio/aac",
	"flac": "audio/flac",
	"wav":  "audio/wav",
	"pcm":  "audio/L16",
}

// SpeechContentType maps a speech response_format to its MIME type.
func SpeechContentType(format string) string {
	if ct, ok := speechTypes[strings.ToLower(strings.TrimSpace(format))]; ok {
		return ct
	}
	return "application/octet-stream"
}
