package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/gptdesk/internal/models"
	"github.com/r9s-ai/gptdesk/pkg/audio"
	"github.com/r9s-ai/gptdesk/pkg/gpt"
	"github.com/r9s-ai/gptdesk/pkg/options"
)

type imageFlags struct {
	model   string
	n       int
	size    string
	quality string
	style   string
	outDir  string
}

func (f *imageFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.model, "model", "m", "", "image model")
	fs.IntVarP(&f.n, "count", "n", 0, "number of images")
	fs.StringVar(&f.size, "size", "", "image size, e.g. 1024x1024")
	fs.StringVar(&f.quality, "quality", "", "standard|hd (dall-e-3)")
	fs.StringVar(&f.style, "style", "", "vivid|natural (dall-e-3)")
	fs.StringVarP(&f.outDir, "out-dir", "o", "", "save images here as png instead of printing URLs")
}

func (f *imageFlags) options(cmd *cobra.Command, s *session) (options.ImageOptions, error) {
	opts := s.cfg.Defaults.Image
	set(cmd, "model", &opts.Model, f.model)
	set(cmd, "count", &opts.N, f.n)
	set(cmd, "size", &opts.Size, f.size)
	set(cmd, "quality", &opts.Quality, f.quality)
	set(cmd, "style", &opts.Style, f.style)
	if strings.TrimSpace(f.outDir) != "" {
		opts.ResponseFormat = "b64_json"
	}
	if err := s.catalog.Check(models.KindImage, opts.Model); err != nil {
		return opts, err
	}
	return opts, nil
}

// emit prints URLs, or decodes and saves b64_json results under outDir.
func (f *imageFlags) emit(cmd *cobra.Command, results []string) error {
	out := cmd.OutOrStdout()
	if strings.TrimSpace(f.outDir) == "" {
		for _, u := range results {
			if _, err := fmt.Fprintln(out, u); err != nil {
				return err
			}
		}
		return nil
	}
	paths, err := saveImages(f.outDir, results)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if _, err := fmt.Fprintln(out, p); err != nil {
			return err
		}
	}
	return nil
}

func saveImages(dir string, b64 []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(b64))
	for i, s := range b64 {
		b, err := gpt.DecodeImage(s)
		if err != nil {
			return paths, fmt.Errorf("image %d: %w", i+1, err)
		}
		p := filepath.Join(dir, fmt.Sprintf("image-%d.png", i+1))
		if err := os.WriteFile(p, b, 0o600); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func readUpload(path string) (gpt.Upload, error) {
	// #nosec G304 -- path is given by the operator.
	b, err := os.ReadFile(path)
	if err != nil {
		return gpt.Upload{}, err
	}
	return gpt.Upload{Name: filepath.Base(path), Data: b}, nil
}

func newImageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Generate, edit and vary images",
	}
	cmd.AddCommand(newImageGenerateCmd(a), newImageEditCmd(a), newImageVariationCmd(a))
	return cmd
}

func newImageGenerateCmd(a *app) *cobra.Command {
	var f imageFlags
	cmd := &cobra.Command{
		Use:   "generate [prompt...]",
		Short: "Generate images from a prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := inputText(args, cmd.InOrStdin(), "prompt")
			if err != nil {
				return err
			}
			return a.withSession(func(s *session) error {
				opts, err := f.options(cmd, s)
				if err != nil {
					return err
				}
				results, err := s.client.GenerateImage(cmd.Context(), opts, prompt)
				if err != nil {
					return err
				}
				return f.emit(cmd, results)
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newImageEditCmd(a *app) *cobra.Command {
	var (
		f         imageFlags
		imagePath string
		maskPath  string
	)
	cmd := &cobra.Command{
		Use:   "edit --image <png> [--mask <png>] <prompt...>",
		Short: "Edit an image following a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := readUpload(imagePath)
			if err != nil {
				return err
			}
			var mask *gpt.Upload
			if strings.TrimSpace(maskPath) != "" {
				m, err := readUpload(maskPath)
				if err != nil {
					return err
				}
				mask = &m
			}
			prompt := strings.Join(args, " ")
			return a.withSession(func(s *session) error {
				opts, err := f.options(cmd, s)
				if err != nil {
					return err
				}
				results, err := s.client.EditImage(cmd.Context(), opts, img, mask, prompt)
				if err != nil {
					return err
				}
				return f.emit(cmd, results)
			})
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&imagePath, "image", "", "source png")
	cmd.Flags().StringVar(&maskPath, "mask", "", "mask png, transparent where to edit")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func newImageVariationCmd(a *app) *cobra.Command {
	var f imageFlags
	cmd := &cobra.Command{
		Use:   "variation <png>",
		Short: "Create variations of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := readUpload(args[0])
			if err != nil {
				return err
			}
			return a.withSession(func(s *session) error {
				opts, err := f.options(cmd, s)
				if err != nil {
					return err
				}
				results, err := s.client.ImageVariation(cmd.Context(), opts, img)
				if err != nil {
					return err
				}
				return f.emit(cmd, results)
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newSpeechCmd(a *app) *cobra.Command {
	var (
		model        string
		voice        string
		format       string
		instructions string
		speed        float64
		outPath      string
	)
	cmd := &cobra.Command{
		Use:   "speech [text...]",
		Short: "Convert text to an audio file",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(args, cmd.InOrStdin(), "text")
			if err != nil {
				return err
			}
			return a.withSession(func(s *session) error {
				opts := s.cfg.Defaults.Speech
				set(cmd, "model", &opts.Model, model)
				set(cmd, "voice", &opts.Voice, voice)
				set(cmd, "format", &opts.ResponseFormat, format)
				set(cmd, "instructions", &opts.Instructions, instructions)
				set(cmd, "speed", &opts.Speed, speed)
				if err := s.catalog.Check(models.KindSpeech, opts.Model); err != nil {
					return err
				}
				b, err := s.client.Speak(cmd.Context(), opts, text)
				if err != nil {
					return err
				}
				path := outPath
				if strings.TrimSpace(path) == "" {
					path = "speech." + opts.ResponseFormat
				}
				if err := os.WriteFile(path, b, 0o600); err != nil {
					return err
				}
				f := audio.File{Name: path, Data: b}
				if d := f.Duration(); d > 0 {
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes, %s)\n", path, len(b), d.Round(100*time.Millisecond))
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes)\n", path, len(b))
				return err
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&model, "model", "m", "", "speech model")
	fs.StringVar(&voice, "voice", "", "voice name")
	fs.StringVar(&format, "format", "", "mp3|opus|aac|flac|wav|pcm")
	fs.StringVar(&instructions, "instructions", "", "voice instructions (gpt-4o-mini-tts)")
	fs.Float64Var(&speed, "speed", 0, "playback speed [0.25,4]")
	fs.StringVarP(&outPath, "out", "o", "", "output file (default speech.<format>)")
	return cmd
}

func readAudio(path string) (audio.File, error) {
	// #nosec G304 -- path is given by the operator.
	f, err := os.Open(path)
	if err != nil {
		return audio.File{}, err
	}
	defer func() { _ = f.Close() }()
	return audio.Read(path, f)
}

func newTranscribeCmd(a *app) *cobra.Command {
	var (
		model    string
		language string
		prompt   string
		format   string
	)
	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe speech in its own language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readAudio(args[0])
			if err != nil {
				return err
			}
			return a.withSession(func(s *session) error {
				opts := s.cfg.Defaults.Transcription
				set(cmd, "model", &opts.Model, model)
				set(cmd, "language", &opts.Language, language)
				set(cmd, "prompt", &opts.Prompt, prompt)
				set(cmd, "format", &opts.ResponseFormat, format)
				if err := s.catalog.Check(models.KindTranscription, opts.Model); err != nil {
					return err
				}
				text, err := s.client.Transcribe(cmd.Context(), opts, f)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&model, "model", "m", "", "transcription model")
	fs.StringVar(&language, "language", "", "ISO-639-1 input language")
	fs.StringVar(&prompt, "prompt", "", "style or vocabulary hint")
	fs.StringVar(&format, "format", "", "json|text|srt|verbose_json|vtt")
	return cmd
}

func newTranslateCmd(a *app) *cobra.Command {
	var (
		model  string
		prompt string
		format string
	)
	cmd := &cobra.Command{
		Use:   "translate <audio-file>",
		Short: "Translate speech into English text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readAudio(args[0])
			if err != nil {
				return err
			}
			return a.withSession(func(s *session) error {
				opts := s.cfg.Defaults.Translation
				set(cmd, "model", &opts.Model, model)
				set(cmd, "prompt", &opts.Prompt, prompt)
				set(cmd, "format", &opts.ResponseFormat, format)
				if err := s.catalog.Check(models.KindTranslation, opts.Model); err != nil {
					return err
				}
				text, err := s.client.Translate(cmd.Context(), opts, f)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&model, "model", "m", "", "translation model")
	fs.StringVar(&prompt, "prompt", "", "style or vocabulary hint")
	fs.StringVar(&format, "format", "", "json|text|srt|verbose_json|vtt")
	return cmd
}
