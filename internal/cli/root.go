// Package cli is the gptdesk command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/gptdesk/internal/config"
	"github.com/r9s-ai/gptdesk/internal/models"
	"github.com/r9s-ai/gptdesk/pkg/gpt"
)

// ConfigEnv names the variable consulted when --config is not given.
const ConfigEnv = "GPTDESK_CONFIG"

// Run executes the command line in args.
func Run(ctx context.Context, args []string) error {
	root := newRootCmd(&app{stdin: os.Stdin, stdout: os.Stdout})
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

type app struct {
	cfgPath string
	stdin   io.Reader
	stdout  io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gptdesk",
		Short:         "Client for OpenAI-compatible generative AI APIs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config yaml path (default "+config.DefaultPath+" when present)")
	cmd.AddCommand(
		newChatCmd(a),
		newCompleteCmd(a),
		newEmbedCmd(a),
		newImageCmd(a),
		newSpeechCmd(a),
		newTranscribeCmd(a),
		newTranslateCmd(a),
		newFilesCmd(a),
		newVectorsCmd(a),
		newFineTuneCmd(a),
		newAssistantsCmd(a),
		newModelsCmd(a),
		newServeCmd(a),
		newDumpsCmd(a),
		newCryptoCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// configPath picks --config, then GPTDESK_CONFIG, then gptdesk.yaml when it
// exists. An empty result means environment-only configuration.
func (a *app) configPath() string {
	if p := strings.TrimSpace(a.cfgPath); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(ConfigEnv)); p != "" {
		return p
	}
	if _, err := os.Stat(config.DefaultPath); err == nil {
		return config.DefaultPath
	}
	return ""
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// session is what a vendor-calling command needs.
type session struct {
	cfg     *config.Config
	client  *gpt.Client
	catalog *models.Catalog
	closer  io.Closer
}

func (a *app) open() (*session, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, closer, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}
	catalog, err := models.Load(cfg.Models.File)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("load models: %w", err)
	}
	gcfg := cfg.GPTConfig(logger)
	gcfg.Cost = catalog.Cost
	client, err := gpt.New(gcfg)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	return &session{cfg: cfg, client: client, catalog: catalog, closer: closer}, nil
}

func (s *session) Close() error { return s.closer.Close() }

// withSession runs fn against a freshly opened session.
func (a *app) withSession(fn func(s *session) error) error {
	s, err := a.open()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return fn(s)
}

// set copies v into dst when the flag was given on the command line.
func set[T any](cmd *cobra.Command, name string, dst *T, v T) {
	if cmd.Flags().Changed(name) {
		*dst = v
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// inputText joins args, or reads all of stdin when args are empty.
func inputText(args []string, in io.Reader, what string) (string, error) {
	if len(args) > 0 {
		s := strings.TrimSpace(strings.Join(args, " "))
		if s == "" {
			return "", fmt.Errorf("%s is empty", what)
		}
		return s, nil
	}
	if in == nil || isTerminalReader(in) {
		return "", fmt.Errorf("%s is required (argument or stdin)", what)
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read %s from stdin: %w", what, err)
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", fmt.Errorf("%s is empty", what)
	}
	return s, nil
}

func isTerminalReader(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
