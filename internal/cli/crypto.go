package cli

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/gptdesk/internal/keystore"
)

func newCryptoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crypto",
		Short: "Crypto and key helpers",
	}
	cmd.AddCommand(
		newCryptoEncryptCmd(),
		newCryptoEncryptKeysCmd(a),
		newCryptoGenMasterKeyCmd(),
	)
	return cmd
}

func newCryptoEncryptCmd() *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt plaintext to ENC[v1:aesgcm:...]",
		RunE: func(cmd *cobra.Command, args []string) error {
			plain, err := resolveEncryptPlaintext(strings.TrimSpace(text), cmd.InOrStdin(), isTerminalReader(cmd.InOrStdin()))
			if err != nil {
				return err
			}
			if plain == "" {
				return errors.New("missing input: provide --text, enter a line, or pipe stdin")
			}
			out, err := keystore.Encrypt(plain)
			if err != nil {
				return fmt.Errorf("encrypt: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "plain text to encrypt (if empty, read from stdin)")
	return cmd
}

// resolveEncryptPlaintext prefers text, then one line from a terminal, then
// all of piped stdin.
func resolveEncryptPlaintext(text string, in io.Reader, inTerminal bool) (string, error) {
	plain := strings.TrimSpace(text)
	if plain != "" {
		return plain, nil
	}
	if in == nil {
		return "", nil
	}

	if inTerminal {
		r := bufio.NewReader(in)
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	b, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func newCryptoEncryptKeysCmd(a *app) *cobra.Command {
	var (
		keysPath string
		backup   bool
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "encrypt-keys",
		Short: "Encrypt plaintext access key values in the keys file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(keysPath)
			if path == "" {
				cfg, err := a.loadConfig()
				if err != nil {
					return err
				}
				path = strings.TrimSpace(cfg.Server.KeysFile)
			}
			if path == "" {
				return errors.New("no keys file: pass --keys or set server.keys_file")
			}
			// #nosec G304 -- path is given by the operator.
			b, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("load keys: %w", err)
			}
			out, n, err := keystore.EncryptAccessKeys(b)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if n == 0 {
				_, err = fmt.Fprintln(w, "encrypt-keys: no plaintext value found")
				return err
			}
			if dryRun {
				_, err = fmt.Fprintf(w, "encrypt-keys: %d value(s) would be encrypted (dry-run)\n", n)
				return err
			}
			if err := writeAtomic(path, out, backup); err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "encrypt-keys: encrypted %d value(s) in %s\n", n, path)
			return err
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&keysPath, "keys", "", "keys yaml path (default server.keys_file)")
	fs.BoolVar(&backup, "backup", true, "backup the keys file before saving")
	fs.BoolVar(&dryRun, "dry-run", false, "print result without writing file")
	return cmd
}

func newCryptoGenMasterKeyCmd() *cobra.Command {
	var (
		format     string
		exportLine bool
	)
	cmd := &cobra.Command{
		Use:   "gen-master-key",
		Short: "Generate a random " + keystore.MasterKeyEnv,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := keystore.GenerateMasterKey()
			if err != nil {
				return fmt.Errorf("generate random key: %w", err)
			}
			out, err := formatMasterKey(key, format)
			if err != nil {
				return err
			}
			if exportLine {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "export %s='%s'\n", keystore.MasterKeyEnv, out)
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&format, "format", "base64", "output format: base64|base64url")
	fs.BoolVar(&exportLine, "export", false, "print as shell export line")
	return cmd
}

// formatMasterKey re-encodes a std-base64 key.
func formatMasterKey(key, format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "base64":
		return key, nil
	case "base64url":
		b, err := base64.StdEncoding.DecodeString(key)
		if err != nil {
			return "", err
		}
		return base64.RawURLEncoding.EncodeToString(b), nil
	default:
		return "", errors.New("invalid --format, expect base64 or base64url")
	}
}

func writeAtomic(path string, data []byte, backup bool) error {
	p := strings.TrimSpace(path)
	if p == "" {
		return errors.New("missing path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	if backup {
		if old, err := os.ReadFile(p); err == nil { // #nosec G304 -- path is given by the operator.
			bpath := p + ".bak." + time.Now().Format("20060102-150405")
			if err := os.WriteFile(bpath, old, 0o600); err != nil {
				return err
			}
		}
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}
