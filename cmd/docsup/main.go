// docsup batch uploads a local directory tree to a remote document
// account, preserving folder structure and resolving duplicate-name
// conflicts interactively or via policy flags.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/docsup/docsup/internal/config"
	"github.com/docsup/docsup/internal/docs"
	"github.com/docsup/docsup/internal/format"
	"github.com/docsup/docsup/internal/logging"
	"github.com/docsup/docsup/internal/state"
	"github.com/docsup/docsup/internal/uploader"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"
)

var Version = "dev"

type options struct {
	username     string
	password     string
	token        string
	remoteFolder string
	host         string
	protocol     string
	configPath   string

	recursive      bool
	withoutFolders bool
	addAll         bool
	skipAll        bool
	replaceAll     bool
	disableRetries bool
	markReadOnly   bool
	watch          bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "docsup [path]",
		Short: "Batch upload of documents preserving folder structure",
		Long: "docsup mirrors a local directory tree into a remote document account,\n" +
			"creating remote folders on demand and resolving duplicate names.\n\n" +
			"Supported file formats are: " + strings.Join(format.Supported(), ", ") + ".",
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.username, "username", "u", "", "Username for the account.")
	flags.StringVarP(&opts.password, "password", "p", "", "Password for the account.")
	flags.StringVarP(&opts.token, "token", "t", "", "Session token; skips username/password authentication.")
	flags.BoolVarP(&opts.recursive, "recursive", "r", false, "Recursively upload all subfolders.")
	flags.StringVar(&opts.remoteFolder, "remote-folder", "", "The remote folder path to upload the documents, separated by '/'.")
	flags.BoolVar(&opts.withoutFolders, "without-folders", false, "Do not recreate the folder structure remotely.")
	flags.BoolVar(&opts.addAll, "add-all", false, "Upload all documents even if there are already documents with the same names.")
	flags.BoolVar(&opts.skipAll, "skip-all", false, "Skip all documents that already have remote documents with the same names.")
	flags.BoolVar(&opts.replaceAll, "replace-all", false, "Replace all remote documents that have the same names as the uploaded.")
	flags.BoolVar(&opts.disableRetries, "disable-retries", false, "Disable auto-retries of failed uploads.")
	flags.BoolVar(&opts.markReadOnly, "mark-read-only", false, "Mark local directories read-only while they are visited.")
	flags.BoolVar(&opts.watch, "watch", false, "Keep running after the initial pass and upload files as they change.")
	flags.StringVar(&opts.host, "host", "", "Host of the document feed (default "+config.DefaultHost+").")
	flags.StringVar(&opts.protocol, "protocol", "", "Protocol for the feed requests (default "+config.DefaultProtocol+").")
	flags.StringVar(&opts.configPath, "config", "", "Path to the YAML config file (default ~/.docsup/config.yaml).")

	return cmd
}

func run(ctx context.Context, opts *options, args []string) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, opts)

	logger := logging.NewLogger(cfg.Environment)

	policy, err := conflictPolicy(cfg, opts)
	if err != nil {
		return err
	}

	var path string
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		if path, err = promptLine("Path: "); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := docs.NewClient(nil, cfg.BaseURL())
	if err := authenticate(ctx, client, cfg, logger); err != nil {
		return err
	}

	up := uploader.New(client, uploader.Options{
		Recursive:      opts.recursive,
		WithoutFolders: opts.withoutFolders,
		DisableRetries: opts.disableRetries,
		MarkReadOnly:   opts.markReadOnly,
		Policy:         policy,
		Logger:         logger,
	})

	if _, err := up.Upload(ctx, path, opts.remoteFolder); err != nil {
		return err
	}

	if opts.watch {
		logger.Info("watching for changes", slog.String("path", path))
		if err := up.Watch(ctx, path, opts.remoteFolder); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	return nil
}

// applyFlags overlays non-empty flag values onto the config. Flags win
// over environment and config file.
func applyFlags(cfg *config.Config, opts *options) {
	if opts.username != "" {
		cfg.Username = opts.username
	}
	if opts.password != "" {
		cfg.Password = opts.password
	}
	if opts.token != "" {
		cfg.Token = opts.token
	}
	if opts.protocol != "" {
		cfg.Protocol = opts.protocol
	}
	if opts.host != "" {
		cfg.Host = opts.host
	}
}

// conflictPolicy resolves the preset sticky flags from flags and config.
func conflictPolicy(cfg *config.Config, opts *options) (uploader.Policy, error) {
	set := 0
	for _, b := range []bool{opts.addAll, opts.skipAll, opts.replaceAll} {
		if b {
			set++
		}
	}
	if set > 1 {
		return uploader.Policy{}, errors.New("at most one of --add-all, --skip-all, --replace-all may be set")
	}

	if set == 0 {
		switch cfg.Conflict {
		case "add-all":
			opts.addAll = true
		case "skip-all":
			opts.skipAll = true
		case "replace-all":
			opts.replaceAll = true
		}
	}

	return uploader.Policy{
		AddAll:     opts.addAll,
		SkipAll:    opts.skipAll,
		ReplaceAll: opts.replaceAll,
	}, nil
}

// authenticate establishes a session on the client: an explicit token
// if given, otherwise a cached token from the state database, otherwise
// a fresh username/password sign-in (prompting for missing pieces).
func authenticate(ctx context.Context, client *docs.Client, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
		if err := client.ValidateToken(ctx); err != nil {
			logger.Debug("supplied token rejected", slog.String("error", err.Error()))
			return errors.New("authentication error")
		}
		return nil
	}

	var err error
	if cfg.Username == "" {
		if cfg.Username, err = promptLine("Username: "); err != nil {
			return err
		}
	}

	var st *state.State
	if st, err = state.Load(); err != nil {
		logger.Warn("state unavailable, token caching disabled", slog.String("error", err.Error()))
		st = nil
	} else {
		defer st.Close()

		if cached := st.Token(cfg.Username); cached != "" {
			logger.Debug("trying cached token")
			client.SetToken(cached)
			if client.ValidateToken(ctx) == nil {
				logger.Info("authenticated with cached token", slog.String("username", cfg.Username))
				return nil
			}
			client.SetToken("")
			logger.Debug("cached token expired, signing in fresh")
		}
	}

	if cfg.Password == "" {
		if cfg.Password, err = promptPassword("Password: "); err != nil {
			return err
		}
	}

	logger.Info("signing in", slog.String("username", cfg.Username))
	resp, err := client.Signin(ctx, cfg.Username, cfg.Password)
	if err != nil {
		if errors.Is(err, docs.ErrAuthentication) {
			return errors.New("authentication error")
		}
		return err
	}
	logger.Info("signed in", slog.String("name", resp.Name))

	if st != nil {
		if err := st.SetToken(cfg.Username, resp.Token); err != nil {
			logger.Warn("failed to save token", slog.String("error", err.Error()))
		}
	}

	return nil
}

func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no input")
	}

	return strings.TrimSpace(scanner.Text()), nil
}

// promptPassword reads a password without echo when stdin is a
// terminal, falling back to a plain line read otherwise (pipes, tests).
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if terminal.IsTerminal(fd) {
		b, err := terminal.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	return promptLine("")
}
