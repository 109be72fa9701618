package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/dogcfg/internal/api"
	"github.com/yanizio/dogcfg/internal/config"
	"github.com/yanizio/dogcfg/internal/editor"
	"github.com/yanizio/dogcfg/internal/logger"
	"github.com/yanizio/dogcfg/internal/validate"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (transport failure, bad arguments).
	ExitCodeError = 1
	// ExitCodeInvalid indicates the document has violations and nothing was saved.
	ExitCodeInvalid = 2
)

// invalidError carries the violations that stopped a command.
type invalidError struct {
	violations []validate.Violation
}

func (e *invalidError) Error() string {
	return (&validate.Error{Violations: e.violations}).Error()
}

// exitCode maps an error returned by Execute to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var inv *invalidError
	if errors.As(err, &inv) {
		return ExitCodeInvalid
	}
	return ExitCodeError
}

// options holds persistent flag values.
type options struct {
	apiURL   string
	headers  []string
	timeout  time.Duration
	logLevel string

	log *zap.Logger
}

// newRootCmd builds the command tree.  stdin feeds `-` file arguments.
func newRootCmd(stdin io.Reader) *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "dogcfg",
		Short: "Validate and edit guild configuration documents",
		Long: `dogcfg checks guild configuration YAML against the bot's schema and
moves it to and from the web API.  A document with violations is never
sent; push refuses it and prints every violation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.apiURL, "api-url", "", "web API base URL (default from config client.base_url)")
	pf.StringArrayVarP(&o.headers, "header", "H", nil, `extra request header "Name: value", repeatable`)
	pf.DurationVar(&o.timeout, "timeout", 0, "per-request timeout (default from config client.timeout)")
	pf.StringVar(&o.logLevel, "log-level", "", "debug, info, warn, or error (default from config log.level)")

	root.AddCommand(
		newValidateCmd(o, stdin),
		newPullCmd(o),
		newPushCmd(o, stdin),
	)
	return root
}

// init fills unset flags from configuration and starts the console logger.
func (o *options) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.apiURL == "" {
		o.apiURL = cfg.Client.BaseURL
	}
	if o.timeout == 0 {
		o.timeout = cfg.Client.Timeout
	}
	if o.logLevel == "" {
		o.logLevel = cfg.Log.Level
	}
	if o.log, err = logger.Console(o.logLevel); err != nil {
		return err
	}
	return nil
}

// coordinator builds an editor Coordinator over the API client.
func (o *options) coordinator() (*editor.Coordinator, error) {
	opts := []api.Option{api.WithTimeout(o.timeout)}
	for _, h := range o.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("header %q: want \"Name: value\"", h)
		}
		opts = append(opts, api.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	client, err := api.New(o.apiURL, opts...)
	if err != nil {
		return nil, err
	}
	return editor.New(client, editor.WithLogger(o.log)), nil
}

// printViolations writes one violation per line.
func printViolations(w io.Writer, vs []validate.Violation) {
	for _, v := range vs {
		fmt.Fprintf(w, "  - %s\n", v)
	}
}
