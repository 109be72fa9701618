package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yanizio/dogcfg/internal/editor"
	"github.com/yanizio/dogcfg/internal/schema"
	"github.com/yanizio/dogcfg/internal/validate"
)

// readInput reads path, or stdin when path is "-".
func readInput(path string, stdin io.Reader) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func newValidateCmd(_ *options, stdin io.Reader) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|->",
		Short: "Check a configuration document against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args[0], stdin)
			if err != nil {
				return err
			}
			res := validate.Text(text, schema.Guild())
			if !res.Valid() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d violation(s)\n", args[0], len(res.Violations))
				printViolations(cmd.OutOrStdout(), res.Violations)
				return &invalidError{violations: res.Violations}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", args[0])
			return nil
		},
	}
}

func newPullCmd(o *options) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "pull <guild>",
		Short: "Print a guild's stored configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			co, err := o.coordinator()
			if err != nil {
				return err
			}
			s, err := co.Open(cmd.Context(), args[0])
			defer s.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", editor.LoadNotice, err)
			}

			snap := s.Snapshot()
			fmt.Fprint(cmd.OutOrStdout(), snap.Text)
			if len(snap.Violations) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "stored document has %d violation(s):\n", len(snap.Violations))
				printViolations(cmd.ErrOrStderr(), snap.Violations)
				if check {
					return &invalidError{violations: snap.Violations}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "exit 2 when the stored document has violations")
	return cmd
}

func newPushCmd(o *options, stdin io.Reader) *cobra.Command {
	return &cobra.Command{
		Use:   "push <guild> <file|->",
		Short: "Validate a document and save it as a guild's configuration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args[1], stdin)
			if err != nil {
				return err
			}
			co, err := o.coordinator()
			if err != nil {
				return err
			}
			s, err := co.Open(cmd.Context(), args[0])
			defer s.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", editor.LoadNotice, err)
			}

			s.Edit(text)
			err = s.Save(cmd.Context())
			switch {
			case errors.Is(err, editor.ErrInvalid):
				snap := s.Snapshot()
				fmt.Fprintf(cmd.ErrOrStderr(), "not saved, %d violation(s):\n", len(snap.Violations))
				printViolations(cmd.ErrOrStderr(), snap.Violations)
				return &invalidError{violations: snap.Violations}
			case err != nil:
				return fmt.Errorf("save failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved configuration for guild %s\n", args[0])
			return nil
		},
	}
}
