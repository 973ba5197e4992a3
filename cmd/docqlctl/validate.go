package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/querycanvas/langservice/internal/service"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a DocQL or GraphQL document and print its diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0])
		},
	}
	return cmd
}

func runValidate(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("docqlctl: load config: %w", err)
	}

	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("docqlctl: read %s: %w", path, err)
	}

	f := service.New(languageFor(path), cfg, offlineServer{})
	ctx := context.Background()
	if err := f.Initialize(ctx); err != nil {
		return fmt.Errorf("docqlctl: initialize: %w", err)
	}
	defer f.Dispose()

	if err := f.UpdateDocument(string(text)); err != nil {
		return fmt.Errorf("docqlctl: update document: %w", err)
	}

	result, err := f.Validate(ctx)
	if err != nil {
		return fmt.Errorf("docqlctl: validate: %w", err)
	}

	if result.Valid {
		fmt.Fprintln(cmd.OutOrStdout(), "ok: no errors")
	}
	for _, d := range result.Errors {
		fmt.Fprintf(cmd.OutOrStdout(), "error [%s]: %s (%d-%d)\n", d.Code, d.Message, d.StartOffset, d.EndOffset)
	}
	for _, d := range result.Warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "warning [%s]: %s (%d-%d)\n", d.Code, d.Message, d.StartOffset, d.EndOffset)
	}
	if !result.Valid {
		return fmt.Errorf("docqlctl: %d error(s)", len(result.Errors))
	}
	return nil
}

func languageFor(path string) service.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".graphql", ".gql":
		return service.LanguageGraphQL
	default:
		return service.LanguageDocQL
	}
}
