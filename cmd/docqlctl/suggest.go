package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/querycanvas/langservice/internal/service"
)

func newSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest <file> <offset>",
		Short: "List completion suggestions at a byte offset in a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("docqlctl: offset must be an integer: %w", err)
			}
			return runSuggest(cmd, args[0], offset)
		},
	}
	return cmd
}

func runSuggest(cmd *cobra.Command, path string, offset int) error {
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

	for _, s := range f.GetSuggestions(offset) {
		fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\t%s\n", s.Kind, s.Label, s.Detail)
	}
	return nil
}
