package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"papermill/internal/apiclient"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var deadline time.Duration
	var callback string

	cmd := &cobra.Command{
		Use:   "convert <file-or-url>",
		Short: "Convert a document through the papermill daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.TrimSpace(args[0])
			if input == "" {
				return fmt.Errorf("input reference required")
			}

			req := apiclient.SubmitRequest{
				DeadlineMs: deadline.Milliseconds(),
				Callback:   strings.TrimSpace(callback),
			}
			if info, err := os.Stat(input); err == nil && !info.IsDir() {
				data, err := os.ReadFile(input)
				if err != nil {
					return fmt.Errorf("read input file: %w", err)
				}
				req.InputRef = filepath.Base(input)
				req.InputBase64 = base64.StdEncoding.EncodeToString(data)
			} else {
				req.InputRef = input
			}

			result, err := ctx.client().Submit(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Accepted {
				fmt.Fprintf(out, "Accepted job %s; outcome will be delivered to %s\n", result.JobID, req.Callback)
				return nil
			}

			target := strings.TrimSpace(outputPath)
			if target == "" {
				target = defaultOutputName(ctx, req.InputRef)
			}
			if err := os.WriteFile(target, result.Artifact, 0o644); err != nil {
				return fmt.Errorf("write artifact: %w", err)
			}
			fmt.Fprintf(out, "Converted %s -> %s (%d bytes in %dms, job %s)\n",
				req.InputRef, target, result.SizeBytes, result.DurationMs, result.JobID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination for the converted artifact")
	cmd.Flags().DurationVar(&deadline, "deadline", 0, "Converter deadline (e.g. 90s); daemon default when unset")
	cmd.Flags().StringVar(&callback, "callback", "", "Callback URL for asynchronous delivery")
	return cmd
}

// defaultOutputName derives the artifact file name from the input reference
// and the configured output format.
func defaultOutputName(ctx *commandContext, inputRef string) string {
	format := "pdf"
	if cfg := ctx.configValue(); cfg != nil && cfg.Converter.OutputFormat != "" {
		format = cfg.Converter.OutputFormat
	}
	base := filepath.Base(strings.TrimRight(inputRef, "/"))
	if idx := strings.IndexAny(base, "?#"); idx >= 0 {
		base = base[:idx]
	}
	if base == "" || base == "." {
		base = "document"
	}
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + "." + format
}
