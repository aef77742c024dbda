package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"picture/internal/fileutil"
	"picture/internal/logging"
	"picture/internal/picture"
	"picture/internal/tag"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "render <directive...>",
		Short: "Render one picture directive to markup",
		Long: "Render one picture directive to markup.\n\nDirective syntax:\n  " + tag.Usage +
			"\n\nThe surrounding {% picture %} delimiters are optional.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			directive, err := tag.Parse(stripDelimiters(strings.Join(args, " ")))
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *picture.Service) error {
				res, err := svc.Renderer.Render(cmd.Context(), directive)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, res)
				}
				_, err = io.WriteString(cmd.OutOrStdout(), res.Markup)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the render result as JSON")
	return cmd
}

func newPageCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "page <file>",
		Short: "Replace every picture directive in a page",
		Long:  "Replace every {% picture ... %} directive in a page with rendered markup.\nUse - to read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *picture.Service) error {
				rendered, err := svc.Renderer.RenderDocument(cmd.Context(), doc)
				if err != nil {
					return err
				}
				target := strings.TrimSpace(outputPath)
				if target == "" || target == "-" {
					_, err = io.WriteString(cmd.OutOrStdout(), rendered)
					return err
				}
				if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
				if _, err := fileutil.WriteAtomic(target, 0o644, func(f *os.File) error {
					_, err := io.WriteString(f, rendered)
					return err
				}); err != nil {
					return fmt.Errorf("write %s: %w", target, err)
				}
				ctx.logger.Info("rendered page",
					logging.String(logging.FieldComponent, "cli"),
					logging.String("input", args[0]),
					logging.String("output", target),
					logging.Int("directives", tag.Count(doc)),
				)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the rendered page to this file instead of stdout")
	return cmd
}

func readInput(cmd *cobra.Command, name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("page %s not found", name)
		}
		return "", fmt.Errorf("read page: %w", err)
	}
	return string(data), nil
}

// stripDelimiters accepts a directive with or without its {% picture %} wrapper.
func stripDelimiters(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{%") {
		return text
	}
	text = strings.TrimPrefix(strings.TrimPrefix(text, "{%"), "-")
	text = strings.TrimSuffix(strings.TrimSuffix(text, "%}"), "-")
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimPrefix(text, "picture"))
}
