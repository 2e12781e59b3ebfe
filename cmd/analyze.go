package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/medigen/catalyst/internal/images"
	"github.com/medigen/catalyst/internal/models"
	"github.com/medigen/catalyst/internal/report"
	"github.com/medigen/catalyst/internal/session"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	pdf       bool
	questions []string
	timeout   time.Duration
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <images...>",
		Short: "Analyze images from the command line",
		Long: `Analyzes each distinct image once and prints the report.

Byte-identical or pixel-identical images are analyzed only once. Follow-up
questions are answered about the last analyzed image.`,
		Example: `  # Analyze two scans and export PDF reports
  medigen analyze wound.png wound-closeup.jpg --pdf

  # Ask a follow-up question
  medigen analyze rash.jpg --ask "Is this contagious?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			var exporter session.Exporter
			if opts.pdf {
				exporter = report.NewExporter(cfg.ExportDir)
			}
			machine, err := newMachine(cfg, exporter)
			if err != nil {
				return err
			}

			opts.timeout = cfg.ModelTimeout
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), machine, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.pdf, "pdf", false, "Export a PDF report for every analysis")
	cmd.Flags().StringArrayVar(&opts.questions, "ask", nil, "Follow-up question about the last analysis (repeatable)")

	return cmd
}

// runAnalyze drives one CLI session through the same state machine as the
// web interface. It fails if no image could be analyzed.
func runAnalyze(ctx context.Context, out, errOut io.Writer, machine *session.Machine, paths []string, opts analyzeOptions) error {
	state := session.New(uuid.NewString(), time.Now())

	step := func(action session.Action) error {
		actionCtx := ctx
		if opts.timeout > 0 {
			var cancel context.CancelFunc
			actionCtx, cancel = context.WithTimeout(ctx, opts.timeout)
			defer cancel()
		}
		var err error
		state, err = machine.Dispatch(actionCtx, state, action)
		for _, n := range state.Notices {
			if n.Level != session.LevelSuccess {
				fmt.Fprintf(errOut, "%s: %s\n", n.Level, n.Message)
			}
		}
		return err
	}

	upload := session.Upload{}
	for _, path := range paths {
		img, err := readImageFile(path)
		if err != nil {
			upload.Rejected = append(upload.Rejected, models.ItemError{Filename: path, Err: err.Error()})
			continue
		}
		upload.Images = append(upload.Images, img)
	}
	_ = step(upload)

	analyzed := 0
	for _, img := range state.Uploads {
		if err := step(session.Analyze{Filename: img.Filename}); err != nil {
			continue
		}
		analyzed++

		record := state.Analyses[img.Filename]
		fmt.Fprintf(out, "# Analysis for %s\n\n%s\n\n", img.Filename, record.Text)
		if path, ok := state.Reports[img.Filename]; ok {
			fmt.Fprintf(out, "Report: %s\n\n", path)
		}
	}

	if analyzed == 0 {
		return fmt.Errorf("no image could be analyzed")
	}

	for _, q := range opts.questions {
		if err := step(session.Ask{Question: q}); err != nil {
			continue
		}
		turn := state.Chat[len(state.Chat)-1]
		fmt.Fprintf(out, "Q: %s\nA: %s\n\n", turn.Question, turn.Answer)
	}

	return nil
}

func readImageFile(path string) (models.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	if info.Size() > images.MaxImageSize {
		return models.Image{}, fmt.Errorf("file too large (max %d MB)", images.MaxImageSize>>20)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	return models.Image{Filename: filepath.Base(path), Data: data}, nil
}
