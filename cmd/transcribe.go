package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-bot/internal/metrics"
	"github.com/MimeLyc/subtitle-bot/internal/notify"
	"github.com/MimeLyc/subtitle-bot/internal/service"
	"github.com/MimeLyc/subtitle-bot/internal/users"
)

func newTranscribeCommand(cmdCtx *commandContext) *cobra.Command {
	var language string
	var outDir string

	cmd := &cobra.Command{
		Use:   "transcribe <media-file>",
		Short: "Run the subtitle pipeline on a local audio or video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			deps, err := buildPipelineDeps(cfg, metrics.New())
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = filepath.Dir(args[0])
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			store := users.NewMemoryStore()
			languages := users.NewLanguageStore(store, cfg.Pipeline.DefaultLanguage, nil)
			messenger := newLocalMessenger(outDir, cmd.ErrOrStderr())
			deps.Messenger = messenger
			deps.Languages = languages
			deps.Notifier = notify.New(messenger)

			pipeline := service.NewPipeline(service.PipelineConfig{
				WorkDir:        cfg.Pipeline.WorkDir,
				MaxUploadBytes: cfg.Pipeline.MaxUploadBytes,
			}, deps)

			return runLocal(cmd.Context(), pipeline, args[0], language, outDir, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "target language (default from DEFAULT_LANGUAGE)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory for the generated files (default next to the input)")
	return cmd
}

type localRunner interface {
	Run(ctx context.Context, job *service.MediaJob) error
}

func runLocal(ctx context.Context, p localRunner, path, language, outDir string, out io.Writer) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	job := &service.MediaJob{
		ID: "local",
		Attachment: service.Attachment{
			FileID:   path,
			FileName: filepath.Base(path),
			MimeType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
			Size:     info.Size(),
			Kind:     service.AttachmentDocument,
		},
		Language: language,
	}

	runErr := p.Run(ctx, job)
	fmt.Fprintln(out, artifactTable(job, outDir))
	return runErr
}

// artifactTable lists the artifacts with the size of their delivered copy.
func artifactTable(job *service.MediaJob, outDir string) string {
	rows := make([][]string, 0, len(job.Artifacts))
	for _, a := range job.Artifacts {
		size := "-"
		if info, err := os.Stat(filepath.Join(outDir, a.Name)); a.Delivered && err == nil {
			size = humanize.IBytes(uint64(info.Size()))
		}
		delivered := "yes"
		if !a.Delivered {
			delivered = "no"
		}
		rows = append(rows, []string{string(a.Kind), a.Name, size, delivered})
	}
	return renderTable(
		[]string{"Artifact", "File", "Size", "Delivered"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}
