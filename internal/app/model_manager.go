package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/emmett/lens/internal/models"
	"github.com/emmett/lens/internal/ocr"
)

// ModelManager prints and downloads EasyOCR weights
type ModelManager struct {
	dir string
	out io.Writer
}

// NewModelManager creates a manager for the weights under storage
// (empty for the EasyOCR default location)
func NewModelManager(storage string, out io.Writer) *ModelManager {
	if out == nil {
		out = os.Stdout
	}

	return &ModelManager{
		dir: models.Dir(storage),
		out: out,
	}
}

// Dir returns the models directory
func (m *ModelManager) Dir() string {
	return m.dir
}

func (m *ModelManager) ListModels() error {
	fmt.Fprintf(m.out, "Available models (directory: %s):\n", m.dir)
	fmt.Fprintln(m.out)

	for i, model := range models.AvailableModels {
		fmt.Fprintf(m.out, "%d. %s (%s)\n", i+1, model.Name, model.Kind)
		if len(model.Languages) > 0 {
			fmt.Fprintf(m.out, "   Languages: %s\n", joinLimited(model.Languages, 12))
		}
		fmt.Fprintf(m.out, "   Size:      %s\n", model.Size)
		fmt.Fprintf(m.out, "   Info:      %s\n", model.Description)

		downloaded, _ := models.IsModelDownloaded(m.dir, model.Name)
		if downloaded {
			fmt.Fprintf(m.out, "   Status:    ✓ Downloaded\n")
		} else {
			fmt.Fprintf(m.out, "   Status:    Not downloaded\n")
		}
		fmt.Fprintln(m.out)
	}

	fmt.Fprintln(m.out, "To download a model, use:")
	fmt.Fprintln(m.out, "  lens --download-model <model-name>")
	return nil
}

func (m *ModelManager) ListDownloaded() error {
	downloaded, err := models.ListDownloadedModels(m.dir)
	if err != nil {
		return fmt.Errorf("error listing models: %w", err)
	}

	if len(downloaded) == 0 {
		fmt.Fprintf(m.out, "No models downloaded yet in %s.\n", m.dir)
		fmt.Fprintln(m.out)
		fmt.Fprintln(m.out, "Use 'lens --list-models' to see available models")
		fmt.Fprintln(m.out, "Use 'lens --prefetch' to download the models your languages need")
		return nil
	}

	fmt.Fprintf(m.out, "Downloaded models (%d) in %s:\n", len(downloaded), m.dir)
	fmt.Fprintln(m.out)

	for i, file := range downloaded {
		fmt.Fprintf(m.out, "%d. %s\n", i+1, file)
	}

	return nil
}

func (m *ModelManager) Download(ctx context.Context, name string) error {
	model := models.FindModel(name)
	if model == nil {
		fmt.Fprintf(m.out, "Unknown model '%s'\n", name)
		fmt.Fprintln(m.out, "Use 'lens --list-models' to see available models")
		return fmt.Errorf("unknown model: %s", name)
	}

	downloaded, err := models.IsModelDownloaded(m.dir, name)
	if err != nil {
		return fmt.Errorf("error checking model: %w", err)
	}

	if downloaded {
		fmt.Fprintf(m.out, "Model '%s' is already downloaded.\n", name)
		return nil
	}

	fmt.Fprintf(m.out, "Downloading model: %s (%s)\n", model.Name, model.Size)

	err = models.DownloadModel(ctx, name, m.dir, m.progress)
	if err != nil {
		fmt.Fprintln(m.out)
		return fmt.Errorf("error downloading model: %w", err)
	}

	fmt.Fprintln(m.out)
	fmt.Fprintf(m.out, "✓ Model '%s' downloaded to %s\n", name, m.dir)
	return nil
}

// Prefetch downloads the models a run over languages needs, so the first
// recognition does not stall on EasyOCR's own download
func (m *ModelManager) Prefetch(ctx context.Context, languages string) error {
	names, err := models.ForLanguages(ocr.SplitLanguages(languages))
	if err != nil {
		return err
	}

	for _, name := range names {
		if err := m.Download(ctx, name); err != nil {
			return err
		}
	}

	return nil
}

func (m *ModelManager) progress(downloaded, total int64) {
	if total <= 0 {
		fmt.Fprintf(m.out, "\rProgress: %d bytes", downloaded)
		return
	}

	percent := float64(downloaded) / float64(total) * 100
	fmt.Fprintf(m.out, "\rProgress: %.1f%% (%d/%d bytes)", percent, downloaded, total)
}

func joinLimited(values []string, limit int) string {
	if len(values) <= limit {
		return strings.Join(values, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(values[:limit], ", "), len(values)-limit)
}
