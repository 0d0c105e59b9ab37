package models

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/emmett/lens/internal/ocr"
)

// Kind distinguishes the two stages of the EasyOCR pipeline
type Kind string

const (
	Detector   Kind = "detector"
	Recognizer Kind = "recognizer"
)

// Model represents a set of EasyOCR weights
type Model struct {
	Name        string   `json:"name"`
	Kind        Kind     `json:"kind"`
	Filename    string   `json:"filename"`
	Languages   []string `json:"languages,omitempty"`
	Size        string   `json:"size"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
}

// DetectorName is the text detector every run needs
const DetectorName = "craft"

const releases = "https://github.com/JaidedAI/EasyOCR/releases/download/"

var latinLanguages = []string{
	"af", "az", "bs", "cs", "cy", "da", "de", "en", "es", "et", "fr", "ga",
	"hr", "hu", "id", "is", "it", "ku", "la", "lt", "lv", "mi", "ms", "mt",
	"nl", "no", "oc", "pi", "pl", "pt", "ro", "rs_latin", "sk", "sl", "sq",
	"sv", "sw", "tl", "tr", "uz", "vi",
}

// AvailableModels lists the weights EasyOCR fetches on first use
var AvailableModels = []Model{
	{
		Name:        DetectorName,
		Kind:        Detector,
		Filename:    "craft_mlt_25k.pth",
		Size:        "79M",
		URL:         releases + "pre-v1.1.6/craft_mlt_25k.zip",
		Description: "CRAFT text detector, required for every language",
	},
	{
		Name:        "english_g2",
		Kind:        Recognizer,
		Filename:    "english_g2.pth",
		Languages:   []string{"en"},
		Size:        "14M",
		URL:         releases + "v1.3/english_g2.zip",
		Description: "English recognizer",
	},
	{
		Name:        "latin_g2",
		Kind:        Recognizer,
		Filename:    "latin_g2.pth",
		Languages:   latinLanguages,
		Size:        "14M",
		URL:         releases + "v1.3/latin_g2.zip",
		Description: "Latin script recognizer (French, German, Spanish, ...)",
	},
	{
		Name:        "zh_sim_g2",
		Kind:        Recognizer,
		Filename:    "zh_sim_g2.pth",
		Languages:   []string{"ch_sim", "en"},
		Size:        "21M",
		URL:         releases + "v1.3/zh_sim_g2.zip",
		Description: "Simplified Chinese recognizer",
	},
	{
		Name:        "chinese_tra",
		Kind:        Recognizer,
		Filename:    "chinese.pth",
		Languages:   []string{"ch_tra", "en"},
		Size:        "21M",
		URL:         releases + "pre-v1.1.6/chinese.zip",
		Description: "Traditional Chinese recognizer",
	},
	{
		Name:        "japanese_g2",
		Kind:        Recognizer,
		Filename:    "japanese_g2.pth",
		Languages:   []string{"ja", "en"},
		Size:        "16M",
		URL:         releases + "v1.3/japanese_g2.zip",
		Description: "Japanese recognizer",
	},
	{
		Name:        "korean_g2",
		Kind:        Recognizer,
		Filename:    "korean_g2.pth",
		Languages:   []string{"ko", "en"},
		Size:        "15M",
		URL:         releases + "v1.3/korean_g2.zip",
		Description: "Korean recognizer",
	},
	{
		Name:        "cyrillic_g2",
		Kind:        Recognizer,
		Filename:    "cyrillic_g2.pth",
		Languages:   []string{"ru", "rs_cyrillic", "be", "bg", "uk", "mn", "en"},
		Size:        "14M",
		URL:         releases + "v1.5.0/cyrillic_g2.zip",
		Description: "Cyrillic script recognizer",
	},
	{
		Name:        "arabic",
		Kind:        Recognizer,
		Filename:    "arabic.pth",
		Languages:   []string{"ar", "fa", "ur", "ug", "en"},
		Size:        "20M",
		URL:         releases + "pre-v1.1.6/arabic.zip",
		Description: "Arabic script recognizer",
	},
	{
		Name:        "devanagari",
		Kind:        Recognizer,
		Filename:    "devanagari.pth",
		Languages:   []string{"hi", "mr", "ne", "en"},
		Size:        "20M",
		URL:         releases + "pre-v1.1.6/devanagari.zip",
		Description: "Devanagari script recognizer",
	},
	{
		Name:        "thai",
		Kind:        Recognizer,
		Filename:    "thai.pth",
		Languages:   []string{"th", "en"},
		Size:        "20M",
		URL:         releases + "pre-v1.1.6/thai.zip",
		Description: "Thai recognizer",
	},
}

// Dir returns the directory EasyOCR keeps its weights in. An explicit storage
// directory wins; otherwise EASYOCR_MODULE_PATH and then ~/.EasyOCR are used.
func Dir(storage string) string {
	if storage != "" {
		return ocr.ExpandHome(storage)
	}

	if root := os.Getenv("EASYOCR_MODULE_PATH"); root != "" {
		return filepath.Join(root, "model")
	}

	return ocr.ExpandHome(filepath.Join("~", ".EasyOCR", "model"))
}

// FindModel finds a model by name in the available models list
func FindModel(name string) *Model {
	for _, model := range AvailableModels {
		if model.Name == name {
			return &model
		}
	}
	return nil
}

// ForLanguages returns the names of the models a run over langs needs: the
// detector followed by one recognizer per script. English is covered by
// every recognizer and only selects english_g2 on its own.
func ForLanguages(langs []string) ([]string, error) {
	names := []string{DetectorName}
	seen := map[string]bool{}

	for _, lang := range langs {
		if lang == "en" {
			continue
		}

		model := recognizerFor(lang)
		if model == nil {
			return nil, fmt.Errorf("no model supports language: %s", lang)
		}

		if !seen[model.Name] {
			seen[model.Name] = true
			names = append(names, model.Name)
		}
	}

	if len(names) == 1 {
		names = append(names, "english_g2")
	}

	return names, nil
}

func recognizerFor(lang string) *Model {
	for _, model := range AvailableModels {
		if model.Kind != Recognizer || model.Name == "english_g2" {
			continue
		}
		for _, l := range model.Languages {
			if l == lang {
				return &model
			}
		}
	}
	return nil
}

// IsModelDownloaded checks if a model's weights are present in dir
func IsModelDownloaded(dir, modelName string) (bool, error) {
	model := FindModel(modelName)
	if model == nil {
		return false, fmt.Errorf("unknown model: %s", modelName)
	}

	info, err := os.Stat(filepath.Join(dir, model.Filename))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return !info.IsDir(), nil
}

// ListDownloadedModels lists the weight files present in dir
func ListDownloadedModels(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	files := []string{}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".pth") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	return files, nil
}

// DownloadModel downloads a catalog model into dir
func DownloadModel(ctx context.Context, modelName, dir string, progress func(downloaded, total int64)) error {
	model := FindModel(modelName)
	if model == nil {
		return fmt.Errorf("unknown model: %s", modelName)
	}

	return Download(ctx, http.DefaultClient, *model, dir, progress)
}

// Download fetches the model archive and extracts it into dir
func Download(ctx context.Context, client *http.Client, model Model, dir string, progress func(downloaded, total int64)) error {
	// Create models directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	// Download to temporary file
	tmp, err := os.CreateTemp(dir, model.Name+"-*.zip")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	zipPath := tmp.Name()
	defer os.Remove(zipPath)

	slog.Debug("downloading model", "model", model.Name, "url", model.URL)

	err = fetch(ctx, client, model.URL, tmp, progress)
	tmp.Close()

	if err != nil {
		return err
	}

	if err := extractZip(zipPath, dir); err != nil {
		return fmt.Errorf("failed to extract model: %w", err)
	}

	if model.Filename != "" {
		if _, err := os.Stat(filepath.Join(dir, model.Filename)); err != nil {
			return fmt.Errorf("archive for %s did not contain %s", model.Name, model.Filename)
		}
	}

	slog.Info("model downloaded", "model", model.Name, "dir", dir)
	return nil
}

func fetch(ctx context.Context, client *http.Client, url string, out io.Writer, progress func(downloaded, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	// Copy with progress tracking
	total := resp.ContentLength
	var downloaded int64

	buf := make([]byte, 32*1024) // 32KB buffer
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("failed to write file: %w", writeErr)
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("download error: %w", err)
		}
	}

	return nil
}

// extractZip extracts a zip file to the specified directory
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)

		// Check for ZipSlip vulnerability
		if !strings.HasPrefix(fpath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path: %s", fpath)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fpath), 0755); err != nil {
			return err
		}

		if err := extractFile(f, fpath); err != nil {
			return err
		}
	}

	return nil
}

func extractFile(f *zip.File, path string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
