package ocr

import (
	"strconv"
)

// BuildArgs maps settings and an image path to the EasyOCR CLI flags. The
// order and formatting are what the tool's argument parser expects; thresholds
// always carry exactly four decimals.
func BuildArgs(s Settings, image string) []string {
	args := []string{"-l"}
	args = append(args, SplitLanguages(s.Languages)...)

	args = append(args,
		"-f", image,
		"--gpu", pyBool(s.GPU),
		"--workers", strconv.Itoa(s.Workers),
		"--decoder", s.Decoder.String(),
		"--beamWidth", strconv.Itoa(s.BeamWidth),
		"--batch_size", strconv.Itoa(s.BatchSize),
		"--text_threshold", fixed4(s.TextThreshold),
		"--low_text", fixed4(s.LowText),
		"--link_threshold", fixed4(s.LinkThreshold),
		"--contrast_ths", fixed4(s.ContrastThs),
		"--adjust_contrast", fixed4(s.AdjustContrast),
		"--min_size", strconv.Itoa(s.MinSize),
		"--paragraph", pyBool(s.Paragraph),
		"--quantize", pyBool(s.Quantize),
		"--add_margin", fixed4(s.AddMargin),
		"--detail", "1",
	)

	if s.ModelStorageDirectory != "" {
		args = append(args, "--model_storage_directory", ExpandHome(s.ModelStorageDirectory))
	}

	return args
}

// fixed4 formats without consulting the locale
func fixed4(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// pyBool renders a flag value the way Python's argparse setup expects
func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
