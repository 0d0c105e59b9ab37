package ocr

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultLanguages is used when the configured language list is empty
var DefaultLanguages = []string{"ch_sim", "en"}

// SplitLanguages splits a free-form language list on commas, semicolons
// (ASCII and full-width) and whitespace. Empty tokens and repeats are
// dropped. An empty result yields DefaultLanguages so a run is never blocked
// by an unset language field.
func SplitLanguages(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', '，', ';', '；':
			return true
		}
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '　'
	})

	seen := make(map[string]bool, len(fields))
	langs := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		langs = append(langs, f)
	}

	if len(langs) == 0 {
		return append([]string(nil), DefaultLanguages...)
	}
	return langs
}

// homeEnv is the environment variable holding the user's home directory
func homeEnv() string {
	if runtime.GOOS == "windows" {
		return "USERPROFILE"
	}
	return "HOME"
}

// ExpandHome replaces a leading "~" or "~/" with the home directory taken
// from the environment. The path is returned unchanged when the variable is
// unset.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !(runtime.GOOS == "windows" && strings.HasPrefix(path, `~\`)) {
		return path
	}

	home := os.Getenv(homeEnv())
	if home == "" {
		return path
	}

	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
