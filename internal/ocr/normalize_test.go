package ocr

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitLanguages(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"en", []string{"en"}},
		{"en,ch_sim", []string{"en", "ch_sim"}},
		{"en, ch_sim ;ja", []string{"en", "ch_sim", "ja"}},
		{"ch_sim，en；ko", []string{"ch_sim", "en", "ko"}},
		{"en\tja\nko", []string{"en", "ja", "ko"}},
		{"en,en, ja,en", []string{"en", "ja"}},
		{"", []string{"ch_sim", "en"}},
		{" ,;， ", []string{"ch_sim", "en"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, SplitLanguages(tt.in))
		})
	}
}

func TestSplitLanguagesDefaultIsACopy(t *testing.T) {
	langs := SplitLanguages("")
	langs[0] = "xx"
	require.Equal(t, []string{"ch_sim", "en"}, DefaultLanguages)
}

func TestExpandHome(t *testing.T) {
	t.Setenv(homeEnv(), "/home/tester")

	require.Equal(t, "/home/tester", ExpandHome("~"))
	require.Equal(t, filepath.Join("/home/tester", "models"), ExpandHome("~/models"))
	require.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	require.Equal(t, "relative/~", ExpandHome("relative/~"))
	require.Equal(t, "~other/x", ExpandHome("~other/x"))
}

func TestExpandHomeUnset(t *testing.T) {
	t.Setenv(homeEnv(), "")

	require.Equal(t, "~/models", ExpandHome("~/models"))
	require.Equal(t, "~", ExpandHome("~"))
}
