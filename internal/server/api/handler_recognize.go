package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/emmett/lens/internal/service"
)

type RecognizeRequest struct {
	Path     string         `json:"path,omitempty"`
	Image    string         `json:"image,omitempty"`
	Filename string         `json:"filename,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

func (h *Handler) handleRecognize(w http.ResponseWriter, r *http.Request) {
	req, err := h.readRecognizeRequest(w, r)

	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	settings, err := h.service.Merge(req.Settings)

	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	image, cleanup, err := h.stageImage(r, req)

	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	defer cleanup()

	result, err := h.service.Recognize(r.Context(), image, settings)

	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if req.Path == "" {
		result.Image = req.Filename
	}

	writeJson(w, result)
}

func (h *Handler) readRecognizeRequest(w http.ResponseWriter, r *http.Request) (*RecognizeRequest, error) {
	mediatype, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediatype == "application/json" {
		var req RecognizeRequest

		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, service.MaxImageSize*2)).Decode(&req); err != nil {
			return nil, fmt.Errorf("invalid request: %w", err)
		}

		return &req, nil
	}

	if mediatype == "multipart/form-data" {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, err
		}
	}

	req := &RecognizeRequest{
		Path: r.FormValue("path"),
	}

	settings, err := valueSettings(r)

	if err != nil {
		return nil, err
	}

	req.Settings = settings

	return req, nil
}

func (h *Handler) stageImage(r *http.Request, req *RecognizeRequest) (string, func(), error) {
	if req.Path != "" {
		if err := service.CheckImage(req.Path); err != nil {
			return "", nil, err
		}

		return req.Path, func() {}, nil
	}

	if req.Image != "" {
		return service.StageBase64(req.Image, req.Filename)
	}

	if r.MultipartForm == nil {
		return "", nil, errors.New("either path, image or file is required")
	}

	file, header, err := r.FormFile("file")

	if err != nil {
		return "", nil, err
	}

	defer file.Close()

	req.Filename = header.Filename

	return service.Stage(file, header.Filename)
}

// settingFields are the form fields accepted as settings overrides
var settingFields = map[string]string{
	"languages":       "string",
	"lang":            "string",
	"gpu":             "bool",
	"workers":         "int",
	"decoder":         "string",
	"beam_width":      "int",
	"batch_size":      "int",
	"min_size":        "int",
	"text_threshold":  "float",
	"low_text":        "float",
	"link_threshold":  "float",
	"contrast_ths":    "float",
	"adjust_contrast": "float",
	"add_margin":      "float",
	"paragraph":       "bool",
	"quantize":        "bool",
}

func valueSettings(r *http.Request) (map[string]any, error) {
	settings := map[string]any{}

	for name, kind := range settingFields {
		val := r.FormValue(name)

		if val == "" {
			continue
		}

		key := name

		if name == "lang" {
			key = "languages"
		}

		switch kind {
		case "bool":
			b, err := strconv.ParseBool(val)

			if err != nil {
				return nil, fmt.Errorf("invalid %s: %q", name, val)
			}

			settings[key] = b

		case "int":
			i, err := strconv.Atoi(val)

			if err != nil {
				return nil, fmt.Errorf("invalid %s: %q", name, val)
			}

			settings[key] = i

		case "float":
			f, err := strconv.ParseFloat(val, 64)

			if err != nil {
				return nil, fmt.Errorf("invalid %s: %q", name, val)
			}

			settings[key] = f

		default:
			settings[key] = val
		}
	}

	return settings, nil
}

func valueBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.FormValue(name))
	return b
}
