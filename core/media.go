package core

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var errMediaNotFound = errors.New("fitxer multimèdia no trobat")

// resolveMediaPath busca el fitxer d'un OBJE. Els camins de Windows es
// normalitzen i, si no existeixen tal qual, es proven sota root.
func resolveMediaPath(root, file string) (string, error) {
	file = strings.TrimSpace(file)
	if file == "" {
		return "", errMediaNotFound
	}
	native := filepath.FromSlash(strings.ReplaceAll(file, "\\", "/"))
	candidates := []string{}
	if filepath.IsAbs(native) {
		candidates = append(candidates, native)
	} else if root != "" {
		candidates = append(candidates, filepath.Join(root, native))
	} else {
		candidates = append(candidates, native)
	}
	if root != "" {
		candidates = append(candidates, filepath.Join(root, filepath.Base(native)))
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errMediaNotFound, file)
}

// probeMedia llegeix les dimensions d'una imatge sense descodificar-la.
func probeMedia(root, file string) (int, int, error) {
	p, err := resolveMediaPath(root, file)
	if err != nil {
		return 0, 0, err
	}
	f, err := os.Open(p)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", p, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, errors.New("invalid image")
	}
	return cfg.Width, cfg.Height, nil
}

// isImageFormat indica si FORM (o l'extensió del fitxer) és una imatge que
// sabem mesurar.
func isImageFormat(format, file string) bool {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if f == "" {
		f = strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.ReplaceAll(file, "\\", "/")), "."))
	}
	switch f {
	case "jpg", "jpeg", "png", "gif", "bmp", "tif", "tiff", "webp":
		return true
	}
	return false
}

func parseBoolDefault(val string, fallback bool) bool {
	val = strings.TrimSpace(val)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.ToLower(val))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseIntDefault(val string, fallback int) int {
	val = strings.TrimSpace(val)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSVDefault(val string, fallback []string) []string {
	if strings.TrimSpace(val) == "" {
		return append([]string{}, fallback...)
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return append([]string{}, fallback...)
	}
	return out
}
