package normalize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultConverter is the external HEIF decoder looked up on PATH when no
// explicit converter path is configured.
const DefaultConverter = "heif-convert"

// isHighEfficiency detects HEIC/HEIF input by MIME substring or filename
// suffix, case-insensitively.
func isHighEfficiency(mimeType, filename string) bool {
	mt := strings.ToLower(mimeType)
	if strings.Contains(mt, "heic") || strings.Contains(mt, "heif") {
		return true
	}
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".heic") || strings.HasSuffix(name, ".heif")
}

func (n *Normalizer) converter() string {
	if n.ConverterPath != "" {
		return n.ConverterPath
	}
	return DefaultConverter
}

// convertToJPEG shells out to the external decoder. The decoder writes
// out.jpg for a single image and out-1.jpg, out-2.jpg, ... for multi-frame
// files; only the first frame is kept.
func (n *Normalizer) convertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "platebook-heif-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.heic")
	out := filepath.Join(dir, "out.jpg")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, n.converter(), in, out)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", n.converter(), err, strings.TrimSpace(string(output)))
	}

	for _, candidate := range []string{out, filepath.Join(dir, "out-1.jpg")} {
		converted, err := os.ReadFile(candidate)
		if err == nil && len(converted) > 0 {
			return converted, nil
		}
	}
	return nil, errors.New("converter produced no output")
}
