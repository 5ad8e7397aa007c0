package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/paddy.report/internal/calibration"
	"github.com/banshee-data/paddy.report/internal/monitoring"
	"github.com/banshee-data/paddy.report/internal/security"
)

// WriteAll writes <name>_reliability.png, <name>_nll.png and <name>.html
// into dir and returns the paths written. name is sanitized.
func WriteAll(dir, name string, r calibration.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	base := filepath.Join(dir, security.SanitizeFilename(name))

	reliability := base + "_reliability.png"
	if err := WriteReliabilityPNG(reliability, r); err != nil {
		return nil, err
	}
	nll := base + "_nll.png"
	if err := WriteNLLCurvePNG(nll, r); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteHTML(&buf, r); err != nil {
		return nil, err
	}
	page := base + ".html"
	if err := os.WriteFile(page, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", page, err)
	}

	written := []string{reliability, nll, page}
	monitoring.Logf("[Report] Wrote %d files to %s", len(written), dir)
	return written, nil
}
