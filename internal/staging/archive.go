package staging

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"photomesh/internal/fileutil"
	"photomesh/internal/logging"
	"photomesh/internal/services"
)

// imageExtensions lists the still-image formats the reconstruction stages
// accept.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".tif":  {},
	".tiff": {},
	".bmp":  {},
}

// extractArchive unpacks a zip into imagesDir and flattens any nested
// directory structure, since the stage chain expects one flat image folder.
// Non-image entries are skipped.
func (s *Stager) extractArchive(archivePath, imagesDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return services.Wrap(services.ErrInput, "stager", "open archive", archivePath, err)
	}
	defer reader.Close()

	extracted := 0
	skipped := 0
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(entry.Name)
		if strings.HasPrefix(name, ".") || !isImageName(name) {
			skipped++
			continue
		}
		// Entries keep their nested paths here; Flatten collapses them after
		// extraction so collision handling lives in one place.
		target := filepath.Join(imagesDir, filepath.FromSlash(sanitizeEntryPath(entry.Name)))
		if err := extractEntry(entry, target); err != nil {
			return services.Wrap(services.ErrInput, "stager", "extract", entry.Name, err)
		}
		extracted++
	}

	if _, err := fileutil.Flatten(imagesDir); err != nil {
		return services.Wrap(services.ErrInput, "stager", "flatten", imagesDir, err)
	}

	s.logger.Info("archive extracted",
		logging.Int("images", extracted),
		logging.Int("skipped", skipped),
	)
	return nil
}

// sanitizeEntryPath strips path components that would escape the extraction
// root.
func sanitizeEntryPath(name string) string {
	cleaned := filepath.ToSlash(filepath.Clean("/" + name))
	return strings.TrimPrefix(cleaned, "/")
}

func extractEntry(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	in, err := entry.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return out.Close()
}

func isImageName(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
