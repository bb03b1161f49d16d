package staging

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// classify determines the MIME type of the downloaded object: content
// sniffing first, extension as the tiebreak when sniffing is inconclusive.
func classify(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && n == 0 {
		return "", fmt.Errorf("read for sniffing: %w", err)
	}

	sniffed := http.DetectContentType(buf[:n])
	if usable(sniffed) {
		return normalize(sniffed), nil
	}

	byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if byExt != "" {
		return normalize(byExt), nil
	}
	return normalize(sniffed), nil
}

// usable reports whether the sniffed type is specific enough to dispatch on.
// DetectContentType falls back to application/octet-stream or text/plain
// variants when it cannot tell; those defer to the extension.
func usable(contentType string) bool {
	base := normalize(contentType)
	if base == "application/octet-stream" {
		return false
	}
	if strings.HasPrefix(base, "text/plain") {
		return false
	}
	return true
}

func normalize(contentType string) string {
	if media, _, err := mime.ParseMediaType(contentType); err == nil {
		return media
	}
	return strings.TrimSpace(strings.ToLower(contentType))
}
