package download

import (
	"crypto/sha256"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"podterm/internal/models"
)

// PodcastDirName creates a filesystem-safe directory name from a
// podcast title.
func PodcastDirName(title string) string {
	sanitized := sanitize(title, 255)
	if sanitized == "" {
		// Fall back to a hash when nothing survives sanitization.
		h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(title))))
		return fmt.Sprintf("podcast_%x", h)[:20]
	}
	return sanitized
}

// Filename creates a filesystem-safe file name for an episode. The
// publish date prefixes the name so files sort chronologically and two
// episodes with the same title do not collide.
func Filename(ep models.EpisodeDownload, contentType string) string {
	name := sanitize(ep.Title, 200)
	if name == "" {
		name = fmt.Sprintf("episode_%d", ep.ID)
	}
	if ep.PubDate != nil {
		name = ep.PubDate.Format("20060102") + "_" + name
	}
	return name + extension(ep.URL, contentType)
}

// sanitize replaces everything outside [a-zA-Z0-9 ] with underscores,
// collapses runs, and truncates to maxLen.
func sanitize(s string, maxLen int) string {
	s = strings.TrimSpace(s)

	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	s = b.String()

	s = strings.ReplaceAll(s, "  ", " ")
	s = strings.ReplaceAll(s, " ", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	s = strings.Trim(s, "_")

	if len(s) > maxLen {
		s = strings.Trim(s[:maxLen], "_")
	}
	return s
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".m4b":  true,
	".ogg":  true,
	".opus": true,
	".wav":  true,
	".flac": true,
	".aac":  true,
}

var contentTypeExtensions = map[string]string{
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/mp4":   ".m4a",
	"audio/x-m4a": ".m4a",
	"audio/aac":   ".aac",
	"audio/ogg":   ".ogg",
	"audio/opus":  ".opus",
	"audio/wav":   ".wav",
	"audio/flac":  ".flac",
}

// extension picks a file extension from the media URL path, falling
// back to the Content-Type header, then to .mp3.
func extension(mediaURL, contentType string) string {
	if u, err := url.Parse(mediaURL); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		if audioExtensions[ext] {
			return ext
		}
	}
	if contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			if ext, ok := contentTypeExtensions[mediaType]; ok {
				return ext
			}
		}
	}
	return ".mp3"
}
