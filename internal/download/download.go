// Package download fetches episode audio files on the worker pool,
// reporting one completion message per episode to the controller.
package download

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"podterm/internal/models"
	"podterm/internal/msg"
	"podterm/internal/worker"
)

const maxRetryDelay = 16 * time.Second

// DownloadList schedules one download job per episode. destDir must
// already exist. Each job reports exactly one message: DownloadComplete
// with the final path, or one of the categorized errors.
func DownloadList(episodes []models.EpisodeDownload, destDir string, maxRetries int, pool *worker.Pool, out chan<- msg.Message) {
	for _, ep := range episodes {
		ep := ep
		pool.Execute(func() {
			downloadEpisode(ep, destDir, maxRetries, out)
		})
	}
}

func downloadEpisode(ep models.EpisodeDownload, destDir string, maxRetries int, out chan<- msg.Message) {
	resp, err := getWithRetry(ep.URL, maxRetries)
	if err != nil {
		log.Error("download request failed", "title", ep.Title, "err", err)
		out <- msg.DownloadResponseError{Episode: ep}
		return
	}
	defer resp.Body.Close()

	path := filepath.Join(destDir, Filename(ep, resp.Header.Get("Content-Type")))
	file, err := os.Create(path)
	if err != nil {
		log.Error("download file create failed", "path", path, "err", err)
		out <- msg.DownloadFileCreateError{Episode: ep}
		return
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(path)
		log.Error("download write failed", "path", path, "err", err)
		out <- msg.DownloadFileWriteError{Episode: ep}
		return
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		log.Error("download close failed", "path", path, "err", err)
		out <- msg.DownloadFileWriteError{Episode: ep}
		return
	}

	ep.Path = path
	out <- msg.DownloadComplete{Episode: ep}
}

// getWithRetry issues the request, retrying transport failures and
// server-side errors with capped exponential backoff.
func getWithRetry(mediaURL string, maxRetries int) (*http.Response, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			time.Sleep(delay)
		}

		resp, err := http.Get(mediaURL)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned %s", resp.Status)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, fmt.Errorf("server returned %s", resp.Status)
		}
		return resp, nil
	}
	return nil, lastErr
}
