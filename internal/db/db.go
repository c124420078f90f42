// Package db provides SQLite storage for podcasts, episodes, and
// downloaded files, plus the merge logic that reconciles a fresh feed
// fetch against stored episodes.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"podterm/internal/models"
	"podterm/internal/store"

	_ "modernc.org/sqlite"
)

// Version is written to the version table so future schema migrations
// know what they are upgrading from.
const Version = "1.0.0"

// reArticles strips "a", "an", and "the" from the beginning of podcast
// titles when building sort titles.
var reArticles = regexp.MustCompile(`^(a|an|the) `)

// Database wraps the SQLite connection. All operations are synchronous
// and return storage errors for the controller to convert into
// notifications.
type Database struct {
	conn *sql.DB
}

// Connect opens (or creates) the database inside dir.
func Connect(dir string) (*Database, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", filepath.Join(dir, "data.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite defaults to foreign key support off.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set wal mode: %w", err)
	}

	db := &Database{conn: conn}
	if err := db.create(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := db.updateVersion(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *Database) Close() error {
	return db.conn.Close()
}

func (db *Database) create() error {
	schema := `
	CREATE TABLE IF NOT EXISTS podcasts (
		id INTEGER PRIMARY KEY NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		description TEXT,
		author TEXT,
		explicit INTEGER,
		last_checked INTEGER
	);
	CREATE TABLE IF NOT EXISTS episodes (
		id INTEGER PRIMARY KEY NOT NULL,
		podcast_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		description TEXT,
		pubdate INTEGER,
		duration INTEGER,
		played INTEGER,
		hidden INTEGER,
		FOREIGN KEY(podcast_id) REFERENCES podcasts(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY NOT NULL,
		episode_id INTEGER NOT NULL,
		path TEXT NOT NULL UNIQUE,
		FOREIGN KEY(episode_id) REFERENCES episodes(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS version (
		id INTEGER PRIMARY KEY NOT NULL,
		version TEXT NOT NULL
	);`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

func (db *Database) updateVersion() error {
	var stored string
	err := db.conn.QueryRow("SELECT version FROM version WHERE id = 1;").Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		_, err = db.conn.Exec("INSERT INTO version (id, version) VALUES (?, ?);", 1, Version)
	case err == nil && stored != Version:
		// Schema migrations for older versions would run here.
		_, err = db.conn.Exec("UPDATE version SET version = ? WHERE id = ?;", Version, 1)
	}
	if err != nil {
		return fmt.Errorf("failed to record database version: %w", err)
	}
	return nil
}

// InsertPodcast inserts a new podcast and all of its episodes, returning
// every episode as "added" in the sync result.
func (db *Database) InsertPodcast(podcast *models.FetchedPodcast) (*SyncResult, error) {
	res, err := db.conn.Exec(
		`INSERT INTO podcasts (title, url, description, author, explicit, last_checked)
		VALUES (?, ?, ?, ?, ?, ?);`,
		podcast.Title, podcast.URL, podcast.Description, podcast.Author,
		podcast.Explicit, podcast.LastChecked.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert podcast: %w", err)
	}
	podID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted podcast id: %w", err)
	}

	result := &SyncResult{}
	for i := range podcast.Episodes {
		ep := &podcast.Episodes[i]
		id, err := db.InsertEpisode(podID, ep)
		if err != nil {
			return nil, err
		}
		result.Added = append(result.Added, &models.NewEpisode{
			ID:        id,
			PodcastID: podID,
			Title:     ep.Title,
			PodTitle:  podcast.Title,
		})
	}
	return result, nil
}

// InsertEpisode inserts one episode and returns its new identifier.
func (db *Database) InsertEpisode(podcastID int64, episode *models.FetchedEpisode) (int64, error) {
	var pubdate interface{}
	if episode.PubDate != nil {
		pubdate = episode.PubDate.Unix()
	}
	res, err := db.conn.Exec(
		`INSERT INTO episodes (podcast_id, title, url, description, pubdate, duration, played, hidden)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		podcastID, episode.Title, episode.URL, episode.Description,
		pubdate, episode.Duration, false, false,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert episode: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted episode id: %w", err)
	}
	return id, nil
}

// UpdatePodcast overwrites the podcast's metadata and reconciles the
// fetched episode list against what is stored. See merge.go for the
// matching heuristic.
func (db *Database) UpdatePodcast(podID int64, podcast *models.FetchedPodcast) (*SyncResult, error) {
	_, err := db.conn.Exec(
		`UPDATE podcasts SET title = ?, url = ?, description = ?, author = ?,
		explicit = ?, last_checked = ? WHERE id = ?;`,
		podcast.Title, podcast.URL, podcast.Description, podcast.Author,
		podcast.Explicit, podcast.LastChecked.Unix(), podID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update podcast: %w", err)
	}
	return db.updateEpisodes(podID, podcast.Title, podcast.Episodes)
}

// updateEpisodes applies the merge plan: matched episodes with changed
// fields are updated in place, unmatched episodes are inserted as new.
// Hidden episodes participate in matching so that a sync does not
// resurrect an episode the user removed.
func (db *Database) updateEpisodes(podID int64, podTitle string, fetched []models.FetchedEpisode) (*SyncResult, error) {
	stored, err := db.GetEpisodes(podID, true)
	if err != nil {
		return nil, err
	}

	plan := planMerge(stored, fetched)

	result := &SyncResult{}
	for _, u := range plan.updates {
		ep := &fetched[u.fetchedIndex]
		var pubdate interface{}
		if ep.PubDate != nil {
			pubdate = ep.PubDate.Unix()
		}
		_, err := db.conn.Exec(
			`UPDATE episodes SET title = ?, url = ?, description = ?, pubdate = ?, duration = ?
			WHERE id = ?;`,
			ep.Title, ep.URL, ep.Description, pubdate, ep.Duration, u.storedID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update episode: %w", err)
		}
		result.Updated = append(result.Updated, u.storedID)
	}
	for _, idx := range plan.inserts {
		ep := &fetched[idx]
		id, err := db.InsertEpisode(podID, ep)
		if err != nil {
			return nil, err
		}
		result.Added = append(result.Added, &models.NewEpisode{
			ID:        id,
			PodcastID: podID,
			Title:     ep.Title,
			PodTitle:  podTitle,
		})
	}
	return result, nil
}

// InsertFile records the local file path for a downloaded episode.
func (db *Database) InsertFile(episodeID int64, path string) error {
	_, err := db.conn.Exec(
		"INSERT INTO files (episode_id, path) VALUES (?, ?);", episodeID, path)
	if err != nil {
		return fmt.Errorf("failed to insert file record: %w", err)
	}
	return nil
}

// RemoveFile deletes the file record for an episode after the user has
// deleted the file itself.
func (db *Database) RemoveFile(episodeID int64) error {
	_, err := db.conn.Exec("DELETE FROM files WHERE episode_id = ?;", episodeID)
	if err != nil {
		return fmt.Errorf("failed to remove file record: %w", err)
	}
	return nil
}

// RemoveFiles deletes the file records for all given episodes.
func (db *Database) RemoveFiles(episodeIDs []int64) error {
	if len(episodeIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(episodeIDs)), ", ")
	args := make([]interface{}, len(episodeIDs))
	for i, id := range episodeIDs {
		args[i] = id
	}
	_, err := db.conn.Exec(
		"DELETE FROM files WHERE episode_id IN ("+placeholders+");", args...)
	if err != nil {
		return fmt.Errorf("failed to remove file records: %w", err)
	}
	return nil
}

// RemovePodcast deletes a podcast. The foreign key constraints cascade
// to its episodes and their file records.
func (db *Database) RemovePodcast(podcastID int64) error {
	_, err := db.conn.Exec("DELETE FROM podcasts WHERE id = ?;", podcastID)
	if err != nil {
		return fmt.Errorf("failed to remove podcast: %w", err)
	}
	return nil
}

// SetPlayedStatus marks an episode played or unplayed.
func (db *Database) SetPlayedStatus(episodeID int64, played bool) error {
	_, err := db.conn.Exec("UPDATE episodes SET played = ? WHERE id = ?;", played, episodeID)
	if err != nil {
		return fmt.Errorf("failed to set played status: %w", err)
	}
	return nil
}

// HideEpisode marks an episode hidden. Hidden episodes stay in the
// database so the next sync does not re-add them.
func (db *Database) HideEpisode(episodeID int64, hidden bool) error {
	_, err := db.conn.Exec("UPDATE episodes SET hidden = ? WHERE id = ?;", hidden, episodeID)
	if err != nil {
		return fmt.Errorf("failed to hide episode: %w", err)
	}
	return nil
}

// GetPodcasts returns all podcasts with their visible episodes loaded,
// sorted by sort title (lowercased, leading articles stripped).
func (db *Database) GetPodcasts() ([]*models.Podcast, error) {
	rows, err := db.conn.Query(
		`SELECT id, title, url, description, author, explicit, last_checked
		FROM podcasts;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query podcasts: %w", err)
	}
	defer rows.Close()

	var podcasts []*models.Podcast
	for rows.Next() {
		var (
			p           models.Podcast
			description sql.NullString
			author      sql.NullString
			explicit    sql.NullBool
			lastChecked sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.URL, &description, &author, &explicit, &lastChecked); err != nil {
			return nil, fmt.Errorf("failed to scan podcast row: %w", err)
		}
		p.Description = description.String
		p.Author = author.String
		p.Explicit = explicit.Bool
		if lastChecked.Valid {
			p.LastChecked = time.Unix(lastChecked.Int64, 0)
		}
		p.SortTitle = SortTitle(p.Title)
		podcasts = append(podcasts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read podcast rows: %w", err)
	}

	for _, p := range podcasts {
		episodes, err := db.GetEpisodes(p.ID, false)
		if err != nil {
			return nil, err
		}
		p.Episodes = store.New(episodes)
	}

	sortPodcasts(podcasts)
	return podcasts, nil
}

// GetEpisodes returns a podcast's episodes sorted by publish date
// descending, with the downloaded file path joined in when one exists.
func (db *Database) GetEpisodes(podcastID int64, includeHidden bool) ([]*models.Episode, error) {
	query := `SELECT episodes.id, episodes.podcast_id, episodes.title, episodes.url,
		episodes.description, episodes.pubdate, episodes.duration, episodes.played, files.path
		FROM episodes
		LEFT JOIN files ON episodes.id = files.episode_id
		WHERE episodes.podcast_id = ?`
	if !includeHidden {
		query += " AND episodes.hidden = 0"
	}
	query += " ORDER BY pubdate DESC;"

	rows, err := db.conn.Query(query, podcastID)
	if err != nil {
		return nil, fmt.Errorf("failed to query episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*models.Episode
	for rows.Next() {
		var (
			e           models.Episode
			description sql.NullString
			pubdate     sql.NullInt64
			duration    sql.NullInt64
			played      sql.NullBool
			path        sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.PodcastID, &e.Title, &e.URL, &description,
			&pubdate, &duration, &played, &path); err != nil {
			return nil, fmt.Errorf("failed to scan episode row: %w", err)
		}
		e.Description = description.String
		e.Played = played.Bool
		e.Path = path.String
		if pubdate.Valid {
			t := time.Unix(pubdate.Int64, 0)
			e.PubDate = &t
		}
		if duration.Valid {
			d := duration.Int64
			e.Duration = &d
		}
		episodes = append(episodes, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read episode rows: %w", err)
	}
	return episodes, nil
}

// SortTitle lowercases a title and strips a leading article.
func SortTitle(title string) string {
	return reArticles.ReplaceAllString(strings.ToLower(title), "")
}

func sortPodcasts(podcasts []*models.Podcast) {
	sort.Slice(podcasts, func(i, j int) bool {
		return podcasts[i].SortTitle < podcasts[j].SortTitle
	})
}
