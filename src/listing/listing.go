// Package listing reads folders and albums from a static file server that
// exposes HTML directory indexes.
//
// Folder paths and track identifiers are handled in their escaped form, the
// way they appear in the hrefs of an index page.
package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"songshelf/src/metrics"
	"songshelf/src/util"
)

// TrackExtension is the suffix a link must have to be considered a track.
const TrackExtension = ".mp3"

// DefaultConcurrency is the number of album metadata files that are fetched
// in parallel if no other limit is configured.
const DefaultConcurrency = 4

// An Album describes a folder below the albums root.
type Album struct {
	Folder      string `json:"folder"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Cover       string `json:"cover"`
}

// A Client lists tracks and albums.
type Client struct {
	baseURL     string
	albumsRoot  string
	concurrency int
	http        *http.Client
}

// NewClient creates a client for the file server at baseURL. Albums are
// looked up in the albumsRoot folder. A nil httpClient selects
// http.DefaultClient.
func NewClient(baseURL, albumsRoot string, httpClient *http.Client, concurrency int) (*Client, error) {
	base, err := util.NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	albumsRoot = strings.Trim(albumsRoot, "/")
	if albumsRoot == "" {
		return nil, fmt.Errorf("the albums root must not be empty")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Client{
		baseURL:     base,
		albumsRoot:  albumsRoot,
		concurrency: concurrency,
		http:        httpClient,
	}, nil
}

// BaseURL returns the normalized URL of the file server.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Tracks returns the identifiers of all tracks in the folder in the order in
// which the server lists them.
func (c *Client) Tracks(ctx context.Context, folder string) ([]string, error) {
	folder = strings.Trim(folder, "/")
	links, err := c.fetchIndex(ctx, "tracks", folder+"/")
	if err != nil {
		return nil, err
	}

	sep := "/" + folder + "/"
	tracks := []string{}
	for _, link := range links {
		href := link.String()
		if !strings.HasSuffix(href, TrackExtension) {
			continue
		}
		i := strings.Index(href, sep)
		if i < 0 {
			// Links to files outside of the folder.
			continue
		}
		tracks = append(tracks, href[i+len(sep):])
	}
	return tracks, nil
}

// Albums lists all folders below the albums root along with their metadata.
//
// Folders of which the info file can not be read are skipped. The result is
// ordered like the index of the albums root.
func (c *Client) Albums(ctx context.Context) ([]Album, error) {
	links, err := c.fetchIndex(ctx, "albums", c.albumsRoot+"/")
	if err != nil {
		return nil, err
	}
	folders := albumFolders(links, c.albumsRoot)

	results := make([]*Album, len(folders))
	var group errgroup.Group
	group.SetLimit(c.concurrency)
	for i, folder := range folders {
		i, folder := i, folder
		group.Go(func() error {
			album, err := c.album(ctx, c.albumsRoot+"/"+folder)
			if err != nil {
				metrics.AlbumMetadataFailures.Inc()
				log.WithField("folder", folder).Warnf("Skipping album: %v", err)
				return nil
			}
			results[i] = &album
			return nil
		})
	}
	_ = group.Wait()

	albums := make([]Album, 0, len(results))
	for _, album := range results {
		if album != nil {
			albums = append(albums, *album)
		}
	}
	return albums, nil
}

func albumFolders(links []*url.URL, root string) []string {
	rootName := path.Base(root)
	seen := map[string]bool{}
	var folders []string
	for _, link := range links {
		href := link.String()
		if !strings.Contains(href, "/"+root+"/") {
			continue
		}
		segments := strings.Split(href, "/")
		if len(segments) < 2 {
			continue
		}
		// Directory links end in a slash, so the name is the second to last
		// segment. This also drops the link to the root itself.
		folder := segments[len(segments)-2]
		if folder == "" || folder == rootName || seen[folder] {
			continue
		}
		seen[folder] = true
		folders = append(folders, folder)
	}
	return folders
}

func (c *Client) album(ctx context.Context, folder string) (Album, error) {
	start := time.Now()
	resp, err := c.get(ctx, util.JoinURL(c.baseURL, folder+"/info.json"))
	c.observe("metadata", start, resp, err)
	if err != nil {
		return Album{}, &MetadataError{Folder: folder, Err: err}
	}
	defer resp.Body.Close()
	if !isSuccess(resp.StatusCode) {
		return Album{}, &MetadataError{Folder: folder, StatusCode: resp.StatusCode}
	}

	var info struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Album{}, &MetadataError{Folder: folder, Err: err}
	}
	return Album{
		Folder:      folder,
		Title:       info.Title,
		Description: info.Description,
		Cover:       util.JoinURL(c.baseURL, folder+"/cover.jpg"),
	}, nil
}

// fetchIndex requests an index page and returns its links.
func (c *Client) fetchIndex(ctx context.Context, kind, escapedPath string) ([]*url.URL, error) {
	target := util.JoinURL(c.baseURL, escapedPath)
	start := time.Now()
	resp, err := c.get(ctx, target)
	c.observe(kind, start, resp, err)
	if err != nil {
		return nil, &ListingError{URL: target, Err: err}
	}
	defer resp.Body.Close()
	if !isSuccess(resp.StatusCode) {
		return nil, &ListingError{URL: target, StatusCode: resp.StatusCode}
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || (mt != "text/html" && mt != "application/xhtml+xml") {
			return nil, &ListingError{URL: target, Err: fmt.Errorf("unparsable index: content type %q", ct)}
		}
	}
	links, err := parseAnchors(resp.Body, resp.Request.URL)
	if err != nil {
		return nil, &ListingError{URL: target, Err: fmt.Errorf("unparsable index: %w", err)}
	}
	log.WithField("url", target).Debugf("Read %d links", len(links))
	return links, nil
}

func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func (c *Client) observe(kind string, start time.Time, resp *http.Response, err error) {
	status := "error"
	if err == nil {
		status = fmt.Sprintf("%d", resp.StatusCode)
	}
	metrics.ListingFetchesTotal.WithLabelValues(kind, status).Inc()
	metrics.ListingFetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
