package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tsundoku-app/tsundoku/internal/utils"
)

// Fetcher downloads the files of an item. progress is called with the
// number of finished files after each one completes. Fetch starts at
// item.PagesDone so a paused item resumes where it stopped.
type Fetcher interface {
	Fetch(ctx context.Context, item Item, progress func(done int)) error
}

const DefaultUserAgent = "tsundoku/1.0"

// sniffLen is how many bytes are read up front for magic number detection.
const sniffLen = 512

// HTTPFetcher downloads items over HTTP(S). PageTimeout bounds how long a
// request may go without receiving data, not the whole transfer.
type HTTPFetcher struct {
	Client      *http.Client
	UserAgent   string
	PageTimeout time.Duration
}

// NewHTTPFetcher creates a fetcher. Zero values fall back to defaults.
func NewHTTPFetcher(userAgent string, pageTimeout time.Duration) *HTTPFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPFetcher{
		Client:      &http.Client{},
		UserAgent:   userAgent,
		PageTimeout: pageTimeout,
	}
}

// ItemDir is the directory an item's files are written to.
func ItemDir(item Item) string {
	return filepath.Join(item.DestDir, SanitizeFilename(item.Title))
}

func (f *HTTPFetcher) Fetch(ctx context.Context, item Item, progress func(done int)) error {
	dir := ItemDir(item)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	for i := item.PagesDone; i < len(item.URLs); i++ {
		if err := f.fetchOne(ctx, item, i, dir); err != nil {
			return err
		}
		if progress != nil {
			progress(i + 1)
		}
	}
	return nil
}

func (f *HTTPFetcher) fetchOne(ctx context.Context, item Item, index int, dir string) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// The idle timer runs while connecting, while waiting for headers and
	// between body reads.
	var idle *time.Timer
	if f.PageTimeout > 0 {
		idle = time.AfterFunc(f.PageTimeout, func() {
			cancel(fmt.Errorf("%w: no data for %v", ErrStalled, f.PageTimeout))
		})
		defer idle.Stop()
	}
	fail := func(err error) error {
		if ctx.Err() != nil {
			err = context.Cause(ctx)
		}
		return fmt.Errorf("page %d: %w", index+1, err)
	}

	rawurl := item.URLs[index]
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return fail(err)
	}
	req.Header.Set("User-Agent", f.UserAgent)
	if item.Source != "" {
		req.Header.Set("Referer", item.Source)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			utils.Debug("Error closing response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("page %d: server returned %s", index+1, resp.Status)
	}

	var src io.Reader = resp.Body
	if idle != nil {
		idle.Reset(f.PageTimeout)
		src = &idleReader{r: resp.Body, timer: idle, timeout: f.PageTimeout}
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fail(fmt.Errorf("reading header: %w", err))
	}
	head = head[:n]

	remote := remoteFilename(rawurl, resp.Header)
	var dest string
	if len(item.URLs) == 1 {
		dest = uniqueFilePath(filepath.Join(dir, episodeFilename(item.Title, remote, head)))
	} else {
		dest = filepath.Join(dir, pageFilename(index, len(item.URLs), remote, head))
	}

	body := io.MultiReader(bytes.NewReader(head), src)
	if err := writeAtomic(dest, body); err != nil {
		if ctx.Err() != nil {
			return fail(err)
		}
		return err
	}
	return nil
}

// idleReader restarts timer whenever data arrives.
type idleReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.timer.Reset(r.timeout)
	}
	return n, err
}

// writeAtomic streams r into path+PartSuffix and renames it into place.
func writeAtomic(path string, r io.Reader) error {
	part := path + PartSuffix
	out, err := os.Create(part)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(part)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(part)
		return err
	}
	return os.Rename(part, path)
}
