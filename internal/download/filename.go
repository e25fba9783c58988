package download

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/h2non/filetype"
	"github.com/vfaronov/httpheader"
)

// PartSuffix marks a file that is still being written.
const PartSuffix = ".part"

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// SanitizeFilename removes characters that are unsafe or invalid across platforms.
func SanitizeFilename(name string) string {
	// Backslashes count as separators so filepath.Base strips Windows paths too
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." {
		return name
	}
	if name == "/" {
		return "_"
	}
	name = strings.TrimSpace(name)
	name = ansiRegex.ReplaceAllString(name, "")
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	replacer := strings.NewReplacer(":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	return replacer.Replace(name)
}

// remoteFilename picks a filename for a response: Content-Disposition first,
// then the "filename"/"file" query parameters, then the last URL path segment.
func remoteFilename(rawurl string, header http.Header) string {
	if _, name, err := httpheader.ContentDisposition(header); err == nil && name != "" {
		return SanitizeFilename(name)
	}
	parsed, err := url.Parse(rawurl)
	if err != nil {
		return ""
	}
	q := parsed.Query()
	for _, key := range []string{"filename", "file"} {
		if name := q.Get(key); name != "" {
			return SanitizeFilename(name)
		}
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" {
		return ""
	}
	return SanitizeFilename(base)
}

// sniffExtension returns the extension matching the magic bytes in head, or "".
func sniffExtension(head []byte) string {
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.Extension
}

// pageFilename names page index (0-based) of a chapter with total pages,
// zero-padded so that files sort in reading order.
func pageFilename(index, total int, remote string, head []byte) string {
	width := max(len(strconv.Itoa(total)), 3)
	ext := strings.TrimPrefix(filepath.Ext(remote), ".")
	if sniffed := sniffExtension(head); sniffed != "" {
		ext = sniffed
	}
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%0*d.%s", width, index+1, strings.ToLower(ext))
}

// episodeFilename names the single file of an episode.
func episodeFilename(title, remote string, head []byte) string {
	name := remote
	if name == "" {
		name = SanitizeFilename(title)
	}
	if filepath.Ext(name) == "" {
		if ext := sniffExtension(head); ext != "" {
			name += "." + ext
		}
	}
	if name == "" || name == "." {
		name = "episode.bin"
	}
	return name
}

// uniqueFilePath returns path, or path with a "(N)" counter when a finished
// or partial file already exists there.
func uniqueFilePath(p string) string {
	if !exists(p) && !exists(p+PartSuffix) {
		return p
	}

	dir := filepath.Dir(p)
	ext := filepath.Ext(p)
	name := strings.TrimSpace(strings.TrimSuffix(filepath.Base(p), ext))

	// "file (1)" continues from its counter instead of becoming "file (1)(1)"
	base, counter := name, 1
	if strings.HasSuffix(name, ")") {
		if open := strings.LastIndexByte(name, '('); open != -1 {
			if n, err := strconv.Atoi(name[open+1 : len(name)-1]); err == nil && n > 0 {
				base, counter = name[:open], n+1
			}
		}
	}

	for i := 0; i < 100; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s(%d)%s", base, counter+i, ext))
		if !exists(candidate) && !exists(candidate+PartSuffix) {
			return candidate
		}
	}
	return p
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
