package download

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

// "file (1)" is kept when free and incremented when taken
func TestUniqueFilePath_Preservation(t *testing.T) {
	tmpDir := t.TempDir()

	inputFile := filepath.Join(tmpDir, "file (1).txt")
	if got := uniqueFilePath(inputFile); got != inputFile {
		t.Errorf("Expected '%s', got '%s'. Should preserve unique filename.", inputFile, got)
	}

	if err := os.WriteFile(inputFile, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectedFile2 := filepath.Join(tmpDir, "file (2).txt")
	if got := uniqueFilePath(inputFile); got != expectedFile2 {
		t.Errorf("Expected '%s', got '%s'. Should increment existing counter.", expectedFile2, got)
	}

	if err := os.WriteFile(expectedFile2, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectedFile3 := filepath.Join(tmpDir, "file (3).txt")
	if got := uniqueFilePath(inputFile); got != expectedFile3 {
		t.Errorf("Expected '%s', got '%s'. Should skip to next available.", expectedFile3, got)
	}
}

func TestUniqueFilePath_WhitespaceParsing(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "file (1).txt"), []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	spaceFile := filepath.Join(tmpDir, "file (1) .txt")
	if err := os.WriteFile(spaceFile, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := uniqueFilePath(spaceFile)
	expected := filepath.Join(tmpDir, "file (2).txt")
	if got != expected {
		t.Errorf("Whitespace Parsing Failed: Expected '%s', got '%s'", expected, got)
	}
}

func TestUniqueFilePath_PartialCountsAsTaken(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "ep01.mp4")
	if err := os.WriteFile(target+PartSuffix, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, filepath.Join(tmpDir, "ep01(1).mp4"), uniqueFilePath(target))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Chapter 1: The Start", "Chapter 1_ The Start"},
		{"..\\..\\evil.png", "evil.png"},
		{"a/b/c.jpg", "c.jpg"},
		{"  what?  ", "what_"},
		{"\x1b[31mred\x1b[0m", "red"},
		{"tab\there", "tabhere"},
		{"/", "_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func TestRemoteFilename(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Disposition", `attachment; filename="Episode 3.mkv"`)
	assert.Equal(t, "Episode 3.mkv", remoteFilename("https://cdn.example.com/v/abc", h))

	assert.Equal(t, "ep.mp4", remoteFilename("https://cdn.example.com/get?file=ep.mp4", http.Header{}))
	assert.Equal(t, "007.webp", remoteFilename("https://cdn.example.com/ch/1/007.webp", http.Header{}))
	assert.Equal(t, "", remoteFilename("https://cdn.example.com/", http.Header{}))
}

func TestPageFilename(t *testing.T) {
	assert.Equal(t, "001.png", pageFilename(0, 20, "", pngHeader))
	assert.Equal(t, "012.jpg", pageFilename(11, 20, "x.JPG", nil))
	assert.Equal(t, "0100.bin", pageFilename(99, 1000, "", []byte("plain text")))
	// Magic bytes win over a misleading extension
	assert.Equal(t, "003.png", pageFilename(2, 3, "page.jpg", pngHeader))
}

func TestEpisodeFilename(t *testing.T) {
	assert.Equal(t, "Ep 1.mp4", episodeFilename("Ep 1", "Ep 1.mp4", nil))
	assert.Equal(t, "Show - 02.png", episodeFilename("Show - 02", "", pngHeader))
	assert.Equal(t, "stream", episodeFilename("x", "stream", []byte("unknown")))
}
