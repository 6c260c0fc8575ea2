package files

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"lukechampine.com/blake3"

	"github.com/skydreamer0/VOICEAPP/internal/logging"
)

// DefaultExt is used when the recorder output has no extension.
const DefaultExt = ".m4a"

// FileInfo describes a stored audio file.
type FileInfo struct {
	Name     string
	Path     string
	Size     int64
	ModTime  time.Time
	Checksum string // blake3, hex
}

// Library owns the recordings and downloads directories.
type Library struct {
	recordingsDir string
	downloadsDir  string
	log           zerolog.Logger
}

// Open creates the recordings and downloads directories if needed.
func Open(recordingsDir, downloadsDir string) (*Library, error) {
	for _, dir := range []string{recordingsDir, downloadsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Library{
		recordingsDir: recordingsDir,
		downloadsDir:  downloadsDir,
		log:           logging.WithComponent("files"),
	}, nil
}

// RecordingsDir returns the directory finished recordings are moved into.
func (l *Library) RecordingsDir() string { return l.recordingsDir }

// DownloadsDir returns the directory Download copies into.
func (l *Library) DownloadsDir() string { return l.downloadsDir }

// Save moves src into the recordings directory under FileName(info, d),
// keeping src's extension, and returns the stored file's details.
func (l *Library) Save(src string, info NameInfo, d Defaults) (FileInfo, error) {
	ext := filepath.Ext(src)
	if ext == "" {
		ext = DefaultExt
	}
	dst := uniquePath(filepath.Join(l.recordingsDir, FileName(info, d)+ext))

	if err := move(src, dst); err != nil {
		return FileInfo{}, fmt.Errorf("save recording file: %w", err)
	}
	l.log.Info().Str("path", dst).Msg("recording file saved")

	fi, err := stat(dst)
	if err != nil {
		return FileInfo{}, err
	}
	if fi.Checksum, err = Checksum(dst); err != nil {
		return FileInfo{}, err
	}
	return fi, nil
}

// List returns the files in the recordings directory, newest first.
func (l *Library) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(l.recordingsDir)
	if err != nil {
		return nil, fmt.Errorf("read recordings dir: %w", err)
	}
	var out []FileInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fi, err := stat(filepath.Join(l.recordingsDir, e.Name()))
		if err != nil {
			l.log.Warn().Err(err).Str("name", e.Name()).Msg("skip unreadable file")
			continue
		}
		out = append(out, fi)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

// Delete removes path. A missing file is not an error.
func (l *Library) Delete(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path names an existing regular file.
func (l *Library) Exists(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// Download copies path into the downloads directory, keeping its name.
func (l *Library) Download(path string) (FileInfo, error) {
	dst := uniquePath(filepath.Join(l.downloadsDir, filepath.Base(path)))
	if err := copyFile(path, dst); err != nil {
		return FileInfo{}, fmt.Errorf("download %s: %w", path, err)
	}
	return stat(dst)
}

// WriteDownload stores data in the downloads directory as name.
func (l *Library) WriteDownload(name string, data []byte) (FileInfo, error) {
	dst := uniquePath(filepath.Join(l.downloadsDir, Sanitize(name)))
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return FileInfo{}, fmt.Errorf("write download: %w", err)
	}
	return stat(dst)
}

// Checksum returns the hex blake3-256 digest of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for checksum: %w", err)
	}
	defer f.Close()
	return HashReader(f)
}

// HashReader returns the hex blake3-256 digest of everything read from r.
func HashReader(r io.Reader) (string, error) {
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("calculating blake3 hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func stat(path string) (FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return FileInfo{
		Name:    st.Name(),
		Path:    path,
		Size:    st.Size(),
		ModTime: st.ModTime(),
	}, nil
}

// uniquePath appends -1, -2, ... before the extension until path is free.
func uniquePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", base, i, ext)
		if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate
		}
	}
}

// move renames src to dst, copying when they are on different devices.
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
