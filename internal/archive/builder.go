package archive

import (
	"archive/tar"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"seqpoll/internal/logging"
)

// Result describes one finished lane archive.
type Result struct {
	Lane     int
	Path     string
	MD5Path  string
	Checksum string
	Files    int
	Bytes    int64
	Duration time.Duration
}

// Builder writes per-lane raw data archives.
type Builder struct {
	compressor Compressor
	excludes   []string
	logger     *slog.Logger
}

// NewBuilder constructs a Builder. A nil compressor selects in-process gzip.
func NewBuilder(compressor Compressor, excludes []string, logger *slog.Logger) *Builder {
	if compressor == nil {
		compressor = NewCompressor(nil)
	}
	return &Builder{
		compressor: compressor,
		excludes:   append([]string(nil), excludes...),
		logger:     logging.NewComponentLogger(logger, "archive"),
	}
}

// BuildLane archives the lane's file set from runDir into dest and writes
// dest.md5 in md5sum format. Entries are stored under the run directory name
// with uid and gid zeroed. dest is only replaced once the archive is complete.
func (b *Builder) BuildLane(ctx context.Context, runDir string, lane int, dest string) (Result, error) {
	started := time.Now()
	files, err := SelectLaneFiles(runDir, lane, b.excludes)
	if err != nil {
		return Result{}, err
	}
	if len(files) == 0 {
		return Result{}, fmt.Errorf("lane %d: %w", lane, ErrNoFiles)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Result{}, fmt.Errorf("create archive directory: %w", err)
	}

	tmp := dest + ".partial"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return Result{}, fmt.Errorf("create archive: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()

	digest := md5.New()
	counter := &countingWriter{}
	sink := io.MultiWriter(out, digest, counter)

	b.logger.Debug("building lane archive",
		logging.Int(logging.FieldLane, lane),
		logging.Int("files", len(files)),
		logging.String("compressor", b.compressor.Name()),
	)

	pr, pw := io.Pipe()
	tarDone := make(chan error, 1)
	go func() {
		err := writeTar(ctx, pw, runDir, files)
		pw.CloseWithError(err)
		tarDone <- err
	}()
	compressErr := b.compressor.Compress(ctx, sink, pr)
	// Unblock the tar writer if the compressor stopped reading early.
	pr.CloseWithError(errors.New("compressor exited"))
	tarErr := <-tarDone

	if tarErr != nil {
		return Result{}, fmt.Errorf("lane %d: write tar: %w", lane, tarErr)
	}
	if compressErr != nil {
		return Result{}, fmt.Errorf("lane %d: compress: %w", lane, compressErr)
	}
	if err := out.Sync(); err != nil {
		return Result{}, fmt.Errorf("sync archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return Result{}, fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return Result{}, fmt.Errorf("commit archive: %w", err)
	}
	committed = true

	sum := hex.EncodeToString(digest.Sum(nil))
	md5Path, err := writeChecksum(dest, sum)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Lane:     lane,
		Path:     dest,
		MD5Path:  md5Path,
		Checksum: sum,
		Files:    len(files),
		Bytes:    counter.n,
		Duration: time.Since(started),
	}, nil
}

func writeTar(ctx context.Context, w io.Writer, runDir string, files []string) error {
	tw := tar.NewWriter(w)
	prefix := filepath.Base(filepath.Clean(runDir))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addEntry(tw, filepath.Join(runDir, filepath.FromSlash(rel)), prefix+"/"+rel); err != nil {
			return err
		}
	}
	return tw.Close()
}

func addEntry(tw *tar.Writer, path, name string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return err
		}
	}
	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	hdr.Name = name
	hdr.Uid, hdr.Gid = 0, 0
	hdr.Uname, hdr.Gname = "", ""
	hdr.Format = tar.FormatPAX
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.CopyN(tw, f, info.Size()); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func writeChecksum(archivePath, sum string) (string, error) {
	md5Path := archivePath + ".md5"
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(archivePath))
	if err := os.WriteFile(md5Path, []byte(line), 0o644); err != nil {
		return "", fmt.Errorf("write checksum: %w", err)
	}
	return md5Path, nil
}

// VerifyChecksum recomputes the archive digest and compares it with the
// companion .md5 file.
func VerifyChecksum(archivePath string) error {
	data, err := os.ReadFile(archivePath + ".md5")
	if err != nil {
		return fmt.Errorf("read checksum: %w", err)
	}
	var want, name string
	if _, err := fmt.Sscanf(string(data), "%s %s", &want, &name); err != nil {
		return fmt.Errorf("parse checksum: %w", err)
	}
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()
	digest := md5.New()
	if _, err := io.Copy(digest, f); err != nil {
		return err
	}
	if got := hex.EncodeToString(digest.Sum(nil)); got != want {
		return fmt.Errorf("checksum mismatch for %s: got %s want %s", filepath.Base(archivePath), got, want)
	}
	return nil
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
