package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
)

// Extract unpacks an archive into destDir. Entries escaping destDir are
// rejected.
func Extract(ctx context.Context, archivePath, destDir string) error {
	srcFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer srcFile.Close()

	format, _, err := archives.Identify(ctx, filepath.Base(archivePath), srcFile)
	if err != nil {
		return fmt.Errorf("identify archive format: %w", err)
	}

	if _, err := srcFile.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("reset file position: %w", err)
	}

	extractor, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("archive format does not support extraction")
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}

	return extractor.Extract(ctx, srcFile, func(_ context.Context, f archives.FileInfo) error {
		if f.IsDir() {
			return nil
		}

		name := filepath.Clean(f.NameInArchive)
		if strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return fmt.Errorf("invalid path in archive: %s", f.NameInArchive)
		}

		targetPath := filepath.Join(destDir, name)
		if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
			return err
		}

		in, err := f.Open()
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.Create(targetPath)
		if err != nil {
			return err
		}
		defer out.Close()

		_, err = io.Copy(out, in)
		return err
	})
}
