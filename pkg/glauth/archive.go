package glauth

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_err"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// MaxEntrySize caps a single extracted file.
const MaxEntrySize = 64 << 20

// ExtractArchive extracts every entry of the zip at archivePath into dir and
// returns the written paths. Later entries overwrite earlier ones with the
// same name. Entries that would land outside dir fail the whole call before
// anything is written.
func ExtractArchive(rc *charm_io.RuntimeContext, archivePath, dir string) ([]string, error) {
	log := otelzap.Ctx(rc.Ctx)

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, charm_err.NewConfigurationError(archivePath, cerr.Wrap(err, "open config archive"))
	}
	defer zr.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, charm_err.NewConfigurationError(dir, err)
	}

	targets := make([]string, len(zr.File))
	for i, f := range zr.File {
		target, err := entryTarget(root, f.Name)
		if err != nil {
			return nil, charm_err.NewConfigurationError(archivePath, err)
		}
		if f.Mode()&os.ModeSymlink != 0 {
			return nil, charm_err.NewConfigurationError(archivePath, cerr.Newf("archive entry %q is a symlink", f.Name))
		}
		targets[i] = target
	}

	var written []string
	for i, f := range zr.File {
		target := targets[i]
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, shared.DirPermStandard); err != nil {
				return written, charm_err.NewConfigurationError(target, err)
			}
			continue
		}
		if err := extractEntry(f, target); err != nil {
			return written, charm_err.NewConfigurationError(target, err)
		}
		written = append(written, target)
		log.Debug("Extracted config fragment", zap.String("entry", f.Name), zap.String("path", target))
	}

	log.Info("Config archive extracted",
		zap.String("archive", archivePath),
		zap.String("dir", root),
		zap.Int("files", len(written)))
	return written, nil
}

func entryTarget(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", cerr.Newf("archive entry %q is absolute", name)
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", cerr.Newf("archive entry %q escapes %s", name, root)
	}
	return target, nil
}

func extractEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), shared.DirPermStandard); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return cerr.Wrapf(err, "open entry %s", f.Name)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, shared.FilePermStandard)
	if err != nil {
		return err
	}
	n, err := io.Copy(dst, io.LimitReader(src, MaxEntrySize+1))
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if n > MaxEntrySize {
		return cerr.Newf("archive entry %s exceeds %d bytes", f.Name, MaxEntrySize)
	}
	return nil
}
