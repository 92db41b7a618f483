package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	derrors "github.com/tristendillon/diagify/core/errors"
	"github.com/tristendillon/diagify/core/logger"
	"github.com/tristendillon/diagify/core/storage"
)

// Relocate moves the artifact at src to dest and returns the final location.
// dest may be a file path, an existing directory or, when objects is not nil,
// an s3://bucket/key URL.
func Relocate(ctx context.Context, src, dest string, objects storage.ObjectStore) (string, error) {
	if dest == "" || dest == src {
		return src, nil
	}

	if storage.IsRemote(dest) {
		return upload(ctx, src, dest, objects)
	}

	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		dest = filepath.Join(dest, filepath.Base(src))
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", derrors.Wrap(err, derrors.CodeStorage, "failed to create output directory").WithContext(derrors.CtxPath, dest)
	}

	if err := os.Rename(src, dest); err != nil {
		if !errors.Is(err, syscall.EXDEV) {
			return "", derrors.Wrap(err, derrors.CodeStorage, "failed to move artifact").WithContext(derrors.CtxPath, dest)
		}
		logger.Debug("Rename across devices, copying %s -> %s", src, dest)
		if err := copyFile(src, dest); err != nil {
			return "", derrors.Wrap(err, derrors.CodeStorage, "failed to copy artifact").WithContext(derrors.CtxPath, dest)
		}
		if err := os.Remove(src); err != nil {
			logger.Debug("Failed to remove %s after copy: %v", src, err)
		}
	}

	logger.Debug("Moved artifact %s -> %s", src, dest)
	return dest, nil
}

func upload(ctx context.Context, src, dest string, objects storage.ObjectStore) (string, error) {
	_, key, ok := storage.ParseS3URL(dest)
	if !ok {
		return "", derrors.Newf(derrors.CodeStorage, "invalid object URL %q", dest)
	}
	if objects == nil {
		return "", derrors.New(derrors.CodeStorage, "no object store configured").WithContext(derrors.CtxPath, dest)
	}

	f, err := os.Open(src)
	if err != nil {
		return "", derrors.Wrap(err, derrors.CodeStorage, "failed to open artifact").WithContext(derrors.CtxPath, src)
	}
	defer f.Close()

	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	location, err := objects.Put(ctx, key, storage.ContentType(src), f, size)
	if err != nil {
		return "", derrors.Wrap(err, derrors.CodeStorage, "failed to upload artifact").WithContext(derrors.CtxPath, dest)
	}
	if err := os.Remove(src); err != nil {
		logger.Debug("Failed to remove %s after upload: %v", src, err)
	}
	return location, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
