package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-session/pkg/helpers"
)

// ErrUnsupportedType is returned for uploads that are not images.
var ErrUnsupportedType = errors.New("unsupported media type")

// PutFunc stores r under objectPath and returns its public URL.
type PutFunc func(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)

// DeleteFunc removes the object behind a URL returned by PutFunc.
type DeleteFunc func(ctx context.Context, publicURL string) error

// GCSUploader pushes spooled multipart files to a bucket.
// The local file is always removed once Upload returns.
type GCSUploader struct {
	Put    PutFunc
	Delete DeleteFunc
	Prefix string
	Logger *logrus.Logger
}

func NewGCSUploader(client *storage.Client, bucket, prefix string, logger *logrus.Logger) *GCSUploader {
	return &GCSUploader{
		Put: func(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
			return helpers.UploadObject(ctx, client, bucket, objectPath, contentType, r)
		},
		Delete: func(ctx context.Context, publicURL string) error {
			objectPath, ok := helpers.ObjectPath(bucket, publicURL)
			if !ok {
				return fmt.Errorf("not an object of bucket %s: %s", bucket, publicURL)
			}
			return helpers.DeleteObject(ctx, client, bucket, objectPath)
		},
		Prefix: prefix,
		Logger: logger,
	}
}

func (u *GCSUploader) Upload(ctx context.Context, localPath string) (string, error) {
	if strings.TrimSpace(localPath) == "" {
		return "", errors.New("no file to upload")
	}
	defer u.Discard(localPath)

	mt, err := mimetype.DetectFile(localPath)
	if err != nil {
		return "", fmt.Errorf("detect type: %w", err)
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	objectPath := path.Join(u.Prefix, uuid.NewString()+mt.Extension())
	url, err := u.Put(ctx, objectPath, mt.String(), f)
	if err != nil {
		return "", err
	}
	return url, nil
}

// Remove deletes a previously uploaded object. Empty URLs are ignored.
func (u *GCSUploader) Remove(ctx context.Context, publicURL string) error {
	if publicURL == "" || u.Delete == nil {
		return nil
	}
	return u.Delete(ctx, publicURL)
}

func (u *GCSUploader) Discard(localPath string) {
	if localPath == "" {
		return
	}
	if err := os.Remove(localPath); err != nil && !errors.Is(err, fs.ErrNotExist) && u.Logger != nil {
		u.Logger.WithError(err).WithField("path", localPath).Warn("remove temp upload failed")
	}
}
