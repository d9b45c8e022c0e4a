package profiles

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	units "github.com/docker/go-units"

	applog "homedeck/internal/log"
	"homedeck/internal/storage"
)

var (
	ErrAvatarTooLarge = errors.New("profiles: avatar is too large")
	ErrAvatarType     = errors.New("profiles: avatar must be a png, jpeg, gif or webp image")
)

var avatarExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Avatars replaces profile pictures in a bucket.
type Avatars struct {
	repo     *Repository
	bucket   storage.Bucket
	maxBytes int64
}

// NewAvatars returns an Avatars limited to maxBytes per upload.
func NewAvatars(repo *Repository, bucket storage.Bucket, maxBytes int64) *Avatars {
	return &Avatars{repo: repo, bucket: bucket, maxBytes: maxBytes}
}

// MaxBytes is the upload limit.
func (a *Avatars) MaxBytes() int64 {
	return a.maxBytes
}

// AvatarKey is the object key of an identity's avatar.
func AvatarKey(id, ext string) string {
	return id + "/avatar." + ext
}

func extensionFor(filename, detected string) (string, error) {
	ext, ok := avatarExtensions[detected]
	if !ok {
		return "", ErrAvatarType
	}
	named := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if named == "jpeg" || named == ext {
		return named, nil
	}
	return ext, nil
}

// Replace stores body as the avatar of id and records its public URL. The old
// object is deleted before the new one is uploaded; if the upload fails the
// profile keeps its previous URL.
func (a *Avatars) Replace(ctx context.Context, id, filename string, body io.Reader, size int64) (string, error) {
	if a.maxBytes > 0 && size > a.maxBytes {
		return "", fmt.Errorf("%w: %s exceeds %s", ErrAvatarTooLarge, units.HumanSize(float64(size)), units.HumanSize(float64(a.maxBytes)))
	}
	profile, err := a.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}

	reader := bufio.NewReaderSize(body, 512)
	head, err := reader.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("read avatar: %w", err)
	}
	contentType := http.DetectContentType(head)
	ext, err := extensionFor(filename, contentType)
	if err != nil {
		return "", err
	}

	var limited io.Reader = reader
	if a.maxBytes > 0 {
		limited = io.LimitReader(reader, a.maxBytes+1)
	}

	key := AvatarKey(id, ext)
	for _, old := range a.previousKeys(profile.AvatarURL, id, key) {
		if err := a.bucket.Delete(ctx, old); err != nil {
			return "", fmt.Errorf("delete old avatar: %w", err)
		}
	}

	counter := &countingReader{r: limited}
	if err := a.bucket.Upload(ctx, key, counter, size, contentType); err != nil {
		applog.Error(ctx, "avatar upload failed after delete", "identity", id, "key", key, "error", err)
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	if a.maxBytes > 0 && counter.n > a.maxBytes {
		_ = a.bucket.Delete(ctx, key)
		return "", ErrAvatarTooLarge
	}

	publicURL := a.bucket.PublicURL(key)
	if err := a.repo.SetAvatarURL(ctx, id, publicURL); err != nil {
		return "", err
	}
	applog.Info(ctx, "avatar replaced", "identity", id, "key", key)
	return publicURL, nil
}

// previousKeys lists the keys to remove before uploading key: key itself and
// the object behind the current URL when it lives in the same folder.
func (a *Avatars) previousKeys(currentURL, id, key string) []string {
	keys := []string{key}
	prefix := a.bucket.PublicURL(id + "/")
	if strings.HasPrefix(currentURL, prefix) {
		if old := id + "/" + strings.TrimPrefix(currentURL, prefix); old != key {
			keys = append(keys, old)
		}
	}
	return keys
}

// Remove deletes every stored avatar variant of id.
func (a *Avatars) Remove(ctx context.Context, id string) error {
	for _, ext := range avatarExtensions {
		if err := a.bucket.Delete(ctx, AvatarKey(id, ext)); err != nil {
			return err
		}
	}
	return a.bucket.Delete(ctx, AvatarKey(id, "jpeg"))
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Purge removes the avatar and profile of id. It is registered as the
// account deletion cleanup.
func Purge(repo *Repository, avatars *Avatars) func(ctx context.Context, id string) error {
	return func(ctx context.Context, id string) error {
		if avatars != nil {
			if err := avatars.Remove(ctx, id); err != nil {
				return fmt.Errorf("remove avatar: %w", err)
			}
		}
		if err := repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		return nil
	}
}
