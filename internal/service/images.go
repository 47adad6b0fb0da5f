package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/andymattgee/swe-blog/internal/logging"
	"github.com/andymattgee/swe-blog/internal/storage"
)

// imageSaver validates uploads and hands them to the configured store.
type imageSaver struct {
	store    storage.Store
	maxBytes int64
	log      logging.Logger
}

func (s imageSaver) save(ctx context.Context, prefix string, up *ImageUpload) (string, error) {
	ct, ext, err := storage.DetectImage(up.Data, s.maxBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return "", invalid("image", fmt.Sprintf("image must be at most %d MiB", s.maxBytes>>20))
		}
		return "", invalid("image", err.Error())
	}
	if s.store == nil {
		return "", fmt.Errorf("save image: %w: no image store configured", ErrStorage)
	}
	ref, err := s.store.Put(ctx, storage.NewKey(prefix, ext), ct, up.Data)
	if err != nil {
		return "", fmt.Errorf("save image: %w: %w", ErrStorage, err)
	}
	return ref, nil
}

// discard removes a replaced image. Failures only leave an orphaned blob, so
// they are logged and swallowed.
func (s imageSaver) discard(ctx context.Context, ref string) {
	if ref == "" || s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, ref); err != nil {
		s.log.Warn(ctx, "delete replaced image failed", "ref", ref, "err", err)
	}
}
