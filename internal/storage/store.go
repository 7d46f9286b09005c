package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// ArtifactStore keeps signed documents and other binary artifacts by key.
// Open returns an error wrapping domain.ErrNotFound for unknown keys.
type ArtifactStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, int64, error)
	Delete(ctx context.Context, key string) error
}

// SignedContractKey names a new object for a reservation's signed contract.
func SignedContractKey(reservationID int32) string {
	return fmt.Sprintf("contracts/%d/signed-%s.pdf", reservationID, uuid.New().String())
}

// HandoverPhotoKey names a new object for a check-in or check-out photo.
func HandoverPhotoKey(reservationID int32, ext string) string {
	return HandoverPhotoPrefix(reservationID) + uuid.New().String() + ext
}

func HandoverPhotoPrefix(reservationID int32) string {
	return fmt.Sprintf("handover/%d/", reservationID)
}
