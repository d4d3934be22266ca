package reporting

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/pkg/storage"
)

// ObjectStore uploads exports and signs download links.
type ObjectStore interface {
	UploadExport(ctx context.Context, key, contentType string, body io.Reader) error
	PresignExportDownload(ctx context.Context, key string) (string, error)
}

// Archive describes an uploaded export.
type Archive struct {
	Key         string    `json:"key"`
	Rows        int       `json:"rows"`
	DownloadURL string    `json:"download_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Archiver uploads CSV exports to object storage.
type Archiver struct {
	reporter *Reporter
	objects  ObjectStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewArchiver creates an archiver. objects may be nil when object storage is not configured.
func NewArchiver(reporter *Reporter, objects ObjectStore, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{reporter: reporter, objects: objects, logger: logger, now: time.Now}
}

// Enabled reports whether object storage is configured.
func (a *Archiver) Enabled() bool { return a.objects != nil }

// Archive renders the export and uploads it, returning a pre-signed download URL.
func (a *Archiver) Archive(ctx context.Context, webinarID uuid.UUID) (*Archive, error) {
	if a.objects == nil {
		return nil, apperr.Unavailable("archive export", fmt.Errorf("object storage not configured"))
	}
	var buf bytes.Buffer
	rows, err := a.reporter.Export(ctx, webinarID, &buf)
	if err != nil {
		return nil, err
	}
	at := a.now().UTC()
	key := storage.LeadScoreExportKey(webinarID.String(), at)
	if err := a.objects.UploadExport(ctx, key, "text/csv", &buf); err != nil {
		return nil, apperr.Unavailable("upload export", err)
	}
	url, err := a.objects.PresignExportDownload(ctx, key)
	if err != nil {
		return nil, apperr.Unavailable("presign export", err)
	}
	a.logger.Info("lead score export archived",
		zap.String("webinar_id", webinarID.String()),
		zap.String("key", key),
		zap.Int("rows", rows),
	)
	return &Archive{Key: key, Rows: rows, DownloadURL: url, CreatedAt: at}, nil
}
