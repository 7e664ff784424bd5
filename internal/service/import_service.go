package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/learnpath-api/internal/dto"
	"github.com/noah-isme/learnpath-api/internal/importer"
	"github.com/noah-isme/learnpath-api/internal/models"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
)

// Upload is a spreadsheet received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

type archiver interface {
	Archive(kind, name string, data []byte) (string, error)
}

// importRecorder archives uploads and records metrics and audit entries for
// every bulk import.
type importRecorder struct {
	archive archiver
	metrics *MetricsService
	audit   auditRecorder
	logger  *zap.Logger
}

// importJob describes one bulk import. Rows are reconciled against lookup and
// the created partition is handed to persist.
type importJob[T any, K comparable, R any] struct {
	target  string
	layout  importer.Layout
	schema  importer.Schema[T]
	lookup  importer.KeyLookup[K]
	keyOf   func(T) K
	persist func(context.Context, []T) ([]R, error)
}

func runImport[T any, K comparable, R any](ctx context.Context, rec *importRecorder, job importJob[T, K, R], upload Upload, actor *models.JWTClaims, meta models.RequestMeta) (*dto.ImportResult[R, K], error) {
	rows, err := importer.ReadSheet(upload.Data, upload.Filename)
	if err != nil {
		if errors.Is(err, importer.ErrUnsupportedFormat) {
			return nil, appErrors.Clone(appErrors.ErrBadInput, err.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrBadInput.Code, appErrors.ErrBadInput.Status, "could not read the uploaded spreadsheet")
	}

	outcome, err := importer.ReconcileWithLookup(ctx, rows, job.layout, job.schema, job.lookup, job.keyOf)
	if err != nil {
		var pre *importer.PreconditionError
		if errors.As(err, &pre) {
			return nil, appErrors.Wrap(err, appErrors.ErrBadInput.Code, appErrors.ErrBadInput.Status, pre.Error())
		}
		return nil, internalError(err, "failed to check existing records")
	}

	created, err := job.persist(ctx, outcome.Created)
	if err != nil {
		return nil, writeError(err, "another upload created some of these records, retry the import", fmt.Sprintf("failed to import %s", job.target))
	}
	if created == nil {
		created = []R{}
	}

	invalid := 0
	for _, row := range outcome.Invalid {
		invalid += len(row.Rows)
	}
	result := &dto.ImportResult[R, K]{
		Created:     created,
		Duplicates:  outcome.Duplicates,
		InvalidRows: outcome.Invalid,
		Summary: dto.ImportSummary{
			Rows:       len(rows),
			Created:    len(created),
			Duplicates: len(outcome.Duplicates),
			Invalid:    invalid,
		},
	}
	if result.InvalidRows == nil {
		result.InvalidRows = []importer.InvalidRow{}
	}

	if rec.archive != nil {
		path, err := rec.archive.Archive(job.target, upload.Filename, upload.Data)
		if err != nil {
			rec.logger.Warn("failed to archive import upload", zap.String("target", job.target), zap.Error(err))
		} else {
			result.ArchivedAs = path
		}
	}

	rec.metrics.RecordImport(job.target, result.Summary.Created, result.Summary.Duplicates, result.Summary.Invalid)

	entry := models.AuditLog{
		Action:    models.AuditActionBulkImport,
		Resource:  job.target,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if actor != nil {
		entry.ActorID = &actor.UserID
		entry.ActorRole = string(actor.Role)
	}
	recordAudit(ctx, rec.audit, rec.logger, entry, map[string]interface{}{
		"file":       upload.Filename,
		"archive":    result.ArchivedAs,
		"rows":       result.Summary.Rows,
		"created":    result.Summary.Created,
		"duplicates": result.Summary.Duplicates,
		"invalid":    result.Summary.Invalid,
	})

	rec.logger.Info("bulk import completed",
		zap.String("target", job.target),
		zap.Int("rows", result.Summary.Rows),
		zap.Int("created", result.Summary.Created),
		zap.Int("duplicates", result.Summary.Duplicates),
		zap.Int("invalid", result.Summary.Invalid),
	)
	return result, nil
}
