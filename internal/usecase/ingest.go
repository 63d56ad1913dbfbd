package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"sheet-qa/internal/domain"
	"sheet-qa/internal/session"
	"sheet-qa/internal/table"
)

// MaxUploadBytes caps the size of a single uploaded workbook.
const MaxUploadBytes = 10 << 20

const (
	uploadedReply      = "Your file has been uploaded successfully. You can now ask questions."
	parseFailurePrefix = "Error processing file: "
	archivedPrefix     = "File uploaded to object storage: "
	archiveWarnPrefix  = "Warning: file could not be archived: "
	supportedExtension = ".xlsx"
)

// Archiver stores the raw bytes of an upload and returns a URL for them.
type Archiver interface {
	Upload(ctx context.Context, filename string, body io.Reader) (string, error)
}

// LogPolicy decides what a successful upload does to the existing message log.
type LogPolicy string

const (
	// LogReset starts a new log for every successful upload.
	LogReset LogPolicy = "reset"
	// LogAppend keeps the running log across uploads.
	LogAppend LogPolicy = "append"
)

func ParseLogPolicy(s string) (LogPolicy, error) {
	switch p := LogPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return LogReset, nil
	case LogReset, LogAppend:
		return p, nil
	default:
		return "", fmt.Errorf("usecase: unknown log policy %q", s)
	}
}

// ArchivePolicy decides how an archiver failure affects an upload.
type ArchivePolicy string

const (
	// ArchiveWarn keeps the parsed table and reports a warning message.
	ArchiveWarn ArchivePolicy = "warn"
	// ArchiveStrict rejects the whole upload.
	ArchiveStrict ArchivePolicy = "strict"
)

func ParseArchivePolicy(s string) (ArchivePolicy, error) {
	switch p := ArchivePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ArchiveWarn, nil
	case ArchiveWarn, ArchiveStrict:
		return p, nil
	default:
		return "", fmt.Errorf("usecase: unknown archive policy %q", s)
	}
}

// Upload is a single uploaded file. Body is read twice: once to parse and
// once, after rewinding, to archive.
type Upload struct {
	Filename string
	Body     io.ReadSeeker
}

type Ingester struct {
	archiver      Archiver
	logPolicy     LogPolicy
	archivePolicy ArchivePolicy
	maxTableBytes int
	parse         func(io.Reader) (*table.Table, error)
}

type IngesterOption func(*Ingester)

func WithLogPolicy(p LogPolicy) IngesterOption {
	return func(i *Ingester) {
		i.logPolicy = p
	}
}

func WithArchivePolicy(p ArchivePolicy) IngesterOption {
	return func(i *Ingester) {
		i.archivePolicy = p
	}
}

// WithMaxTableBytes rejects tables whose encoded size exceeds n, for session
// stores that cannot hold larger ones. Zero means no limit.
func WithMaxTableBytes(n int) IngesterOption {
	return func(i *Ingester) {
		if n > 0 {
			i.maxTableBytes = n
		}
	}
}

func NewIngester(a Archiver, opts ...IngesterOption) (*Ingester, error) {
	if a == nil {
		return nil, errors.New("usecase: archiver must not be nil")
	}
	i := &Ingester{
		archiver:      a,
		logPolicy:     LogReset,
		archivePolicy: ArchiveWarn,
		parse:         table.ParseXLSX,
	}
	for _, opt := range opts {
		opt(i)
	}
	if _, err := ParseLogPolicy(string(i.logPolicy)); err != nil {
		return nil, err
	}
	if _, err := ParseArchivePolicy(string(i.archivePolicy)); err != nil {
		return nil, err
	}
	return i, nil
}

// Ingest parses and archives up and returns the session effects describing
// the outcome. Parse failures, and archive failures under ArchiveStrict,
// produce a single error message effect together with a *Error.
func (i *Ingester) Ingest(ctx context.Context, up Upload) ([]session.Effect, error) {
	t, err := i.parseUpload(up)
	if err != nil {
		return failureEffects(err), newError(ErrorParseFailure, "parse_failed", err)
	}
	if err := i.checkSize(t); err != nil {
		return failureEffects(err), newError(ErrorParseFailure, "table_too_large", err)
	}

	var effects []session.Effect
	if i.logPolicy == LogReset {
		effects = append(effects, session.ResetLog{})
	}
	effects = append(effects,
		session.ReplaceTable{Table: t},
		session.AppendMessage{Message: domain.SystemMessage(uploadedReply)},
	)

	url, err := i.archive(ctx, up)
	if err != nil {
		if i.archivePolicy == ArchiveStrict {
			return failureEffects(err), newError(ErrorArchiveFailure, "archive_failed", err)
		}
		return append(effects, session.AppendMessage{
			Message: domain.SystemMessage(archiveWarnPrefix + err.Error()),
		}), nil
	}
	return append(effects, session.AppendMessage{
		Message: domain.SystemMessage(archivedPrefix + url),
	}), nil
}

func (i *Ingester) parseUpload(up Upload) (*table.Table, error) {
	if up.Body == nil {
		return nil, errors.New("no file content")
	}
	name := filepath.Base(strings.TrimSpace(up.Filename))
	if !strings.EqualFold(filepath.Ext(name), supportedExtension) {
		return nil, fmt.Errorf("unsupported file type %q, expected %s", name, supportedExtension)
	}
	size, err := up.Body.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("measure upload: %w", err)
	}
	if size > MaxUploadBytes {
		return nil, fmt.Errorf("file too large (%d bytes, max %d)", size, MaxUploadBytes)
	}
	if _, err := up.Body.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}
	return i.parse(up.Body)
}

func (i *Ingester) checkSize(t *table.Table) error {
	if i.maxTableBytes <= 0 {
		return nil
	}
	size, err := session.EncodedTableSize(t)
	if err != nil {
		return err
	}
	if size > i.maxTableBytes {
		return fmt.Errorf("table too large to keep in the session (%d bytes, max %d)", size, i.maxTableBytes)
	}
	return nil
}

func (i *Ingester) archive(ctx context.Context, up Upload) (string, error) {
	if _, err := up.Body.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}
	return i.archiver.Upload(ctx, filepath.Base(strings.TrimSpace(up.Filename)), up.Body)
}

func failureEffects(err error) []session.Effect {
	return []session.Effect{session.AppendMessage{
		Message: domain.SystemMessage(parseFailurePrefix + err.Error()),
	}}
}
