package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"github.com/wingmentor/wingmentor-api/internal/models"
	pkgerrors "github.com/wingmentor/wingmentor-api/pkg/errors"
)

// LogsCollection holds mentorship logs
const LogsCollection = "mentorship_logs"

// LogRepository reads and writes mentorship logs
type LogRepository struct {
	db docstore.ReadWriter
}

// NewLogRepository creates a log repository over the store
func NewLogRepository(db docstore.ReadWriter) *LogRepository {
	return &LogRepository{db: db}
}

// WithTx returns a repository bound to a transaction
func (r *LogRepository) WithTx(tx docstore.Tx) LogStore {
	return &LogRepository{db: tx}
}

// Create inserts a pending log stamped with the server time
func (r *LogRepository) Create(ctx context.Context, log *models.NewMentorshipLog) (string, error) {
	id, err := r.db.Insert(ctx, LogsCollection, map[string]any{
		models.LogFieldMentorID:    log.MentorID,
		models.LogFieldMenteeID:    log.MenteeID,
		models.LogFieldMenteeEmail: log.MenteeEmail,
		models.LogFieldHours:       log.HoursLogged,
		models.LogFieldDescription: log.SessionDescription,
		models.LogFieldProgram:     log.Program,
		models.LogFieldStatus:      string(models.LogStatusPending),
		models.LogFieldCreatedAt:   docstore.ServerTimestamp,
	})
	if err != nil {
		return "", pkgerrors.Persistence("insert", LogsCollection, err)
	}
	return id, nil
}

// Get loads one log; ErrNotFound when absent
func (r *LogRepository) Get(ctx context.Context, id string) (*models.MentorshipLog, error) {
	doc, err := r.db.Get(ctx, LogsCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, pkgerrors.NotFoundError("mentorship log")
		}
		return nil, pkgerrors.Persistence("get", LogsCollection, err)
	}
	log := decodeLog(*doc)
	return &log, nil
}

// FindPendingMatches returns the pending logs sharing the pairing triple
func (r *LogRepository) FindPendingMatches(ctx context.Context, key models.PairingKey) ([]models.MentorshipLog, error) {
	return r.list(ctx, docstore.From(LogsCollection).
		Where(models.LogFieldMentorID, key.MentorID).
		Where(models.LogFieldMenteeID, key.MenteeID).
		Where(models.LogFieldHours, key.HoursLogged).
		Where(models.LogFieldStatus, string(models.LogStatusPending)))
}

// ListByMentee returns the logs where uid is the mentee
func (r *LogRepository) ListByMentee(ctx context.Context, uid string) ([]models.MentorshipLog, error) {
	return r.list(ctx, docstore.From(LogsCollection).Where(models.LogFieldMenteeID, uid))
}

// ListByMentor returns the logs where uid is the mentor
func (r *LogRepository) ListByMentor(ctx context.Context, uid string) ([]models.MentorshipLog, error) {
	return r.list(ctx, docstore.From(LogsCollection).Where(models.LogFieldMentorID, uid))
}

// ListPending returns every pending log in insertion order
func (r *LogRepository) ListPending(ctx context.Context) ([]models.MentorshipLog, error) {
	return r.list(ctx, docstore.From(LogsCollection).Where(models.LogFieldStatus, string(models.LogStatusPending)))
}

// MarkVerified promotes a log
func (r *LogRepository) MarkVerified(ctx context.Context, id string) error {
	err := r.db.Update(ctx, LogsCollection, id, map[string]any{
		models.LogFieldStatus: string(models.LogStatusVerified),
	})
	if err != nil {
		return pkgerrors.Persistence("update", LogsCollection, err)
	}
	return nil
}

func (r *LogRepository) list(ctx context.Context, q docstore.Query) ([]models.MentorshipLog, error) {
	docs, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, pkgerrors.Persistence("query", LogsCollection, err)
	}
	logs := make([]models.MentorshipLog, 0, len(docs))
	for _, doc := range docs {
		logs = append(logs, decodeLog(doc))
	}
	return logs, nil
}

func decodeLog(doc docstore.Document) models.MentorshipLog {
	d := doc.Data
	log := models.MentorshipLog{
		ID:                 doc.ID,
		MentorID:           stringField(d, models.LogFieldMentorID),
		MenteeID:           stringField(d, models.LogFieldMenteeID),
		MenteeEmail:        stringField(d, models.LogFieldMenteeEmail),
		HoursLogged:        floatField(d, models.LogFieldHours),
		SessionDescription: stringField(d, models.LogFieldDescription),
		Program:            stringField(d, models.LogFieldProgram),
		Status:             models.LogStatus(stringField(d, models.LogFieldStatus)),
		CreatedAt:          timeField(d, models.LogFieldCreatedAt),
	}
	if log.Status != models.LogStatusVerified {
		log.Status = models.LogStatusPending
	}
	if strings.TrimSpace(log.Program) == "" {
		log.Program = models.DefaultProgram
	}
	return log
}
