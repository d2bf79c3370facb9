package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wingmentor/wingmentor-api/config"
	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"github.com/wingmentor/wingmentor-api/internal/models"
	"github.com/wingmentor/wingmentor-api/internal/repository"
	"github.com/wingmentor/wingmentor-api/pkg/logger"
	"github.com/wingmentor/wingmentor-api/pkg/metrics"
	"github.com/wingmentor/wingmentor-api/pkg/sanitize"
	"github.com/wingmentor/wingmentor-api/pkg/trigger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EventLogVerified is posted to the log-verified trigger for each promoted log
const EventLogVerified = "log.verified"

// LogService submits mentorship logs and verifies matching pairs.
//
// With the atomic strategy the insert, the match query and the promotion run
// in one transaction holding a lock on the pairing triple, so two parties
// submitting at the same moment always verify each other. check_then_act
// issues them as separate store calls and can leave both logs pending when
// neither submission sees the other's insert.
type LogService struct {
	store    docstore.Store
	logs     repository.LogStore
	strategy string
	verified *trigger.Trigger
}

// NewLogService creates a log service over the store's log repository.
// verified may be nil.
func NewLogService(store docstore.Store, strategy string, verified *trigger.Trigger) *LogService {
	return NewLogServiceWithRepository(store, repository.NewLogRepository(store), strategy, verified)
}

// NewLogServiceWithRepository creates a log service on an explicit log
// store. store only runs the transactions; logs does every read and write.
func NewLogServiceWithRepository(store docstore.Store, logs repository.LogStore, strategy string, verified *trigger.Trigger) *LogService {
	if strategy == "" {
		strategy = config.ReconcileAtomic
	}
	return &LogService{
		store:    store,
		logs:     logs,
		strategy: strategy,
		verified: verified,
	}
}

// Strategy returns the configured reconciliation strategy
func (s *LogService) Strategy() string {
	return s.strategy
}

// SubmitLog validates and stores a pending log, then reconciles its pairing
// triple. It returns the new log id.
func (s *LogService) SubmitLog(ctx context.Context, entry *models.NewMentorshipLog) (string, error) {
	start := time.Now()
	defer func() {
		metrics.SubmissionDuration.Observe(metrics.MeasureDuration(start))
	}()

	clean := normalizeLog(entry)
	if err := validateStruct(&clean); err != nil {
		metrics.LogSubmissions.WithLabelValues("invalid").Inc()
		return "", err
	}
	key := models.PairingKey{MentorID: clean.MentorID, MenteeID: clean.MenteeID, HoursLogged: clean.HoursLogged}

	var (
		id       string
		promoted []string
		err      error
	)
	if s.strategy == config.ReconcileCheckThenAct {
		id, promoted, err = s.submitCheckThenAct(ctx, &clean, key)
	} else {
		id, promoted, err = s.submitAtomic(ctx, &clean, key)
	}
	if err != nil {
		metrics.LogSubmissions.WithLabelValues("error").Inc()
		return id, err
	}

	metrics.LogSubmissions.WithLabelValues("success").Inc()
	s.afterReconcile(key, promoted)

	logger.Info("Mentorship log submitted",
		zap.String("log_id", id),
		zap.String("mentor_id", key.MentorID),
		zap.String("mentee_id", key.MenteeID),
		zap.Float64("hours", key.HoursLogged),
		zap.Int("promoted", len(promoted)),
		zap.String("strategy", s.strategy))
	return id, nil
}

func (s *LogService) submitAtomic(ctx context.Context, entry *models.NewMentorshipLog, key models.PairingKey) (string, []string, error) {
	var (
		id       string
		promoted []string
	)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		// Retried transactions start over
		id, promoted = "", nil

		if err := tx.Lock(ctx, pairingLockKey(key)); err != nil {
			return err
		}
		logs := s.logs.WithTx(tx)

		var err error
		if id, err = logs.Create(ctx, entry); err != nil {
			return err
		}
		promoted, err = promoteMatches(ctx, logs, key, false)
		return err
	})
	if err != nil {
		logger.Error("Failed to submit mentorship log",
			zap.Error(err),
			zap.String("mentor_id", key.MentorID),
			zap.String("mentee_id", key.MenteeID))
		return "", nil, wrapPersistence("submit log", repository.LogsCollection, err)
	}
	return id, promoted, nil
}

func (s *LogService) submitCheckThenAct(ctx context.Context, entry *models.NewMentorshipLog, key models.PairingKey) (string, []string, error) {
	id, err := s.logs.Create(ctx, entry)
	if err != nil {
		logger.Error("Failed to insert mentorship log", zap.Error(err), zap.String("mentor_id", key.MentorID))
		return "", nil, err
	}

	promoted, err := promoteMatches(ctx, s.logs, key, true)
	if err != nil {
		// The log is persisted and stays pending
		logger.Error("Failed to reconcile mentorship log",
			zap.Error(err),
			zap.String("log_id", id))
		metrics.LogReconciliations.WithLabelValues("error").Inc()
		return id, promoted, err
	}
	return id, promoted, nil
}

// Reconcile promotes every pending log of the triple when at least two
// match, and returns how many were promoted.
func (s *LogService) Reconcile(ctx context.Context, mentorID, menteeID string, hours float64) (int, error) {
	if err := requireID("mentorId", mentorID); err != nil {
		return 0, err
	}
	if err := requireID("menteeId", menteeID); err != nil {
		return 0, err
	}
	key := models.PairingKey{MentorID: mentorID, MenteeID: menteeID, HoursLogged: hours}

	var (
		promoted []string
		err      error
	)
	if s.strategy == config.ReconcileCheckThenAct {
		promoted, err = promoteMatches(ctx, s.logs, key, true)
	} else {
		err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
			promoted = nil
			if err := tx.Lock(ctx, pairingLockKey(key)); err != nil {
				return err
			}
			var err error
			promoted, err = promoteMatches(ctx, s.logs.WithTx(tx), key, false)
			return err
		})
		err = wrapPersistence("reconcile", repository.LogsCollection, err)
	}
	if err != nil {
		metrics.LogReconciliations.WithLabelValues("error").Inc()
		return len(promoted), err
	}

	s.afterReconcile(key, promoted)
	return len(promoted), nil
}

// ReconcileAllPending re-checks every pending triple. It returns the number
// of triples with two or more pending logs and the number of logs promoted.
func (s *LogService) ReconcileAllPending(ctx context.Context) (int, int, error) {
	pending, err := s.logs.ListPending(ctx)
	if err != nil {
		return 0, 0, err
	}

	counts := make(map[models.PairingKey]int)
	var order []models.PairingKey
	for i := range pending {
		key := pending[i].PairingKey()
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}

	groups, total := 0, 0
	for _, key := range order {
		if counts[key] < 2 {
			continue
		}
		groups++
		n, err := s.Reconcile(ctx, key.MentorID, key.MenteeID, key.HoursLogged)
		total += n
		if err != nil {
			return groups, total, err
		}
	}

	logger.Info("Pending logs re-checked",
		zap.Int("pending", len(pending)),
		zap.Int("groups", groups),
		zap.Int("promoted", total))
	return groups, total, nil
}

// GetUserLogs returns the logs where uid is the mentee or the mentor,
// newest first.
func (s *LogService) GetUserLogs(ctx context.Context, uid string) ([]models.MentorshipLog, error) {
	if err := requireID("uid", uid); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	var asMentee, asMentor []models.MentorshipLog
	g.Go(func() error {
		var err error
		asMentee, err = s.logs.ListByMentee(gctx, uid)
		return err
	})
	g.Go(func() error {
		var err error
		asMentor, err = s.logs.ListByMentor(gctx, uid)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("Failed to load user logs", zap.Error(err), zap.String("uid", uid))
		return nil, err
	}

	seen := make(map[string]struct{}, len(asMentee)+len(asMentor))
	logs := make([]models.MentorshipLog, 0, len(asMentee)+len(asMentor))
	for _, batch := range [][]models.MentorshipLog{asMentee, asMentor} {
		for _, l := range batch {
			if _, dup := seen[l.ID]; dup {
				continue
			}
			seen[l.ID] = struct{}{}
			logs = append(logs, l)
		}
	}
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	return logs, nil
}

func (s *LogService) afterReconcile(key models.PairingKey, promoted []string) {
	if len(promoted) == 0 {
		metrics.LogReconciliations.WithLabelValues("unmatched").Inc()
		return
	}
	metrics.LogReconciliations.WithLabelValues("verified").Inc()
	metrics.LogsVerified.Add(float64(len(promoted)))

	logger.Info("Mentorship logs verified",
		zap.String("mentor_id", key.MentorID),
		zap.String("mentee_id", key.MenteeID),
		zap.Float64("hours", key.HoursLogged),
		zap.Strings("log_ids", promoted))

	for _, id := range promoted {
		s.verified.CallAsync(EventLogVerified, id)
	}
}

// promoteMatches verifies all pending logs of the triple when two or more
// exist. Outside a transaction the writes run concurrently and the first
// error wins; writes already issued are not undone.
func promoteMatches(ctx context.Context, logs repository.LogStore, key models.PairingKey, concurrent bool) ([]string, error) {
	matches, err := logs.FindPendingMatches(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(matches) < 2 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	for i := range matches {
		ids[i] = matches[i].ID
	}

	if !concurrent {
		for _, id := range ids {
			if err := logs.MarkVerified(ctx, id); err != nil {
				return nil, err
			}
		}
		return ids, nil
	}

	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			return logs.MarkVerified(ctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

func normalizeLog(entry *models.NewMentorshipLog) models.NewMentorshipLog {
	clean := models.NewMentorshipLog{
		MentorID:           strings.TrimSpace(entry.MentorID),
		MenteeID:           strings.TrimSpace(entry.MenteeID),
		MenteeEmail:        strings.TrimSpace(entry.MenteeEmail),
		HoursLogged:        entry.HoursLogged,
		SessionDescription: sanitize.Text(entry.SessionDescription),
		Program:            sanitize.Text(entry.Program),
	}
	if clean.Program == "" {
		clean.Program = models.DefaultProgram
	}
	return clean
}

func pairingLockKey(key models.PairingKey) string {
	return fmt.Sprintf("reconcile:%s|%s|%s",
		key.MentorID, key.MenteeID, strconv.FormatFloat(key.HoursLogged, 'g', -1, 64))
}
