package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/regulars-api/internal/models"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
)

type enrolledDancerReader interface {
	ListActiveEnrolled(ctx context.Context, batchIDs []string) ([]models.EnrolledDancer, error)
}

type passLister interface {
	List(ctx context.Context, filter models.PassFilter) ([]models.Pass, error)
}

// PassLookup is the representative pass and status of one enrolled (dancer, batch) pair.
type PassLookup struct {
	models.EnrolledDancer
	Pass   *models.Pass
	Status models.PassStatus
}

// NotificationService projects the passes that need renewal. Nothing is cached or stored:
// every call recomputes from current rows and settings.
type NotificationService struct {
	enrollments enrolledDancerReader
	passes      passLister
	batches     instructorBatchLister
	settings    settingsReader
	logger      *zap.Logger
	location    *time.Location
	now         clock
}

// NewNotificationService constructs the notification service.
func NewNotificationService(enrollments enrolledDancerReader, passes passLister, batches instructorBatchLister, settings settingsReader, logger *zap.Logger, loc *time.Location) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{enrollments: enrollments, passes: passes, batches: batches, settings: settings, logger: logger, location: loc}
}

// List returns one notification per (dancer, batch) whose lookup pass is expiring soon or expired.
func (s *NotificationService) List(ctx context.Context, actor models.Actor) ([]models.Notification, error) {
	scope, err := batchScope(ctx, s.batches, actor)
	if err != nil {
		return nil, err
	}
	return s.Pending(ctx, scope)
}

// Pending builds notifications for the given batch scope; nil means every batch.
func (s *NotificationService) Pending(ctx context.Context, scope []string) ([]models.Notification, error) {
	lookups, err := s.Lookups(ctx, scope)
	if err != nil {
		return nil, err
	}
	notifications := make([]models.Notification, 0)
	for _, l := range lookups {
		if l.Pass == nil || !l.Status.NeedsAttention() {
			continue
		}
		notifications = append(notifications, toNotification(l))
	}
	sortNotifications(notifications)
	return notifications, nil
}

// Lookups resolves the lookup pass for every active enrollment of an active dancer in an active batch.
func (s *NotificationService) Lookups(ctx context.Context, scope []string) ([]PassLookup, error) {
	enrolled, err := s.enrollments.ListActiveEnrolled(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	if len(enrolled) == 0 {
		return []PassLookup{}, nil
	}
	passes, err := s.passes.List(ctx, models.PassFilter{BatchIDs: scope})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load passes")
	}
	settings, err := s.settings.Current(ctx, nil)
	if err != nil {
		return nil, err
	}
	today := s.now.today(s.location)
	grouped := groupPasses(passes)

	lookups := make([]PassLookup, 0, len(enrolled))
	seen := make(map[passKey]struct{}, len(enrolled))
	for _, e := range enrolled {
		key := passKey{dancerID: e.DancerID, batchID: e.BatchID}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		pass, status := LookupStatus(grouped[key], settings, today)
		lookups = append(lookups, PassLookup{EnrolledDancer: e, Pass: pass, Status: status})
	}
	return lookups, nil
}

func toNotification(l PassLookup) models.Notification {
	n := models.Notification{
		DancerID:   l.DancerID,
		DancerName: l.DancerName,
		BatchID:    l.BatchID,
		BatchName:  l.BatchName,
		PassID:     l.Pass.ID,
		PassType:   l.Pass.Type,
		Status:     l.Status,
		Message:    PassMessage(*l.Pass, l.Status),
	}
	switch l.Pass.Type {
	case models.PassTypeMonthly:
		n.EndDate = l.Pass.EndDate
	default:
		n.RemainingClasses = l.Pass.RemainingClasses
		n.TotalClasses = l.Pass.TotalClasses
	}
	return n
}

// sortNotifications orders expired first, then by dancer name, batch name and ids.
func sortNotifications(items []models.Notification) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		ae, be := a.Status == models.PassStatusExpired, b.Status == models.PassStatusExpired
		if ae != be {
			return ae
		}
		if a.DancerName != b.DancerName {
			return a.DancerName < b.DancerName
		}
		if a.BatchName != b.BatchName {
			return a.BatchName < b.BatchName
		}
		if a.DancerID != b.DancerID {
			return a.DancerID < b.DancerID
		}
		return a.BatchID < b.BatchID
	})
}
