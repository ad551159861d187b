package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-od-api/internal/dto"
	"github.com/noah-isme/campus-od-api/internal/models"
	"github.com/noah-isme/campus-od-api/internal/repository"
	appErrors "github.com/noah-isme/campus-od-api/pkg/errors"
	"github.com/noah-isme/campus-od-api/pkg/validation"
)

const (
	studentListCachePrefix = "od:student:"
	defaultODPageSize      = 20
)

type odRequestStore interface {
	Create(ctx context.Context, req *models.ODRequest) error
	GetByID(ctx context.Context, id string) (*models.ODRequest, error)
	ListByStudent(ctx context.Context, email string) ([]models.ODRequest, error)
	List(ctx context.Context, filter models.ODRequestFilter) ([]models.ODRequest, int, error)
	UpdateStatus(ctx context.Context, params repository.UpdateODStatusParams) (*models.ODRequest, error)
	Stats(ctx context.Context) (*models.ODStats, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type statusNotifier interface {
	StatusChanged(ctx context.Context, change models.ODStatusChange)
}

// ODRequestServiceOption configures the service.
type ODRequestServiceOption func(*ODRequestService)

// WithODCache enables the per-student list cache.
func WithODCache(cache *CacheService, ttl time.Duration) ODRequestServiceOption {
	return func(s *ODRequestService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithODNotifier sends status change notifications.
func WithODNotifier(n statusNotifier) ODRequestServiceOption {
	return func(s *ODRequestService) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithODMetrics records OD counters.
func WithODMetrics(m *MetricsService) ODRequestServiceOption {
	return func(s *ODRequestService) { s.metrics = m }
}

// WithTransitionPolicy overrides the lenient default.
func WithTransitionPolicy(p models.TransitionPolicy) ODRequestServiceOption {
	return func(s *ODRequestService) { s.policy = p }
}

// WithODValidator sets the payload validator and thereby the student email domain.
func WithODValidator(v *validation.Validator) ODRequestServiceOption {
	return func(s *ODRequestService) {
		if v != nil {
			s.validator = v
		}
	}
}

// ODRequestService implements create, list and review of OD requests.
type ODRequestService struct {
	repo      odRequestStore
	audit     auditLogger
	cache     *CacheService
	cacheTTL  time.Duration
	notifier  statusNotifier
	metrics   *MetricsService
	validator *validation.Validator
	policy    models.TransitionPolicy
	logger    *zap.Logger
	now       func() time.Time
}

// NewODRequestService constructs the service with defaults.
func NewODRequestService(repo odRequestStore, audit auditLogger, logger *zap.Logger, opts ...ODRequestServiceOption) *ODRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ODRequestService{
		repo:      repo,
		audit:     audit,
		logger:    logger,
		validator: validation.New(""),
		policy:    models.TransitionLenient,
		notifier:  noopNotifier{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Policy reports the active transition policy.
func (s *ODRequestService) Policy() models.TransitionPolicy {
	return s.policy
}

// Create stores a new pending request. Students may only file for their own email.
func (s *ODRequestService) Create(ctx context.Context, req dto.CreateODRequest, actor *models.JWTClaims) (*models.ODRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	fields := req.Fields()
	if fields.StudentEmail == "" && actor.Role == models.RoleStudent {
		fields.StudentEmail = actor.Email
	}
	if err := s.validator.Struct(fields); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if actor.Role == models.RoleStudent && !strings.EqualFold(fields.StudentEmail, actor.Email) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only submit requests for their own email")
	}

	od := &models.ODRequest{
		StudentEmail: fields.StudentEmail,
		Name:         fields.Name,
		RollNo:       fields.RollNo,
		DeptName:     fields.DeptName,
		Section:      fields.Section,
		Reason:       fields.Reason,
		Venue:        fields.Venue,
		Description:  fields.Description,
		Status:       models.ODStatusPending,
		AppliedAt:    s.now(),
	}
	if req.AppliedAt != nil && !req.AppliedAt.IsZero() {
		od.AppliedAt = req.AppliedAt.UTC()
	}

	if err := s.repo.Create(ctx, od); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create od request")
	}

	s.metrics.ODCreated()
	s.invalidate(ctx, od.StudentEmail)
	s.emitAudit(ctx, actor.UserID, models.AuditActionODCreate, od.ID, nil, od)
	s.logger.Info("od request created", zap.String("od_id", od.ID), zap.String("student_email", od.StudentEmail))
	return od, nil
}

// ListByStudent returns one student's requests newest first. The second result
// reports whether the list came from cache.
func (s *ODRequestService) ListByStudent(ctx context.Context, email string, actor *models.JWTClaims) ([]models.ODRequest, bool, error) {
	if actor == nil {
		return nil, false, appErrors.ErrUnauthorized
	}
	email = strings.TrimSpace(email)
	if !s.validator.ValidEmail(email) {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("email must look like name.dept2024@%s", s.validator.Domain()))
	}
	if actor.Role == models.RoleStudent && actor.Email != email {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own requests")
	}

	key := studentListCacheKey(email)
	var cached []models.ODRequest
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}

	list, err := s.repo.ListByStudent(ctx, email)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list od requests")
	}
	_ = s.cache.Set(ctx, key, list, s.cacheTTL)
	return list, false, nil
}

// List returns all requests for reviewers with optional status, search, sort and paging.
func (s *ODRequestService) List(ctx context.Context, query dto.ODQuery) ([]models.ODRequest, *models.Pagination, error) {
	filter := models.ODRequestFilter{Search: strings.TrimSpace(query.Search)}

	switch status := strings.ToLower(strings.TrimSpace(query.Status)); status {
	case "", "all":
	default:
		if !models.ODStatus(status).Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of all, pending, approved, rejected")
		}
		filter.Status = models.ODStatus(status)
	}

	switch sort := strings.TrimSpace(query.Sort); sort {
	case "", "date-desc", "date-asc", "status":
		filter.SortOrder = sort
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "sort must be one of date-desc, date-asc, status")
	}

	if query.Limit < 0 || query.Page < 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "page and limit must be positive")
	}
	if query.Page > 0 && query.Limit == 0 {
		query.Limit = defaultODPageSize
	}
	filter.Page = query.Page
	filter.PageSize = query.Limit

	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list od requests")
	}

	pagination := &models.Pagination{Page: 1, PageSize: total, TotalCount: total}
	if filter.PageSize > 0 {
		pagination.PageSize = filter.PageSize
		if filter.Page > 1 {
			pagination.Page = filter.Page
		}
	}
	return list, pagination, nil
}

// Get returns one request. Students only see their own.
func (s *ODRequestService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ODRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	od, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleStudent && od.StudentEmail != actor.Email {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own requests")
	}
	return od, nil
}

// UpdateStatus records a faculty decision and returns the stored request.
func (s *ODRequestService) UpdateStatus(ctx context.Context, id string, req dto.UpdateODStatusRequest, reviewer *models.JWTClaims) (*models.ODRequest, error) {
	if reviewer == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !reviewer.Role.IsReviewer() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only faculty may review od requests")
	}
	target := models.ODStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if target != models.ODStatusApproved && target != models.ODStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be approved or rejected")
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.Allows(current.Status, target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot change status from %s to %s", current.Status, target))
	}

	updated, err := s.repo.UpdateStatus(ctx, repository.UpdateODStatusParams{
		ID:          id,
		Status:      target,
		ReviewedBy:  reviewer.UserID,
		ReviewedAt:  s.now(),
		OnlyPending: s.policy == models.TransitionStrict,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if s.policy == models.TransitionStrict {
				return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "od request was already reviewed")
			}
			return nil, appErrors.Clone(appErrors.ErrNotFound, "od request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update od request")
	}

	s.metrics.ODReviewed(updated.Status)
	s.invalidate(ctx, updated.StudentEmail)
	s.emitAudit(ctx, reviewer.UserID, models.AuditActionODStatusChange, updated.ID,
		map[string]models.ODStatus{"status": current.Status},
		map[string]models.ODStatus{"status": updated.Status})
	if current.Status != updated.Status {
		s.notifier.StatusChanged(ctx, models.ODStatusChange{Request: *updated, Previous: current.Status, ReviewerID: reviewer.UserID})
	}
	s.logger.Info("od request reviewed",
		zap.String("od_id", updated.ID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("reviewer", reviewer.UserID),
	)
	return updated, nil
}

// Stats returns counts per status across all requests.
func (s *ODRequestService) Stats(ctx context.Context) (*models.ODStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count od requests")
	}
	return stats, nil
}

func (s *ODRequestService) load(ctx context.Context, id string) (*models.ODRequest, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "id is required")
	}
	od, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "od request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load od request")
	}
	return od, nil
}

func (s *ODRequestService) invalidate(ctx context.Context, email string) {
	_ = s.cache.Invalidate(ctx, studentListCacheKey(email))
}

func (s *ODRequestService) emitAudit(ctx context.Context, userID, action, resourceID string, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   models.AuditResourceOD,
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "od-service",
	}
	if userID != "" {
		entry.UserID = &userID
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

func studentListCacheKey(email string) string {
	return studentListCachePrefix + email
}

type noopNotifier struct{}

func (noopNotifier) StatusChanged(context.Context, models.ODStatusChange) {}
