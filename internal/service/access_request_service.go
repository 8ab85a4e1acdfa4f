package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studisys/docshare-api/internal/models"
	"github.com/studisys/docshare-api/internal/repository"
	appErrors "github.com/studisys/docshare-api/pkg/errors"
)

type accessRequestRepo interface {
	Create(ctx context.Context, req *models.AccessRequest) error
	FindByID(ctx context.Context, id string) (*models.AccessRequest, error)
	ExistsPending(ctx context.Context, courseID, teacherID string) (bool, error)
	Respond(ctx context.Context, id string, status models.AccessRequestStatus, responderID string, responseMessage *string) error
	ListByTeacher(ctx context.Context, teacherID string) ([]models.AccessRequestDetail, error)
	ListByModuleLeader(ctx context.Context, moduleLeaderID string, status models.AccessRequestStatus) ([]models.AccessRequestDetail, error)
}

type approvalApplier interface {
	Approve(ctx context.Context, p repository.ApprovalParams) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type distributionSharer interface {
	FindByID(ctx context.Context, id string) (*models.DocumentDistribution, error)
	ShareWithTeacher(ctx context.Context, id, teacherID, actorID, actorName string) (bool, error)
}

type grantCacheInvalidator interface {
	InvalidateTeacher(ctx context.Context, teacherID string)
}

type responseObserver interface {
	ObserveResponse(decision string)
}

// CreateAccessRequestRequest describes a teacher's course access request.
type CreateAccessRequestRequest struct {
	CourseID       string `json:"course_id" validate:"required"`
	ModuleLeaderID string `json:"module_leader_id" validate:"required"`
	Batch          int    `json:"batch" validate:"required,gt=0"`
	Semester       string `json:"semester" validate:"required"`
	Section        string `json:"section" validate:"required"`
	Message        string `json:"message" validate:"required,min=10,max=1000"`
}

// RespondAccessRequestRequest describes the module leader's decision.
type RespondAccessRequestRequest struct {
	Decision                string   `json:"decision" validate:"required,oneof=approved rejected"`
	ResponseMessage         string   `json:"response_message" validate:"omitempty,max=1000"`
	SelectedDistributionIDs []string `json:"selected_distribution_ids" validate:"omitempty,dive,required"`
}

// AccessRequestService owns the access request lifecycle. Approval drives
// the grant store, the assignment registry and optional document sharing.
type AccessRequestService struct {
	requests      accessRequestRepo
	approvals     approvalApplier
	courses       courseReader
	users         userReader
	distributions distributionSharer
	grantCache    grantCacheInvalidator
	notifier      NotificationDispatcher
	metrics       responseObserver
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewAccessRequestService creates a service instance.
func NewAccessRequestService(
	requests accessRequestRepo,
	approvals approvalApplier,
	courses courseReader,
	users userReader,
	distributions distributionSharer,
	grantCache grantCacheInvalidator,
	notifier NotificationDispatcher,
	metrics responseObserver,
	validate *validator.Validate,
	logger *zap.Logger,
) *AccessRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessRequestService{
		requests:      requests,
		approvals:     approvals,
		courses:       courses,
		users:         users,
		distributions: distributions,
		grantCache:    grantCache,
		notifier:      notifier,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
	}
}

// Create files a new pending request for the calling teacher. At most one
// pending request may exist per (course, teacher) pair.
func (s *AccessRequestService) Create(ctx context.Context, teacher *models.JWTClaims, req CreateAccessRequestRequest) (*models.AccessRequest, error) {
	if teacher == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing caller identity")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid access request payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if _, err := s.users.FindByID(ctx, req.ModuleLeaderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module leader not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module leader")
	}

	exists, err := s.requests.ExistsPending(ctx, req.CourseID, teacher.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a pending request already exists for this course")
	}

	request := &models.AccessRequest{
		CourseID:       req.CourseID,
		TeacherID:      teacher.UserID,
		ModuleLeaderID: req.ModuleLeaderID,
		Batch:          req.Batch,
		Semester:       req.Semester,
		Section:        req.Section,
		Message:        req.Message,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a pending request already exists for this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access request")
	}

	s.notify(ctx, req.ModuleLeaderID, "New course access request",
		fmt.Sprintf("%s requested access to %s (%s)", teacher.FullName, course.Name, course.Code))

	return request, nil
}

// Respond applies the module leader's terminal decision. Approvals commit
// the status transition, the grant merge and the assignment append as one
// transaction; document sharing and notifications follow best-effort.
func (s *AccessRequestService) Respond(ctx context.Context, requestID string, responder *models.JWTClaims, req RespondAccessRequestRequest) (*models.AccessRequest, error) {
	if responder == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing caller identity")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid response payload")
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "access request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load access request")
	}

	if request.ModuleLeaderID != responder.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned module leader may respond to this request")
	}
	if request.Status != models.AccessRequestPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "access request has already been responded to")
	}

	var responseMessage *string
	if req.ResponseMessage != "" {
		responseMessage = &req.ResponseMessage
	}

	decision := models.AccessRequestDecision(req.Decision)
	switch decision {
	case models.DecisionApproved:
		err = s.approvals.Approve(ctx, repository.ApprovalParams{
			RequestID:       request.ID,
			ResponderID:     responder.UserID,
			ResponseMessage: responseMessage,
			CourseID:        request.CourseID,
			Semester:        request.Semester,
			Year:            time.Now().UTC().Year(),
			Batch:           request.Batch,
			TeacherID:       request.TeacherID,
			Section:         request.Section,
		})
	case models.DecisionRejected:
		err = s.requests.Respond(ctx, request.ID, models.AccessRequestRejected, responder.UserID, responseMessage)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "access request has already been responded to")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply decision")
	}

	if s.metrics != nil {
		s.metrics.ObserveResponse(req.Decision)
	}

	if decision == models.DecisionApproved {
		s.shareSelectedDistributions(ctx, responder, request.TeacherID, req.SelectedDistributionIDs)
		if s.grantCache != nil {
			s.grantCache.InvalidateTeacher(ctx, request.TeacherID)
		}
	}

	s.notify(ctx, request.TeacherID, fmt.Sprintf("Course access request %s", req.Decision),
		fmt.Sprintf("Your access request for course %s was %s", request.CourseID, req.Decision))

	updated, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload access request")
	}
	return updated, nil
}

// ListForTeacher returns the caller's own requests.
func (s *AccessRequestService) ListForTeacher(ctx context.Context, teacherID string) ([]models.AccessRequestDetail, error) {
	requests, err := s.requests.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list access requests")
	}
	return requests, nil
}

// ListForModuleLeader returns requests addressed to the module leader.
func (s *AccessRequestService) ListForModuleLeader(ctx context.Context, moduleLeaderID string, status models.AccessRequestStatus) ([]models.AccessRequestDetail, error) {
	requests, err := s.requests.ListByModuleLeader(ctx, moduleLeaderID, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list access requests")
	}
	return requests, nil
}

// shareSelectedDistributions extends sharing to the approved teacher for
// each selected distribution the responder owns. Distributions owned by
// someone else are skipped silently.
func (s *AccessRequestService) shareSelectedDistributions(ctx context.Context, responder *models.JWTClaims, teacherID string, distributionIDs []string) {
	if s.distributions == nil {
		return
	}
	for _, id := range distributionIDs {
		dist, err := s.distributions.FindByID(ctx, id)
		if err != nil {
			s.logger.Warn("selected distribution could not be loaded",
				zap.String("distribution_id", id), zap.Error(err))
			continue
		}
		if dist.ModuleLeaderID != responder.UserID {
			continue
		}
		if _, err := s.distributions.ShareWithTeacher(ctx, id, teacherID, responder.UserID, responder.FullName); err != nil {
			s.logger.Warn("failed to share distribution with approved teacher",
				zap.String("distribution_id", id), zap.String("teacher_id", teacherID), zap.Error(err))
		}
	}
}

func (s *AccessRequestService) notify(ctx context.Context, recipientID, subject, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, Notification{RecipientID: recipientID, Subject: subject, Body: body}); err != nil {
		s.logger.Warn("notification dispatch failed", zap.String("recipient", recipientID), zap.Error(err))
	}
}
