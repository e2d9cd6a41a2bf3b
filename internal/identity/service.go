package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinicops/clinic-core/internal/audit"
	"github.com/clinicops/clinic-core/pkg/logger"
	"github.com/clinicops/clinic-core/pkg/monitoring"
	"github.com/clinicops/clinic-core/pkg/types"
	"github.com/google/uuid"
)

// UserStore is the read side the identity context needs
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
}

// StatusUpdater changes account status; satisfied by UserRepository
type StatusUpdater interface {
	UpdateUserStatus(ctx context.Context, id string, status types.AccountStatus) error
}

// Service resolves callers from session tokens and manages session lifecycle
type Service struct {
	users     UserStore
	sessions  SessionStore
	tokens    *TokenIssuer
	passwords *PasswordManager
	recorder  *audit.Recorder
	metrics   *monitoring.MetricsCollector
	logger    *logger.Logger
	ttl       time.Duration
	now       func() time.Time
}

// Options bundles the collaborators of the identity service
type Options struct {
	Users      UserStore
	Sessions   SessionStore
	Tokens     *TokenIssuer
	Passwords  *PasswordManager
	Recorder   *audit.Recorder
	Metrics    *monitoring.MetricsCollector
	Logger     *logger.Logger
	SessionTTL time.Duration
}

// NewService creates a new identity service
func NewService(opts Options) *Service {
	return &Service{
		users:     opts.Users,
		sessions:  opts.Sessions,
		tokens:    opts.Tokens,
		passwords: opts.Passwords,
		recorder:  opts.Recorder,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		ttl:       opts.SessionTTL,
		now:       time.Now,
	}
}

// Login verifies credentials and opens a session
func (s *Service) Login(ctx context.Context, creds *types.Credentials) (*types.AuthToken, *types.User, error) {
	log := s.logger.WithContext(ctx).WithField("component", "identity")

	if creds == nil || creds.Email == "" || creds.Password == "" {
		return nil, nil, types.NewValidationError(types.ErrCodeInvalidInput, "email and password are required", nil)
	}

	user, err := s.users.GetUserByEmail(ctx, creds.Email)
	if err != nil {
		if types.IsNotFound(err) {
			s.metrics.RecordLogin(false)
			return nil, nil, types.NewUnauthenticatedError("invalid email or password")
		}
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	ok, err := s.passwords.VerifyPassword(user.PasswordHash, creds.Password)
	if err != nil {
		return nil, nil, types.NewInternalError(types.ErrCodeInternalError, "password verification failed", err)
	}
	if !ok {
		s.metrics.RecordLogin(false)
		log.WithField("user_id", user.ID).Warn("Login rejected: bad password")
		return nil, nil, types.NewUnauthenticatedError("invalid email or password")
	}

	if !user.IsActive() {
		s.metrics.RecordLogin(false)
		s.recorder.Record(ctx, user, audit.ActionAuthorizationDenied, user.ID, map[string]interface{}{
			"reason": types.ReasonAccountSuspended,
			"stage":  "login",
			"status": user.Status,
		})
		return nil, nil, types.NewForbiddenError(types.ReasonAccountSuspended, nil)
	}

	now := s.now().UTC()
	session := &Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, nil, types.NewInternalError(types.ErrCodeInternalError, "failed to open session", err)
	}

	signed, err := s.tokens.Issue(user, session)
	if err != nil {
		_ = s.sessions.Delete(ctx, session.ID)
		return nil, nil, types.NewInternalError(types.ErrCodeInternalError, "failed to issue token", err)
	}

	s.metrics.RecordLogin(true)
	s.recorder.Record(ctx, user, audit.ActionLogin, session.ID, nil)
	log.WithField("user_id", user.ID).Info("User logged in")

	return &types.AuthToken{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.ttl.Seconds()),
		IssuedAt:    now,
		Role:        user.Role,
		LandingPath: user.Role.LandingPath(),
	}, user, nil
}

// Resolve maps a session token to the calling user. Absent, expired, forged
// or revoked tokens all yield an Unauthenticated error. Account status is not
// checked here: the role gate owns that decision.
func (s *Service) Resolve(ctx context.Context, token string) (*types.User, *Session, error) {
	if token == "" {
		return nil, nil, types.NewUnauthenticatedError("authentication required")
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil, types.NewUnauthenticatedError("invalid or expired session")
	}

	session, err := s.sessions.Get(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil, types.NewUnauthenticatedError("session expired or revoked")
		}
		return nil, nil, types.NewInternalError(types.ErrCodeInternalError, "failed to load session", err)
	}
	if session.UserID != claims.UserID {
		return nil, nil, types.NewUnauthenticatedError("invalid or expired session")
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, nil, types.NewUnauthenticatedError("session user no longer exists")
		}
		return nil, nil, fmt.Errorf("failed to load session user: %w", err)
	}

	return user, session, nil
}

// Logout ends a single session
func (s *Service) Logout(ctx context.Context, user *types.User, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to end session", err)
	}
	s.recorder.Record(ctx, user, audit.ActionLogout, sessionID, nil)
	return nil
}

// TerminateAllForUser revokes every session of userID and returns how many were live
func (s *Service) TerminateAllForUser(ctx context.Context, userID string) (int, error) {
	removed, err := s.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to terminate sessions for %s: %w", userID, err)
	}
	return removed, nil
}

// SetAccountStatus changes a user's status as an admin action. Moving an
// account out of active revokes its sessions immediately.
func (s *Service) SetAccountStatus(ctx context.Context, admin *types.User, updater StatusUpdater, userID string, status types.AccountStatus) error {
	switch status {
	case types.StatusActive, types.StatusInactive, types.StatusSuspended:
	default:
		return types.NewValidationError(types.ErrCodeInvalidInput, fmt.Sprintf("unknown account status %q", status), nil)
	}

	if err := updater.UpdateUserStatus(ctx, userID, status); err != nil {
		return err
	}

	detail := map[string]interface{}{"status": status}
	if status != types.StatusActive {
		removed, err := s.TerminateAllForUser(ctx, userID)
		if err != nil {
			return types.NewInternalError(types.ErrCodeInternalError, "status updated but sessions could not be revoked", err)
		}
		detail["sessions_revoked"] = removed
	}

	s.recorder.Record(ctx, admin, "user.status_changed", userID, detail)
	return nil
}
