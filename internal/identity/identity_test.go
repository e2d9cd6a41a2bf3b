package identity

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clinicops/clinic-core/internal/audit"
	"github.com/clinicops/clinic-core/pkg/database"
	"github.com/clinicops/clinic-core/pkg/logger"
	"github.com/clinicops/clinic-core/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserStore is a mock implementation of UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserStore) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

type nopSink struct{}

func (nopSink) Name() string { return "nop" }

func (nopSink) Write(ctx context.Context, e *audit.Entry) error { return nil }

func newTestService(t *testing.T, users UserStore) (*Service, *MemorySessionStore) {
	t.Helper()
	sessions := NewMemorySessionStore()
	svc := NewService(Options{
		Users:      users,
		Sessions:   sessions,
		Tokens:     NewTokenIssuer("test-secret", "clinic-core-test"),
		Passwords:  NewPasswordManager(bcrypt.MinCost),
		Recorder:   audit.NewRecorder(nopSink{}, logger.Discard(), nil),
		Logger:     logger.Discard(),
		SessionTTL: time.Hour,
	})
	return svc, sessions
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := NewPasswordManager(bcrypt.MinCost).HashPassword(password)
	require.NoError(t, err)
	return h
}

func TestService_LoginAndResolve(t *testing.T) {
	users := new(MockUserStore)
	user := &types.User{ID: "u1", Email: "dr@clinic.test", Role: types.RoleStaff, Status: types.StatusActive, PasswordHash: hashed(t, "correct-horse")}
	users.On("GetUserByEmail", mock.Anything, "dr@clinic.test").Return(user, nil)
	users.On("GetUserByID", mock.Anything, "u1").Return(user, nil)

	svc, _ := newTestService(t, users)

	token, _, err := svc.Login(context.Background(), &types.Credentials{Email: "dr@clinic.test", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, "/staff/dashboard", token.LandingPath)

	resolved, session, err := svc.Resolve(context.Background(), token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", resolved.ID)
	assert.Equal(t, "u1", session.UserID)
}

func TestService_LoginRejections(t *testing.T) {
	users := new(MockUserStore)
	active := &types.User{ID: "u1", Role: types.RolePatient, Status: types.StatusActive, PasswordHash: hashed(t, "correct-horse")}
	suspended := &types.User{ID: "u2", Role: types.RolePatient, Status: types.StatusSuspended, PasswordHash: hashed(t, "correct-horse")}
	users.On("GetUserByEmail", mock.Anything, "a@x.test").Return(active, nil)
	users.On("GetUserByEmail", mock.Anything, "s@x.test").Return(suspended, nil)
	users.On("GetUserByEmail", mock.Anything, "nobody@x.test").Return(nil, types.NewNotFoundError("user", "nobody@x.test"))

	svc, _ := newTestService(t, users)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, &types.Credentials{Email: "a@x.test", Password: "wrong-password"})
	assert.True(t, types.IsUnauthenticated(err))

	_, _, err = svc.Login(ctx, &types.Credentials{Email: "nobody@x.test", Password: "whatever1"})
	assert.True(t, types.IsUnauthenticated(err))

	_, _, err = svc.Login(ctx, &types.Credentials{Email: "s@x.test", Password: "correct-horse"})
	assert.Equal(t, types.ReasonAccountSuspended, types.ReasonOf(err))

	_, _, err = svc.Login(ctx, &types.Credentials{})
	ce, ok := types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeValidation, ce.Type)
}

func TestService_ResolveUnauthenticated(t *testing.T) {
	users := new(MockUserStore)
	user := &types.User{ID: "u1", Email: "p@x.test", Role: types.RolePatient, Status: types.StatusActive, PasswordHash: hashed(t, "correct-horse")}
	users.On("GetUserByEmail", mock.Anything, "p@x.test").Return(user, nil)
	users.On("GetUserByID", mock.Anything, "u1").Return(user, nil)

	svc, sessions := newTestService(t, users)
	ctx := context.Background()

	t.Run("empty token", func(t *testing.T) {
		_, _, err := svc.Resolve(ctx, "")
		assert.True(t, types.IsUnauthenticated(err))
	})

	t.Run("forged token", func(t *testing.T) {
		other := NewTokenIssuer("other-secret", "clinic-core-test")
		forged, err := other.Issue(user, &Session{ID: "s", UserID: "u1", IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)})
		require.NoError(t, err)
		_, _, err = svc.Resolve(ctx, forged)
		assert.True(t, types.IsUnauthenticated(err))
	})

	t.Run("revoked session", func(t *testing.T) {
		token, _, err := svc.Login(ctx, &types.Credentials{Email: "p@x.test", Password: "correct-horse"})
		require.NoError(t, err)

		removed, err := svc.TerminateAllForUser(ctx, "u1")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, removed, 1)

		_, _, err = svc.Resolve(ctx, token.AccessToken)
		assert.True(t, types.IsUnauthenticated(err))
	})

	t.Run("expired session", func(t *testing.T) {
		token, _, err := svc.Login(ctx, &types.Credentials{Email: "p@x.test", Password: "correct-horse"})
		require.NoError(t, err)

		sessions.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { sessions.now = time.Now }()

		_, _, err = svc.Resolve(ctx, token.AccessToken)
		assert.True(t, types.IsUnauthenticated(err))
	})
}

func TestService_Logout(t *testing.T) {
	users := new(MockUserStore)
	user := &types.User{ID: "u1", Email: "p@x.test", Role: types.RolePatient, Status: types.StatusActive, PasswordHash: hashed(t, "correct-horse")}
	users.On("GetUserByEmail", mock.Anything, "p@x.test").Return(user, nil)
	users.On("GetUserByID", mock.Anything, "u1").Return(user, nil)

	svc, _ := newTestService(t, users)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, &types.Credentials{Email: "p@x.test", Password: "correct-horse"})
	require.NoError(t, err)
	_, session, err := svc.Resolve(ctx, token.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, user, session.ID))

	_, _, err = svc.Resolve(ctx, token.AccessToken)
	assert.True(t, types.IsUnauthenticated(err))
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", "clinic-core")
	user := &types.User{ID: "u1", Role: types.RoleAdmin}
	issued := time.Now().Add(-2 * time.Hour)

	token, err := issuer.Issue(user, &Session{ID: "s1", UserID: "u1", IssuedAt: issued, ExpiresAt: issued.Add(time.Hour)})
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	assert.Error(t, err)
}

func TestPasswordManager(t *testing.T) {
	pm := NewPasswordManager(bcrypt.MinCost)

	_, err := pm.HashPassword("short")
	assert.Error(t, err)

	hash, err := pm.HashPassword("long-enough")
	require.NoError(t, err)

	ok, err := pm.VerifyPassword(hash, "long-enough")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = pm.VerifyPassword(hash, "not-it-at-all")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserRepository_GetUserByID(t *testing.T) {
	sqlDB, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	repo := NewUserRepository(database.Wrap(sqlDB, logger.Discard()), logger.Discard())

	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "name", "email", "role", "status", "password_hash", "created_at", "updated_at",
		"user_id", "employee_id", "position", "license_number", "license_expiry",
	}).AddRow("u1", "Dr. Ana", "ana@clinic.test", "staff", "active", "hash", now, now,
		"u1", "E-7", "dentist", "LIC-1", expiry)

	sqlMock.ExpectQuery("SELECT (.+) FROM users u LEFT JOIN staff_profiles sp (.+) WHERE u.id = \\$1").
		WithArgs("u1").
		WillReturnRows(rows)

	user, err := repo.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, user.Staff)
	assert.Equal(t, "dentist", user.Staff.Position)
	assert.Equal(t, expiry, *user.Staff.LicenseExpiry)

	sqlMock.ExpectQuery("SELECT (.+) FROM users").WithArgs("missing").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetUserByID(context.Background(), "missing")
	assert.True(t, types.IsNotFound(err))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestUserRepository_CreatePatientProfileIsIdempotent(t *testing.T) {
	sqlDB, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	repo := NewUserRepository(database.Wrap(sqlDB, logger.Discard()), logger.Discard())

	sqlMock.ExpectExec("INSERT INTO patient_profiles (.+) ON CONFLICT \\(user_id\\) DO NOTHING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectExec("INSERT INTO patient_profiles").
		WillReturnResult(sqlmock.NewResult(0, 0))

	profile := &types.PatientProfile{UserID: "p1", EmergencyContactName: types.PlaceholderEmergencyContact, EmergencyContactPhone: types.PlaceholderEmergencyContact}
	created, err := repo.CreatePatientProfile(context.Background(), profile)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreatePatientProfile(context.Background(), &types.PatientProfile{UserID: "p1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
