package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/incident-service/internal/domain"
	"github.com/opsdesk/incident-service/internal/repository"
	"github.com/opsdesk/incident-service/pkg/util"
)

type fakeUserRepo struct {
	users map[int64]*domain.User

	emailInUse  bool
	emailErr    error
	lastEmail   string
	lastExclude int64

	insertErr   error
	nextID      int64
	patchRows   int64
	patchErr    error
	lastAssigns []repository.Assignment
	exists      bool
	existsErr   error
	deleteRows  int64
	deleteErr   error
}

func (f *fakeUserRepo) Insert(_ context.Context, user *domain.User) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.nextID++
	user.ID = f.nextID
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) ApplyPatch(_ context.Context, id int64, assigns []repository.Assignment) (int64, error) {
	f.lastAssigns = assigns
	return f.patchRows, f.patchErr
}

func (f *fakeUserRepo) Delete(_ context.Context, id int64) (int64, error) {
	return f.deleteRows, f.deleteErr
}

func (f *fakeUserRepo) Exists(_ context.Context, id int64) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeUserRepo) EmailInUse(_ context.Context, email string, excludeID int64) (bool, error) {
	f.lastEmail = email
	f.lastExclude = excludeID
	return f.emailInUse, f.emailErr
}

func newUserServiceForTest(repo *fakeUserRepo) *UserService {
	svc := NewUserService(repo, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestUserCreateTrimsAndValidates(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := newUserServiceForTest(repo)

	user, err := svc.Create(context.Background(), "  Ana  ", " ana@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Positive(t, user.ID)

	_, err = svc.Create(context.Background(), "   ", "ana@example.com")
	require.Error(t, err)
	assert.Equal(t, 400, util.ToDomainError(err).HTTPStatus)
}

func TestUserCreateDuplicateEmailIsConflict(t *testing.T) {
	repo := &fakeUserRepo{emailInUse: true}
	svc := newUserServiceForTest(repo)

	_, err := svc.Create(context.Background(), "Ana", "ana@example.com")
	require.Error(t, err)
	domainErr := util.ToDomainError(err)
	assert.Equal(t, 409, domainErr.HTTPStatus)
	assert.Equal(t, "email already registered", domainErr.Message)
	assert.Equal(t, int64(0), repo.lastExclude)
}

func TestUserCreateUniqueConstraintBackstop(t *testing.T) {
	repo := &fakeUserRepo{insertErr: &pgconn.PgError{Code: pgerrcode.UniqueViolation}}
	svc := newUserServiceForTest(repo)

	_, err := svc.Create(context.Background(), "Ana", "ana@example.com")
	require.Error(t, err)
	assert.Equal(t, 409, util.ToDomainError(err).HTTPStatus)
}

func TestUserUpdateEmailTakenByAnotherIsConflict(t *testing.T) {
	repo := &fakeUserRepo{emailInUse: true}
	svc := newUserServiceForTest(repo)

	err := svc.Update(context.Background(), 5, map[string]any{"email": "taken@example.com"})
	require.Error(t, err)
	domainErr := util.ToDomainError(err)
	assert.Equal(t, 409, domainErr.HTTPStatus)
	assert.Equal(t, "email already registered by another user", domainErr.Message)
	assert.Equal(t, int64(5), repo.lastExclude)
}

func TestUserUpdateUnknownFieldsOnly(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := newUserServiceForTest(repo)

	err := svc.Update(context.Background(), 5, map[string]any{"role": "admin"})
	require.Error(t, err)
	domainErr := util.ToDomainError(err)
	assert.Equal(t, 400, domainErr.HTTPStatus)
	assert.Equal(t, "nothing to update", domainErr.Message)
	assert.Empty(t, repo.lastAssigns)
}

func TestUserUpdateAppendsUpdatedAt(t *testing.T) {
	repo := &fakeUserRepo{patchRows: 1}
	svc := newUserServiceForTest(repo)

	err := svc.Update(context.Background(), 5, map[string]any{"name": "Bea"})
	require.NoError(t, err)

	require.Len(t, repo.lastAssigns, 2)
	assert.Equal(t, "name", repo.lastAssigns[0].Column)
	assert.Equal(t, "Bea", repo.lastAssigns[0].Value)
	assert.Equal(t, "updated_at", repo.lastAssigns[1].Column)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), repo.lastAssigns[1].Value)
}

func TestUserUpdateZeroRowsWithExistingRowSucceeds(t *testing.T) {
	repo := &fakeUserRepo{patchRows: 0, exists: true}
	svc := newUserServiceForTest(repo)

	err := svc.Update(context.Background(), 5, map[string]any{"name": "Bea"})
	assert.NoError(t, err)
}

func TestUserUpdateZeroRowsWithMissingRowIsNotFound(t *testing.T) {
	repo := &fakeUserRepo{patchRows: 0, exists: false}
	svc := newUserServiceForTest(repo)

	err := svc.Update(context.Background(), 5, map[string]any{"name": "Bea"})
	require.Error(t, err)
	domainErr := util.ToDomainError(err)
	assert.Equal(t, 404, domainErr.HTTPStatus)
	assert.Equal(t, "user not found", domainErr.Message)
}

func TestUserDeleteWithIncidentsIsConflict(t *testing.T) {
	repo := &fakeUserRepo{deleteErr: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}}
	svc := newUserServiceForTest(repo)

	err := svc.Delete(context.Background(), 5)
	require.Error(t, err)
	domainErr := util.ToDomainError(err)
	assert.Equal(t, 409, domainErr.HTTPStatus)
	assert.Equal(t, "user has associated incidents", domainErr.Message)
}

func TestUserDeleteMissingIsNotFound(t *testing.T) {
	repo := &fakeUserRepo{deleteRows: 0}
	svc := newUserServiceForTest(repo)

	err := svc.Delete(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, 404, util.ToDomainError(err).HTTPStatus)
}
