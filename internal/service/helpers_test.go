package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/color"
	"sync"
	"testing"
	"time"

	"account_service/internal/avatar"
	"account_service/internal/model"
	"account_service/internal/repository"
	"account_service/internal/utils"
	"account_service/internal/worker"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memRepo is an in-memory UserRepository enforcing the unique columns.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
	err    error
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[int64]*model.User)}
}

func (r *memRepo) conflict(id int64, username *string, phone *int64) error {
	for _, u := range r.users {
		if u.ID == id {
			continue
		}
		if username != nil && u.Username == *username {
			return &repository.ConflictError{Field: "username"}
		}
		if phone != nil && u.Phone == *phone {
			return &repository.ConflictError{Field: "phone"}
		}
	}
	return nil
}

func (r *memRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if err := r.conflict(0, &user.Username, &user.Phone); err != nil {
		return err
	}
	r.nextID++
	user.ID = r.nextID
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *memRepo) Update(_ context.Context, id int64, update repository.UserUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if update == (repository.UserUpdate{}) {
		return repository.ErrNoUpdateData
	}
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if err := r.conflict(id, update.Username, update.Phone); err != nil {
		return err
	}
	if update.Username != nil {
		u.Username = *update.Username
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	if update.Password != nil {
		u.Password = *update.Password
	}
	if update.AvatarsDir != nil {
		dir := *update.AvatarsDir
		u.AvatarsDir = &dir
	}
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *memRepo) FindByPhone(_ context.Context, phone int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Phone == phone {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

// fakeQueue records tasks instead of running them.
type fakeQueue struct {
	mu    sync.Mutex
	tasks []worker.Task
	err   error
}

func (q *fakeQueue) Enqueue(task worker.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *fakeQueue) recorded() []worker.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]worker.Task(nil), q.tasks...)
}

type countingRecorder struct {
	mu            sync.Mutex
	registrations map[string]int
	logins        map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{registrations: map[string]int{}, logins: map[string]int{}}
}

func (c *countingRecorder) Registration(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registrations[result]++
}

func (c *countingRecorder) Login(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logins[result]++
}

type fixture struct {
	repo    *memRepo
	store   *avatar.Store
	queue   *fakeQueue
	metrics *countingRecorder
	jwt     *utils.JWTUtil
	auth    AuthService
	users   UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	jwtUtil, err := utils.NewJWTUtil("test-secret", "HS256", time.Hour)
	require.NoError(t, err)

	f := &fixture{
		repo:    newMemRepo(),
		store:   avatar.NewStore(t.TempDir()),
		queue:   &fakeQueue{},
		metrics: newCountingRecorder(),
		jwt:     jwtUtil,
	}
	avatars := NewAvatars(f.store, f.queue, zap.NewNop())
	f.auth = NewAuthService(f.repo, jwtUtil, avatars, f.metrics, zap.NewNop())
	f.users = NewUserService(f.repo, avatars, zap.NewNop())
	return f
}

// runQueued executes recorded derivative tasks the way the worker would.
func (f *fixture) runQueued(t *testing.T) {
	t.Helper()
	handler := DerivativesHandler(f.store)
	for _, task := range f.queue.recorded() {
		require.NoError(t, handler(context.Background(), task))
	}
}

func pngBase64(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{G: 180, B: 255, A: 255})
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func ptr[T any](v T) *T { return &v }

var errDB = errors.New("db down")
