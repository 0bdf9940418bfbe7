package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"account_service/internal/model"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNoUpdateData = errors.New("no update data")
	ErrUserNotFound = errors.New("user not found")
)

// ConflictError is returned when a write collides with a unique column.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return e.Field + " already exists"
}

// DB is the subset of pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserUpdate lists the columns a partial update may touch; nil means unchanged.
type UserUpdate struct {
	Username   *string
	Phone      *int64
	Password   *string
	AvatarsDir *string
}

// UserRepository defines operations for user data
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, id int64, update UserUpdate) error
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByPhone(ctx context.Context, phone int64) (*model.User, error)
}

type userRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, phone, password, is_active, is_staff, avatars_dir`

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	sql := `INSERT INTO "user" (username, phone, password, is_active, is_staff, avatars_dir)
            VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.db.QueryRow(ctx, sql,
		user.Username, user.Phone, user.Password, user.IsActive, user.IsStaff, user.AvatarsDir,
	).Scan(&user.ID)
	if err != nil {
		if conflict := asConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Update applies the set fields of update in a single statement
func (r *userRepository) Update(ctx context.Context, id int64, update UserUpdate) error {
	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Username != nil {
		add("username", *update.Username)
	}
	if update.Phone != nil {
		add("phone", *update.Phone)
	}
	if update.Password != nil {
		add("password", *update.Password)
	}
	if update.AvatarsDir != nil {
		add("avatars_dir", *update.AvatarsDir)
	}
	if len(sets) == 0 {
		return ErrNoUpdateData
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`UPDATE "user" SET `)
	queryBuilder.WriteString(strings.Join(sets, ", "))
	args = append(args, id)
	queryBuilder.WriteString(fmt.Sprintf(" WHERE id = $%d", len(args)))

	cmdTag, err := r.db.Exec(ctx, queryBuilder.String(), args...)
	if err != nil {
		if conflict := asConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// FindByID retrieves a user by their ID
func (r *userRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	sql := `SELECT ` + userColumns + ` FROM "user" WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByPhone retrieves a user by their phone number
func (r *userRepository) FindByPhone(ctx context.Context, phone int64) (*model.User, error) {
	sql := `SELECT ` + userColumns + ` FROM "user" WHERE phone = $1 LIMIT 1`
	user, err := scanUser(r.db.QueryRow(ctx, sql, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found is not an error here, the service layer decides
		}
		return nil, fmt.Errorf("failed to find user by phone: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Phone, &user.Password, &user.IsActive, &user.IsStaff, &user.AvatarsDir)
	if err != nil {
		return nil, err
	}
	return user, nil
}

var (
	uniqueColumns = map[string]string{
		"ix_user_username": "username",
		"ix_user_phone":    "phone",
	}
	detailKeyRe = regexp.MustCompile(`Key \(([a-z_]+)\)=`)
)

// asConflict turns a unique violation into a ConflictError naming the column.
func asConflict(err error) *ConflictError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	if field, ok := uniqueColumns[pgErr.ConstraintName]; ok {
		return &ConflictError{Field: field}
	}
	if m := detailKeyRe.FindStringSubmatch(pgErr.Detail); m != nil {
		return &ConflictError{Field: m[1]}
	}
	return &ConflictError{Field: "user"}
}
