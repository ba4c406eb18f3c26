package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/repository/userrepo"
	"github.com/Leopold1975/helpdesk/internal/pkg/pgtools"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

var userColumns = []string{
	"username", "password_hash", "user_role", "email", "first_name", "middle_name",
	"last_name", "preferred_name", "one_time_password", "otp_expiry", "setup_complete", "topics",
}

type UsersPostgresRepo struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) UsersPostgresRepo {
	return UsersPostgresRepo{
		db: db,
	}
}

func (ur UsersPostgresRepo) CreateUser(ctx context.Context, u models.User) (err error) {
	vals, err := userValues(u)
	if err != nil {
		return err
	}

	tx, err := ur.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "create")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Insert("users").
		Columns(userColumns...).
		Values(vals...).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	_, err = tx.Exec(ctx, query, args...)
	if err != nil {
		target := new(pgconn.PgError)
		if errors.As(err, &target) && target.Code == uniqueViolation {
			return userrepo.ErrAlreadyExists
		}

		return fmt.Errorf("exec error: %w", err)
	}

	return nil
}

func (ur UsersPostgresRepo) GetUser(ctx context.Context, username string) (models.User, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"username": username}).ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("to sql error: %w", err)
	}

	u, err := scanUser(ur.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, userrepo.ErrNotFound
		}

		return models.User{}, err
	}

	return u, nil
}

func (ur UsersPostgresRepo) UpdateUser(ctx context.Context, u models.User) (err error) {
	vals, err := userValues(u)
	if err != nil {
		return err
	}

	tx, err := ur.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "update")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	ub := psql.Update("users")
	// username is the key and is never rewritten.
	for i, col := range userColumns[1:] {
		ub = ub.Set(col, vals[i+1])
	}

	query, args, err := ub.Where(squirrel.Eq{"username": u.Username}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return userrepo.ErrNotFound
	}

	return nil
}

// DeleteUser also drops the user's articles through the foreign key cascade.
func (ur UsersPostgresRepo) DeleteUser(ctx context.Context, username string) (err error) {
	tx, err := ur.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "delete")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Delete("users").
		Where(squirrel.Eq{"username": username}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return userrepo.ErrNotFound
	}

	return nil
}

func (ur UsersPostgresRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select(userColumns...).
		From("users").
		OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	rows, err := ur.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0, 10) //nolint:gomnd

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}

		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

func (ur UsersPostgresRepo) CountUsers(ctx context.Context) (int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("count(*)").From("users").ToSql()
	if err != nil {
		return 0, fmt.Errorf("to sql error: %w", err)
	}

	var n int
	if err := ur.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("scan error: %w", err)
	}

	return n, nil
}

func (ur UsersPostgresRepo) Shutdown(ctx context.Context) error {
	return pgtools.Shutdown(ctx, ur.db)
}

func userValues(u models.User) ([]interface{}, error) {
	topicsJSON, err := json.Marshal(u.Topics)
	if err != nil {
		return nil, fmt.Errorf("marshal topics error: %w", err)
	}

	var otpExpiry *time.Time
	if u.OneTimePassword {
		otpExpiry = &u.OTPExpiry
	}

	return []interface{}{
		u.Username, u.PasswordHash, string(u.Role), u.Email, u.FirstName, u.MiddleName,
		u.LastName, u.PreferredName, u.OneTimePassword, otpExpiry, u.SetupComplete, string(topicsJSON),
	}, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var (
		u          models.User
		role       string
		otpExpiry  *time.Time
		topicsJSON []byte
	)

	err := row.Scan(&u.Username, &u.PasswordHash, &role, &u.Email, &u.FirstName, &u.MiddleName,
		&u.LastName, &u.PreferredName, &u.OneTimePassword, &otpExpiry, &u.SetupComplete, &topicsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, err
		}

		return models.User{}, fmt.Errorf("scan error: %w", err)
	}

	u.Role = models.Role(role)

	if otpExpiry != nil {
		u.OTPExpiry = *otpExpiry
	}

	if err := json.Unmarshal(topicsJSON, &u.Topics); err != nil {
		return models.User{}, fmt.Errorf("unmarshal topics error: %w", err)
	}

	return u, nil
}
