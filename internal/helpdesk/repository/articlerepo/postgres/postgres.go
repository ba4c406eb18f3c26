package postgres

import (
	"context"
	"fmt"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	repo "github.com/Leopold1975/helpdesk/internal/helpdesk/repository/articlerepo"
	"github.com/Leopold1975/helpdesk/internal/pkg/pgtools"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var articleColumns = []string{"id", "title", "description", "keywords", "body", "links", "groups", "level"}

type ArticlesPostgresRepo struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) ArticlesPostgresRepo {
	return ArticlesPostgresRepo{
		db: db,
	}
}

func (ar ArticlesPostgresRepo) AddArticle(ctx context.Context, owner string, a models.HelpArticle) (err error) {
	tx, err := ar.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "add")
	}()

	return insertArticles(ctx, tx, owner, []models.HelpArticle{a})
}

func (ar ArticlesPostgresRepo) UpdateArticle(ctx context.Context, owner string, a models.HelpArticle) (err error) {
	tx, err := ar.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "update")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Update("articles").
		Set("title", a.Title).
		Set("description", a.Description).
		Set("keywords", nonNil(a.Keywords)).
		Set("body", a.Body).
		Set("links", nonNil(a.Links)).
		Set("groups", nonNil(a.Groups)).
		Set("level", a.Level).
		Where(squirrel.Eq{"owner": owner, "id": a.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	return nil
}

func (ar ArticlesPostgresRepo) DeleteArticle(ctx context.Context, owner string, id int64) (err error) {
	tx, err := ar.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "delete")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Delete("articles").
		Where(squirrel.Eq{"owner": owner, "id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	return nil
}

func (ar ArticlesPostgresRepo) ListArticles(ctx context.Context, owner string) ([]models.HelpArticle, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select(articleColumns...).
		From("articles").
		Where(squirrel.Eq{"owner": owner}).
		OrderBy("position ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	rows, err := ar.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	articles := make([]models.HelpArticle, 0, 10) //nolint:gomnd

	for rows.Next() {
		var a models.HelpArticle

		err = rows.Scan(&a.ID, &a.Title, &a.Description, &a.Keywords, &a.Body, &a.Links, &a.Groups, &a.Level)
		if err != nil {
			return nil, fmt.Errorf("scan error %w", err)
		}

		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return articles, nil
}

// ReplaceArticles swaps the owner's whole list in one transaction.
func (ar ArticlesPostgresRepo) ReplaceArticles(ctx context.Context, owner string, //nolint:nonamedreturns
	articles []models.HelpArticle,
) (err error) {
	tx, err := ar.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "replace")
	}()

	if err = deleteOwner(ctx, tx, owner); err != nil {
		return err
	}

	return insertArticles(ctx, tx, owner, articles)
}

func (ar ArticlesPostgresRepo) DeleteOwner(ctx context.Context, owner string) (err error) {
	tx, err := ar.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "delete owner")
	}()

	return deleteOwner(ctx, tx, owner)
}

func (ar ArticlesPostgresRepo) Shutdown(ctx context.Context) error {
	return pgtools.Shutdown(ctx, ar.db)
}

func deleteOwner(ctx context.Context, tx pgx.Tx, owner string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Delete("articles").
		Where(squirrel.Eq{"owner": owner}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	return nil
}

// insertArticles keeps the slice order: position is a serial, so rows are
// numbered in the order of the VALUES list.
func insertArticles(ctx context.Context, tx pgx.Tx, owner string, articles []models.HelpArticle) error {
	if len(articles) == 0 {
		return nil
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	ib := psql.Insert("articles").
		Columns(append([]string{"owner"}, articleColumns...)...)

	for _, a := range articles {
		ib = ib.Values(owner, a.ID, a.Title, a.Description, nonNil(a.Keywords), a.Body,
			nonNil(a.Links), nonNil(a.Groups), a.Level)
	}

	query, args, err := ib.ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
