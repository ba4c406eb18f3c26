package articleservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
)

const backupVersion = 1

var ErrUnsupportedBackup = errors.New("unsupported backup format")

type backupDocument struct {
	Version   int                  `json:"version"`
	CreatedAt time.Time            `json:"created_at"` //nolint:tagliatelle
	Articles  []models.HelpArticle `json:"articles"`
}

// Backup writes the articles of every user, users in registration order.
// An id seen under an earlier user is skipped.
func (as *ArticleService) Backup(ctx context.Context, w io.Writer) (int, error) {
	users, err := as.users.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users error: %w", err)
	}

	all := make([]models.HelpArticle, 0)

	for _, u := range users {
		articles, err := as.articleRepo.ListArticles(ctx, u.Username)
		if err != nil {
			return 0, fmt.Errorf("list articles of %s error: %w", u.Username, err)
		}

		all = append(all, articles...)
	}

	doc := backupDocument{
		Version:   backupVersion,
		CreatedAt: as.now().UTC(),
		Articles:  dedupe(all),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(doc); err != nil {
		return 0, fmt.Errorf("encode error: %w", err)
	}

	as.lg.Infof("backup completed: %d articles", len(doc.Articles))

	return len(doc.Articles), nil
}

// Restore applies the backup to every registered user. With merge, articles
// whose id the user already has are skipped; otherwise the user's list is
// replaced by the backup.
func (as *ArticleService) Restore(ctx context.Context, r io.Reader, merge bool) (RestoreSummary, error) {
	var doc backupDocument

	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return RestoreSummary{}, fmt.Errorf("%w: decode error: %w", ErrUnsupportedBackup, err)
	}

	if doc.Version != backupVersion {
		return RestoreSummary{}, fmt.Errorf("%w: version %d", ErrUnsupportedBackup, doc.Version)
	}

	doc.Articles = dedupe(doc.Articles)

	users, err := as.users.ListUsers(ctx)
	if err != nil {
		return RestoreSummary{}, fmt.Errorf("list users error: %w", err)
	}

	summary := RestoreSummary{Users: len(users), Restored: len(doc.Articles), Merge: merge, Added: 0}

	defer func() {
		if err := as.articleCache.InvalidateAll(ctx); err != nil {
			as.lg.Errorf("invalidate articles cache error: %s", err.Error())
		}
	}()

	for _, u := range users {
		if !merge {
			if err := as.articleRepo.ReplaceArticles(ctx, u.Username, doc.Articles); err != nil {
				return summary, fmt.Errorf("replace articles of %s error: %w", u.Username, err)
			}

			summary.Added += len(doc.Articles)

			continue
		}

		added, err := as.mergeInto(ctx, u.Username, doc.Articles)
		summary.Added += added

		if err != nil {
			return summary, err
		}
	}

	as.lg.Infof("restore completed: %d articles into %d users, merge=%t, %d added",
		summary.Restored, summary.Users, merge, summary.Added)

	return summary, nil
}

func (as *ArticleService) mergeInto(ctx context.Context, owner string, restored []models.HelpArticle) (int, error) {
	existing, err := as.articleRepo.ListArticles(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("list articles of %s error: %w", owner, err)
	}

	added := 0

	for _, a := range restored {
		if models.ContainsID(existing, a.ID) {
			continue
		}

		if err := as.articleRepo.AddArticle(ctx, owner, a); err != nil {
			return added, fmt.Errorf("add article to %s error: %w", owner, err)
		}

		existing = append(existing, a)
		added++
	}

	return added, nil
}

// BackupToFile writes through a temporary file so a failed backup never
// truncates an earlier one.
func (as *ArticleService) BackupToFile(ctx context.Context, path string) (n int, err error) { //nolint:nonamedreturns
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file error: %w", err)
	}

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	n, err = as.Backup(ctx, tmp)
	if err != nil {
		return 0, err
	}

	if err = tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file error: %w", err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("rename backup error: %w", err)
	}

	return n, nil
}

func (as *ArticleService) RestoreFromFile(ctx context.Context, path string, merge bool) (RestoreSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return RestoreSummary{}, fmt.Errorf("open backup error: %w", err)
	}
	defer f.Close()

	return as.Restore(ctx, f, merge)
}

// dedupe keeps the first article for every id.
func dedupe(articles []models.HelpArticle) []models.HelpArticle {
	seen := make(map[int64]struct{}, len(articles))
	res := make([]models.HelpArticle, 0, len(articles))

	for _, a := range articles {
		if _, ok := seen[a.ID]; ok {
			continue
		}

		seen[a.ID] = struct{}{}
		res = append(res, a)
	}

	return res
}
