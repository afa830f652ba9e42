package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/localnerve/maintdb/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// silent returns a session that does not log, for lookups that are expected to miss.
func silent(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)})
}

// wrapDBError maps driver and context errors onto the shared sentinels and
// prefixes op.
func wrapDBError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isCancelled(ctx, err):
		return fmt.Errorf("%s: %w: %v", op, types.ErrCancelled, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isCancelled(ctx context.Context, err error) bool {
	if errors.Is(err, types.ErrCancelled) {
		return false
	}
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// checkContext fails fast when ctx is already done.
func checkContext(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w: %v", op, types.ErrCancelled, err)
	}
	return nil
}

// likeEscape is the escape character of likePattern. Queries using the
// pattern must add ESCAPE '!' after each LIKE.
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
	"[", likeEscape+"[",
)

// likePattern builds a lower-cased substring pattern for a LIKE search, with
// the wildcard characters of q matched literally.
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"
}
