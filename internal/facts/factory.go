package facts

import (
	"context"
	"strings"

	"github.com/gbrlmrll/mnemo/internal/observability"
)

// NewStore creates a postgres-backed store when configured, otherwise the
// flat-file store.
func NewStore(ctx context.Context, databaseURL, userFile, botFile string, metrics *observability.Metrics) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewFileStore(userFile, botFile, metrics), nil
	}
	return NewPostgresStore(ctx, databaseURL, metrics)
}
