package feedback

import (
	"fmt"

	"github.com/diabetes-risk-server/internal/domain"
)

// Open returns the store selected by cfg. databaseURL is only used by the
// postgres driver.
func Open(cfg domain.FeedbackConfig, databaseURL string) (Store, error) {
	switch cfg.Driver {
	case domain.FeedbackDriverSQLite, "":
		return NewSQLiteStore(cfg.SQLitePath)
	case domain.FeedbackDriverPostgres:
		if databaseURL == "" {
			return nil, fmt.Errorf("postgres feedback store requires a database URL")
		}
		return NewPostgresStoreFromURL(databaseURL)
	default:
		return nil, fmt.Errorf("unknown feedback driver %q", cfg.Driver)
	}
}
