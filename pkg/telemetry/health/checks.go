package health

import (
	"context"
	"errors"

	"mercator-hq/concierge/pkg/audit"
	"mercator-hq/concierge/pkg/catalog"
	"mercator-hq/concierge/pkg/sessions"
)

// probeSessionID is looked up by SessionStoreCheck. It is never created.
const probeSessionID = "__health_probe__"

// CatalogCheck fails when no catalog is loaded or it defines no templates.
func CatalogCheck(current func() *catalog.Catalog) CheckFunc {
	return func(context.Context) error {
		c := current()
		if c == nil {
			return errors.New("catalog not loaded")
		}
		if c.Templates.Len() == 0 {
			return errors.New("catalog has no templates")
		}
		return nil
	}
}

// SessionStoreCheck fails when the session store cannot serve a lookup.
func SessionStoreCheck(store sessions.Store) CheckFunc {
	return func(ctx context.Context) error {
		_, err := store.Get(ctx, probeSessionID)
		if err != nil && !errors.Is(err, sessions.ErrNotFound) {
			return err
		}
		return nil
	}
}

// AuditStorageCheck fails when audit storage cannot count records.
func AuditStorageCheck(storage audit.Storage) CheckFunc {
	return func(ctx context.Context) error {
		_, err := storage.Count(ctx, &audit.Query{})
		return err
	}
}
