// Package lifecycle implements the LOI and Application state machines. All
// status changes flow through here; the package validates inputs before any
// mutation and delegates the conditional write plus ledger append to the
// store so each transition either fully applies or not at all.
package lifecycle

import (
	"strings"

	"github.com/harborlight-fund/grantflow/internal/model"
	"github.com/harborlight-fund/grantflow/internal/store"
)

// Service drives entity lifecycles against a Store.
type Service struct {
	store store.Store
}

// New creates a lifecycle Service.
func New(st store.Store) *Service {
	return &Service{store: st}
}

func requireField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &model.ValidationError{Field: field, Reason: "must not be empty"}
	}
	return nil
}
