package draft

import (
	"context"

	"github.com/kailas-cloud/viewdex/internal/access"
	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
	"github.com/kailas-cloud/viewdex/internal/domain/search/request"
	"github.com/kailas-cloud/viewdex/internal/validate"
)

// Completer answers a prompt with a JSON document.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Checker validates drafted requests the same way caller requests are validated.
type Checker interface {
	AllowedColumns(subject access.Subject, entity string) (registry.Entity, []column.Column, error)
	Check(subject access.Subject, req request.Request) (validate.Plan, error)
}
