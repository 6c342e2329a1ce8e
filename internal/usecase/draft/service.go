// Package draft turns a natural-language prompt into a filter the search core accepts.
package draft

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/viewdex/internal/access"
	"github.com/kailas-cloud/viewdex/internal/domain"
	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
	"github.com/kailas-cloud/viewdex/internal/domain/search/filter"
	"github.com/kailas-cloud/viewdex/internal/domain/search/request"
)

const maxPromptLen = 2000

// Draft is a validated filter proposed for an entity. It is never executed here.
type Draft struct {
	Entity string
	Filter filter.Node
}

// Service drafts filters with an LLM and validates them with the search core.
type Service struct {
	llm     Completer
	checker Checker
	limits  filter.Limits
	logger  *zap.Logger
}

// New creates a draft service. llm may be nil, in which case Draft reports ErrDraftUnavailable.
func New(llm Completer, checker Checker, limits filter.Limits, logger *zap.Logger) *Service {
	return &Service{llm: llm, checker: checker, limits: limits, logger: logger}
}

// Enabled reports whether an LLM is configured.
func (s *Service) Enabled() bool { return s.llm != nil }

// Draft asks the LLM for a filter over entity and validates the answer for subject.
func (s *Service) Draft(ctx context.Context, subject access.Subject, entity, prompt string) (Draft, error) {
	if s.llm == nil {
		return Draft{}, domain.ErrDraftUnavailable
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" || len(prompt) > maxPromptLen {
		return Draft{}, domain.NewMalformed("$.prompt", fmt.Sprintf("prompt must be 1 to %d characters", maxPromptLen))
	}

	e, cols, err := s.checker.AllowedColumns(subject, entity)
	if err != nil {
		return Draft{}, err
	}
	var usable []column.Column
	for _, c := range cols {
		if c.Filterable() {
			usable = append(usable, c)
		}
	}
	if len(usable) == 0 {
		return Draft{}, domain.NewColumnViolation(domain.ErrColumnNotAllowed, e.Name(), "", "no filterable columns are allowed")
	}

	answer, err := s.llm.Complete(ctx, systemPrompt(e.Name(), usable), prompt)
	if err != nil {
		return Draft{}, fmt.Errorf("complete draft: %w", err)
	}

	node, err := filter.Parse([]byte(stripFences(answer)), s.limits)
	if err != nil {
		return Draft{}, s.rejected(e.Name(), err)
	}
	plan, err := s.checker.Check(subject, request.Request{Entity: e.Name(), Filter: node})
	if err != nil {
		return Draft{}, s.rejected(e.Name(), err)
	}
	return Draft{Entity: plan.Entity.Name(), Filter: plan.Filter}, nil
}

// rejected hides the violation kind: the caller did not write the filter.
func (s *Service) rejected(entity string, err error) error {
	s.logger.Warn("Draft rejected by validation", zap.String("entity", entity), zap.Error(err))
	return fmt.Errorf("%w: drafted filter is invalid: %s", domain.ErrDraftProviderError, err.Error())
}

func systemPrompt(entity string, cols []column.Column) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You write JSON filters for the %q entity. Answer with one JSON object and nothing else.\n", entity)
	b.WriteString("A filter is a comparison {\"column\",\"operator\",\"value\"}, a group ")
	b.WriteString("{\"logicalOperator\":\"And\"|\"Or\",\"expressions\":[...]} or {\"not\":filter}.\n")
	b.WriteString("Operators: eq neq gt gte lt lte in notIn between isNull isNotNull like contains startsWith endsWith.\n")
	b.WriteString("in and notIn take an array; between takes [low, high]; isNull and isNotNull take no value.\n")
	b.WriteString("gt, gte, lt, lte and between need integer, decimal, date or timestamp columns. ")
	b.WriteString("Pattern operators need string columns. Dates are YYYY-MM-DD, timestamps RFC 3339.\n")
	b.WriteString("Columns:\n")
	for _, c := range cols {
		fmt.Fprintf(&b, "- %s (%s)\n", c.Name(), c.Type())
	}
	return b.String()
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
