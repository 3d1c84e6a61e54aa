package gcp

import (
	"context"
	"fmt"
	"log/slog"
)

// ProjectLister enumerates the projects a run covers. An explicit project id
// is passed through without validation; the first collector call against a
// nonexistent project surfaces the failure instead.
type ProjectLister struct {
	session *Session
	logger  *slog.Logger
}

// NewProjectLister returns an enumerator over the session's credentials.
func NewProjectLister(session *Session) *ProjectLister {
	return &ProjectLister{session: session, logger: session.logger}
}

// Enumerate resolves the project set. Without an explicit project it lists
// every active project visible to the credentials; a listing failure aborts
// the whole run since there is nothing to iterate.
func (l *ProjectLister) Enumerate(ctx context.Context, explicit string) ([]string, error) {
	if explicit != "" {
		return []string{explicit}, nil
	}
	ids, err := l.session.projects.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcp: listing projects: %w", err)
	}
	l.logger.Debug("enumerated projects", "count", len(ids))
	return ids, nil
}
