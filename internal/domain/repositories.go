package domain

import "context"

// TableFetcher pulls the complete current contents of a remote table.
type TableFetcher interface {
	// FetchAll retrieves every record of a table, paginating internally
	// until the remote returns a short page. Connection and timeout
	// failures surface as ErrRemoteUnavailable; requests the remote
	// refused surface as ErrRemoteRejected. No retries happen here;
	// retry policy belongs to callers.
	FetchAll(ctx context.Context, table Table) ([]Record, error)
}
