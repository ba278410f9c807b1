package models

// Operation kinds sent to the index server.
const (
	OperationIndex   = "INDEX"
	OperationGetByID = "GET_BY_ID"
	OperationSearch  = "SEARCH"
)

type IndexInfo struct {
	IndexName string
	IndexType string
}

// RequestContext is the per-call metadata handed to the index client.
// It lives only for the duration of one request.
type RequestContext struct {
	IndexInfo
	Operation string
	Target    string
}

func GetRequestContext(index IndexInfo, operation, target string) RequestContext {
	return RequestContext{
		IndexInfo: index,
		Operation: operation,
		Target:    target,
	}
}
