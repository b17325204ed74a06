package graph

import (
	"context"
	"maps"
	"strings"
	"sync"
)

// Handler answers a statement routed to it by MemoryClient.
type Handler func(params map[string]any) (Result, error)

// MemoryClient is an in-memory Client for repository tests. Statements are
// answered by the first registered handler whose marker occurs in the cypher
// text; otherwise canned results are returned in FIFO order.
type MemoryClient struct {
	mu           sync.Mutex
	writeCalls   []ExecutedQuery
	readCalls    []ExecutedQuery
	readResults  []Result
	writeResults []Result
	handlers     []route
	err          error
	connectivity error
}

type route struct {
	marker  string
	handler Handler
}

// ExecutedQuery captures a cypher statement and parameters executed against the graph.
type ExecutedQuery struct {
	Query  string
	Params map[string]any
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// WithError configures the client to return the provided error for subsequent calls.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityError forces VerifyConnectivity to return the supplied error.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// Handle routes every statement containing marker to h. Routing is what
// concurrent callers need, since FIFO results would be consumed in arbitrary order.
func (m *MemoryClient) Handle(marker string, h Handler) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, route{marker: marker, handler: h})
	return m
}

// PushReadResult appends a result that will be returned on the next unrouted ExecuteRead call.
func (m *MemoryClient) PushReadResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readResults = append(m.readResults, res)
}

// PushWriteResult appends a result that will be returned on the next unrouted ExecuteWrite call.
func (m *MemoryClient) PushWriteResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeResults = append(m.writeResults, res)
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(&m.writeCalls, &m.writeResults, cypher, params)
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(&m.readCalls, &m.readResults, cypher, params)
}

func (m *MemoryClient) execute(calls *[]ExecutedQuery, queue *[]Result, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return Result{}, err
	}
	*calls = append(*calls, ExecutedQuery{Query: cypher, Params: maps.Clone(params)})

	var handler Handler
	for _, r := range m.handlers {
		if strings.Contains(cypher, r.marker) {
			handler = r.handler
			break
		}
	}
	if handler != nil {
		m.mu.Unlock()
		return handler(params)
	}

	defer m.mu.Unlock()
	if len(*queue) == 0 {
		return Result{}, nil
	}
	res := (*queue)[0]
	*queue = (*queue)[1:]
	return res, nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	return nil
}

// WriteCalls returns a snapshot of executed write queries.
func (m *MemoryClient) WriteCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.writeCalls...)
}

// ReadCalls returns a snapshot of executed read queries.
func (m *MemoryClient) ReadCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.readCalls...)
}
