package test

import (
	"context"

	"github.com/stretchr/testify/mock"

	adapter "github.com/tigerroll/caseflow/pkg/engine/core/adapter"
)

// MockDBConnectionResolver is a mock implementation of adapter.DBConnectionResolver.
type MockDBConnectionResolver struct {
	mock.Mock
}

// ResolveDBConnection mocks the ResolveDBConnection method.
func (m *MockDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (adapter.DBConnection, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(adapter.DBConnection), args.Error(1)
}

// singleConnectionResolver always returns the same connection.
type singleConnectionResolver struct {
	conn adapter.DBConnection
}

// NewSingleConnectionResolver returns a resolver that ignores the requested
// name and always yields conn.
func NewSingleConnectionResolver(conn adapter.DBConnection) adapter.DBConnectionResolver {
	return &singleConnectionResolver{conn: conn}
}

func (r *singleConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (adapter.DBConnection, error) {
	return r.conn, nil
}

var _ adapter.DBConnectionResolver = (*MockDBConnectionResolver)(nil)
