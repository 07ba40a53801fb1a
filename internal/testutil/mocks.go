package testutil

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"
)

// MockHTTPDoer is a testify mock of transport.HTTPDoer.
type MockHTTPDoer struct {
	mock.Mock
}

func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

// MockTransport is a testify mock of transport.Transport.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTransport) Send(ctx context.Context, msg []byte) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockTransport) Stop(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTransport) Name() string {
	return m.Called().String(0)
}
