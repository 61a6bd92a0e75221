package tmux

import (
	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of Client for testing.
//
// Example usage:
//
//	mockClient := new(MockClient)
//	mockClient.On("SetOption", "@chat_intray_title", "(2) Chat").Return(nil)
//	mockClient.AssertCalled(t, "SetOption", "@chat_intray_title", "(2) Chat")
type MockClient struct {
	mock.Mock
}

var _ Client = (*MockClient)(nil)

// HasSession returns a mocked result.
func (m *MockClient) HasSession() (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

// SetOption returns a mocked error.
func (m *MockClient) SetOption(name, value string) error {
	args := m.Called(name, value)
	return args.Error(0)
}

// UnsetOption returns a mocked error.
func (m *MockClient) UnsetOption(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

// SetEnvironment returns a mocked error.
func (m *MockClient) SetEnvironment(name, value string) error {
	args := m.Called(name, value)
	return args.Error(0)
}

// Run returns mocked stdout, stderr and error.
func (m *MockClient) Run(args ...string) (string, string, error) {
	called := m.Called(args)
	return called.String(0), called.String(1), called.Error(2)
}
