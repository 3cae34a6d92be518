package core

import "github.com/stretchr/testify/mock"

// MockIDGenerator is a testify mock of core.IDGenerator
type MockIDGenerator struct {
	mock.Mock
}

// NewMockIDGenerator creates a mock and registers expectation checks on cleanup
func NewMockIDGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockIDGenerator {
	m := &MockIDGenerator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockIDGenerator) NewTransactionID() string {
	return m.Called().String(0)
}

func (m *MockIDGenerator) NewLinkToken() string {
	return m.Called().String(0)
}
