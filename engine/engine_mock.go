package engine

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEngine is a mock implementation of Engine for testing.
type MockEngine struct {
	mock.Mock
}

var _ Engine = &MockEngine{} // Compile-time check

// SCCC implements the Engine interface.
func (m *MockEngine) SCCC(ctx context.Context, in SCCCInput) (SCCCResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(SCCCResult)
	return res, args.Error(1)
}

// SMOC implements the Engine interface.
func (m *MockEngine) SMOC(ctx context.Context, in SMOCInput) ([]ModelScores, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).([]ModelScores)
	return res, args.Error(1)
}

// NMI implements the Engine interface.
func (m *MockEngine) NMI(ctx context.Context, in NMIInput) (float64, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(float64), args.Error(1)
}
