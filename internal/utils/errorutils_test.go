package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorUtilsSuite struct {
	suite.Suite
}

func TestErrorUtilsSuite(t *testing.T) {
	suite.Run(t, new(ErrorUtilsSuite))
}

func (s *ErrorUtilsSuite) TestWrapIfNotNilNil() {
	s.NoError(WrapIfNotNil(nil))
	s.NoError(WrapIfNotNil(nil, "extra context"))
}

func (s *ErrorUtilsSuite) TestWrapIfNotNilAddsCaller() {
	base := errors.New("boom")
	wrapped := WrapIfNotNil(base)
	s.Require().Error(wrapped)
	s.ErrorIs(wrapped, base)
	s.Contains(wrapped.Error(), "TestWrapIfNotNilAddsCaller")
}

func (s *ErrorUtilsSuite) TestWrapIfNotNilAddsContext() {
	wrapped := WrapIfNotNil(errors.New("boom"), "upload audio")
	s.Contains(wrapped.Error(), "upload audio")
	s.Contains(wrapped.Error(), "boom")
}

func (s *ErrorUtilsSuite) TestContainsErrorSubstring() {
	base := errors.New("connection refused")
	wrapped := fmt.Errorf("outer: %w", base)
	s.True(ContainsErrorSubstring(wrapped, "connection refused"))
	s.True(ContainsErrorSubstring(wrapped, "outer"))
	s.False(ContainsErrorSubstring(wrapped, "timeout"))
	s.False(ContainsErrorSubstring(nil, "anything"))
}
