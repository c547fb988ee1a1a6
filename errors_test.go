package threadpool

import (
	"errors"
	"strings"

	"github.com/stretchr/testify/require"
)

type errorCheck func(t require.TestingT, err error)

func helper(t require.TestingT) {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
}

// ErrorIs checks that err matches every target with errors.Is.
func ErrorIs(targets ...error) errorCheck {
	return func(t require.TestingT, err error) {
		helper(t)
		if err == nil {
			t.Errorf("expected error but none received")
			return
		}
		for _, target := range targets {
			if !errors.Is(err, target) {
				t.Errorf("error unexpected.\nExpected error: %T(%s)\nGot           : %T(%s)", target, target, err, err)
			}
		}
	}
}

// ErrorOfType extracts a T from err with errors.As and runs the extra checks on it.
func ErrorOfType[T error](checks ...func(require.TestingT, T)) errorCheck {
	return func(t require.TestingT, err error) {
		helper(t)
		if err == nil {
			t.Errorf("expected error but none received")
			return
		}

		var target T
		if !errors.As(err, &target) {
			t.Errorf("error type check failed.\nExpected error type: %T\nGot                : %T(%s)", target, err, err)
			return
		}
		for _, c := range checks {
			c(t, target)
		}
	}
}

func ErrorStringContains(s string) errorCheck {
	return func(t require.TestingT, err error) {
		helper(t)
		if err == nil {
			t.Errorf("expected error but none received")
			return
		}
		if !strings.Contains(err.Error(), s) {
			t.Errorf("error string check failed.\nExpected to contain: %s\nGot                : %s", s, err.Error())
		}
	}
}
