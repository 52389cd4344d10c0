package infra

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

var initPC = caller()

func caller() Frame {
	var PCs [3]uintptr
	n := runtime.Callers(2, PCs[:])
	frames := runtime.CallersFrames(PCs[:n])
	frame, _ := frames.Next()
	return Frame(frame.PC)
}

func TestFrameFormat(t *testing.T) {
	testcases := []struct {
		Frame
		format string
		want   string
	}{
		{initPC, "%s", "err_stack_test.go"},
		{initPC, "%n", "init"},
		{initPC, "%d", "14"},
		{initPC, "%v", "err_stack_test.go:14"},
		{Frame(0), "%s", "unknownFile"},
		{Frame(0), "%n", "unknownFunc"},
		{Frame(0), "%d", "0"},
	}

	for _, tc := range testcases {
		require.Equal(t, tc.want, fmt.Sprintf(tc.format, tc.Frame))
	}

	full := fmt.Sprintf("%+v", initPC)
	require.True(t, strings.HasPrefix(full, "github.com/benz9527/xrbtree/lib/infra.init\n\t"))
	require.True(t, strings.HasSuffix(full, "err_stack_test.go:14"))
}

func TestFrameMarshalText(t *testing.T) {
	text, err := initPC.MarshalText()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(text), "github.com/benz9527/xrbtree/lib/infra.init "))
	require.True(t, strings.HasSuffix(string(text), "err_stack_test.go:14"))

	text, err = Frame(0).MarshalText()
	require.NoError(t, err)
	require.Equal(t, "unknownFrame", string(text))
}

func TestNewErrorStack(t *testing.T) {
	es := NewErrorStack("[rbtree] red violation")
	require.Equal(t, "[rbtree] red violation", es.Error())
	require.Empty(t, es.Unwrap())
	require.Equal(t, "err_stack_test.go", fmt.Sprintf("%s", es.Frame()))
	require.Equal(t, "TestNewErrorStack", fmt.Sprintf("%n", es.Frame()))
}

func TestWrapErrorStack(t *testing.T) {
	require.Nil(t, WrapErrorStack(nil, "ignored"))

	cause := errors.New("cause")
	es := WrapErrorStack(cause, "wrapped")
	require.Equal(t, "wrapped: cause", es.Error())
	require.ErrorIs(t, es, cause)
}

func TestAppendErrorStack(t *testing.T) {
	require.Nil(t, AppendErrorStack(nil))
	require.Nil(t, AppendErrorStack(nil, nil, nil))

	e1, e2, e3 := errors.New("e1"), errors.New("e2"), errors.New("e3")
	plain := AppendErrorStack(e1)
	require.Equal(t, e1, plain)

	err := AppendErrorStack(nil, e1, nil)
	require.Equal(t, "e1", err.Error())
	err = AppendErrorStack(err, e2, e3)
	require.Equal(t, "e1; e2; e3", err.Error())
	require.ErrorIs(t, err, e2)

	es, ok := err.(ErrorStack)
	require.True(t, ok)
	require.Len(t, es.Unwrap(), 3)

	err = AppendErrorStack(e1, e2)
	require.Equal(t, "e1; e2", err.Error())
}

func TestErrorStackMarshalLogObject(t *testing.T) {
	inner := NewErrorStack("inner")
	outer := AppendErrorStack(WrapErrorStack(errors.New("plain"), "outer"), inner)

	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, outer.(ErrorStack).MarshalLogObject(enc))
	require.Equal(t, "outer", enc.Fields["errorMsg"])
	require.Contains(t, enc.Fields["errorAt"], "err_stack_test.go")
	stack, ok := enc.Fields["errorStack"].([]any)
	require.True(t, ok)
	require.Len(t, stack, 2)
	require.Equal(t, "plain", stack[0])
	nested, ok := stack[1].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "inner", nested["errorMsg"])
}
