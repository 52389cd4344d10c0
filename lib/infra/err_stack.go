package infra

import (
	"fmt"
	"io"
	"path"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

// References:
// https://github.com/pkg/errors/blob/master/stack.go

type Frame uintptr

func (frame Frame) pc() uintptr {
	return uintptr(frame) - 1
}

func (frame Frame) fileLine() (string, int) {
	fn := runtime.FuncForPC(frame.pc())
	if fn == nil {
		return "unknownFile", 0
	}
	return fn.FileLine(frame.pc())
}

func (frame Frame) name() string {
	fn := runtime.FuncForPC(frame.pc())
	if fn == nil {
		return "unknownFunc"
	}
	return fn.Name()
}

// Format characters:
// %s - source file
// %d - source line
// %n - function name
// %v - equivalent to %s:%d
// %+s - function name and full path of source file, separated by \n\t
// %+v - equivalent to %+s:%d
func (frame Frame) Format(s fmt.State, verb rune) {
	file, line := frame.fileLine()
	switch verb {
	case 's':
		if s.Flag('+') {
			_, _ = io.WriteString(s, frame.name())
			_, _ = io.WriteString(s, "\n\t")
			_, _ = io.WriteString(s, file)
		} else {
			_, _ = io.WriteString(s, path.Base(file))
		}
	case 'd':
		_, _ = io.WriteString(s, strconv.Itoa(line))
	case 'n':
		_, _ = io.WriteString(s, funcName(frame.name()))
	case 'v':
		frame.Format(s, 's')
		_, _ = io.WriteString(s, ":")
		frame.Format(s, 'd')
	}
}

func (frame Frame) MarshalText() ([]byte, error) {
	name := frame.name()
	if name == "unknownFunc" {
		return []byte("unknownFrame"), nil
	}
	file, line := frame.fileLine()
	builder := strings.Builder{}
	_, _ = builder.WriteString(name)
	_, _ = builder.WriteString(" ")
	_, _ = builder.WriteString(file)
	_, _ = builder.WriteString(":")
	_, _ = builder.WriteString(strconv.Itoa(line))
	return []byte(builder.String()), nil
}

func funcName(name string) string {
	i := strings.LastIndex(name, "/")
	name = name[i+1:]
	i = strings.Index(name, ".")
	return name[i+1:]
}

func callerFrame(skip int) Frame {
	var pcs [1]uintptr
	if n := runtime.Callers(skip+2, pcs[:]); n == 0 {
		return Frame(0)
	}
	return Frame(pcs[0])
}

// ErrorStack is an error carrying the frame where it was raised and the
// errors it has collected. It is able to be inlined by zap logger
// as a JSON object.
type ErrorStack interface {
	error
	zapcore.ObjectMarshaler
	Unwrap() []error
	Frame() Frame
}

var _ ErrorStack = (*errorStack)(nil)

type errorStack struct {
	msg   string
	upper error // Combined by multierr.
	frame Frame
}

func (es *errorStack) Error() string {
	if es.upper == nil {
		return es.msg
	}
	if len(es.msg) == 0 {
		return es.upper.Error()
	}
	return es.msg + ": " + es.upper.Error()
}

func (es *errorStack) Unwrap() []error {
	return multierr.Errors(es.upper)
}

func (es *errorStack) Frame() Frame {
	return es.frame
}

func (es *errorStack) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if len(es.msg) > 0 {
		enc.AddString("errorMsg", es.msg)
	}
	if text, err := es.frame.MarshalText(); err == nil {
		enc.AddByteString("errorAt", text)
	}
	errs := es.Unwrap()
	if len(errs) <= 0 {
		return nil
	}
	return enc.AddArray("errorStack", zapcore.ArrayMarshalerFunc(func(arr zapcore.ArrayEncoder) error {
		for _, err := range errs {
			if om, ok := err.(zapcore.ObjectMarshaler); ok {
				if e := arr.AppendObject(om); e != nil {
					return e
				}
				continue
			}
			arr.AppendString(err.Error())
		}
		return nil
	}))
}

func NewErrorStack(msg string) ErrorStack {
	return &errorStack{
		msg:   msg,
		frame: callerFrame(1),
	}
}

// WrapErrorStack returns nil if err is nil.
func WrapErrorStack(err error, msg string) ErrorStack {
	if err == nil {
		return nil
	}
	return &errorStack{
		msg:   msg,
		upper: err,
		frame: callerFrame(1),
	}
}

// AppendErrorStack appends the non-nil errs into err.
// If err is an ErrorStack, errs are collected by it in place.
// Returns nil only if err and all errs are nil.
func AppendErrorStack(err error, errs ...error) error {
	combined := multierr.Combine(errs...)
	if combined == nil {
		return err
	}
	if err == nil {
		return &errorStack{
			upper: combined,
			frame: callerFrame(1),
		}
	}
	if es, ok := err.(*errorStack); ok && es != nil {
		es.upper = multierr.Append(es.upper, combined)
		return es
	}
	return &errorStack{
		upper: multierr.Append(err, combined),
		frame: callerFrame(1),
	}
}
