// Package errors is a drop-in replacement for the standard library errors package that records where an error was
// wrapped and lets callers attach [slog.Attr] annotations that are rendered by [SlogError].
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
)

type annotatedError struct {
	msg         string
	err         error
	source      string
	annotations []slog.Attr
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// callerSource returns file:line of the caller skip frames above callerSource.
func callerSource(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	return file + ":" + strconv.Itoa(line)
}

// NewSentinel creates an error meant to be compared with [Is]. It does not record a source location.
func NewSentinel(msg string) error {
	return errors.New(msg) //nolint:err113 // this is the sentinel constructor.
}

// New creates an error annotated with the caller's source location.
func New(msg string, attrs ...slog.Attr) error {
	return &annotatedError{
		msg:         msg,
		err:         nil,
		source:      callerSource(1),
		annotations: attrs,
	}
}

// Wrap annotates err with msg, the caller's source location and the given attributes.
//
// Error() renders as "msg: err".
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	return &annotatedError{
		msg:         msg,
		err:         err,
		source:      callerSource(1),
		annotations: attrs,
	}
}

// DecoratePanic converts a recovered panic value into an error whose source points at the panicking line.
//
// It must be called from the deferred function that called recover.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	e := &annotatedError{
		msg:         fmt.Sprintf("panic: %v", excp),
		err:         nil,
		source:      panicSource(),
		annotations: nil,
	}
	if err, ok := excp.(error); ok {
		e.msg = "panic"
		e.err = err
	}
	return e
}

func panicSource() string {
	const maxDepth = 32
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	afterPanic := false
	for {
		frame, more := frames.Next()
		if afterPanic && !strings.HasPrefix(frame.Function, "runtime.") {
			return frame.File + ":" + strconv.Itoa(frame.Line)
		}
		if frame.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if !more {
			return ""
		}
	}
}

// SlogError renders err as an "error" group containing the message, the innermost recorded source location and all
// annotations found in the error tree.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	var (
		source      string
		annotations []any
	)
	walk(err, func(ae *annotatedError) {
		if ae.source != "" {
			source = ae.source
		}
		for _, a := range ae.annotations {
			annotations = append(annotations, a)
		}
	})
	attrs := []any{slog.String("message", err.Error())}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	return slog.Group("error", attrs...)
}

// walk visits every annotatedError in the tree from the outermost to the innermost.
func walk(err error, visit func(*annotatedError)) {
	if err == nil {
		return
	}
	if ae, ok := err.(*annotatedError); ok { //nolint:errorlint // walking the tree manually.
		visit(ae)
	}
	switch u := err.(type) { //nolint:errorlint // walking the tree manually.
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			walk(inner, visit)
		}
	case interface{ Unwrap() error }:
		walk(u.Unwrap(), visit)
	}
}

// Is reports whether any error in err's tree matches target. See [errors.Is].
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target. See [errors.As].
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err. See [errors.Unwrap].
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join returns an error that wraps the given errors. See [errors.Join].
func Join(errs ...error) error {
	return errors.Join(errs...)
}
