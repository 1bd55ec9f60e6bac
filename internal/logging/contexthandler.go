// Package logging enriches slog records with attributes carried in a context.Context.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
)

type contextKey struct{}

// ContextHandler adds the attributes stored with WithAttrs to every record it handles.
type ContextHandler struct {
	handler slog.Handler
}

// NewContextHandler wraps h so that records logged with a context carry the context's attributes.
func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{handler: h}
}

// NewTextLogger returns a text logger writing to w at level. replaceAttr may be nil.
func NewTextLogger(w io.Writer, level slog.Leveler, replaceAttr func([]string, slog.Attr) slog.Attr) *slog.Logger {
	return slog.New(NewContextHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   false,
		Level:       level,
		ReplaceAttr: replaceAttr,
	})))
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(Attrs(ctx)...)
	if err := h.handler.Handle(ctx, r); err != nil {
		return fmt.Errorf("handle log record: %w", err)
	}
	return nil
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}

// WithAttrs returns a copy of ctx carrying attrs in addition to the attributes already stored in it.
// Sibling contexts derived from the same parent never see each other's attributes.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	return context.WithValue(ctx, contextKey{}, slices.Concat(Attrs(ctx), attrs))
}

// Attrs returns the attributes stored in ctx with WithAttrs.
func Attrs(ctx context.Context) []slog.Attr {
	attrs, _ := ctx.Value(contextKey{}).([]slog.Attr)
	return attrs
}
