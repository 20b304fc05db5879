// Package logging builds the service's slog handler: JSON output with
// service identity, module, request id and trace correlation attributes.
package logging

import (
	"context"
	"io"
	"log/slog"
)

type Environment string

const (
	EnvDev     Environment = "dev"
	EnvStaging Environment = "staging"
	EnvProd    Environment = "prod"
)

// Module names the component a log line belongs to.
type Module string

type ServiceInfo struct {
	Name     string
	Version  string
	Revision string
}

type HandlerOptions struct {
	Service       ServiceInfo
	Environment   Environment
	DefaultModule Module
	GCPProjectID  string
	Level         slog.Leveler
}

type moduleKey struct{}

// WithModule overrides the module attribute for logs written with ctx.
func WithModule(ctx context.Context, module Module) context.Context {
	return context.WithValue(ctx, moduleKey{}, module)
}

func moduleFromContext(ctx context.Context) (Module, bool) {
	m, ok := ctx.Value(moduleKey{}).(Module)
	return m, ok && m != ""
}

type contextHandler struct {
	slog.Handler
	defaultModule Module
	projectID     string
}

func NewHandler(w io.Writer, opts HandlerOptions) slog.Handler {
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}

	base := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		AddSource:   opts.Environment != EnvDev,
		ReplaceAttr: replaceAttr,
	})

	serviceAttrs := []slog.Attr{
		slog.String("name", opts.Service.Name),
		slog.String("version", opts.Service.Version),
	}
	if opts.Service.Revision != "" {
		serviceAttrs = append(serviceAttrs, slog.String("revision", opts.Service.Revision))
	}

	handler := base.WithAttrs([]slog.Attr{
		{Key: "service", Value: slog.GroupValue(serviceAttrs...)},
		slog.String("env", string(opts.Environment)),
	})

	return &contextHandler{
		Handler:       handler,
		defaultModule: opts.DefaultModule,
		projectID:     opts.GCPProjectID,
	}
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	module := h.defaultModule
	if m, ok := moduleFromContext(ctx); ok {
		module = m
	}
	if module != "" {
		r.AddAttrs(slog.String("module", string(module)))
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		r.AddAttrs(slog.String("request_id", requestID))
	}

	r.AddAttrs(gcpTraceAttrs(ctx, h.projectID)...)

	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{
		Handler:       h.Handler.WithAttrs(attrs),
		defaultModule: h.defaultModule,
		projectID:     h.projectID,
	}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{
		Handler:       h.Handler.WithGroup(name),
		defaultModule: h.defaultModule,
		projectID:     h.projectID,
	}
}
