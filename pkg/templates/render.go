// pkg/templates/render.go
//
// Bounded text/template rendering: rate limited, size limited, and with a
// timeout on execution so a bad template cannot stall a hook.

package templates

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxTemplateSize = 1 * 1024 * 1024 // 1MB
	DefaultTemplateTimeout = 30 * time.Second
	RateLimitBurst         = 5
	RateLimitPerMinute     = 10
)

var globalRateLimiter = rate.NewLimiter(rate.Every(time.Minute/RateLimitPerMinute), RateLimitBurst)

// ErrRateLimited is returned when no render slot frees up within the
// render timeout.
var ErrRateLimited = cerr.New("template rendering rate limit exceeded")

// RenderOptions bounds a single render.
type RenderOptions struct {
	MaxSize             int64
	Timeout             time.Duration
	DisableRateLimiting bool
	// Strict makes missing map keys an error instead of "<no value>".
	Strict bool
}

// DefaultRenderOptions returns the limits used when callers pass nil.
func DefaultRenderOptions() *RenderOptions {
	return &RenderOptions{
		MaxSize: DefaultMaxTemplateSize,
		Timeout: DefaultTemplateTimeout,
		Strict:  true,
	}
}

// Renderer renders templates under RenderOptions.
type Renderer struct {
	logger *zap.Logger
}

// NewRenderer creates a new template renderer.
func NewRenderer(logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.L()
	}
	return &Renderer{
		logger: logger.Named("template-renderer"),
	}
}

// RenderString renders tmplStr with data.
func (r *Renderer) RenderString(ctx context.Context, name, tmplStr string, data interface{}, opts *RenderOptions) (string, error) {
	if opts == nil {
		opts = DefaultRenderOptions()
	}

	if !opts.DisableRateLimiting {
		waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		err := globalRateLimiter.Wait(waitCtx)
		cancel()
		if err != nil {
			r.logger.Warn("Template rendering rate limit exceeded", zap.String("template", name))
			return "", cerr.WithHintf(cerr.Mark(err, ErrRateLimited), "at most %d renders per minute", RateLimitPerMinute)
		}
	}

	if int64(len(tmplStr)) > opts.MaxSize {
		r.logger.Error("Template size exceeds limit",
			zap.String("template", name),
			zap.Int("size", len(tmplStr)),
			zap.Int64("max_size", opts.MaxSize))
		return "", cerr.Newf("template %s size %d exceeds limit %d", name, len(tmplStr), opts.MaxSize)
	}

	renderCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	tmpl := template.New(name)
	if opts.Strict {
		tmpl = tmpl.Option("missingkey=error")
	}
	tmpl, err := tmpl.Parse(tmplStr)
	if err != nil {
		r.logger.Error("Failed to parse template", zap.String("template", name), zap.Error(err))
		return "", cerr.Wrapf(err, "parse template %s", name)
	}

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			done <- result{err: cerr.Wrapf(err, "execute template %s", name)}
			return
		}
		done <- result{out: buf.String()}
	}()

	select {
	case <-renderCtx.Done():
		r.logger.Error("Template rendering timed out",
			zap.String("template", name),
			zap.Duration("timeout", opts.Timeout))
		return "", cerr.Newf("template %s rendering timed out after %s", name, opts.Timeout)
	case res := <-done:
		if res.err != nil {
			return "", res.err
		}
		r.logger.Debug("Template rendered successfully",
			zap.String("template", name),
			zap.Int("output_size", len(res.out)))
		return res.out, nil
	}
}

// RenderFile renders a template read from disk.
func (r *Renderer) RenderFile(ctx context.Context, templatePath string, data interface{}, opts *RenderOptions) (string, error) {
	if opts == nil {
		opts = DefaultRenderOptions()
	}

	r.logger.Debug("Rendering template from file", zap.String("path", templatePath))

	info, err := os.Stat(templatePath)
	if err != nil {
		return "", cerr.Wrapf(err, "stat template file %s", templatePath)
	}
	if info.Size() > opts.MaxSize {
		return "", cerr.Newf("template file %s size %d exceeds limit %d", templatePath, info.Size(), opts.MaxSize)
	}

	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return "", cerr.Wrapf(err, "read template file %s", templatePath)
	}
	return r.RenderString(ctx, filepath.Base(templatePath), string(raw), data, opts)
}

// RenderFS renders a template from an fs.FS, usually an embed.FS.
func (r *Renderer) RenderFS(ctx context.Context, fsys fs.FS, templatePath string, data interface{}, opts *RenderOptions) (string, error) {
	r.logger.Debug("Rendering embedded template", zap.String("path", templatePath))

	raw, err := fs.ReadFile(fsys, templatePath)
	if err != nil {
		return "", cerr.Wrapf(err, "read embedded template %s", templatePath)
	}
	return r.RenderString(ctx, filepath.Base(templatePath), string(raw), data, opts)
}

// RenderString renders with a default renderer and default options.
func RenderString(ctx context.Context, name, tmplStr string, data interface{}) (string, error) {
	return NewRenderer(nil).RenderString(ctx, name, tmplStr, data, DefaultRenderOptions())
}
