// Package pipeline ties resolution, rendering and caching together into
// one Response per Request.
package pipeline

import (
	"mime"
	"os"
	"path/filepath"
	"strings"

	"rubyshd/internal/markdown"
	"rubyshd/internal/model"
	"rubyshd/internal/resolver"
	"rubyshd/internal/rfcache"
	"rubyshd/internal/templates"
)

// Gemtext has no registered IANA media type in the stdlib's built-in table.
func init() {
	mime.AddExtensionType(".gmi", "text/gemini")
}

// CacheableMaxAgeSeconds is the Cache-Control max-age applied to static
// (non-templated, non-redirect) HTTPS responses.
const CacheableMaxAgeSeconds = 3600

// StaticCacheMaxEntries bounds the rendered-file LRU.
const StaticCacheMaxEntries = 4096

// Pipeline wires the resolver, template engine, markdown converter and
// rendered-file cache together to turn one Request into one Response.
type Pipeline struct {
	PublicRoot  string
	ErrdocsRoot string
	Engine      *templates.Engine
	Cache       *rfcache.Cache
}

// New builds a Pipeline with a fresh rendered-file cache.
func New(publicRoot, errdocsRoot string, engine *templates.Engine) (*Pipeline, error) {
	cache, err := rfcache.New(StaticCacheMaxEntries)
	if err != nil {
		return nil, err
	}
	return &Pipeline{PublicRoot: publicRoot, ErrdocsRoot: errdocsRoot, Engine: engine, Cache: cache}, nil
}

// Handle resolves, reads, optionally renders and seals a Response for req.
// Any error encountered anywhere in the pipeline is converted to an error
// Response via RenderError instead of propagating, since the TLS accept
// loop always needs *something* to write back.
func (p *Pipeline) Handle(req model.Request) *model.Response {
	resolved, err := resolver.Resolve(p.PublicRoot, req.Path, req.Protocol)
	if err != nil {
		return p.RenderError(req, err)
	}

	resp, err := p.render(req, resolved)
	if err != nil {
		return p.RenderError(req, err)
	}
	return resp
}

func (p *Pipeline) render(req model.Request, resolved resolver.Result) (*model.Response, error) {
	isTemplate := strings.HasSuffix(resolved.Suffix, ".hbs")
	isMarkdownTemplate := strings.HasSuffix(resolved.Suffix, ".md.hbs")

	if !isTemplate {
		return p.renderStatic(req, resolved)
	}

	body, err := os.ReadFile(resolved.AbsolutePath)
	if err != nil {
		return nil, model.NewError(model.KindIoError, err)
	}

	var frontMatter map[string]any
	source := body
	if isMarkdownTemplate {
		fm, stripped, err := markdown.ExtractFrontMatter(body)
		if err != nil {
			return nil, err
		}
		frontMatter = fm
		source = stripped
	}

	base := p.Engine.BaseContext(req)
	firstPass, acc1, err := p.Engine.Render(string(source), base, frontMatter)
	if err != nil {
		return nil, err
	}

	rendered := firstPass
	if isMarkdownTemplate {
		var converted []byte
		if req.Protocol == model.ProtocolGemini {
			converted, err = markdown.ToGemtext([]byte(firstPass))
		} else {
			converted, err = markdown.ToHTML([]byte(firstPass))
		}
		if err != nil {
			return nil, err
		}

		secondExtra := make(map[string]any, len(frontMatter)+len(acc1.ExtraValues))
		for k, v := range frontMatter {
			secondExtra[k] = v
		}
		for k, v := range acc1.ExtraValues {
			secondExtra[k] = v
		}

		secondPass, acc2, err := p.Engine.Render(string(converted), base, secondExtra)
		if err != nil {
			return nil, err
		}
		rendered = secondPass
		acc1 = mergeAccumulator(acc1, acc2)
	}

	return p.seal(req, []byte(rendered), acc1)
}

func mergeAccumulator(first, second *templates.Accumulator) *templates.Accumulator {
	merged := &templates.Accumulator{ExtraValues: first.ExtraValues}
	merged.Status = first.Status
	merged.MediaType = first.MediaType
	merged.Redirect = first.Redirect
	if second.Status != nil {
		merged.Status = second.Status
	}
	if second.MediaType != "" {
		merged.MediaType = second.MediaType
	}
	if second.Redirect != nil {
		merged.Redirect = second.Redirect
	}
	return merged
}

func (p *Pipeline) seal(req model.Request, body []byte, acc *templates.Accumulator) (*model.Response, error) {
	if acc.Redirect != nil {
		return model.NewRedirectResponse(acc.Redirect.Kind, acc.Redirect.URL), nil
	}

	status := model.StatusSuccess
	if acc.Status != nil {
		status = *acc.Status
	}

	mediaType := acc.MediaType
	if mediaType == "" {
		mediaType = req.Protocol.MediaType()
	}

	return &model.Response{Status: status, MediaType: mediaType, Body: body}, nil
}

// renderStatic serves a non-templated file, optionally converting Markdown,
// via the coalescing rendered-file cache: concurrent requests for the same
// (path, protocol) share one read.
func (p *Pipeline) renderStatic(req model.Request, resolved resolver.Result) (*model.Response, error) {
	key := rfcache.Key{AbsolutePath: resolved.AbsolutePath, Protocol: req.Protocol}

	entry, err := p.Cache.GetOrCompute(key, func() (rfcache.Entry, error) {
		body, err := os.ReadFile(resolved.AbsolutePath)
		if err != nil {
			return rfcache.Entry{}, model.NewError(model.KindIoError, err)
		}

		isMarkdown := strings.HasSuffix(resolved.AbsolutePath, ".md")
		mediaType := mediaTypeForExtension(resolved.AbsolutePath, req.Protocol)

		if isMarkdown {
			var converted []byte
			var convErr error
			if req.Protocol == model.ProtocolGemini {
				converted, convErr = markdown.ToGemtext(body)
			} else {
				converted, convErr = markdown.ToHTML(body)
			}
			if convErr != nil {
				return rfcache.Entry{}, convErr
			}
			body = converted
		}

		maxAge := CacheableMaxAgeSeconds
		return rfcache.Entry{Body: body, MediaType: mediaType, CacheMaxAge: &maxAge}, nil
	})
	if err != nil {
		return nil, err
	}

	resp := &model.Response{Status: model.StatusSuccess, MediaType: entry.MediaType, Body: entry.Body}
	if req.Protocol == model.ProtocolHTTPS && entry.CacheMaxAge != nil {
		resp.WithCacheMaxAge(*entry.CacheMaxAge)
	}
	return resp, nil
}

// mediaTypeForExtension looks up path's media type via mime.TypeByExtension
// against the stdlib's built-in table plus the .gmi registration above.
// Markdown source has no fixed type of its own since renderStatic converts
// it to either HTML or Gemtext depending on protocol, so that one extension
// is resolved from the target protocol instead of the mime package; an
// unrecognized extension falls back the same way.
func mediaTypeForExtension(path string, protocol model.Protocol) string {
	if filepath.Ext(path) == ".md" {
		return protocol.MediaType()
	}
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return protocol.MediaType()
}

// RenderError converts a pipeline error into a Response, searching the
// errdocs root for a matching template on HTTPS (rendered through the
// template engine with the request context) and falling back to a minimal
// hardcoded body if none exists; Gemini never carries an error body, only
// its status line.
func (p *Pipeline) RenderError(req model.Request, err error) *model.Response {
	merr, ok := model.AsError(err)
	status := model.StatusOtherServerError
	if ok {
		status = merr.Kind.Status()
	}

	if req.Protocol == model.ProtocolGemini {
		return model.NewStatusResponse(status)
	}

	for _, suffix := range []string{".html.hbs", ".html"} {
		path := filepath.Join(p.ErrdocsRoot, string(status)+suffix)
		body, readErr := os.ReadFile(path)
		if readErr != nil {
			continue
		}
		if strings.HasSuffix(suffix, ".hbs") {
			rendered, _, renderErr := p.Engine.Render(string(body), p.Engine.BaseContext(req), nil)
			if renderErr != nil {
				continue
			}
			return &model.Response{Status: status, MediaType: "text/html; charset=utf-8", Body: []byte(rendered)}
		}
		return &model.Response{Status: status, MediaType: "text/html; charset=utf-8", Body: body}
	}

	return &model.Response{Status: status, MediaType: "text/plain; charset=utf-8", Body: []byte(status.String())}
}
