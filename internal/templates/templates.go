// Package templates is the Handlebars template engine adapter, including
// rubyshd's decorator helpers and the reserved render context.
package templates

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/aymerick/raymond"

	"rubyshd/internal/model"
)

const accumulatorDataKey = "__rubyshd_accumulator"

// Accumulator is the request-scoped response-metadata sink decorator
// helpers mutate. It's threaded through rendering via raymond's private
// data frame rather than serialized in and out of the template context,
// since Go can carry a live pointer through that frame where the original
// JSON-context implementation had to round-trip a snapshot.
type Accumulator struct {
	Status      *model.Status
	MediaType   string
	Redirect    *model.Redirect
	ExtraValues map[string]any
}

func newAccumulator() *Accumulator {
	return &Accumulator{ExtraValues: make(map[string]any)}
}

// reservedKeys are the context-tree keys C8 populates per request; a
// template or partial defining one of these as a context value would
// silently shadow rubyshd's own fields, so Engine.Render refuses to
// proceed if content-provided context (front matter, or values written by
// `set` in a first pass) collides with one. Data files never collide: they
// sit under the reserved "data" key.
var reservedKeys = map[string]bool{
	"peer_addr": true, "path": true, "common_name": true, "protocol": true,
	"is_authenticated": true, "is_anonymous": true, "is_https": true,
	"is_gemini": true, "os_platform": true, "data": true,
}

// Engine owns the compiled partial and data-file registries built once at
// startup, plus the decorator/helper set registered globally with raymond.
type Engine struct {
	partials map[string]string
	data     map[string]any
}

// NewEngine loads every *.hbs under partialsDir as a registered partial
// (keyed by its path relative to partialsDir, without the .hbs suffix) and
// every *.json under dataDir under data.<basename>. Both directories are
// read once; a malformed partial or data file is a fatal startup error.
func NewEngine(partialsDir, dataDir string) (*Engine, error) {
	e := &Engine{partials: make(map[string]string), data: make(map[string]any)}

	if err := filepath.Walk(partialsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(path, ".hbs") {
			return err
		}
		rel, err := filepath.Rel(partialsDir, path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(rel, ".hbs")
		body, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := raymond.Parse(string(body)); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		e.partials[name] = string(body)
		raymond.RegisterPartial(name, string(body))
		return nil
	}); err != nil {
		return nil, model.NewError(model.KindInternalError, fmt.Errorf("loading partials: %w", err))
	}

	if err := filepath.Walk(dataDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(path, ".json") {
			return err
		}
		base := strings.TrimSuffix(filepath.Base(path), ".json")
		body, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var parsed any
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		e.data[base] = parsed
		return nil
	}); err != nil {
		return nil, model.NewError(model.KindInternalError, fmt.Errorf("loading data: %w", err))
	}

	registerHelpers()

	return e, nil
}

// BaseContext builds the reserved top-level context fields for one request.
func (e *Engine) BaseContext(req model.Request) map[string]any {
	return map[string]any{
		"peer_addr":        req.PeerAddr.String(),
		"path":             req.Path,
		"common_name":      req.PeerIdentity.CommonName,
		"protocol":         req.Protocol.String(),
		"is_authenticated": req.PeerIdentity.Authenticated,
		"is_anonymous":     !req.PeerIdentity.Authenticated,
		"is_https":         req.Protocol == model.ProtocolHTTPS,
		"is_gemini":        req.Protocol == model.ProtocolGemini,
		"os_platform":      "linux",
		"data":             e.data,
	}
}

// Render compiles and executes source against a context built from base
// (rubyshd's reserved fields, from BaseContext) plus extra (front-matter or
// other content-provided keys layered on top). Any extra key colliding with
// a reserved field is rejected rather than silently shadowed. It returns
// the rendered text plus the decorator accumulator describing any
// response-metadata side effects (status override, redirect, extra
// template-visible values set via `set`).
func (e *Engine) Render(source string, base map[string]any, extra map[string]any) (string, *Accumulator, error) {
	ctx := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		ctx[k] = v
	}
	for k, v := range extra {
		if reservedKeys[k] {
			return "", nil, model.NewError(model.KindTemplateError, fmt.Errorf("context key %q collides with a reserved field", k))
		}
		ctx[k] = v
	}

	tpl, err := raymond.Parse(stripDecoratorSigil(source))
	if err != nil {
		return "", nil, model.NewError(model.KindTemplateError, err)
	}

	acc := newAccumulator()
	df := raymond.NewDataFrame()
	df.Set(accumulatorDataKey, acc)

	out, err := tpl.ExecWith(ctx, df)
	if err != nil {
		return "", nil, model.NewError(model.KindTemplateError, err)
	}

	return out, acc, nil
}

// decoratorSigil matches authored decorator invocations like
// `{{*status "not_found"}}`. raymond has no `*name` decorator concept of
// its own, so decorators are registered as ordinary helpers (see
// registerHelpersLocked) and the leading `*` is stripped before parsing,
// preserving the documented `{{*name ...}}` authoring syntax without
// raymond ever seeing the sigil.
var decoratorSigil = regexp.MustCompile(`\{\{(\s*)\*`)

func stripDecoratorSigil(source string) string {
	return decoratorSigil.ReplaceAllString(source, "{{$1")
}

var registerHelpersOnce sync.Once

// registerHelpers installs rubyshd's decorator and value helpers into
// raymond's process-global helper registry. raymond panics on a duplicate
// helper name, and NewEngine may legitimately be called more than once
// (tests build a fresh Engine per case), so registration happens exactly
// once per process.
func registerHelpers() {
	registerHelpersOnce.Do(registerHelpersLocked)
}

func registerHelpersLocked() {
	raymond.RegisterHelper("set", func(key string, value any, options *raymond.Options) string {
		acc := accumulatorFrom(options)
		acc.ExtraValues[key] = value
		return ""
	})

	raymond.RegisterHelper("status", func(slug string, options *raymond.Options) string {
		acc := accumulatorFrom(options)
		status, ok := model.ParseStatus(slug)
		if !ok {
			panic(fmt.Sprintf("templates: unknown status slug %q", slug))
		}
		acc.Status = &status
		return ""
	})

	raymond.RegisterHelper("media-type", func(mediaType string, options *raymond.Options) string {
		acc := accumulatorFrom(options)
		acc.MediaType = mediaType
		return ""
	})

	raymond.RegisterHelper("temporary-redirect", func(url string, options *raymond.Options) string {
		acc := accumulatorFrom(options)
		acc.Redirect = &model.Redirect{Kind: model.RedirectTemporary, URL: url}
		return ""
	})

	raymond.RegisterHelper("permanent-redirect", func(url string, options *raymond.Options) string {
		acc := accumulatorFrom(options)
		acc.Redirect = &model.Redirect{Kind: model.RedirectPermanent, URL: url}
		return ""
	})

	raymond.RegisterHelper("pick-random", func(items []any) any {
		if len(items) == 0 {
			return ""
		}
		return items[rand.Intn(len(items))]
	})

	raymond.RegisterHelper("partial-for-markup", func(name string, options *raymond.Options) string {
		if isGemini, _ := options.Value("is_gemini").(bool); isGemini {
			return name + ".gmi"
		}
		return name + ".html"
	})
}

func accumulatorFrom(options *raymond.Options) *Accumulator {
	v := options.DataFrame().Get(accumulatorDataKey)
	acc, ok := v.(*Accumulator)
	if !ok {
		panic("templates: render context missing accumulator; Render must seed DataFrame before Exec")
	}
	return acc
}
