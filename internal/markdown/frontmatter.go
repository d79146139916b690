package markdown

import (
	"bytes"

	"gopkg.in/yaml.v2"

	"rubyshd/internal/model"
)

var frontMatterDelim = []byte("---")

// ExtractFrontMatter splits a leading "---"-delimited YAML block, if
// present, off of source and parses it into a string-keyed map whose
// entries the pipeline merges into the template context before the
// second Handlebars pass. Content with no leading delimiter is returned
// unchanged with a nil front matter map.
func ExtractFrontMatter(source []byte) (map[string]any, []byte, error) {
	trimmed := bytes.TrimLeft(source, "\n")
	if !bytes.HasPrefix(trimmed, frontMatterDelim) {
		return nil, source, nil
	}

	rest := trimmed[len(frontMatterDelim):]
	// the opening delimiter must be alone on its line
	if len(rest) > 0 && rest[0] != '\n' && rest[0] != '\r' {
		return nil, source, nil
	}

	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, source, nil
	}

	yamlBlock := rest[:end]
	body := rest[end+len("\n---"):]
	// skip to end of the closing delimiter's line
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(yamlBlock, &raw); err != nil {
		return nil, nil, model.NewError(model.KindTemplateError, err)
	}

	fm := make(map[string]any, len(raw))
	for k, v := range raw {
		fm[k] = normalizeYAML(v)
	}

	return fm, body, nil
}

// normalizeYAML recursively converts yaml.v2's map[interface{}]interface{}
// into map[string]any so front-matter values interoperate with the
// templates package's plain-string-keyed context.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]any, len(val))
		for k, innerV := range val {
			if ks, ok := k.(string); ok {
				out[ks] = normalizeYAML(innerV)
			}
		}
		return out
	case []interface{}:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return v
	}
}
