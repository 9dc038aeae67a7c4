package producer

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownImageStyle is returned by image_derivative for a style that is
// not configured.
var ErrUnknownImageStyle = errors.New("producer: unknown image style")

// imageURL: entity. A "url" attribute is used as is; otherwise the file uri
// is mapped to a public URL.
func (b *builtins) imageURL(_ context.Context, params map[string]any) (any, bool, error) {
	file, ok := params["entity"]
	if !ok {
		return nil, false, nil
	}
	if u, ok := fieldString(file, "url"); ok {
		return u, true, nil
	}
	uri, ok := fieldString(file, "uri")
	if !ok {
		return nil, false, nil
	}
	return b.fileURL(uri), true, nil
}

// imageDerivative: entity, style, width, height. The source dimensions come
// from the width and height params, else from the file. The result is
// {url, width, height}; url is empty when the file has no uri.
func (b *builtins) imageDerivative(_ context.Context, params map[string]any) (any, bool, error) {
	file, ok := params["entity"]
	if !ok {
		return nil, false, nil
	}
	name, err := requireString(params, "style")
	if err != nil {
		return nil, false, err
	}
	style, ok := b.opts.Styles[name]
	if !ok {
		return nil, false, errors.Wrapf(ErrUnknownImageStyle, "%q", name)
	}
	w, ok := intParam(params, "width")
	if !ok {
		w, _ = fieldInt(file, "width")
	}
	h, ok := intParam(params, "height")
	if !ok {
		h, _ = fieldInt(file, "height")
	}
	w, h = scaleToFit(w, h, style)

	url := ""
	if uri, ok := fieldString(file, "uri"); ok {
		scheme, path := splitURI(uri)
		if scheme == "public" || scheme == "private" {
			url = b.join("styles", name, scheme, path)
		} else {
			url = uri
		}
	}
	return map[string]any{"url": url, "width": w, "height": h}, true, nil
}

// focalPoint: file. Parses "x,y" percentages; a missing or malformed value is
// absent.
func (b *builtins) focalPoint(_ context.Context, params map[string]any) (any, bool, error) {
	s, ok := fieldString(params["file"], "focal_point")
	if !ok {
		return nil, false, nil
	}
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return nil, false, nil
	}
	x, errX := strconv.Atoi(strings.TrimSpace(xs))
	y, errY := strconv.Atoi(strings.TrimSpace(ys))
	if errX != nil || errY != nil {
		return nil, false, nil
	}
	return map[string]any{"x": x, "y": y}, true, nil
}

func (b *builtins) fileURL(uri string) string {
	scheme, path := splitURI(uri)
	switch scheme {
	case "public":
		return b.join(b.opts.FilesDir, path)
	case "private":
		return b.join("system/files", path)
	}
	return uri
}

func (b *builtins) join(parts ...string) string {
	out := strings.TrimRight(b.opts.BaseURL, "/")
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			out += "/" + p
		}
	}
	return out
}

func splitURI(uri string) (scheme, path string) {
	scheme, path, ok := strings.Cut(uri, "://")
	if !ok {
		return "", uri
	}
	return scheme, path
}

// scaleToFit scales (w, h) into the style box keeping the aspect ratio and
// never upscaling. Unknown source dimensions yield the style box.
func scaleToFit(w, h int, s ImageStyle) (int, int) {
	if w <= 0 || h <= 0 {
		return s.Width, s.Height
	}
	ratio := 1.0
	if s.Width > 0 {
		ratio = math.Min(ratio, float64(s.Width)/float64(w))
	}
	if s.Height > 0 {
		ratio = math.Min(ratio, float64(s.Height)/float64(h))
	}
	return int(math.Round(float64(w) * ratio)), int(math.Round(float64(h) * ratio))
}
