package export

import (
	"io"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

var linkAttrs = map[string]bool{
	"href":   true,
	"src":    true,
	"action": true,
	"poster": true,
}

// ExtractLinks returns root-relative link targets (without query or fragment) found in an HTML document.
func ExtractLinks(r io.Reader) ([]string, error) {
	result := make([]string, 0)
	tokenizer := html.NewTokenizer(r)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if err := tokenizer.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			return result, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			_, more := tokenizer.TagName()
			for more {
				var key, val []byte
				key, val, more = tokenizer.TagAttr()
				if linkAttrs[string(key)] {
					if link, ok := rootRelative(string(val)); ok {
						result = append(result, link)
					}
				}
			}
		}
	}
}

func rootRelative(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "", false
	}
	parse, err := url.Parse(raw)
	if err != nil || parse.Path == "" {
		return "", false
	}
	return parse.Path, true
}
