package aerialmap

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

type Scheme uint8

const (
	UnknownScheme Scheme = iota
	HTTPScheme
	FileScheme
	S3Scheme
)

var _ fmt.Stringer = UnknownScheme

var schemeStrings = map[Scheme]string{
	HTTPScheme:    "http",
	FileScheme:    "file",
	S3Scheme:      "s3",
	UnknownScheme: "unknown",
}

func (s Scheme) String() string {
	return schemeStrings[s]
}

// URI encapsulates the parsed components of a tile source URL template.
type URI struct {
	raw      string
	host     string
	template string
	scheme   Scheme
}

func (u *URI) Raw() string {
	return u.raw
}

// Host is the server (http) or bucket (s3) component.
func (u *URI) Host() string {
	return u.host
}

// Template is the per-scheme tile path template carrying the {x}, {y} and
// {z} placeholders. For http sources it is the full URL.
func (u *URI) Template() string {
	return u.template
}

func (u *URI) Scheme() Scheme {
	return u.scheme
}

// ParseURI parses a tile source string, trimming whitespace and handling
// supported schemes. The template must reference all three tile placeholders.
func ParseURI(raw string) (*URI, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("tile source is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing tile source %q: %w", raw, err)
	}

	var parsed *URI
	switch scheme := strings.ToLower(u.Scheme); scheme {
	case "http", "https":
		parsed = &URI{raw: raw, host: u.Host, template: raw, scheme: HTTPScheme}
	case "", "file":
		parsed = &URI{raw: raw, template: filepath.FromSlash(filepath.Join(u.Host, u.Path)), scheme: FileScheme}
	case "s3":
		parsed = &URI{raw: raw, host: u.Host, template: strings.TrimPrefix(u.Path, "/"), scheme: S3Scheme}
	default:
		return nil, fmt.Errorf("unsupported tile source scheme %q", u.Scheme)
	}

	if err := validateTemplate(parsed.template); err != nil {
		return nil, err
	}

	return parsed, nil
}

// validateTemplate checks that every tile placeholder occurs in the template.
func validateTemplate(template string) error {
	var missing []string
	for _, placeholder := range []string{"{x}", "{y}", "{z}"} {
		if !strings.Contains(template, placeholder) {
			missing = append(missing, placeholder)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("tile source template is missing placeholder(s) %s", strings.Join(missing, ", "))
	}
	return nil
}

// expandTemplate substitutes the tile coordinates into a source template.
func expandTemplate(template string, tile TileId) string {
	r := strings.NewReplacer(
		"{x}", strconv.Itoa(tile.Coord.X),
		"{y}", strconv.Itoa(tile.Coord.Y),
		"{z}", strconv.Itoa(tile.Zoom),
	)
	return r.Replace(template)
}
