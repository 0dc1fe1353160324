package source

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

var ErrUnknownAdapter = errors.New("unknown source adapter")

// Spec describes one configured source.
type Spec struct {
	Name    string
	Adapter string
	URL     string
}

// Adapters lists the adapter names Build understands.
func Adapters() []string { return []string{"nhc", "moh", "bno"} }

// Build creates the fetcher for spec.
func Build(spec Spec, client *resty.Client) (Fetcher, error) {
	if strings.TrimSpace(spec.URL) == "" {
		return nil, fmt.Errorf("source %q: url is required", spec.Name)
	}
	switch strings.ToLower(strings.TrimSpace(spec.Adapter)) {
	case "nhc":
		return NewNHC(spec.Name, spec.URL, client), nil
	case "moh":
		return NewMOH(spec.Name, spec.URL, client), nil
	case "bno":
		return NewBNO(spec.Name, spec.URL, client), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, spec.Adapter)
	}
}
