package defaults

import (
	"fmt"

	"github.com/wibucomic/backend/internal/fetch"
	"github.com/wibucomic/backend/internal/sources"
	"github.com/wibucomic/backend/internal/sources/native/mangadex"
	"github.com/wibucomic/backend/internal/sources/native/mangapill"
	"github.com/wibucomic/backend/internal/sources/native/mangaread"
	"github.com/wibucomic/backend/internal/sources/native/mangareader"
	"github.com/wibucomic/backend/internal/sources/yamlsource"
)

// NewRegistry wires the built-in connectors plus any YAML-described ones
// found under yamlSourcesPath. YAML load failures come back alongside a
// usable registry so a bad file degrades rather than aborts startup.
func NewRegistry(yamlSourcesPath string, fetcher *fetch.Client) (*sources.Registry, error) {
	registry := sources.NewRegistry()
	_ = registry.Register(mangadex.NewConnector(fetcher))
	_ = registry.Register(mangapill.NewConnector(fetcher))
	_ = registry.Register(mangareader.NewConnector(fetcher))
	_ = registry.Register(mangaread.NewConnector(fetcher))

	loaded, loadErr := yamlsource.LoadFromDir(yamlSourcesPath, fetcher)
	for _, connector := range loaded {
		if err := registry.Register(connector); err != nil {
			if loadErr == nil {
				loadErr = fmt.Errorf("register yaml source %q: %w", connector.Source().Key, err)
			}
		}
	}

	return registry, loadErr
}
