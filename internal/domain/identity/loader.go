package identity

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/okian/revstat/pkg/logger"
	"github.com/okian/revstat/pkg/metrics"
)

// Load reads an identity map from a YAML or JSON file and validates it.
// Any problem with the document is reported as ErrConfig.
func Load(ctx context.Context, path string, opts ...Option) (*Map, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		metrics.RecordIdentityMapLoadError()
		return nil, fmt.Errorf("%w: read %s: %w", ErrConfig, path, err)
	}
	return build(ctx, k, path, opts...)
}

// Parse builds a Map from an in-memory YAML or JSON document.
func Parse(ctx context.Context, data []byte, opts ...Option) (*Map, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		metrics.RecordIdentityMapLoadError()
		return nil, fmt.Errorf("%w: parse: %w", ErrConfig, err)
	}
	return build(ctx, k, "<inline>", opts...)
}

func build(ctx context.Context, k *koanf.Koanf, source string, opts ...Option) (*Map, error) {
	var doc Document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		metrics.RecordIdentityMapLoadError()
		return nil, fmt.Errorf("%w: decode %s: %w", ErrConfig, source, err)
	}

	m, err := New(doc, opts...)
	if err != nil {
		metrics.RecordIdentityMapLoadError()
		return nil, err
	}

	metrics.UpdateIdentityMapSize(m.mail.Len(), m.corp.Len())
	logger.Get().Named("identity").Info(ctx, "identity map loaded",
		logger.String("source", source),
		logger.Int("mailmap", m.mail.Len()),
		logger.Int("corpmap", m.corp.Len()),
		logger.Int("relays", len(m.relays)),
		logger.Int("bots", len(m.bots)))
	return m, nil
}
