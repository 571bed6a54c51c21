package service

import (
	"errors"
	"testing"

	"github.com/octobees/exhibitor-leads/internal/fetch"
	"github.com/octobees/exhibitor-leads/internal/pipeline"
)

func TestNormalizeURL(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    string
		wantErr bool
	}{
		"bare host":      {in: "www.messe-stuttgart.de/eltefa/aussteller/", want: "https://www.messe-stuttgart.de/eltefa/aussteller/"},
		"keeps http":     {in: "http://fair.example/list?page=2", want: "http://fair.example/list?page=2"},
		"drops fragment": {in: "https://fair.example/a#b", want: "https://fair.example/a"},
		"idn host":       {in: "https://bücher.example/katalog", want: "https://xn--bcher-kva.example/katalog"},
		"keeps port":     {in: "http://fair.example:8080/", want: "http://fair.example:8080/"},
		"empty":          {in: "  ", wantErr: true},
		"ftp":            {in: "ftp://fair.example/", wantErr: true},
		"single label":   {in: "https://localhost/", wantErr: true},
		"malformed":      {in: "https://%zz", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNormalizeSources(t *testing.T) {
	strategies := fetch.Strategies{fetch.StrategyHTTP: nopFetcher{}, fetch.StrategyRender: nopFetcher{}}

	got, err := NormalizeSources([]pipeline.Source{
		{URL: "fair.example/"},
		{URL: "https://spa.example/", Fetch: " Render ", Discover: true},
	}, strategies)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Fetch != fetch.StrategyHTTP || got[1].Fetch != fetch.StrategyRender || !got[1].Discover {
		t.Fatalf("unexpected sources: %+v", got)
	}

	var verr *ValidationError
	if _, err := NormalizeSources(nil, strategies); !errors.As(err, &verr) || verr.Field != "sources" {
		t.Fatalf("expected sources validation error, got %v", err)
	}
	if _, err := NormalizeSources([]pipeline.Source{{URL: "javascript://alert(1)"}}, strategies); !errors.As(err, &verr) || verr.Field != "sources[0].url" {
		t.Fatalf("expected url validation error, got %v", err)
	}

	many := make([]pipeline.Source, MaxSources+1)
	if _, err := NormalizeSources(many, strategies); err == nil {
		t.Fatalf("expected error above MaxSources")
	}
}
