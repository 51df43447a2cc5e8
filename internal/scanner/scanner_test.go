package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsScanner/internal/domain"
)

type stubPortal struct{}

func (stubPortal) SearchURL(Query) (string, error)              { return "", nil }
func (stubPortal) ListArticleLinks(*Response) ([]string, error) { return nil, nil }
func (stubPortal) HasNextPage(*Response, Query) bool            { return false }
func (stubPortal) ParseArticle(*Response) (domain.RawFields, error) {
	return domain.RawFields{}, nil
}

func TestDescriptorValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		desc    Descriptor
		wantErr string
	}{
		{
			name: "complete",
			desc: Descriptor{Name: "g1", Domain: "g1.globo.com", SearchTemplate: "https://g1.globo.com/busca/?q={keyword}"},
		},
		{
			name:    "missing everything",
			desc:    Descriptor{},
			wantErr: "name, domain, search template",
		},
		{
			name:    "missing domain",
			desc:    Descriptor{Name: "x", SearchTemplate: "https://x/?s={keyword}"},
			wantErr: "domain",
		},
		{
			name:    "negative first page",
			desc:    Descriptor{Name: "x", Domain: "x", SearchTemplate: "https://x", FirstPage: -1},
			wantErr: "negative first page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.desc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, domain.ErrConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	desc := Descriptor{Name: "diplomatique", Domain: "diplomatique.org.br", SearchTemplate: "https://diplomatique.org.br/page/{page}/?s={keyword}", FirstPage: 1}

	require.NoError(t, reg.Register(desc, stubPortal{}))
	require.NoError(t, reg.Register(Descriptor{Name: "cartacapital", Domain: "cartacapital.com.br", SearchTemplate: "https://x"}, stubPortal{}))

	assert.ErrorIs(t, reg.Register(desc, stubPortal{}), domain.ErrConfig, "duplicate name")
	assert.ErrorIs(t, reg.Register(Descriptor{Name: "bad"}, stubPortal{}), domain.ErrConfig)
	assert.ErrorIs(t, reg.Register(Descriptor{Name: "noportal", Domain: "x", SearchTemplate: "x"}, nil), domain.ErrConfig)

	src, err := reg.Resolve("diplomatique")
	require.NoError(t, err)
	assert.Equal(t, 1, src.FirstPage)
	assert.Equal(t, "diplomatique.org.br", src.Domain)

	_, err = reg.Resolve("unknown")
	assert.ErrorIs(t, err, ErrUnknownSource)

	assert.Equal(t, []string{"cartacapital", "diplomatique"}, reg.Names())
}
