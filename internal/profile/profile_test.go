package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfile(t *testing.T) {
	p := Default()

	assert.Equal(t, "Germany", p.DefaultCountry)
	assert.Equal(t, 20, p.MaxCandidates)
	require.NotEmpty(t, p.Exhibitor.Strategies)
	assert.Equal(t, "exhibitor-item", p.Exhibitor.Strategies[0].Name)
	require.NotNil(t, p.Exhibitor.Heuristic)
	assert.Equal(t, 10, p.Exhibitor.Heuristic.MinText)
	assert.Equal(t, 500, p.Exhibitor.Heuristic.MaxText)
	assert.Nil(t, p.Contact.Heuristic)
	assert.Contains(t, p.Contact.Strategies[0].Selector, `section[class*="staff"]`)

	assert.Equal(t, 3, p.Fields.Name.Min)
	assert.Equal(t, 100, p.Fields.Name.Max)
	assert.Contains(t, p.Fields.City.Gazetteer, "Stuttgart")
	assert.Contains(t, p.Roles, "geschäftsführer")

	require.Len(t, p.Enrichment.Directories, 2)
	require.Len(t, p.Enrichment.PhraseGroups, 3)
	assert.Equal(t, []string{"CEO", "Geschäftsführer", "Managing Director"}, p.Enrichment.PhraseGroups[0])
	assert.Equal(t, 3, p.Discovery.MaxPages)
}

func TestDefaultReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.Roles[0] = "changed"
	assert.NotEqual(t, "changed", Default().Roles[0])
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	data := append([]byte{}, defaultProfile...)
	data = append(data, []byte("\n")...)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Germany", p.DefaultCountry)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode([]byte("default_country: Germany\nunknown_key: 1\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(p *Profile){
		"missing default country": func(p *Profile) { p.DefaultCountry = "" },
		"no strategies":           func(p *Profile) { p.Exhibitor.Strategies = nil },
		"bad selector":            func(p *Profile) { p.Exhibitor.Strategies[0].Selector = "div[" },
		"inverted name window":    func(p *Profile) { p.Fields.Name.Min, p.Fields.Name.Max = 50, 10 },
		"bad city pattern":        func(p *Profile) { p.Fields.City.Pattern = "([" },
		"no roles":                func(p *Profile) { p.Roles = nil },
		"bad heuristic window":    func(p *Profile) { p.Exhibitor.Heuristic.MaxText = 0 },
		"empty phrase group":      func(p *Profile) { p.Enrichment.PhraseGroups = [][]string{{}} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			p := Default()
			mutate(p)
			assert.Error(t, p.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
