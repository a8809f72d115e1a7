package scraper

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "autoalert/listingworker/pkg/errors"
)

const bazosResultsHTML = `
<!DOCTYPE html>
<html>
<body>
<div class="maincontent">
	<div class="inzeraty inzeratyflex">
		<div class="inzeratynadpis">
			<img class="obrazek" src="/img/1t/972/184195972.jpg">
			<h2 class="nadpis"><a href="/inzerat/184195972/fiat-500-14-16v-sport.php">Fiat 500 1.4 16V Sport</a></h2>
			<span class="velikost10">TOP - [15.8. 2026]</span>
		</div>
		<div class="popis">Predám Fiat 500, rok 2012, najazdené 98 000 km.</div>
		<div class="inzeratycena">3 500 €</div>
		<div class="inzeratylok">Bratislava<br>811 01</div>
		<div class="inzeratyview">125x</div>
	</div>
	<div class="inzeraty inzeratyflex">
		<div class="inzeratynadpis">
			<h2 class="nadpis"><a href="https://auto.bazos.sk/inzerat/184200001/skoda-octavia.php">Škoda Octavia</a></h2>
			<span class="velikost10">[1.8. 2026]</span>
		</div>
		<div class="popis">Kombi, diesel.</div>
		<div class="inzeratycena">Dohodou</div>
		<div class="inzeratylok">Košice<br>040 01</div>
	</div>
	<div class="inzeraty inzeratyflex">
		<div class="inzeratynadpis">
			<h2 class="nadpis"><a href="/neplatny-odkaz.php">Nevalídny inzerát</a></h2>
		</div>
	</div>
	<div class="strankovani">Strana 1 <a href="/20/?hledat=fiat">Ďalšia</a></div>
</div>
</body>
</html>
`

func TestBazosExtractPage(t *testing.T) {
	e, err := NewBazosExtractor(SourceBazosSK)
	require.NoError(t, err)
	assert.Equal(t, SourceBazosSK, e.Source())

	listings, hasNext, err := e.ExtractPage(strings.NewReader(bazosResultsHTML))
	require.NoError(t, err)

	// The third entry has no extractable listing id and is skipped
	require.Len(t, listings, 2)
	assert.True(t, hasNext, "next-page control should set the has-next signal")

	first := listings[0]
	assert.Equal(t, "184195972", first.ID)
	assert.Equal(t, "Fiat 500 1.4 16V Sport", first.Title)
	assert.Equal(t, "https://www.bazos.sk/inzerat/184195972/fiat-500-14-16v-sport.php", first.URL)
	assert.Equal(t, "3 500 €", first.PriceText)
	assert.Equal(t, "Bratislava, 811 01", first.LocationText)
	assert.Equal(t, "Predám Fiat 500, rok 2012, najazdené 98 000 km.", first.Description)
	assert.Equal(t, "15.8. 2026", first.DatePosted)
	assert.Equal(t, "125", first.ViewCountText)
	assert.Equal(t, "https://www.bazos.sk/img/1t/972/184195972.jpg", first.ImageURL)

	// Optional fields default to empty instead of failing the entry
	second := listings[1]
	assert.Equal(t, "184200001", second.ID)
	assert.Equal(t, "https://auto.bazos.sk/inzerat/184200001/skoda-octavia.php", second.URL)
	assert.Equal(t, "auto", second.Category)
	assert.Empty(t, second.ViewCountText)
	assert.Empty(t, second.ImageURL)
	assert.Equal(t, "Dohodou", second.PriceText)
}

func TestBazosExtractPageEmpty(t *testing.T) {
	e, err := NewBazosExtractor(SourceBazosCZ)
	require.NoError(t, err)

	html := `<html><body><div class="maincontent"><p>Nebyly nalezeny žádné inzeráty.</p></div></body></html>`
	listings, hasNext, err := e.ExtractPage(strings.NewReader(html))

	// Zero listings on a recognizable results page is a valid terminal state
	assert.NoError(t, err)
	assert.Empty(t, listings)
	assert.False(t, hasNext)
}

func TestBazosExtractPageUnexpectedStructure(t *testing.T) {
	e, err := NewBazosExtractor(SourceBazosSK)
	require.NoError(t, err)

	html := `<html><body><h1>Service temporarily unavailable</h1></body></html>`
	_, _, err = e.ExtractPage(strings.NewReader(html))

	require.Error(t, err)
	assert.True(t, apperr.IsType(err, apperr.ErrorTypeParsePage))
}

func TestBazosHasNextFromFullPage(t *testing.T) {
	e, err := NewBazosExtractor(SourceBazosSK)
	require.NoError(t, err)

	item := `<div class="inzeraty"><div class="inzeratynadpis"><h2 class="nadpis"><a href="/inzerat/%d/x.php">Item</a></h2></div></div>`
	var b strings.Builder
	b.WriteString(`<html><body><div class="maincontent">`)
	for i := 0; i < bazosPageSize; i++ {
		b.WriteString(fmt.Sprintf(item, 184000000+i))
	}
	b.WriteString(`</div></body></html>`)

	// No pagination block, but a full-size result set implies more pages
	_, hasNext, err := e.ExtractPage(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.True(t, hasNext)
}

func TestNormalizeLocation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bratislava811 01", "Bratislava, 811 01"},
		{"Brno 602 00", "Brno, 602 00"},
		{"Nitra", "Nitra"},
		{"  ", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeLocation(tt.in), "input %q", tt.in)
	}
}
