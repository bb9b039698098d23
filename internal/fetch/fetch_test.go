package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pricewatch/internal/core"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tariffPage = `<!DOCTYPE html>
<html>
<head><title>Le nostre tariffe</title><script>var x = "Materia prima: 9,9999 €/kWh";</script></head>
<body>
  <section>
    <h2>Octopus Flex</h2>
    <div class="card">
      <p>Materia prima: 0,1500 €/kWh</p>
      <p>Materia prima: 0,6000 €/Smc</p>
    </div>
  </section>
  <section>
    <h3>Tariffa <span>Octopus Fissa 12M</span></h3>
    <div class="card">
      <ul>
        <li><strong>Luce</strong> Materia&nbsp;prima: <b>0,1232</b>&nbsp;€/kWh</li>
        <li><strong>Gas</strong> Materia prima:
            0.4530 €/Smc</li>
      </ul>
    </div>
  </section>
</body>
</html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "0,1232", want: 0.1232},
		{in: "0.1232", want: 0.1232},
		{in: "0,25 €/kWh", want: 0.25},
		{in: "0,27€/kWh", want: 0.27},
		{in: "  1.05  ", want: 1.05},
		{in: "0,90.", want: 0.90},
		{in: "12", want: 12},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		{in: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPrice)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePrice_SeparatorsAgree(t *testing.T) {
	comma, err := ParsePrice("0,1232")
	require.NoError(t, err)
	period, err := ParsePrice("0.1232")
	require.NoError(t, err)
	assert.Equal(t, comma, period)
}

func TestPriceTokens(t *testing.T) {
	assert.Equal(t, []string{"0,25", "0,90"}, PriceTokens("0,25 0,90"))
	assert.Equal(t, []string{"0.25", "0.90"}, PriceTokens("0.25, 0.90"))
	assert.Equal(t, []string{"0.25", "0.90"}, PriceTokens("0.25,0.90"))
	assert.Equal(t, []string{"0,25", "0,90"}, PriceTokens("0,25,0,90"))
	assert.Equal(t, []string{"0,25", "0,90"}, PriceTokens("0,25;0,90"))
	assert.Equal(t, []string{"0,27", "0,88"}, PriceTokens("0,27€/kWh 0,88€/Smc"))
	assert.Empty(t, PriceTokens("nessun numero"))
}

func TestExtractPrices_ScopedSection(t *testing.T) {
	prices, err := ExtractPrices(mustDoc(t, tariffPage), DefaultMarker, DefaultLabel)
	require.NoError(t, err)

	assert.Equal(t, core.Prices{Luce: 0.1232, Gas: 0.453}, prices)
}

func TestExtractPrices_FallsBackToWholePage(t *testing.T) {
	html := `<html><body>
		<h2>Octopus Fissa 12M</h2>
		<div>Scopri la tariffa</div>
		<footer><p>MATERIA PRIMA: 0,1300 €/kWh</p><p>Materia prima : 0,5000 €/Smc</p></footer>
	</body></html>`

	prices, err := ExtractPrices(mustDoc(t, html), DefaultMarker, DefaultLabel)
	require.NoError(t, err)
	assert.Equal(t, core.Prices{Luce: 0.13, Gas: 0.5}, prices)
}

func TestExtractPrices_PartialFallback(t *testing.T) {
	html := `<html><body>
		<h4>Octopus Fissa 12M</h4>
		<div>Materia prima: 0,1100 €/kWh</div>
		<div>Materia prima: 0,4400 €/Smc</div>
	</body></html>`

	prices, err := ExtractPrices(mustDoc(t, html), DefaultMarker, DefaultLabel)
	require.NoError(t, err)
	assert.Equal(t, core.Prices{Luce: 0.11, Gas: 0.44}, prices)
}

func TestExtractPrices_SectionMissing(t *testing.T) {
	html := `<html><body><h2>Altro</h2><div>Materia prima: 0,1 €/kWh</div></body></html>`

	_, err := ExtractPrices(mustDoc(t, html), DefaultMarker, DefaultLabel)
	require.Error(t, err)
	assert.True(t, IsParse(err))
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestExtractPrices_ContainerMissing(t *testing.T) {
	html := `<html><body><p>x</p><h2>Octopus Fissa 12M</h2><p>Materia prima: 0,1 €/kWh</p></body></html>`

	_, err := ExtractPrices(mustDoc(t, html), DefaultMarker, DefaultLabel)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContainerNotFound)
}

func TestExtractPrices_PatternMissingKeepsScope(t *testing.T) {
	html := `<html><body><h2>Octopus Fissa 12M</h2><div>Prezzo luce 0,1232 €/kWh</div></body></html>`

	_, err := ExtractPrices(mustDoc(t, html), DefaultMarker, DefaultLabel)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPriceNotFound)

	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, KindParse, ee.Kind)
	assert.Equal(t, "Prezzo luce 0,1232 €/kWh", ee.Scope)
}

func TestExtractPrices_ScriptTextIgnoredInFallback(t *testing.T) {
	html := `<html><body><h2>Octopus Fissa 12M</h2><div>vuoto</div>
		<script>Materia prima: 0,1 €/kWh Materia prima: 0,2 €/Smc</script></body></html>`

	_, err := ExtractPrices(mustDoc(t, html), DefaultMarker, DefaultLabel)
	assert.ErrorIs(t, err, ErrPriceNotFound)
}

func TestFetchCurrentPrices_Success(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(tariffPage))
	}))
	defer server.Close()

	e := NewExtractor(Options{URL: server.URL, Timeout: 5 * time.Second})
	prices, err := e.FetchCurrentPrices(context.Background())
	require.NoError(t, err)

	assert.Equal(t, core.Prices{Luce: 0.1232, Gas: 0.453}, prices)
	assert.Equal(t, DefaultUserAgent, gotUA)
}

func TestFetchCurrentPrices_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer server.Close()

	e := NewExtractor(Options{URL: server.URL})
	_, err := e.FetchCurrentPrices(context.Background())
	require.Error(t, err)

	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, KindFetch, ee.Kind)
	assert.Equal(t, http.StatusForbidden, ee.StatusCode)
	assert.True(t, IsFetch(err))
	assert.False(t, IsParse(err))
}

func TestFetchCurrentPrices_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	e := NewExtractor(Options{URL: url, Timeout: time.Second})
	_, err := e.FetchCurrentPrices(context.Background())
	assert.True(t, IsFetch(err))
}

func TestFetchCurrentPrices_ParseErrorCarriesURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Manutenzione</h1></body></html>`))
	}))
	defer server.Close()

	e := NewExtractor(Options{URL: server.URL})
	_, err := e.FetchCurrentPrices(context.Background())

	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, KindParse, ee.Kind)
	assert.Equal(t, server.URL, ee.URL)
}

func TestNewExtractor_Defaults(t *testing.T) {
	e := NewExtractor(Options{})

	assert.Equal(t, DefaultURL, e.URL)
	assert.Equal(t, DefaultMarker, e.Marker)
	assert.Equal(t, DefaultLabel, e.Label)
	assert.Equal(t, DefaultTimeout, e.HTTPClient.Timeout)
}
