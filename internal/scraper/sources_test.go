package scraper

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestCaliforniaParse(t *testing.T) {
	t.Parallel()

	src := NewCalifornia("CA", SourceConfig{})
	target := src.Targets()[0]
	require.Equal(t, "Cal. Penal Code § 187", target.Citation)

	doc := mustDoc(t, `<div id="codeLawSectionNoHead"><h6>187.</h6>
<p>(a) Murder is the unlawful killing of a human being, or a fetus, with malice aforethought.</p>
<p><i>(Amended by Stats. 1996, Ch. 1023, Sec. 385. Effective September 29, 1996.)</i></p></div>`)
	st, err := src.Parse(target, doc)
	require.NoError(t, err)
	require.Equal(t, "Murder", st.Title)
	require.Equal(t, "CA", st.Jurisdiction)
	require.Equal(t, "homicide", st.Category)
	require.True(t, strings.HasPrefix(st.Content, "(a) Murder is the unlawful killing"))
	require.NotNil(t, st.EffectiveDate)
	require.Equal(t, time.Date(1996, 9, 29, 0, 0, 0, 0, time.UTC), *st.EffectiveDate)

	_, err = src.Parse(target, mustDoc(t, `<html><body>Section not found</body></html>`))
	require.ErrorIs(t, err, ErrNoContent)
}

func TestTexasParseSlicesSection(t *testing.T) {
	t.Parallel()

	src := NewTexas("TX", SourceConfig{})
	target := src.Targets()[0]
	require.Equal(t, "/Docs/PE/htm/PE.19.htm", target.Path)

	doc := mustDoc(t, `<html><body>
<p>Sec. 19.01.&nbsp;&nbsp;TYPES OF CRIMINAL HOMICIDE.&nbsp;&nbsp;(a) A person commits criminal homicide.</p>
<p>Sec. 19.02.&nbsp;&nbsp;MURDER.&nbsp;&nbsp;(a) In this section:</p>
<p>(1) "Adequate cause" means cause that would commonly produce a degree of anger.</p>
<p>(c) Except as provided by Subsection (d), an offense under this section is a felony of the first degree.</p>
<p>Sec. 19.03.&nbsp;&nbsp;CAPITAL MURDER.&nbsp;&nbsp;(a) A person commits an offense.</p>
</body></html>`)
	st, err := src.Parse(target, doc)
	require.NoError(t, err)
	require.Equal(t, "Murder", st.Title)
	require.Contains(t, st.Content, "Adequate cause")
	require.NotContains(t, st.Content, "CAPITAL MURDER")
	require.NotContains(t, st.Content, "19.01")
	require.Contains(t, st.Penalties, "felony of the first degree")

	missing := Target{Citation: "Tex. Penal Code § 19.09", Section: "19.09"}
	_, err = src.Parse(missing, doc)
	require.ErrorIs(t, err, ErrNoContent)
}

func TestTexasCaption(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Capital murder", texasCaption("CAPITAL MURDER. (a) A person"))
	require.Empty(t, texasCaption("(a) lowercase start. more"))
}

func TestFloridaParse(t *testing.T) {
	t.Parallel()

	src := NewFlorida("FL", SourceConfig{})
	target := src.Targets()[0]
	require.Equal(t, "Fla. Stat. § 782.04", target.Citation)
	require.Equal(t,
		"/statutes/index.cfm?App_mode=Display_Statute&URL=0700-0799/0782/Sections/0782.04.html",
		target.Path)

	doc := mustDoc(t, `<div class="Section"><span class="SectionNumber">782.04</span>
<span class="Catchline"><span class="CatchlineText">Murder.</span></span>
<span class="SectionBody"><span class="Text Intro">The unlawful killing of a human being, which constitutes murder in the first degree and a capital felony.</span></span></div>`)
	st, err := src.Parse(target, doc)
	require.NoError(t, err)
	require.Equal(t, "Murder.", st.Title)
	require.Contains(t, st.Penalties, "capital felony")
}

func TestNYSenateParse(t *testing.T) {
	t.Parallel()

	src := NewNYSenate("NY", SourceConfig{})
	target := src.Targets()[0]
	require.Equal(t, "N.Y. Penal Law § 125.25", target.Citation)

	doc := mustDoc(t, `<div class="nys-openleg-result-container">
<h3 class="nys-openleg-result-title">SECTION 125.25 Murder in the second degree</h3>
<div class="nys-openleg-result-text">A person is guilty of murder in the second degree when: 1. With intent to cause the death of another person, he causes the death of such person.</div></div>`)
	st, err := src.Parse(target, doc)
	require.NoError(t, err)
	require.Equal(t, "Murder in the second degree", st.Title)
	require.Equal(t, "NY", st.Jurisdiction)

	_, err = src.Parse(target, mustDoc(t, `<div></div>`))
	require.ErrorIs(t, err, ErrNoContent)
}

func TestGenericParseHonorsSelectorOrder(t *testing.T) {
	t.Parallel()

	src := NewGeneric("ZZ", SourceConfig{
		BaseURL:         "https://laws.example.org",
		TitleSelector:   ".law-title",
		ContentSelector: ".law-body, body",
		Targets:         []Target{{Citation: "Z § 1", Path: "/1"}},
	})
	doc := mustDoc(t, `<html><body><header>site</header><div class="law-title">Trespass</div>
<div class="law-body"><script>x()</script>Entering land without consent.</div></body></html>`)
	st, err := src.Parse(src.Targets()[0], doc)
	require.NoError(t, err)
	require.Equal(t, "Trespass", st.Title)
	require.Equal(t, "Entering land without consent.", st.Content)
}
