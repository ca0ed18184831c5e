package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Tiny Tots & Co", StripTags("<b>Tiny&nbsp;Tots &amp; Co</b>"))
	assert.Equal(t, "Line one Line two", StripTags("Line one<br/>Line two"))
	assert.Equal(t, "", StripTags("<td>   </td>"))
}

func TestDecodeEntities(t *testing.T) {
	assert.Equal(t, `"Kids" <Club>`, DecodeEntities("&quot;Kids&quot; &lt;Club&gt;"))
	assert.Equal(t, "O'Neill", DecodeEntities("O&#39;Neill"))
}

func TestExtractLabeledValue(t *testing.T) {
	html := `
		<table>
		<tr><td class="label"><strong>Capacity</strong>:</td><td> 88 </td></tr>
		<tr><td>Ages</td><td>1 month - 12 years</td></tr>
		<tr><td>License/Facility ID#</td><td><span>CC-1234</span></td></tr>
		<tr><td>Business Hours</td><td></td></tr>
		</table>`

	assert.Equal(t, "88", ExtractLabeledValue(html, "Capacity"))
	assert.Equal(t, "1 month - 12 years", ExtractLabeledValue(html, "Ages"))
	assert.Equal(t, "CC-1234", ExtractLabeledValue(html, "License/Facility ID#"))
	assert.Equal(t, "", ExtractLabeledValue(html, "Business Hours"))
	assert.Equal(t, "", ExtractLabeledValue(html, "Expiration Date"))
}
