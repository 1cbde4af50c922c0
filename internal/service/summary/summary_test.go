package summary

import (
	"testing"

	"paper-summarizer/internal/repository/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_NullBecomesEmpty(t *testing.T) {
	result, err := ParseResponse([]byte(`{"Abstract": "x", "Keywords": null}`))
	require.NoError(t, err)

	assert.Equal(t, "x", result.Abstract)
	assert.Equal(t, "", result.Keywords)
	assert.Equal(t, "", result.Introduction)
	assert.Equal(t, "", result.Methodology)
	assert.Equal(t, "", result.Results)
	assert.Equal(t, "", result.Conclusion)
	assert.Nil(t, result.Definitions)
}

func TestParseResponse_AllFields(t *testing.T) {
	body := `{
		"Abstract": "a", "Introduction": "i", "Methodology": "m",
		"Results": "r", "Conclusion": "c", "Keywords": ["nlp", "summarization"],
		"Definitions": {"BERT": "a transformer model"}
	}`

	result, err := ParseResponse([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "a", result.Abstract)
	assert.Equal(t, "i", result.Introduction)
	assert.Equal(t, "m", result.Methodology)
	assert.Equal(t, "r", result.Results)
	assert.Equal(t, "c", result.Conclusion)
	assert.Equal(t, "nlp, summarization", result.Keywords)
	assert.Equal(t, map[string]string{"BERT": "a transformer model"}, result.Definitions)
}

func TestParseResponse_NotAnObject(t *testing.T) {
	_, err := ParseResponse([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseResponse([]byte(`null`))
	assert.Error(t, err)
}

func TestParseDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
		want    map[string]string
	}{
		{"empty", "", nil},
		{"null", "null", nil},
		{"object", `{"LLM": "large language model"}`, map[string]string{"LLM": "large language model"}},
		{"double encoded", `"{\"LLM\": \"large language model\"}"`, map[string]string{"LLM": "large language model"}},
		{"malformed", `{"LLM": `, nil},
		{"plain string", `"just text"`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDefinitions(tt.encoded))
		})
	}
}

func TestRecordConversion(t *testing.T) {
	r := &Result{Abstract: "a", Keywords: "k", Definitions: map[string]string{"x": "y"}}

	rec := r.ToRecord("doc-1")
	assert.Equal(t, "doc-1", rec.DocumentID)
	assert.Equal(t, `{"x":"y"}`, rec.Definitions)

	back := FromRecord(&rec)
	assert.Equal(t, r, back)

	assert.Nil(t, FromRecord(nil))
	assert.Equal(t, "", (&Result{}).ToRecord("d").Definitions)
}

func TestPreview(t *testing.T) {
	var missing *Result
	assert.Equal(t, NoPreview, missing.Preview())
	assert.Equal(t, NoPreview, (&Result{}).Preview())
	assert.Equal(t, "abstract", (&Result{Abstract: "abstract"}).Preview())
	assert.Equal(t, "kw", (&Result{Abstract: "abstract", Keywords: "kw"}).Preview())
}

func TestSections(t *testing.T) {
	r := FromRecord(&db.Summary{
		Abstract:    "a",
		Results:     "r",
		Definitions: `{"b": "2", "a": "1"}`,
	})

	sections := r.Sections()
	require.Len(t, sections, 3)
	assert.Equal(t, Section{"Abstract", "a"}, sections[0])
	assert.Equal(t, Section{"Results", "r"}, sections[1])
	assert.Equal(t, Section{"Definitions", "a: 1\nb: 2"}, sections[2])
}
