package summary

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"paper-summarizer/internal/logger"
	"paper-summarizer/internal/repository/db"
)

// Result is a structured paper summary as shown in the results view
type Result struct {
	Abstract     string
	Introduction string
	Methodology  string
	Results      string
	Conclusion   string
	Keywords     string
	// Definitions is nil when absent or unparseable
	Definitions map[string]string
}

// response keys of the summarization service
const (
	keyAbstract     = "Abstract"
	keyIntroduction = "Introduction"
	keyMethodology  = "Methodology"
	keyResults      = "Results"
	keyConclusion   = "Conclusion"
	keyKeywords     = "Keywords"
	keyDefinitions  = "Definitions"
)

// ParseResponse decodes a summarization response body.
// Absent or null fields become empty strings; only a body that is not a JSON object is an error.
func ParseResponse(body []byte) (*Result, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error decoding summary response: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("summary response is not an object")
	}

	result := &Result{
		Abstract:     textField(raw[keyAbstract]),
		Introduction: textField(raw[keyIntroduction]),
		Methodology:  textField(raw[keyMethodology]),
		Results:      textField(raw[keyResults]),
		Conclusion:   textField(raw[keyConclusion]),
		Keywords:     textField(raw[keyKeywords]),
	}

	if defs, ok := raw[keyDefinitions]; ok {
		result.Definitions = ParseDefinitions(string(defs))
	}

	return result, nil
}

// FromRecord converts a persisted summary; a nil record yields nil
func FromRecord(s *db.Summary) *Result {
	if s == nil {
		return nil
	}
	return &Result{
		Abstract:     s.Abstract,
		Introduction: s.Introduction,
		Methodology:  s.Methodology,
		Results:      s.Results,
		Conclusion:   s.Conclusion,
		Keywords:     s.Keywords,
		Definitions:  ParseDefinitions(s.Definitions),
	}
}

// ToRecord builds the summaries row for a document
func (r *Result) ToRecord(documentID string) db.Summary {
	return db.Summary{
		DocumentID:   documentID,
		Abstract:     r.Abstract,
		Introduction: r.Introduction,
		Methodology:  r.Methodology,
		Results:      r.Results,
		Conclusion:   r.Conclusion,
		Keywords:     r.Keywords,
		Definitions:  EncodeDefinitions(r.Definitions),
	}
}

// ParseDefinitions decodes a JSON-encoded definitions map.
// The value may itself be a JSON string holding the object (double encoded).
// Anything unparseable yields nil and is logged, never returned as an error.
func ParseDefinitions(encoded string) map[string]string {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" || encoded == "null" {
		return nil
	}

	var inner string
	if err := json.Unmarshal([]byte(encoded), &inner); err == nil {
		return ParseDefinitions(inner)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(encoded), &raw); err != nil {
		logger.Log.WithField("error", err).Warn("Failed to parse definitions")
		return nil
	}

	defs := make(map[string]string, len(raw))
	for term, value := range raw {
		defs[term] = textField(value)
	}
	return defs
}

// EncodeDefinitions is the inverse of ParseDefinitions; nil encodes to ""
func EncodeDefinitions(defs map[string]string) string {
	if defs == nil {
		return ""
	}
	data, err := json.Marshal(defs)
	if err != nil {
		return ""
	}
	return string(data)
}

// Preview is the one-line teaser shown in history lists
func (r *Result) Preview() string {
	if r == nil {
		return NoPreview
	}
	if r.Keywords != "" {
		return r.Keywords
	}
	if r.Abstract != "" {
		return r.Abstract
	}
	return NoPreview
}

// NoPreview is shown for documents without a summary
const NoPreview = "No preview"

// Section is a titled block of the rendered summary
type Section struct {
	Title string
	Body  string
}

// Sections returns the summary blocks in display order, skipping empty ones
func (r *Result) Sections() []Section {
	all := []Section{
		{keyAbstract, r.Abstract},
		{keyIntroduction, r.Introduction},
		{keyMethodology, r.Methodology},
		{keyResults, r.Results},
		{keyConclusion, r.Conclusion},
		{keyKeywords, r.Keywords},
	}
	sections := make([]Section, 0, len(all)+1)
	for _, s := range all {
		if strings.TrimSpace(s.Body) != "" {
			sections = append(sections, s)
		}
	}

	if len(r.Definitions) > 0 {
		terms := make([]string, 0, len(r.Definitions))
		for term := range r.Definitions {
			terms = append(terms, term)
		}
		sort.Strings(terms)

		var b strings.Builder
		for i, term := range terms {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%s: %s", term, r.Definitions[term])
		}
		sections = append(sections, Section{keyDefinitions, b.String()})
	}
	return sections
}

// textField renders a JSON value as text: strings as-is, null as "", string arrays joined
func textField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s *string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == nil {
			return ""
		}
		return *s
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}

	return strings.TrimSpace(string(raw))
}
