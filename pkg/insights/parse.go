package insights

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedJSON = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")
	fencedAny  = regexp.MustCompile("```\\s*([\\s\\S]*?)\\s*```")
)

// ExtractJSON returns the body of the first ```json fence, else of the first
// plain fence, else the trimmed text.
func ExtractJSON(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); m != nil && m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	if m := fencedAny.FindStringSubmatch(text); m != nil && m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// decodeStrict decodes exactly one JSON value with no unknown fields.
func decodeStrict(raw string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

// ParseOverview decodes a model reply into an Overview.
func ParseOverview(reply string) (*Overview, error) {
	var o Overview
	if err := decodeStrict(ExtractJSON(reply), &o); err != nil {
		return nil, fmt.Errorf("failed to decode overview: %w", err)
	}

	n := o.Narrative
	if strings.TrimSpace(n.Act1) == "" || strings.TrimSpace(n.Act2) == "" || strings.TrimSpace(n.Act3) == "" {
		return nil, errors.New("overview narrative is incomplete")
	}
	if len(o.SuggestedQuestions) == 0 {
		return nil, errors.New("overview has no suggested questions")
	}
	for _, q := range o.SuggestedQuestions {
		if strings.TrimSpace(q) == "" {
			return nil, errors.New("overview has an empty question")
		}
	}
	return &o, nil
}

// ParseMindMap decodes a model reply into a MindMap.
func ParseMindMap(reply string) (*MindMap, error) {
	var m MindMap
	if err := decodeStrict(ExtractJSON(reply), &m); err != nil {
		return nil, fmt.Errorf("failed to decode mind map: %w", err)
	}

	if strings.TrimSpace(m.Central) == "" {
		return nil, errors.New("mind map has no central topic")
	}
	if len(m.Branches) == 0 {
		return nil, errors.New("mind map has no branches")
	}
	for i, b := range m.Branches {
		if strings.TrimSpace(b.Name) == "" {
			return nil, fmt.Errorf("mind map branch %d has no name", i)
		}
		if m.Branches[i].Children == nil {
			m.Branches[i].Children = []string{}
		}
	}
	return &m, nil
}
