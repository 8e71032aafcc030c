package ingestion

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/poiesic/policygraph/core"
)

// Document is a policy that upstream parsing has already segmented into
// clauses and sub-chunks.
//
//	{
//	  "policy_version": {"version_id": "2025-01", "product_name": "주택화재보험"},
//	  "special_clauses": [{"name": "도난위험 특별약관", "code": "THEFT"}],
//	  "clauses": [{
//	    "id": "제3조", "title": "보상하는 손해", "type": "coverage",
//	    "text": "...", "risk_types": ["화재"],
//	    "sub_chunks": [{"text": "...", "semantic_type": "coverage"}]
//	  }],
//	  "references": [{"from": "제4조", "to": "제3조", "label": "제3조"}]
//	}
type Document struct {
	PolicyVersion  *PolicyVersionDoc  `json:"policy_version,omitempty"`
	SpecialClauses []SpecialClauseDoc `json:"special_clauses,omitempty"`
	Clauses        []ClauseDoc        `json:"clauses"`
	References     []ReferenceDoc     `json:"references,omitempty"`
}

// PolicyVersionDoc describes the policy product and version.
type PolicyVersionDoc struct {
	VersionID     string `json:"version_id"`
	ProductCode   string `json:"product_code,omitempty"`
	ProductName   string `json:"product_name,omitempty"`
	EffectiveDate string `json:"effective_date,omitempty"`
}

// SpecialClauseDoc is a rider or endorsement.
type SpecialClauseDoc struct {
	Name        string `json:"name"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
}

// ClauseDoc is one article with its sub-chunks in reading order.
type ClauseDoc struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Type          core.ClauseType `json:"type"`
	Text          string          `json:"text"`
	Path          string          `json:"path,omitempty"`
	ArticleNumber int             `json:"article_number,omitempty"`
	SpecialClause string          `json:"special_clause,omitempty"`
	RiskTypes     []string        `json:"risk_types,omitempty"`
	SubChunks     []SubChunkDoc   `json:"sub_chunks,omitempty"`
}

// SubChunkDoc is a classified slice of a clause. ID may be left empty; one is
// then derived from the clause id and text.
type SubChunkDoc struct {
	ID           string          `json:"id,omitempty"`
	Text         string          `json:"text"`
	SemanticType core.ClauseType `json:"semantic_type"`
	Reasoning    string          `json:"reasoning,omitempty"`
}

// ReferenceDoc is a directed textual reference.
type ReferenceDoc struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// LoadDocument decodes a policy document from r. Unknown fields are rejected.
func LoadDocument(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return &doc, nil
}

// LoadDocumentFile decodes the policy document stored at path.
func LoadDocumentFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadDocument(f)
}

// records holds a document converted to domain records.
type records struct {
	version    *core.PolicyVersion
	specials   []*core.SpecialClause
	clauses    []*core.Clause
	chunks     []*core.SubChunk
	references []core.CrossReference
}

// records validates the document and converts it. Sub-chunk ordinals follow
// their position within the owning clause.
func (d *Document) records() (*records, error) {
	out := &records{}

	if d.PolicyVersion != nil {
		if strings.TrimSpace(d.PolicyVersion.VersionID) == "" {
			return nil, fmt.Errorf("%w: policy version id is required", ErrInvalidDocument)
		}
		out.version = &core.PolicyVersion{
			VersionID:     d.PolicyVersion.VersionID,
			ProductCode:   d.PolicyVersion.ProductCode,
			ProductName:   d.PolicyVersion.ProductName,
			EffectiveDate: d.PolicyVersion.EffectiveDate,
		}
	}

	specials := make(map[string]bool, len(d.SpecialClauses))
	for _, sc := range d.SpecialClauses {
		name := strings.TrimSpace(sc.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: special clause name is required", ErrInvalidDocument)
		}
		if specials[name] {
			return nil, fmt.Errorf("%w: duplicate special clause %q", ErrInvalidDocument, name)
		}
		specials[name] = true
		out.specials = append(out.specials, &core.SpecialClause{Name: name, Code: sc.Code, Description: sc.Description})
	}

	clauseIDs := make(map[string]bool, len(d.Clauses))
	chunkIDs := make(map[string]bool)
	for _, cd := range d.Clauses {
		clause := &core.Clause{
			ID:            strings.TrimSpace(cd.ID),
			Title:         cd.Title,
			Type:          cd.Type,
			Text:          cd.Text,
			Path:          cd.Path,
			ArticleNumber: cd.ArticleNumber,
			SpecialClause: strings.TrimSpace(cd.SpecialClause),
			RiskTypes:     cd.RiskTypes,
		}
		if err := core.ValidateClause(clause); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		if clauseIDs[clause.ID] {
			return nil, fmt.Errorf("%w: duplicate clause %s", ErrInvalidDocument, clause.ID)
		}
		if clause.SpecialClause != "" && !specials[clause.SpecialClause] {
			return nil, fmt.Errorf("%w: clause %s names undeclared special clause %q",
				ErrInvalidDocument, clause.ID, clause.SpecialClause)
		}
		clauseIDs[clause.ID] = true
		out.clauses = append(out.clauses, clause)

		for i, sd := range cd.SubChunks {
			id := strings.TrimSpace(sd.ID)
			if id == "" {
				id = core.ChunkIDFromContent(clause.ID, sd.Text)
			}
			chunk := &core.SubChunk{
				ID:           id,
				ClauseID:     clause.ID,
				Ordinal:      i,
				Text:         sd.Text,
				SemanticType: sd.SemanticType,
				Reasoning:    sd.Reasoning,
			}
			if err := core.ValidateSubChunk(chunk); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
			}
			if chunkIDs[id] {
				return nil, fmt.Errorf("%w: duplicate sub-chunk %s", ErrInvalidDocument, id)
			}
			chunkIDs[id] = true
			out.chunks = append(out.chunks, chunk)
		}
	}

	for _, rd := range d.References {
		ref := core.CrossReference{From: strings.TrimSpace(rd.From), To: strings.TrimSpace(rd.To), Label: rd.Label}
		if err := core.ValidateReference(ref); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		if !clauseIDs[ref.From] && !chunkIDs[ref.From] {
			return nil, fmt.Errorf("%w: reference from unknown id %s", ErrInvalidDocument, ref.From)
		}
		out.references = append(out.references, ref)
	}

	return out, nil
}

// Validate reports whether the document can be ingested.
func (d *Document) Validate() error {
	_, err := d.records()
	return err
}
