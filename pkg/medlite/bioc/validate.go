package bioc

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that document identifiers are present and unique and that
// every document is itself valid.
func (c *Collection) Validate() error {
	seen := make(map[string]struct{}, len(c.Documents))
	for i, d := range c.Documents {
		if d == nil {
			return fmt.Errorf("document %d is nil", i)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("duplicate document id %q", d.ID)
		}
		seen[d.ID] = struct{}{}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("document %q: %w", d.ID, err)
		}
	}
	return nil
}

// Validate checks the offset and identifier invariants of the document tree.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("document id is required")
	}
	if err := uniqueRelationIDs(d.Relations); err != nil {
		return err
	}
	for i, p := range d.Passages {
		if p == nil {
			return fmt.Errorf("passage %d is nil", i)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("passage %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks that sentences and annotations stay inside the passage
// extent and that sibling identifiers are unique.
func (p *Passage) Validate() error {
	if p.Offset < 0 {
		return fmt.Errorf("negative passage offset %d", p.Offset)
	}
	for i, s := range p.Sentences {
		if s == nil {
			return fmt.Errorf("sentence %d is nil", i)
		}
		if s.Offset < p.Offset || s.End() > p.End() {
			return fmt.Errorf("sentence [%d,%d) outside passage [%d,%d)", s.Offset, s.End(), p.Offset, p.End())
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("sentence %d: %w", i, err)
		}
	}
	if err := checkAnnotations(p.Annotations, p.Offset, p.End()); err != nil {
		return err
	}
	return uniqueRelationIDs(p.Relations)
}

// Validate checks that annotations stay inside the sentence extent.
func (s *Sentence) Validate() error {
	if err := checkAnnotations(s.Annotations, s.Offset, s.End()); err != nil {
		return err
	}
	return uniqueRelationIDs(s.Relations)
}

func checkAnnotations(anns []*Annotation, begin, end int) error {
	seen := make(map[string]struct{}, len(anns))
	for i, a := range anns {
		if a == nil {
			return fmt.Errorf("annotation %d is nil", i)
		}
		if a.ID != "" {
			if _, dup := seen[a.ID]; dup {
				return fmt.Errorf("duplicate annotation id %q", a.ID)
			}
			seen[a.ID] = struct{}{}
		}
		for _, loc := range a.Locations {
			if loc.Length < 0 || loc.Offset < begin || loc.End() > end {
				return fmt.Errorf("annotation %q span [%d,%d) outside [%d,%d)", a.ID, loc.Offset, loc.End(), begin, end)
			}
		}
	}
	return nil
}

func uniqueRelationIDs(rels []*Relation) error {
	seen := make(map[string]struct{}, len(rels))
	for _, r := range rels {
		if r == nil || r.ID == "" {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("duplicate relation id %q", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}
