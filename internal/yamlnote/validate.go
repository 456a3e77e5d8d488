package yamlnote

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Report is the outcome of a structural check: every violation found, not
// just the first. Import UIs show the list and let the user decide whether
// to proceed anyway.
type Report struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validate runs a non-throwing structural check on interchange YAML. It is
// distinct from Unmarshal: parse failures become report entries rather
// than errors.
func Validate(data []byte) Report {
	var doc Note
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Report{Errors: []string{fmt.Sprintf("malformed YAML: %v", err)}}
	}

	var errs []string
	var raw map[string]any
	_ = yaml.Unmarshal(data, &raw)
	if raw == nil {
		return Report{Errors: []string{"empty document"}}
	}
	for _, key := range []string{"id", "title", "blocks"} {
		if _, ok := raw[key]; !ok {
			errs = append(errs, fmt.Sprintf("missing top-level %s", key))
		}
	}

	// First walk: collect every declared id and which of them are leaves.
	// Duplicates are remembered in document order so reports are stable.
	ids := make(map[string]int)
	leaves := make(map[string]bool)
	var dups []string
	var collect func(blocks []Block, path string)
	collect = func(blocks []Block, path string) {
		for i, b := range blocks {
			where := fmt.Sprintf("%s[%d]", path, i)
			if b.ID == "" {
				errs = append(errs, fmt.Sprintf("%s: missing id", where))
			} else {
				ids[b.ID]++
				if ids[b.ID] == 2 {
					dups = append(dups, b.ID)
				}
				leaves[b.ID] = len(b.Children) == 0
			}
			if b.Title == "" {
				errs = append(errs, fmt.Sprintf("%s: missing title", where))
			}
			collect(b.Children, where+".children")
		}
	}
	collect(doc.Blocks, "blocks")

	for _, id := range dups {
		errs = append(errs, fmt.Sprintf("duplicate id %q (%d occurrences)", id, ids[id]))
	}

	// Second walk: every declared ref must resolve to a declared leaf.
	var checkRefs func(blocks []Block, path string)
	checkRefs = func(blocks []Block, path string) {
		for i, b := range blocks {
			where := fmt.Sprintf("%s[%d]", path, i)
			for _, ref := range b.Refs {
				if _, ok := ids[ref]; !ok {
					errs = append(errs, fmt.Sprintf("%s: ref %q points at an unknown block", where, ref))
				} else if !leaves[ref] {
					errs = append(errs, fmt.Sprintf("%s: ref %q points at a non-leaf block", where, ref))
				}
			}
			checkRefs(b.Children, where+".children")
		}
	}
	checkRefs(doc.Blocks, "blocks")

	return Report{Valid: len(errs) == 0, Errors: errs}
}
