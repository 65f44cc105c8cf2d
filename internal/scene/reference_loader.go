package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rwandaorbitguard/orbit-guard/core"
)

// LoadReferenceTLEs decodes a JSON array of reference objects from r. Every
// entry needs an id and both TLE lines; entries are checked with the same
// TLE parser the scene uses, so a bad file fails here rather than at New.
func LoadReferenceTLEs(r io.Reader) ([]ReferenceTLE, error) {
	var refs []ReferenceTLE
	if err := json.NewDecoder(r).Decode(&refs); err != nil {
		return nil, fmt.Errorf("decode reference TLEs: %w", err)
	}

	seen := make(map[string]bool, len(refs))
	var errs []error
	for i, ref := range refs {
		ref.ID = strings.TrimSpace(ref.ID)
		switch {
		case ref.ID == "":
			errs = append(errs, fmt.Errorf("entry %d: missing id", i))
			continue
		case seen[ref.ID]:
			errs = append(errs, fmt.Errorf("entry %d: duplicate id %q", i, ref.ID))
			continue
		}
		seen[ref.ID] = true
		if ref.Name == "" {
			ref.Name = ref.ID
		}
		if _, err := core.ElementsFromTLE(ref.Line1, ref.Line2); err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i, ref.ID, err))
			continue
		}
		refs[i] = ref
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return refs, nil
}

// LoadReferenceTLEFile reads LoadReferenceTLEs input from path.
func LoadReferenceTLEFile(path string) ([]ReferenceTLE, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadReferenceTLEs(f)
}
