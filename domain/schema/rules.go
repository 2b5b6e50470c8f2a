package schema

// ExportOne returns a snapshot holding only the requested primary entity and
// every secondary entity that links to it. Links are copied untouched so the
// result re-imports with full fidelity elsewhere. An absent key yields the
// empty shell.
func ExportOne(s Snapshot, key string) Snapshot {
	out := Empty()
	target := NormalizeKey(key)
	if target == "" {
		return out
	}

	found := false
	for k, p := range s.Primaries {
		if NormalizeKey(k) == target {
			p.Supports = append([]string(nil), p.Supports...)
			out.Primaries[k] = p
			found = true
		}
	}
	if !found {
		return out
	}

	if s.SchemaVersion != "" {
		out.SchemaVersion = s.SchemaVersion
	}
	for _, sec := range s.Secondaries {
		if links(sec, target) {
			sec.ObjectTypes = append([]string(nil), sec.ObjectTypes...)
			out.Secondaries = append(out.Secondaries, sec)
		}
	}
	return out
}

// DeletePrimary removes the primary entity and cascades: the key is removed
// from every secondary's links and a secondary left with no links is
// dropped. The input is not modified.
func DeletePrimary(s Snapshot, key string) Snapshot {
	target := NormalizeKey(key)
	out := Snapshot{
		SchemaVersion: s.SchemaVersion,
		Primaries:     make(map[string]Primary, len(s.Primaries)),
		Secondaries:   make([]Secondary, 0, len(s.Secondaries)),
	}
	if out.SchemaVersion == "" {
		out.SchemaVersion = DefaultVersion
	}

	for k, p := range s.Primaries {
		if NormalizeKey(k) == target {
			continue
		}
		out.Primaries[k] = p
	}

	for _, sec := range s.Secondaries {
		kept := make([]string, 0, len(sec.ObjectTypes))
		for _, o := range sec.ObjectTypes {
			if NormalizeKey(o) != target {
				kept = append(kept, o)
			}
		}
		if len(kept) == 0 {
			continue
		}
		sec.ObjectTypes = kept
		out.Secondaries = append(out.Secondaries, sec)
	}

	return out
}

func links(sec Secondary, target string) bool {
	for _, o := range sec.ObjectTypes {
		if NormalizeKey(o) == target {
			return true
		}
	}
	return false
}

// PrimaryRegistration is a primary entity ready for host registration.
type PrimaryRegistration struct {
	Key  string
	Spec Primary
}

// SecondaryRegistration is a secondary entity ready for host registration.
type SecondaryRegistration struct {
	Slug        string
	ObjectTypes []string
	Spec        Secondary
}

// Registrations normalizes keys and drops entities that cannot be
// registered: primaries whose key normalizes to empty and secondaries with
// an empty slug or no remaining object types. Primaries come back sorted by
// key, secondaries in snapshot order.
func Registrations(s Snapshot) ([]PrimaryRegistration, []SecondaryRegistration) {
	var primaries []PrimaryRegistration
	for _, k := range s.PrimaryKeys() {
		nk := NormalizeKey(k)
		if nk == "" {
			continue
		}
		p := s.Primaries[k]
		p.Rewrite.WithFront = false
		primaries = append(primaries, PrimaryRegistration{Key: nk, Spec: p})
	}

	var secondaries []SecondaryRegistration
	for _, sec := range s.Secondaries {
		slug := NormalizeKey(sec.Slug)
		if slug == "" {
			continue
		}
		var objects []string
		for _, o := range sec.ObjectTypes {
			if no := NormalizeKey(o); no != "" {
				objects = append(objects, no)
			}
		}
		if len(objects) == 0 {
			continue
		}
		sec.Rewrite.WithFront = false
		secondaries = append(secondaries, SecondaryRegistration{Slug: slug, ObjectTypes: objects, Spec: sec})
	}

	return primaries, secondaries
}
