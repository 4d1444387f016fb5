package core

import "strings"

// Roles is the outcome of partitioning a subcategory set by name: the
// structured labour and materials buckets, and everything else as dynamic
// buckets. Labour and Materials may be nil when no subcategory carries the
// matching name.
type Roles struct {
	Labour    *Subcategory
	Materials *Subcategory
	Dynamic   []Subcategory
}

// EnsureOthers reconciles a loaded subcategory collection: the reserved
// "Others" subcategory is appended when absent, and name-duplicates of
// "Others" that are not the reserved instance are pruned. Idempotent; run it
// once per snapshot load. The input is not modified.
func EnsureOthers(subs []Subcategory) []Subcategory {
	out := make([]Subcategory, 0, len(subs)+1)
	hasReserved := false
	for _, sc := range subs {
		if sc.ID == OthersSubcategoryID {
			hasReserved = true
			out = append(out, sc)
			continue
		}
		if strings.EqualFold(strings.TrimSpace(sc.Name), "others") {
			// duplicate of the reserved bucket, prune
			continue
		}
		out = append(out, sc)
	}
	if !hasReserved {
		out = append(out, Subcategory{
			ID:          OthersSubcategoryID,
			Name:        "Others",
			Description: "Miscellaneous expenses that do not fit into other subcategories",
		})
	}
	return out
}

// EffectiveSubcategories returns the category's explicitly selected
// subcategories plus the reserved "Others" one, de-duplicated by id. Order
// follows the registry, so results are stable across calls.
func EffectiveSubcategories(cat Category, all []Subcategory) []Subcategory {
	selected := make(map[string]bool, len(cat.SubcategoryIDs)+1)
	for _, id := range cat.SubcategoryIDs {
		selected[id] = true
	}
	for _, sc := range all {
		if sc.ID == OthersSubcategoryID || strings.EqualFold(strings.TrimSpace(sc.Name), "others") {
			selected[sc.ID] = true
		}
	}
	out := make([]Subcategory, 0, len(selected))
	seen := make(map[string]bool, len(selected))
	for _, sc := range all {
		if selected[sc.ID] && !seen[sc.ID] {
			seen[sc.ID] = true
			out = append(out, sc)
		}
	}
	return out
}

// ResolveRoles partitions subcategories by name match: "labour" is the labour
// bucket, "materials" or "material" the materials bucket, everything else
// (Others included) a dynamic bucket. The first match wins when several
// subcategories carry the same role name.
func ResolveRoles(subs []Subcategory) Roles {
	var roles Roles
	for i := range subs {
		name := strings.ToLower(strings.TrimSpace(subs[i].Name))
		switch {
		case name == "labour" && roles.Labour == nil:
			roles.Labour = &subs[i]
		case (name == "materials" || name == "material") && roles.Materials == nil:
			roles.Materials = &subs[i]
		default:
			roles.Dynamic = append(roles.Dynamic, subs[i])
		}
	}
	return roles
}

// FindByName returns the first subcategory whose name matches
// case-insensitively.
func FindByName(subs []Subcategory, name string) (Subcategory, bool) {
	for _, sc := range subs {
		if strings.EqualFold(strings.TrimSpace(sc.Name), name) {
			return sc, true
		}
	}
	return Subcategory{}, false
}
