package core

import (
	"fmt"

	"github.com/marcmoiagese/gedcomimport/core/gedcom"
)

// branch és el subconjunt d'un document que es conserva amb BranchFilter.
type branch struct {
	individuals map[string]bool
	families    map[string]bool
}

func (b *branch) hasIndividual(xref string) bool {
	return b == nil || b.individuals[xref]
}

func (b *branch) hasFamily(xref string) bool {
	return b == nil || b.families[xref]
}

// selectBranch recull l'arrel, els seus descendents, els cònjuges d'uns i
// altres i les famílies que els uneixen.
func selectBranch(doc *gedcom.Document, root string) (*branch, error) {
	root = gedcom.TrimXRef(root)
	if root == "" {
		return nil, nil
	}
	people := make(map[string]*gedcom.Individual, len(doc.Individuals))
	for _, ind := range doc.Individuals {
		people[ind.XRef] = ind
	}
	if people[root] == nil {
		return nil, fmt.Errorf("l'arrel de la branca %s no existeix al fitxer", root)
	}
	families := make(map[string]*gedcom.Family, len(doc.Families))
	asSpouse := map[string][]string{}
	for _, fam := range doc.Families {
		families[fam.XRef] = fam
		if fam.Husband != "" {
			asSpouse[fam.Husband] = append(asSpouse[fam.Husband], fam.XRef)
		}
		if fam.Wife != "" {
			asSpouse[fam.Wife] = append(asSpouse[fam.Wife], fam.XRef)
		}
	}

	b := &branch{individuals: map[string]bool{}, families: map[string]bool{}}
	queue := []string{root}
	expanded := map[string]bool{}
	for len(queue) > 0 {
		xref := queue[0]
		queue = queue[1:]
		if expanded[xref] {
			continue
		}
		expanded[xref] = true
		b.individuals[xref] = true

		famRefs := append([]string(nil), asSpouse[xref]...)
		if ind := people[xref]; ind != nil {
			famRefs = append(famRefs, ind.SpouseOf...)
		}
		for _, famRef := range famRefs {
			fam := families[famRef]
			if fam == nil || b.families[famRef] {
				continue
			}
			b.families[famRef] = true
			for _, spouse := range []string{fam.Husband, fam.Wife} {
				if spouse != "" && spouse != xref && people[spouse] != nil {
					b.individuals[spouse] = true
				}
			}
			for _, child := range fam.Children {
				if people[child.Ref] != nil {
					queue = append(queue, child.Ref)
				}
			}
		}
	}
	return b, nil
}
