package services

import (
	"fmt"

	"github.com/ersonp/lineage-core/internal/domain/entities"
)

// NoBloodRelation is the description used when two people share no ancestor.
const NoBloodRelation = "no blood relation found"

// Classify maps generation distances to a common ancestor onto a kinship label.
// gen1 is the distance from person A, gen2 from person B; the label describes
// A relative to B. Negative distances mean there is no common ancestor.
func Classify(gen1, gen2 int) entities.Kinship {
	switch {
	case gen1 < 0 || gen2 < 0:
		return entities.Kinship{Type: entities.KinshipNone, Label: NoBloodRelation}
	case gen1 == 0 && gen2 == 0:
		return entities.Kinship{Type: entities.KinshipSelf, Label: "Same person"}
	case gen1 == 0:
		return entities.Kinship{Type: entities.KinshipAncestor, Label: lineLabel(gen2, "Parent", "Grandparent", "grandparent")}
	case gen2 == 0:
		return entities.Kinship{Type: entities.KinshipDescendant, Label: lineLabel(gen1, "Child", "Grandchild", "grandchild")}
	case gen1 == 1 && gen2 == 1:
		return entities.Kinship{Type: entities.KinshipSibling, Label: "Sibling"}
	case gen1 == 1:
		return entities.Kinship{Type: entities.KinshipAuntUncle, Label: collateralLabel(gen2, "Aunt/Uncle", "aunt/uncle")}
	case gen2 == 1:
		return entities.Kinship{Type: entities.KinshipNieceNephew, Label: collateralLabel(gen1, "Niece/Nephew", "niece/nephew")}
	default:
		return entities.Kinship{Type: entities.KinshipCousin, Label: cousinLabel(gen1, gen2)}
	}
}

// lineLabel names a direct ancestor or descendant n generations away.
func lineLabel(n int, first, second, stem string) string {
	switch n {
	case 1:
		return first
	case 2:
		return second
	case 3:
		return "Great-" + stem
	default:
		return fmt.Sprintf("%d× great-%s", n-2, stem)
	}
}

// collateralLabel names an aunt/uncle or niece/nephew n generations below
// the shared ancestor.
func collateralLabel(n int, base, stem string) string {
	switch n {
	case 2:
		return base
	case 3:
		return "Great-" + base
	default:
		return fmt.Sprintf("%d× great-%s", n-2, stem)
	}
}

func cousinLabel(gen1, gen2 int) string {
	degree := min(gen1, gen2) - 1
	removed := gen1 - gen2
	if removed < 0 {
		removed = -removed
	}
	if removed == 0 {
		return ordinal(degree) + " Cousin"
	}
	return fmt.Sprintf("%s cousin, %d× removed", ordinal(degree), removed)
}

func ordinal(n int) string {
	switch n {
	case 1:
		return "First"
	case 2:
		return "Second"
	case 3:
		return "Third"
	}
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
