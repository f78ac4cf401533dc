package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ersonp/lineage-core/internal/domain/entities"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		gen1, gen2 int
		wantType   entities.KinshipType
		wantLabel  string
	}{
		{0, 0, entities.KinshipSelf, "Same person"},
		{0, 1, entities.KinshipAncestor, "Parent"},
		{0, 2, entities.KinshipAncestor, "Grandparent"},
		{0, 3, entities.KinshipAncestor, "Great-grandparent"},
		{0, 5, entities.KinshipAncestor, "3× great-grandparent"},
		{1, 0, entities.KinshipDescendant, "Child"},
		{2, 0, entities.KinshipDescendant, "Grandchild"},
		{3, 0, entities.KinshipDescendant, "Great-grandchild"},
		{4, 0, entities.KinshipDescendant, "2× great-grandchild"},
		{1, 1, entities.KinshipSibling, "Sibling"},
		{1, 2, entities.KinshipAuntUncle, "Aunt/Uncle"},
		{1, 3, entities.KinshipAuntUncle, "Great-Aunt/Uncle"},
		{1, 5, entities.KinshipAuntUncle, "3× great-aunt/uncle"},
		{2, 1, entities.KinshipNieceNephew, "Niece/Nephew"},
		{3, 1, entities.KinshipNieceNephew, "Great-Niece/Nephew"},
		{4, 1, entities.KinshipNieceNephew, "2× great-niece/nephew"},
		{2, 2, entities.KinshipCousin, "First Cousin"},
		{2, 3, entities.KinshipCousin, "First cousin, 1× removed"},
		{3, 2, entities.KinshipCousin, "First cousin, 1× removed"},
		{3, 3, entities.KinshipCousin, "Second Cousin"},
		{3, 5, entities.KinshipCousin, "Second cousin, 2× removed"},
		{4, 4, entities.KinshipCousin, "Third Cousin"},
		{5, 5, entities.KinshipCousin, "4th Cousin"},
		{12, 12, entities.KinshipCousin, "11th Cousin"},
		{22, 23, entities.KinshipCousin, "21st cousin, 1× removed"},
		{-1, 2, entities.KinshipNone, NoBloodRelation},
	}

	for _, tt := range tests {
		t.Run(tt.wantLabel, func(t *testing.T) {
			got := Classify(tt.gen1, tt.gen2)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantLabel, got.Label)
		})
	}
}

func TestOrdinal(t *testing.T) {
	tests := map[int]string{
		1: "First", 2: "Second", 3: "Third", 4: "4th", 11: "11th", 12: "12th",
		13: "13th", 21: "21st", 22: "22nd", 23: "23rd", 101: "101st", 111: "111th",
	}
	for n, want := range tests {
		assert.Equal(t, want, ordinal(n), "ordinal(%d)", n)
	}
}
