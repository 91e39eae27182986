package compose

import "testing"

func TestChild_KeyedVsPositional(t *testing.T) {
	keyed := Child("/root", KindElement, "item", "a", 3)
	positional := Child("/root", KindElement, "item", nil, 3)

	if keyed == positional {
		t.Error("expected keyed and positional identities to differ")
	}
	if keyed != Child("/root", KindElement, "item", "a", 7) {
		t.Error("expected keyed identity to ignore the index")
	}
	if positional == Child("/root", KindElement, "item", nil, 4) {
		t.Error("expected positional identity to depend on the index")
	}
}

func TestChild_KeyTypeDisambiguates(t *testing.T) {
	intKey := Child("", KindElement, "item", 1, 0)
	strKey := Child("", KindElement, "item", "1", 0)

	if intKey == strKey {
		t.Errorf("expected int(1) and string(1) keys to resolve differently, both %s", intKey)
	}
}

func TestChild_KindAndTypeParticipate(t *testing.T) {
	a := Child("", KindElement, "itemA", 1, 0)
	b := Child("", KindElement, "itemB", 1, 0)
	if a == b {
		t.Error("expected type change to change identity")
	}

	el := Child("", KindElement, "x", nil, 0)
	fn := Child("", KindFunc, "x", nil, 0)
	if el == fn {
		t.Error("expected kind change to change identity")
	}
}

func TestChild_AncestorPathIncluded(t *testing.T) {
	underA := Child(Child("", KindGroup, "", "a", 0), KindElement, "item", nil, 0)
	underB := Child(Child("", KindGroup, "", "b", 0), KindElement, "item", nil, 0)
	if underA == underB {
		t.Error("expected identities under different parents to differ")
	}
}

func TestIdentity_ParentOf(t *testing.T) {
	parent := Child("", KindGroup, "", nil, 0)
	child := Child(parent, KindElement, "item", "a", 0)

	if got := child.ParentOf(); got != parent {
		t.Errorf("expected parent %s, got %s", parent, got)
	}
	if got := parent.ParentOf(); got != "" {
		t.Errorf("expected root parent to be empty, got %s", got)
	}
}
