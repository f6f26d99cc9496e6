package resolver

import (
	"testing"

	"github.com/solatis/gridview/internal/types"
)

func findGroup(groups []types.Group, key string) (types.Group, bool) {
	for _, g := range groups {
		if g.Key == key {
			return g, true
		}
		if c, ok := findGroup(g.Children, key); ok {
			return c, true
		}
	}
	return types.Group{}, false
}

func TestParseExpandPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ExpandPolicy
		wantErr bool
	}{
		{in: "", want: ExpandPolicyReference},
		{in: "reference", want: ExpandPolicyReference},
		{in: " Group-Default ", want: ExpandPolicyGroupDefault},
		{in: "group_default", want: ExpandPolicyGroupDefault},
		{in: "always-open", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExpandPolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseExpandPolicy() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseExpandPolicy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpansion_RoundTripAfterInsert(t *testing.T) {
	r := New()
	records := cityRecords("Nantes", "Paris")
	first := r.Resolve(records, cityView, nil)

	groups, ok := SetCollapsed(first.Groups, "0_Nantes", false)
	if !ok {
		t.Fatal("SetCollapsed() did not find 0_Nantes")
	}
	groups, _ = SetCollapsed(groups, "0_Paris", true)

	records = append(records, types.Record{"id": 3, "city": "Lyon"})
	second := r.Resolve(records, cityView, Capture(groups))

	if g, _ := findGroup(second.Groups, "0_Nantes"); g.Collapsed {
		t.Error("0_Nantes collapsed after re-resolve, want expanded")
	}
	if g, _ := findGroup(second.Groups, "0_Paris"); !g.Collapsed {
		t.Error("0_Paris expanded after re-resolve, want collapsed")
	}
	if g, ok := findGroup(second.Groups, "0_Lyon"); !ok || !g.Collapsed {
		t.Errorf("new group 0_Lyon = %+v, want collapsed under reference policy", g)
	}
}

func TestExpansion_Policies(t *testing.T) {
	view := types.View{
		Fields: []types.Field{{Name: "city"}, {Name: "status"}},
		Groups: []types.GroupSpec{{Path: "city"}, {Path: "status"}},
	}
	records := []types.Record{
		{"city": "Lyon", "status": "Validé"},
		{"city": "Paris", "status": "Brouillon"},
	}
	prev := NewExpansion([]string{"0_Lyon"}, []string{"0_Paris", "1_Validé"})

	t.Run("first resolution uses group defaults", func(t *testing.T) {
		groups := New().Resolve(records, view, nil).Groups
		for _, key := range []string{"0_Lyon", "0_Paris", "1_Validé"} {
			if g, _ := findGroup(groups, key); g.Collapsed {
				t.Errorf("%s collapsed on first resolution", key)
			}
		}
	})

	t.Run("reference collapses everything not expanded", func(t *testing.T) {
		groups := New().Resolve(records, view, prev).Groups
		want := map[string]bool{"0_Lyon": false, "1_Validé": true, "0_Paris": true, "1_Brouillon": true}
		for key, collapsed := range want {
			if g, ok := findGroup(groups, key); !ok || g.Collapsed != collapsed {
				t.Errorf("%s collapsed = %v, want %v", key, g.Collapsed, collapsed)
			}
		}
	})

	t.Run("group default only collapses seen keys", func(t *testing.T) {
		r := New(WithExpandPolicy(ExpandPolicyGroupDefault))
		groups := r.Resolve(records, view, prev).Groups
		want := map[string]bool{"0_Lyon": false, "1_Validé": true, "0_Paris": true, "1_Brouillon": false}
		for key, collapsed := range want {
			if g, ok := findGroup(groups, key); !ok || g.Collapsed != collapsed {
				t.Errorf("%s collapsed = %v, want %v", key, g.Collapsed, collapsed)
			}
		}
	})
}

func TestCapture_DescendsIntoCollapsedParents(t *testing.T) {
	groups := []types.Group{{
		Key:       "0_Nantes",
		Collapsed: true,
		Children:  []types.Group{{Key: "1_Robert", Level: 1}},
	}}
	e := Capture(groups)

	if got := e.ExpandedKeys(); len(got) != 1 || got[0] != "1_Robert" {
		t.Errorf("ExpandedKeys() = %v, want [1_Robert]", got)
	}
	if got := e.SeenKeys(); len(got) != 2 || got[0] != "0_Nantes" || got[1] != "1_Robert" {
		t.Errorf("SeenKeys() = %v, want [0_Nantes 1_Robert]", got)
	}
}

func TestSetCollapsed_DoesNotMutateInput(t *testing.T) {
	groups := []types.Group{{Key: "0_Lyon"}}
	out, ok := SetCollapsed(groups, "0_Lyon", true)
	if !ok || !out[0].Collapsed {
		t.Fatalf("SetCollapsed() = %+v, %v", out, ok)
	}
	if groups[0].Collapsed {
		t.Error("SetCollapsed() mutated its input")
	}
	if _, ok := SetCollapsed(groups, "0_Paris", true); ok {
		t.Error("SetCollapsed() reported a missing key as found")
	}
}
