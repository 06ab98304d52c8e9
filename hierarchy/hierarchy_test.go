package hierarchy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/rdfahier/dom"
	"github.com/google/rdfahier/external"
	"github.com/google/rdfahier/rdf/iri"
	"github.com/google/rdfahier/rdf/store"
	"github.com/google/rdfahier/rdf/turtle"
	"github.com/google/rdfahier/rdfa"
	"github.com/google/rdfahier/resource"
)

const eao = "http://boot.huygens.knaw.nl/vgdemo/editionannotationontology.ttl#"

var (
	testTable = Table{
		{Includes: eao + "hasWorkPart"},
		{Includes: eao + "includes", IsIncludedIn: eao + "isIncludedIn"},
	}
	testConfig = Config{
		Relations:      testTable,
		Representation: []iri.IRI{eao + "hasRepresentation"},
	}
)

func loadStore(t *testing.T, name string) *store.Store {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	triples, err := turtle.ReadAllTriples(f, "")
	if err != nil {
		t.Fatalf("turtle.ReadAllTriples(%s) got unexpected error: %v", name, err)
	}
	st := store.New()
	st.AddAll(triples)
	return st
}

func storeFromTurtle(t *testing.T, src string) *store.Store {
	t.Helper()
	triples, err := turtle.ReadAllTriples(strings.NewReader(src), "")
	if err != nil {
		t.Fatalf("turtle.ReadAllTriples() got unexpected error: %v", err)
	}
	st := store.New()
	st.AddAll(triples)
	return st
}

// pageRegistry registers the resources of the test page.
func pageRegistry(t *testing.T) *resource.Registry {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", "letter-001.html"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	doc, err := dom.Parse(f)
	if err != nil {
		t.Fatal(err)
	}
	reg, err := rdfa.RegisterResources(doc)
	if err != nil {
		t.Fatalf("rdfa.RegisterResources() got unexpected error: %v", err)
	}
	return reg
}

func TestTableMembership(t *testing.T) {
	includes := testTable[1].Includes
	isIncludedIn := testTable[1].IsIncludedIn
	tests := []struct {
		name                       string
		p                          iri.IRI
		relations                  Table
		wantIncludes, wantIncluded bool
	}{
		{"includes in empty table", includes, nil, false, false},
		{"isIncludedIn in empty table", isIncludedIn, Table{}, false, false},
		{"includes", includes, testTable, true, false},
		{"isIncludedIn", isIncludedIn, testTable, false, true},
		{"includes without inverse", testTable[0].Includes, testTable, true, false},
		{"unknown", "non-existent-relation", testTable, false, false},
		{"empty predicate", "", testTable, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResourceIncludes(tt.p, tt.relations); got != tt.wantIncludes {
				t.Errorf("ResourceIncludes(%s) = %v, want %v", tt.p, got, tt.wantIncludes)
			}
			if got := ResourceIsIncludedIn(tt.p, tt.relations); got != tt.wantIncluded {
				t.Errorf("ResourceIsIncludedIn(%s) = %v, want %v", tt.p, got, tt.wantIncluded)
			}
		})
	}
}

func TestInverse(t *testing.T) {
	tests := []struct {
		name   string
		p      iri.IRI
		want   iri.IRI
		wantOK bool
	}{
		{"unknown predicate", "non-existent-relation", "", false},
		{"includes with inverse", testTable[1].Includes, testTable[1].IsIncludedIn, true},
		{"includes without inverse", testTable[0].Includes, "", false},
		{"isIncludedIn", testTable[1].IsIncludedIn, testTable[1].Includes, true},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := testTable.Inverse(tt.p)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Inverse(%s) = %s, %v; want %s, %v", tt.p, got, ok, tt.want, tt.wantOK)
			}
			if got := InverseIncludes(tt.p, testTable); got != tt.want {
				t.Errorf("InverseIncludes(%s) = %s, want %s", tt.p, got, tt.want)
			}
		})
	}
}

func TestInverseIsAnInvolution(t *testing.T) {
	table := Table{
		{Includes: "urn:a", IsIncludedIn: "urn:a-of"},
		{Includes: "urn:b", IsIncludedIn: "urn:b-of"},
		{Includes: "urn:c"},
	}
	for _, rel := range table {
		for _, p := range []iri.IRI{rel.Includes, rel.IsIncludedIn} {
			if p == "" {
				continue
			}
			inv, ok := table.Inverse(p)
			if !ok {
				if rel.IsIncludedIn != "" {
					t.Errorf("Inverse(%s) not found", p)
				}
				continue
			}
			if back, _ := table.Inverse(inv); back != p {
				t.Errorf("Inverse(Inverse(%s)) = %s, want %s", p, back, p)
			}
		}
	}
}

func TestTableValidate(t *testing.T) {
	tests := []struct {
		name    string
		table   Table
		wantErr bool
	}{
		{"valid", testTable, false},
		{"empty", nil, false},
		{"missing includes", Table{{IsIncludedIn: "urn:of"}}, true},
		{"repeated predicate", Table{{Includes: "urn:a"}, {Includes: "urn:b", IsIncludedIn: "urn:a"}}, true},
		{"self inverse", Table{{Includes: "urn:a", IsIncludedIn: "urn:a"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.table.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMapInternalExternal(t *testing.T) {
	g := loadStore(t, "letter-001.ttl")
	reg := pageRegistry(t)
	got := MapInternalExternal(g, reg, testConfig.Representation)
	want := []Mapping{
		{Internal: "urn:div=1:repr=original", External: "urn:div=1"},
		{Internal: "urn:div=1:para=1:repr=original", External: "urn:div=1:para=1"},
		{Internal: "urn:div=1:para=2:repr=original", External: "urn:div=1:para=2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MapInternalExternal() unexpected diff (-want, +got):\n%s", diff)
	}

	reversed := storeFromTurtle(t, `<urn:page:x> <`+eao+`hasRepresentation> <urn:ext:x> .`)
	reg = resource.NewRegistry([]*resource.Resource{{ID: "urn:page:x"}, {ID: "urn:page:y"}})
	if diff := cmp.Diff([]Mapping{{Internal: "urn:page:x", External: "urn:ext:x"}}, MapInternalExternal(reversed, reg, testConfig.Representation)); diff != "" {
		t.Errorf("MapInternalExternal(internal as subject) unexpected diff (-want, +got):\n%s", diff)
	}
	if got := MapInternalExternal(g, reg, nil); len(got) != 0 {
		t.Errorf("MapInternalExternal(no representation predicates) = %v, want none", got)
	}
}

func TestParseResourceData(t *testing.T) {
	g := loadStore(t, "letter-001.ttl")
	tests := []struct {
		name string
		id   iri.IRI
		want *resource.Resource
	}{
		{
			name: "parent through includes",
			id:   "urn:div=1:para=1",
			want: &resource.Resource{ID: "urn:div=1:para=1", Types: []iri.IRI{eao + "ParagraphInWork"}, Parent: "urn:div=1"},
		},
		{
			name: "parent through isIncludedIn",
			id:   "urn:div=1:para=2",
			want: &resource.Resource{ID: "urn:div=1:para=2", Types: []iri.IRI{eao + "ParagraphInWork"}, Parent: "urn:div=1"},
		},
		{
			name: "root",
			id:   "urn:div=1",
			want: &resource.Resource{ID: "urn:div=1", Types: []iri.IRI{eao + "Work"}},
		},
		{
			name: "unknown resource",
			id:   "urn:nowhere",
			want: &resource.Resource{ID: "urn:nowhere"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResourceData(tt.id, g, testTable)
			if err != nil {
				t.Fatalf("ParseResourceData() got unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("ParseResourceData() unexpected diff (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestParseResourceData_Ambiguous(t *testing.T) {
	g := storeFromTurtle(t, `@prefix eao: <`+eao+`> .
<urn:work-a> eao:hasWorkPart <urn:p> .
<urn:p> eao:isIncludedIn <urn:work-b> .
`)
	got, err := ParseResourceData("urn:p", g, testTable)
	if !errors.Is(err, ErrAmbiguousHierarchy) {
		t.Fatalf("ParseResourceData() error = %v, want %v", err, ErrAmbiguousHierarchy)
	}
	if got.Parent != "urn:work-a" {
		t.Errorf("ParseResourceData().Parent = %s, want the first relation's parent urn:work-a", got.Parent)
	}

	mappings := []Mapping{{Internal: "urn:page:p", External: "urn:p"}}
	if _, err := ParseHierarchy(g, mappings, Config{Relations: testTable, Strict: true}); !errors.Is(err, ErrAmbiguousHierarchy) {
		t.Errorf("ParseHierarchy(strict) error = %v, want %v", err, ErrAmbiguousHierarchy)
	}
	resources, err := ParseHierarchy(g, mappings, Config{Relations: testTable})
	if err != nil {
		t.Fatalf("ParseHierarchy() got unexpected error: %v", err)
	}
	if resources[0].Parent != "urn:work-a" {
		t.Errorf("ParseHierarchy()[0].Parent = %s, want urn:work-a", resources[0].Parent)
	}
}

func ids(resources []*resource.Resource) []iri.IRI {
	var out []iri.IRI
	for _, r := range resources {
		out = append(out, r.ID)
	}
	return out
}

func TestParseHierarchy(t *testing.T) {
	g := loadStore(t, "collection.ttl")
	mappings := []Mapping{
		{Internal: "urn:div=1:para=1:repr=original", External: "urn:div=1:para=1"},
		{Internal: "urn:div=1:para=1:repr=copy", External: "urn:div=1:para=1"},
	}

	t.Run("empty mapping", func(t *testing.T) {
		got, err := ParseHierarchy(g, nil, testConfig)
		if err != nil {
			t.Fatalf("ParseHierarchy() got unexpected error: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("ParseHierarchy() = %v, want an empty list", got)
		}
	})

	t.Run("ancestors", func(t *testing.T) {
		got, err := ParseHierarchy(g, mappings, testConfig)
		if err != nil {
			t.Fatalf("ParseHierarchy() got unexpected error: %v", err)
		}
		want := []*resource.Resource{
			{ID: "urn:div=1:para=1", Types: []iri.IRI{eao + "ParagraphInWork"}, Parent: "urn:div=1"},
			{ID: "urn:div=1", Types: []iri.IRI{eao + "Work"}, Parent: "urn:collection"},
			{ID: "urn:collection", Types: []iri.IRI{eao + "Collection"}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ParseHierarchy() unexpected diff (-want, +got):\n%s", diff)
		}
	})

	t.Run("descendants", func(t *testing.T) {
		cfg := testConfig
		cfg.WalkDescendants = true
		got, err := ParseHierarchy(g, mappings, cfg)
		if err != nil {
			t.Fatalf("ParseHierarchy() got unexpected error: %v", err)
		}
		want := []iri.IRI{
			"urn:div=1:para=1",
			"urn:div=1",
			"urn:div=1:para=1:line=1",
			"urn:collection",
			"urn:div=1:para=2",
		}
		if diff := cmp.Diff(want, ids(got)); diff != "" {
			t.Errorf("ParseHierarchy() ids unexpected diff (-want, +got):\n%s", diff)
		}
		for _, r := range got {
			if r.ID == "urn:div=1:para=2" && len(r.Types) != 2 {
				t.Errorf("urn:div=1:para=2 types = %v, want 2 types", r.Types)
			}
		}
	})
}

func TestListExternalResources(t *testing.T) {
	ctx := context.Background()

	t.Run("nil store", func(t *testing.T) {
		_, err := ListExternalResources(ctx, nil, resource.NewRegistry(nil), testConfig)
		if !errors.Is(err, ErrInvalidStore) {
			t.Errorf("ListExternalResources(nil) error = %v, want %v", err, ErrInvalidStore)
		}
	})

	t.Run("empty store", func(t *testing.T) {
		got, err := ListExternalResources(ctx, store.New(), pageRegistry(t), testConfig)
		if err != nil {
			t.Fatalf("ListExternalResources() got unexpected error: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("ListExternalResources() = %v, want an empty list", got)
		}
	})

	t.Run("empty registry", func(t *testing.T) {
		got, err := ListExternalResources(ctx, loadStore(t, "letter-001.ttl"), resource.NewRegistry(nil), testConfig)
		if err != nil || len(got) != 0 {
			t.Errorf("ListExternalResources() = %v, %v; want an empty list", got, err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := ListExternalResources(canceled, loadStore(t, "letter-001.ttl"), pageRegistry(t), testConfig)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("ListExternalResources() error = %v, want %v", err, context.Canceled)
		}
	})
}

func TestListExternalResources_FromAlternateLink(t *testing.T) {
	page, err := os.ReadFile(filepath.Join("testdata", "letter-001.html"))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := dom.ParseString(string(page))
	if err != nil {
		t.Fatal(err)
	}
	reg, err := rdfa.RegisterResources(doc)
	if err != nil {
		t.Fatalf("rdfa.RegisterResources() got unexpected error: %v", err)
	}
	loader := &external.Loader{
		Fetcher: external.FileFetcher(os.DirFS("testdata")),
		Base:    "file:///letter-001.html",
	}
	g, err := loader.LoadExternalResources(context.Background(), dom.HTML(doc))
	if err != nil {
		t.Fatalf("LoadExternalResources() got unexpected error: %v", err)
	}
	got, err := ListExternalResources(context.Background(), g, reg, testConfig)
	if err != nil {
		t.Fatalf("ListExternalResources() got unexpected error: %v", err)
	}
	if len(got) == 0 {
		t.Fatalf("ListExternalResources() returned no resources")
	}
	if len(got[0].Types) == 0 {
		t.Errorf("first resource %s has no type", got[0].ID)
	}
	var firstParent iri.IRI
	for _, r := range got {
		if !r.IsRoot() {
			firstParent = r.Parent
			break
		}
	}
	if firstParent != "urn:div=1" {
		t.Errorf("first parent = %q, want urn:div=1", firstParent)
	}
	if got[1].Parent == "" {
		t.Errorf("second resource %s has no parent", got[1].ID)
	}
}

func TestMerge(t *testing.T) {
	internal := resource.NewRegistry([]*resource.Resource{
		{ID: "urn:div=1:repr=original", Types: []iri.IRI{eao + "Work"}},
	})
	externalResources := []*resource.Resource{
		{ID: "urn:collection"},
		{ID: "urn:div=1:repr=original", Parent: "urn:collection"},
	}
	merged := Merge(internal, externalResources)
	if diff := cmp.Diff([]iri.IRI{"urn:div=1:repr=original", "urn:collection"}, merged.IDs()); diff != "" {
		t.Errorf("Merge().IDs() unexpected diff (-want, +got):\n%s", diff)
	}
	if r, _ := merged.Get("urn:div=1:repr=original"); !r.IsRoot() {
		t.Errorf("Merge() let an external resource replace the page resource")
	}
	if got := Merge(nil, externalResources).Len(); got != 2 {
		t.Errorf("Merge(nil).Len() = %d, want 2", got)
	}
}
