package rdfxml

import (
	"encoding/xml"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/rdfahier/rdf/iri"
	"github.com/google/rdfahier/rdf/ntriples"
	"github.com/google/rdfahier/textpos"
)

const eao = "http://boot.huygens.knaw.nl/vgdemo/editionannotationontology.ttl#"

func TestReadAllTriples(t *testing.T) {
	tests := []struct {
		name  string
		base  iri.IRI
		input string
		want  []string
	}{
		{
			name: "representation and inclusion",
			input: `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:eao="` + eao + `">
  <rdf:Description rdf:about="urn:div=1:para=1">
    <eao:hasRepresentation rdf:resource="urn:div=1:para=1:repr=original"/>
  </rdf:Description>
  <eao:ParagraphInEdition rdf:about="urn:div=1:para=2">
    <eao:isIncludedIn rdf:resource="urn:div=1"/>
  </eao:ParagraphInEdition>
</rdf:RDF>`,
			want: []string{
				`<urn:div=1:para=1> <` + eao + `hasRepresentation> <urn:div=1:para=1:repr=original> .`,
				`<urn:div=1:para=2> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <` + eao + `ParagraphInEdition> .`,
				`<urn:div=1:para=2> <` + eao + `isIncludedIn> <urn:div=1> .`,
			},
		},
		{
			name: "property attributes and literals",
			base: "http://example.org/edition.rdf",
			input: `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:eao="` + eao + `" xml:lang="nl">
  <rdf:Description rdf:ID="work" eao:title="Brieven">
    <eao:note>eerste</eao:note>
    <eao:count rdf:datatype="http://www.w3.org/2001/XMLSchema#integer">3</eao:count>
  </rdf:Description>
</rdf:RDF>`,
			want: []string{
				`<http://example.org/edition.rdf#work> <` + eao + `title> "Brieven"@nl .`,
				`<http://example.org/edition.rdf#work> <` + eao + `note> "eerste"@nl .`,
				`<http://example.org/edition.rdf#work> <` + eao + `count> "3"^^<http://www.w3.org/2001/XMLSchema#integer> .`,
			},
		},
		{
			name: "nested node element and xml:base",
			input: `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:eao="` + eao + `" xml:base="http://example.org/ed/">
  <rdf:Description rdf:about="div1">
    <eao:includes>
      <eao:Paragraph rdf:about="para1"/>
    </eao:includes>
  </rdf:Description>
</rdf:RDF>`,
			want: []string{
				`<http://example.org/ed/para1> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <` + eao + `Paragraph> .`,
				`<http://example.org/ed/div1> <` + eao + `includes> <http://example.org/ed/para1> .`,
			},
		},
		{
			name: "parseType Resource and rdf:li",
			input: `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:eao="` + eao + `">
  <rdf:Seq rdf:about="urn:seq">
    <rdf:li rdf:resource="urn:a"/>
    <rdf:li rdf:resource="urn:b"/>
  </rdf:Seq>
  <rdf:Description rdf:about="urn:c">
    <eao:source rdf:parseType="Resource">
      <eao:label>bron</eao:label>
    </eao:source>
  </rdf:Description>
</rdf:RDF>`,
			want: []string{
				`<urn:seq> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/1999/02/22-rdf-syntax-ns#Seq> .`,
				`<urn:seq> <http://www.w3.org/1999/02/22-rdf-syntax-ns#_1> <urn:a> .`,
				`<urn:seq> <http://www.w3.org/1999/02/22-rdf-syntax-ns#_2> <urn:b> .`,
				`<urn:c> <` + eao + `source> _:rdfxml1 .`,
				`_:rdfxml1 <` + eao + `label> "bron" .`,
			},
		},
		{
			name:  "lone node element",
			input: `<eao:Work xmlns:eao="` + eao + `" xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" rdf:about="urn:work"/>`,
			want: []string{
				`<urn:work> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <` + eao + `Work> .`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadAllTriples(xmlTokenizerFromString(tt.input), tt.base)
			if err != nil {
				t.Fatalf("ReadAllTriples() got unexpected error: %v", err)
			}
			if diff := cmp.Diff(sorted(tt.want), sorted(tripleLines(got))); diff != "" {
				t.Errorf("unexpected diff in parsed triples (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestReadTriples_errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:  "text among properties",
			input: `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><rdf:Description rdf:about="urn:a">stray</rdf:Description></rdf:RDF>`,
		},
		{
			name:  "ambiguous subject",
			input: `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><rdf:Description rdf:about="urn:a" rdf:nodeID="b"/></rdf:RDF>`,
		},
		{
			name:  "relative IRI without base",
			input: `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><rdf:Description rdf:about="para1"/></rdf:RDF>`,
		},
		{
			name:    "collection",
			input:   `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:e="urn:e#"><rdf:Description rdf:about="urn:a"><e:p rdf:parseType="Collection"/></rdf:Description></rdf:RDF>`,
			wantErr: ErrUnsupported,
		},
		{
			name:  "truncated",
			input: `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><rdf:Description rdf:about="urn:a">`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAllTriples(xmlTokenizerFromString(tt.input), "")
			if err == nil {
				t.Fatalf("ReadAllTriples() succeeded, want error")
			}
			var posErr *textpos.Error
			if !errors.As(err, &posErr) {
				t.Errorf("ReadAllTriples() error = %v, want *textpos.Error", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadAllTriples() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecode_receiverError(t *testing.T) {
	stop := errors.New("stop")
	input := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:e="urn:e#"><rdf:Description rdf:about="urn:a" e:x="1" e:y="2"/></rdf:RDF>`
	calls := 0
	err := Decode(strings.NewReader(input), "", func(*ntriples.Triple) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("Decode() error = %v, want %v", err, stop)
	}
	if calls != 1 {
		t.Errorf("receiver called %d times, want 1", calls)
	}
}

func xmlTokenizerFromString(xmlContents string) xml.TokenReader {
	return xml.NewDecoder(strings.NewReader(xmlContents))
}

func tripleLines(triples []*ntriples.Triple) []string {
	var out []string
	for _, tr := range triples {
		out = append(out, tr.String())
	}
	return out
}

func sorted(lines []string) []string {
	out := append([]string(nil), lines...)
	sort.Strings(out)
	return out
}

func TestCheckNCName(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"note1", false},
		{"_x", false},
		{"para-2.b", false},
		{"élément", false},
		{"", true},
		{"1note", true},
		{"-x", true},
		{"eao:note", true},
		{"has space", true},
	}
	for _, tt := range tests {
		if err := checkNCName(tt.in); (err != nil) != tt.wantErr {
			t.Errorf("checkNCName(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}
