package turtle

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/rdfahier/rdf/iri"
	"github.com/google/rdfahier/rdf/ntriples"
	"github.com/google/rdfahier/textpos"
)

const (
	eao     = "http://boot.huygens.knaw.nl/vgdemo/editionannotationontology.ttl#"
	rdfType = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#type>"
)

func TestReadAllTriples(t *testing.T) {
	tests := []struct {
		name  string
		base  iri.IRI
		input string
		want  []string
	}{
		{
			name: "edition representation",
			input: `@prefix eao: <` + eao + `> .
# internal paragraph and its original representation
<urn:div=1:para=1> eao:hasRepresentation <urn:div=1:para=1:repr=original> .
<urn:div=1:para=2> a eao:ParagraphInEdition ;
    eao:isIncludedIn <urn:div=1> .
`,
			want: []string{
				`<urn:div=1:para=1> <` + eao + `hasRepresentation> <urn:div=1:para=1:repr=original> .`,
				`<urn:div=1:para=2> ` + rdfType + ` <` + eao + `ParagraphInEdition> .`,
				`<urn:div=1:para=2> <` + eao + `isIncludedIn> <urn:div=1> .`,
			},
		},
		{
			name: "sparql directives and base",
			base: "http://example.org/doc.ttl",
			input: `PREFIX eao: <` + eao + `>
BASE <http://example.org/ed/>
<div1> eao:includes <para1>, <para2> ; .
`,
			want: []string{
				`<http://example.org/ed/div1> <` + eao + `includes> <http://example.org/ed/para1> .`,
				`<http://example.org/ed/div1> <` + eao + `includes> <http://example.org/ed/para2> .`,
			},
		},
		{
			name: "relative references against document base",
			base: "http://example.org/doc.ttl",
			input: `<#a> <#p> <> .
`,
			want: []string{
				`<http://example.org/doc.ttl#a> <http://example.org/doc.ttl#p> <http://example.org/doc.ttl> .`,
			},
		},
		{
			name: "literals",
			input: `@prefix : <urn:x#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
:s :title "Brieven"@nl ;
   :count 3 ;
   :ratio 0.5 ;
   :big 1e3 ;
   :done true ;
   :note """two
lines""" ;
   :quoted 'it\'s' ;
   :typed "7"^^xsd:integer .
`,
			want: []string{
				`<urn:x#s> <urn:x#title> "Brieven"@nl .`,
				`<urn:x#s> <urn:x#count> "3"^^<http://www.w3.org/2001/XMLSchema#integer> .`,
				`<urn:x#s> <urn:x#ratio> "0.5"^^<http://www.w3.org/2001/XMLSchema#decimal> .`,
				`<urn:x#s> <urn:x#big> "1e3"^^<http://www.w3.org/2001/XMLSchema#double> .`,
				`<urn:x#s> <urn:x#done> "true"^^<http://www.w3.org/2001/XMLSchema#boolean> .`,
				`<urn:x#s> <urn:x#note> "two\nlines" .`,
				`<urn:x#s> <urn:x#quoted> "it's" .`,
				`<urn:x#s> <urn:x#typed> "7"^^<http://www.w3.org/2001/XMLSchema#integer> .`,
			},
		},
		{
			name: "blank nodes and collections",
			input: `@prefix : <urn:x#> .
_:w :part [ :label "a" ] .
[ :label "b" ] .
:s :list ( :a :b ) .
:s :empty () .
`,
			want: []string{
				`_:genid1 <urn:x#label> "a" .`,
				`_:w <urn:x#part> _:genid1 .`,
				`_:genid2 <urn:x#label> "b" .`,
				`_:genid3 <http://www.w3.org/1999/02/22-rdf-syntax-ns#first> <urn:x#a> .`,
				`_:genid3 <http://www.w3.org/1999/02/22-rdf-syntax-ns#rest> _:genid4 .`,
				`_:genid4 <http://www.w3.org/1999/02/22-rdf-syntax-ns#first> <urn:x#b> .`,
				`_:genid4 <http://www.w3.org/1999/02/22-rdf-syntax-ns#rest> <http://www.w3.org/1999/02/22-rdf-syntax-ns#nil> .`,
				`<urn:x#s> <urn:x#list> _:genid3 .`,
				`<urn:x#s> <urn:x#empty> <http://www.w3.org/1999/02/22-rdf-syntax-ns#nil> .`,
			},
		},
		{
			name:  "n-triples input",
			input: "<urn:a> <urn:b> <urn:c> .\n<urn:a> <urn:b> \"d\" .\n",
			want: []string{
				`<urn:a> <urn:b> <urn:c> .`,
				`<urn:a> <urn:b> "d" .`,
			},
		},
		{
			name:  "empty document",
			input: "# nothing here\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadAllTriples(strings.NewReader(tt.input), tt.base)
			if err != nil {
				t.Fatalf("ReadAllTriples() got unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, tripleLines(got)); diff != "" {
				t.Errorf("ReadAllTriples() unexpected diff (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestReadAllTriples_errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{"undefined prefix", "<urn:a> <urn:b> <urn:c> .\npre:Work <urn:b> <urn:c> .", 2},
		{"missing dot", "<urn:a> <urn:b> <urn:c>", 1},
		{"relative without base", "\n\n<a> <urn:b> <urn:c> .", 3},
		{"unterminated string", `<urn:a> <urn:b> "abc .`, 1},
		{"space in IRI", "<urn:a> <urn:b> <urn:c d> .", 1},
		{"literal subject", `"x" <urn:b> <urn:c> .`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAllTriples(strings.NewReader(tt.input), "")
			var posErr *textpos.Error
			if !errors.As(err, &posErr) {
				t.Fatalf("ReadAllTriples() error = %v, want *textpos.Error", err)
			}
			if got := posErr.Pos.Line().Ordinal(); got != tt.wantLine {
				t.Errorf("ReadAllTriples() error %v on line %d, want line %d", err, got, tt.wantLine)
			}
		})
	}
}

func TestDecode_receiverError(t *testing.T) {
	stop := errors.New("stop")
	err := Decode(strings.NewReader("<urn:a> <urn:b> <urn:c>, <urn:d> ."), "", func(*ntriples.Triple) error {
		return stop
	})
	if err != stop {
		t.Errorf("Decode() error = %v, want %v", err, stop)
	}
}

func tripleLines(triples []*ntriples.Triple) []string {
	var out []string
	for _, tr := range triples {
		out = append(out, tr.String())
	}
	return out
}
