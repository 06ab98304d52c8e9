package ntriples

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/rdfahier/textpos"
)

const (
	testVocab         = "http://boot.huygens.knaw.nl/vgdemo/editionannotationontology.ttl#"
	hasRepresentation = testVocab + "hasRepresentation"
	isIncludedIn      = testVocab + "isIncludedIn"
)

func TestTripleEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b *Triple
		want bool
	}{
		{
			"blank nodes",
			NewTriple(NewSubjectBlankNodeID("a"), hasRepresentation, NewObjectBlankNodeID("b")),
			NewTriple(NewSubjectBlankNodeID("a"), hasRepresentation, NewObjectBlankNodeID("b")),
			true,
		},
		{
			"iri vs blank node subject",
			NewTriple(NewSubjectIRI("urn:div=1"), hasRepresentation, NewObjectBlankNodeID("b")),
			NewTriple(NewSubjectBlankNodeID("a"), hasRepresentation, NewObjectBlankNodeID("b")),
			false,
		},
		{
			"literal language differs",
			NewTriple(NewSubjectIRI("urn:div=1"), hasRepresentation, NewObjectLiteral(NewLiteral("x", LangString, "en"))),
			NewTriple(NewSubjectIRI("urn:div=1"), hasRepresentation, NewObjectLiteral(NewLiteral("x", LangString, "nl"))),
			false,
		},
		{
			"predicate differs",
			NewTriple(NewSubjectIRI("urn:div=1"), hasRepresentation, NewObjectIRI("urn:x")),
			NewTriple(NewSubjectIRI("urn:div=1"), isIncludedIn, NewObjectIRI("urn:x")),
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal(\n  %s\n  %s\n ) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		t    *Triple
		want string
	}{
		{
			NewTriple(NewSubjectBlankNodeID("a"), hasRepresentation, NewObjectBlankNodeID("b")),
			"_:a <" + hasRepresentation + "> _:b .",
		},
		{
			NewTriple(NewSubjectBlankNodeID("a"), hasRepresentation, NewObjectLiteral(NewLiteral("xyz", LangString, "en-us"))),
			`_:a <` + hasRepresentation + `> "xyz"@en-us .`,
		},
		{
			NewTriple(NewSubjectIRI("urn:div=1:para=2"), isIncludedIn, NewObjectIRI("urn:div=1")),
			`<urn:div=1:para=2> <` + isIncludedIn + `> <urn:div=1> .`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.t.String(); got != tt.want {
				t.Errorf("\ngot  %s\n  !=\nwant %s", got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		t *Triple
	}{
		{NewTriple(NewSubjectBlankNodeID("a"), hasRepresentation, NewObjectBlankNodeID("b"))},
		{NewTriple(NewSubjectBlankNodeID("a"), hasRepresentation, NewObjectLiteral(NewLiteral("xyz", LangString, "en-us")))},
		{NewTriple(NewSubjectIRI("urn:div=1:para=1"), hasRepresentation, NewObjectIRI("urn:div=1:para=1:repr=original"))},
		{NewTriple(NewSubjectIRI("urn:x"), hasRepresentation, NewObjectLiteral(NewLiteral("line\n\"quoted\"", XMLSchemaString, "")))},
	}
	for _, tt := range tests {
		t.Run(tt.t.String(), func(t *testing.T) {
			got, err := ParseLine(tt.t.String())
			if err != nil {
				t.Fatalf("ParseLine got unexpected error: %v", err)
			}
			if !got.Equal(tt.t) {
				t.Errorf("ParseLine(%q)\ngot  %s\n  !=\nwant %s", tt.t.String(), got, tt.t)
			}
		})
	}
}

func TestParseLine_CommentsAndBlank(t *testing.T) {
	for _, line := range []string{"", " \t", "# a comment", "  # indented comment"} {
		triple, err := ParseLine(line)
		if triple != nil || err != nil {
			t.Errorf("ParseLine(%q) = %v, %v; want nil, nil", line, triple, err)
		}
	}
}

func TestParseLine_Errors(t *testing.T) {
	for _, line := range []string{
		`<urn:a> <urn:b> <urn:c>`,
		`<urn:a> <urn:b> <urn:c> . trailing`,
		`"lit" <urn:b> <urn:c> .`,
		`<urn:a> _:b <urn:c> .`,
		`<urn:a> <urn:b> .`,
	} {
		if _, err := ParseLine(line); err == nil {
			t.Errorf("ParseLine(%q) succeeded, want error", line)
		}
	}
}

func TestParseLine_BlankNodeLabels(t *testing.T) {
	tests := []struct {
		line    string
		want    BlankNodeID
		wantErr bool
	}{
		{"_:b1 <urn:p> <urn:o> .", "b1", false},
		{"_:1b <urn:p> <urn:o> .", "1b", false},
		{"_:a.b <urn:p> <urn:o> .", "a.b", false},
		{"_:note-1·x <urn:p> <urn:o> .", "note-1·x", false},
		{"_:élan <urn:p> <urn:o> .", "élan", false},
		{"_:-a <urn:p> <urn:o> .", "", true},
		{"_: <urn:p> <urn:o> .", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if gotErr := err != nil; gotErr != tt.wantErr {
				t.Fatalf("ParseLine(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if id := got.Subject().BlankNodeID(); id != tt.want {
				t.Errorf("ParseLine(%q) subject label = %q, want %q", tt.line, id, tt.want)
			}
		})
	}
}

func TestParseLine_EscapedIRI(t *testing.T) {
	got, err := ParseLine(`<urn:div=1:note\u00E9> <urn:p> "caf\u00e9\n" .`)
	if err != nil {
		t.Fatalf("ParseLine() got unexpected error: %v", err)
	}
	if got, want := got.Subject().IRI(), IRI("urn:div=1:noteé"); got != want {
		t.Errorf("subject = %s, want %s", got, want)
	}
	if got, want := got.Object().Literal().LexicalForm(), "café\n"; got != want {
		t.Errorf("object lexical form = %q, want %q", got, want)
	}
}

var literalCmpOpt = cmp.Transformer("literal", func(lit Literal) map[string]string {
	return map[string]string{
		"LexicalForm": lit.LexicalForm(),
		"Datatype":    lit.Datatype().String(),
		"LangTag":     lit.LanguageTag(),
	}
})

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		input    string
		want     Literal
		wantRest string
		wantErr  bool
	}{
		{`"x"@en`, NewLiteral("x", LangString, "en"), "", false},
		{`"x"@en-US .`, NewLiteral("x", LangString, "en-US"), " .", false},
		{`"x"^^<https://google>`, NewLiteral("x", "https://google", ""), "", false},
		{`"x"`, NewLiteral("x", XMLSchemaString, ""), "", false},
		{`"x@en`, Literal{}, "", true},
		{`"x"@`, Literal{}, "", true},
		{`"xĤ"`, NewLiteral("xĤ", XMLSchemaString, ""), "", false},
		{`"tab\there"`, NewLiteral("tab\there", XMLSchemaString, ""), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, rest, err := ParseLiteral(tt.input)
			if gotErr := err != nil; gotErr != tt.wantErr {
				t.Fatalf("got err = %v, wantErr = %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got, literalCmpOpt); diff != "" {
				t.Errorf("ParseLiteral(%q) created unexpected diff (-want, +got): %s", tt.input, diff)
			}
			if rest != tt.wantRest {
				t.Errorf("ParseLiteral(%q) rest = %q, want %q", tt.input, rest, tt.wantRest)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	doc := strings.Join([]string{
		"# edition fragments",
		"<urn:div=1:para=1> <" + hasRepresentation + "> <urn:div=1:para=1:repr=original> .",
		"",
		"<urn:div=1:para=2> <" + isIncludedIn + "> <urn:div=1> . # trailing comment",
	}, "\n")
	var got []string
	if err := Decode(strings.NewReader(doc), func(tr *Triple) error {
		got = append(got, tr.String())
		return nil
	}); err != nil {
		t.Fatalf("Decode() got unexpected error: %v", err)
	}
	want := []string{
		"<urn:div=1:para=1> <" + hasRepresentation + "> <urn:div=1:para=1:repr=original> .",
		"<urn:div=1:para=2> <" + isIncludedIn + "> <urn:div=1> .",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode() unexpected diff (-want, +got):\n%s", diff)
	}
}

func TestDecode_ErrorPosition(t *testing.T) {
	doc := "<urn:a> <urn:b> <urn:c> .\n\n<urn:a> <urn:b>\n"
	err := Decode(strings.NewReader(doc), func(*Triple) error { return nil })
	var posErr *textpos.Error
	if !errors.As(err, &posErr) {
		t.Fatalf("Decode() error = %v, want *textpos.Error", err)
	}
	if got, want := posErr.Pos.Line().Ordinal(), 3; got != want {
		t.Errorf("Decode() error line = %d, want %d", got, want)
	}
	if got, want := posErr.Pos.Column().Ordinal(), 16; got != want {
		t.Errorf("Decode() error column = %d, want %d", got, want)
	}
}

func TestDecode_ReceiverError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := Decode(strings.NewReader("<urn:a> <urn:b> <urn:c> .\n<urn:a> <urn:b> <urn:d> .\n"), func(*Triple) error {
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

func TestScopeBlankNodes(t *testing.T) {
	tests := []struct {
		name string
		in   *Triple
		want string
	}{
		{
			"both blank",
			NewTriple(NewSubjectBlankNodeID("a"), hasRepresentation, NewObjectBlankNodeID("b")),
			"_:doc1a <" + hasRepresentation + "> _:doc1b .",
		},
		{
			"object blank",
			NewTriple(NewSubjectIRI("urn:div=1"), hasRepresentation, NewObjectBlankNodeID("b")),
			"<urn:div=1> <" + hasRepresentation + "> _:doc1b .",
		},
		{
			"no blank nodes",
			NewTriple(NewSubjectIRI("urn:div=1"), hasRepresentation, NewObjectIRI("urn:x")),
			"<urn:div=1> <" + hasRepresentation + "> <urn:x> .",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.ScopeBlankNodes("doc1").String(); got != tt.want {
				t.Errorf("ScopeBlankNodes(%q) = %s, want %s", "doc1", got, tt.want)
			}
		})
	}
}
