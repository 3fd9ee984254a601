// Package turtle parses Turtle (RDF 1.1) documents into range-addressed
// syntax trees and builds the prefix binding model and triple index over
// them. A Turtle file is a single binding scope: every prefix declaration is
// visible to every prefixed name, before or after it.
package turtle

import "github.com/jward/thicket/internal/syntax"

// Node kinds.
const (
	KindRoot                  syntax.Kind = "root"
	KindPrefixDeclaration     syntax.Kind = "prefix_declaration"
	KindSparqlPrefix          syntax.Kind = "sparql_prefix"
	KindBaseDeclaration       syntax.Kind = "base_declaration"
	KindSparqlBase            syntax.Kind = "sparql_base"
	KindTriples               syntax.Kind = "triples"
	KindPredicateObjectList   syntax.Kind = "predicate_object_list"
	KindObjectList            syntax.Kind = "object_list"
	KindIRI                   syntax.Kind = "iri"
	KindPrefixedName          syntax.Kind = "prefixed_name"
	KindBlankNode             syntax.Kind = "blank_node"
	KindBlankNodePropertyList syntax.Kind = "blank_node_property_list"
	KindCollection            syntax.Kind = "collection"
	KindRDFLiteral            syntax.Kind = "rdf_literal"
	KindNumericLiteral        syntax.Kind = "numeric_literal"
	KindBooleanLiteral        syntax.Kind = "boolean_literal"
	KindVerbA                 syntax.Kind = "verb_a"
	KindError                 syntax.Kind = "error"
)

// Token kinds.
const (
	TokIRIRef         syntax.Kind = "iriref"
	TokPNameNS        syntax.Kind = "pname_ns"
	TokPNameLN        syntax.Kind = "pname_ln"
	TokBlankNodeLabel syntax.Kind = "blank_node_label"
	TokString         syntax.Kind = "string"
	TokLangTag        syntax.Kind = "langtag"
	TokDatatypeMarker syntax.Kind = "^^"
	TokInteger        syntax.Kind = "integer"
	TokDecimal        syntax.Kind = "decimal"
	TokDouble         syntax.Kind = "double"
	TokTrue           syntax.Kind = "true"
	TokFalse          syntax.Kind = "false"
	TokA              syntax.Kind = "a"
	TokAtPrefix       syntax.Kind = "@prefix"
	TokAtBase         syntax.Kind = "@base"
	TokPrefix         syntax.Kind = "PREFIX"
	TokBase           syntax.Kind = "BASE"
	TokDot            syntax.Kind = "."
	TokSemicolon      syntax.Kind = ";"
	TokComma          syntax.Kind = ","
	TokLBracket       syntax.Kind = "["
	TokRBracket       syntax.Kind = "]"
	TokLParen         syntax.Kind = "("
	TokRParen         syntax.Kind = ")"
	TokBogus          syntax.Kind = "bogus"
	tokEOF            syntax.Kind = "eof"
)

// RDFType is the IRI the `a` keyword abbreviates.
const RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
