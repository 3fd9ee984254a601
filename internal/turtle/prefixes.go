package turtle

// WellKnownPrefixes returns common namespace bindings keyed by prefix name,
// colon included.
func WellKnownPrefixes() map[string]string {
	return map[string]string{
		"rdf:":     "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"rdfs:":    "http://www.w3.org/2000/01/rdf-schema#",
		"owl:":     "http://www.w3.org/2002/07/owl#",
		"xsd:":     "http://www.w3.org/2001/XMLSchema#",
		"dc:":      "http://purl.org/dc/elements/1.1/",
		"dcterms:": "http://purl.org/dc/terms/",
		"foaf:":    "http://xmlns.com/foaf/0.1/",
		"skos:":    "http://www.w3.org/2004/02/skos/core#",
		"prov:":    "http://www.w3.org/ns/prov#",
		"schema:":  "https://schema.org/",
	}
}

// DeclarationFor formats an @prefix directive.
func DeclarationFor(prefix, namespace string) string {
	return "@prefix " + prefix + " <" + namespace + "> .\n"
}
