// Package sesame is a client for the Sesame RDF store HTTP protocol.
//
// A Client selects a repository, runs SPARQL or SeRQL queries, uploads or overwrites
// statements, manages namespace prefixes, lists contexts and reports repository size.
// Query and listing calls return a Result decoded from the SPARQL Query Results XML
// format.
//
//	c := sesame.New("http://localhost:8080/openrdf-sesame", "people")
//	res, err := c.Query(ctx, "SELECT ?s WHERE { ?s ?p ?o }", sesame.ResultSPARQLXML, sesame.LanguageSPARQL, true)
//	if err != nil {
//		return err
//	}
//	if rows, ok := res.Rows(); ok {
//		for _, row := range rows {
//			fmt.Println(row["s"], row["s_type"])
//		}
//	}
//
// Every failure is a *Error; use errors.Is with the exported sentinels or KindOf to
// branch on the failure kind.
package sesame
