// Package rest hosts documented resources over net/http.
//
// An App routes requests to resources registered with <converter:name> path
// templates, enforces the request bodies each method expects and serves the
// generated OpenAPI document.
//
//	app, err := rest.New(rest.Config{Title: "Pets", ServerName: "localhost:8080"})
//
//	pets := rest.NewResource("PetCollection").
//	    Get(listPets).
//	    Post(createPet)
//	pets.Doc().Method(http.MethodPost).Expect(openapi.ExpectSpec{Validator: "NewPet"})
//
//	app.Route("/pets", pets)
//	http.ListenAndServe(":8080", app)
//
// # Validation
//
// When validation is on for a method and it expects bodies, a JSON request
// is decoded and checked against the first JSON expectation. A failure
// replies 400:
//
//	{"message": "Request Body failed validation", "error": {"msg": ..., "value": ..., "schema": ...}}
//
// A request whose content type matches no expectation replies 400 with
// "Request did not match any expected content type". Handlers read the
// decoded body with JSONBody.
//
// # Documentation Endpoints
//
//	/openapi.json  - document as JSON (Config.DocsPath)
//	/openapi.yaml  - document as YAML (Config.YAMLPath, "-" disables)
//	Config.DocsUIPath - Swagger UI page, when set
//
// The endpoints answer GET, HEAD and OPTIONS from any origin.
package rest
