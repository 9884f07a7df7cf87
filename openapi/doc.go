// Package openapi generates OpenAPI v3.0 documents from resource
// documentation and validates JSON request bodies against JSON Schema.
//
// Documentation is attached to resources with a builder, merged across the
// application, parent resources, the resource itself and each method, and
// serialized into a typed Document. Schemas follow JSON Schema Draft 4 as
// used by OpenAPI 3.0.
//
// See: https://spec.openapis.org/oas/v3.0.3
// See: https://json-schema.org/draft-04/json-schema-core
//
// # Resource Documentation
//
//	doc := openapi.NewResourceDoc("PetCollection").
//	    Tags("pets").
//	    Param("limit", "Maximum number of pets", openapi.ParamSchema(openapi.Integer))
//
//	doc.Method(http.MethodGet).
//	    Docstring("List pets. Pets are sorted by name.").
//	    Response(http.StatusOK, "Pets", openapi.ArrayOf("Pet"))
//
//	doc.Method(http.MethodPost).
//	    Expect(openapi.ExpectSpec{Validator: "NewPet"}).
//	    Response(http.StatusCreated, "Created", "Pet")
//
// Later declarations win. Method declarations win over resource ones, which
// win over the declarations of a parent created with Extend, which win over
// the application defaults.
//
// A method hidden with Hide is left out of the document even though the
// resource handles it.
//
// # Path Templates
//
// Path variables use the <converter(args):name> syntax:
//
//	/pets/<int:id>
//	/pets/<uuid:id>/photos/<any(small, large):size>
//	/files/<path:name>
//
// Every variable becomes a required path parameter whose schema follows the
// converter, and the template is keyed in the document in brace form
// (/pets/{id}). An unknown converter fails the document build with a
// *ConverterError.
//
// # Validators
//
// A Registry maps names to validators. Validators compile on first use
// against the base model, so references between its components may point
// forward:
//
//	resolver, _ := openapi.LoadResolver("models.yaml")
//	spec := openapi.NewSpec(openapi.Info{Title: "Pets"}, openapi.WithBaseModel(resolver))
//	spec.Validators().RegisterRef("Pet", "schemas")
//
// # Document
//
//	spec.Register("/pets", doc, []string{http.MethodGet, http.MethodPost})
//	document, err := spec.Document()
//
// Document builds once behind a single-flight guard and caches the result
// until Invalidate.
package openapi
