// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package canopy

import (
	"encoding"
	"encoding/json"
	"net/http"
	"net/netip"
	"reflect"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/go-chi/chi/v5"
	"github.com/telekom/canopy/internal/logger"
	"github.com/telekom/canopy/pkg/api"
	"gopkg.in/yaml.v3"
)

const urlParamAddr = "addr"

type encoder interface {
	Encode(v any) error
}

// routes returns the endpoints serving the report
func (c *Canopy) routes() []api.Route {
	return []api.Route{
		{Path: "/openapi", Method: http.MethodGet, Handler: c.handleOpenAPI},
		{Path: "/v1/report", Method: http.MethodGet, Handler: c.handleReport},
		{Path: "/v1/subnets", Method: http.MethodGet, Handler: c.handleSubnets},
		{Path: "/v1/routers", Method: http.MethodGet, Handler: c.handleRouters},
		{Path: "/v1/tree", Method: http.MethodGet, Handler: c.handleTree},
		{Path: "/v1/interfaces/{" + urlParamAddr + "}", Method: http.MethodGet, Handler: c.handleInterface},
		{Path: "/metrics", Method: http.MethodGet, Handler: c.metrics.Handler().ServeHTTP},
	}
}

func (c *Canopy) handleReport(w http.ResponseWriter, r *http.Request) {
	c.withReport(w, r, func(report *Report) any { return report })
}

func (c *Canopy) handleSubnets(w http.ResponseWriter, r *http.Request) {
	c.withReport(w, r, func(report *Report) any { return report.Subnets })
}

func (c *Canopy) handleRouters(w http.ResponseWriter, r *http.Request) {
	c.withReport(w, r, func(report *Report) any { return report.Routers() })
}

func (c *Canopy) handleInterface(w http.ResponseWriter, r *http.Request) {
	addr, err := netip.ParseAddr(chi.URLParam(r, urlParamAddr))
	if err != nil {
		writeError(w, r, http.StatusBadRequest)
		return
	}
	c.withReport(w, r, func(report *Report) any { return report.Interface(addr) })
}

func (c *Canopy) handleTree(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	report, err := c.Report()
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := report.WriteTree(w); err != nil {
		log.Error("Failed to write tree", "error", err)
	}
}

// withReport encodes the part of the report selected by view as json
func (c *Canopy) withReport(w http.ResponseWriter, r *http.Request, view func(*Report) any) {
	log := logger.FromContext(r.Context())
	report, err := c.Report()
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view(report)); err != nil {
		log.Error("Failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (c *Canopy) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	doc, err := openapiSpec()
	if err != nil {
		log.Error("Failed to create openapi", "error", err)
		writeError(w, r, http.StatusInternalServerError)
		return
	}

	var marshaler encoder
	switch r.Header.Get("Accept") {
	case "application/json":
		marshaler = json.NewEncoder(w)
		w.Header().Set("Content-Type", "application/json")
	default:
		marshaler = yaml.NewEncoder(w)
		w.Header().Set("Content-Type", "text/yaml")
	}

	if err := marshaler.Encode(doc); err != nil {
		log.Error("Failed to marshal openapi", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int) {
	w.WriteHeader(status)
	if _, err := w.Write([]byte(http.StatusText(status))); err != nil {
		logger.FromContext(r.Context()).Error("Failed to write response", "error", err)
	}
}

// openapiSpec describes the report endpoints
func openapiSpec() (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:       "Canopy Topology API",
			Description: "Routes, network tree and routers discovered by canopy",
			Version:     version(),
		},
		Paths: openapi3.NewPaths(),
	}

	endpoints := []struct {
		path        string
		name        string
		description string
		value       any
	}{
		{path: "/v1/report", name: "report", description: "The full report of the last discovery", value: Report{}},
		{path: "/v1/subnets", name: "subnets", description: "The route discovery outcome of every subnet", value: []SubnetReport{}},
		{path: "/v1/routers", name: "routers", description: "The nodes of the network tree holding routers", value: []NodeReport{}},
		{path: "/v1/interfaces/{addr}", name: "interface", description: "The subnet and router of an interface", value: InterfaceReport{}},
	}
	for _, e := range endpoints {
		schema, err := openapi3gen.NewSchemaRefForValue(e.value, openapi3.Schemas{}, openapi3gen.SchemaCustomizer(textSchema))
		if err != nil {
			return nil, api.ErrCreateOpenapiSchema{Name: e.name, Err: err}
		}
		op := openapi3.NewOperation()
		op.Description = e.description
		op.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription(e.description).WithJSONSchemaRef(schema))
		op.AddResponse(http.StatusServiceUnavailable, openapi3.NewResponse().WithDescription(ErrNoReport.Error()))
		if e.name == "interface" {
			op.AddParameter(openapi3.NewPathParameter(urlParamAddr).WithSchema(openapi3.NewStringSchema().WithFormat("ipv4")))
		}
		doc.AddOperation(e.path, http.MethodGet, op)
	}

	tree := openapi3.NewOperation()
	tree.Description = "The network tree rendered as text"
	tree.AddResponse(http.StatusOK, openapi3.NewResponse().
		WithDescription(tree.Description).
		WithContent(openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/plain"})))
	doc.AddOperation("/v1/tree", http.MethodGet, tree)

	return doc, nil
}

var textMarshaler = reflect.TypeFor[encoding.TextMarshaler]()

// textSchema describes types marshaled as text, like addresses and states, as strings
func textSchema(_ string, t reflect.Type, _ reflect.StructTag, schema *openapi3.Schema) error {
	if t.Kind() != reflect.Pointer && t.Implements(textMarshaler) {
		*schema = *openapi3.NewStringSchema()
	}
	return nil
}
