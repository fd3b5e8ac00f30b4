package main_test

import (
	"context"

	"github.com/getkin/kin-openapi/openapi3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("OpenAPI document", func() {
	var doc *openapi3.T

	BeforeEach(func() {
		loader := openapi3.NewLoader()
		var err error
		doc, err = loader.LoadFromFile("api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())
	})

	It("validates against the OpenAPI 3 schema", func() {
		Expect(doc.Validate(context.Background())).To(Succeed())
	})

	It("documents every fax operation", func() {
		for _, path := range []string{
			"/faxes/upload",
			"/faxes",
			"/faxes/{id}",
			"/faxes/{id}/file",
			"/faxes/{id}/status",
			"/faxes/{id}/permissions",
			"/faxes/{id}/assign-department",
			"/faxes/{id}/comments",
		} {
			Expect(doc.Paths.Find(path)).NotTo(BeNil(), "missing path %s", path)
		}
	})

	It("documents the signature workflow endpoints", func() {
		Expect(doc.Paths.Find("/workflows")).NotTo(BeNil())
		Expect(doc.Paths.Find("/workflows/{id}")).NotTo(BeNil())
		Expect(doc.Paths.Find("/sign/{workflowId}")).NotTo(BeNil())
	})
})
