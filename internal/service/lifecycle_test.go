package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/querycanvas/langservice/internal/config"
	"github.com/querycanvas/langservice/internal/schema"
	"github.com/querycanvas/langservice/internal/service"
)

type emptyServer struct{}

func (emptyServer) GetDatabases(context.Context) ([]schema.DatabaseDefinition, error) {
	return nil, nil
}
func (emptyServer) GetBundles(context.Context, string) ([]schema.BundleDefinition, error) {
	return nil, nil
}
func (emptyServer) GetBundle(context.Context, string, string) (schema.BundleDefinition, error) {
	return schema.BundleDefinition{}, nil
}
func (emptyServer) GetFields(context.Context, string, string) ([]schema.FieldDefinition, error) {
	return nil, nil
}
func (emptyServer) GetRelationships(context.Context, string, string) ([]schema.RelationshipDefinition, error) {
	return nil, nil
}
func (emptyServer) GetPermissions(context.Context) ([]schema.PermissionDefinition, error) {
	return nil, nil
}
func (emptyServer) GetMigrations(context.Context) ([]schema.MigrationDefinition, error) {
	return nil, nil
}

var _ = Describe("a document's Facade", func() {
	var f *service.Facade

	BeforeEach(func() {
		f = service.New(service.LanguageDocQL, config.Default(), emptyServer{})
	})

	AfterEach(func() {
		f.Dispose()
	})

	It("starts uninitialized", func() {
		Expect(f.State()).To(Equal(service.StateUninitialized))
	})

	It("rejects document updates before Initialize", func() {
		Expect(f.UpdateDocument("SELECT 1;")).To(HaveOccurred())
	})

	Context("once initialized", func() {
		BeforeEach(func() {
			Expect(f.Initialize(context.Background())).To(Succeed())
		})

		It("moves to initialized", func() {
			Expect(f.State()).To(Equal(service.StateInitialized))
		})

		It("becomes active on the first document update", func() {
			Expect(f.UpdateDocument("SELECT * FROM orders;")).To(Succeed())
			Expect(f.State()).To(Equal(service.StateActive))
		})

		It("splits the document into one statement per semicolon", func() {
			Expect(f.UpdateDocument("SELECT 1; SELECT 2; SELECT 3;")).To(Succeed())
			Expect(f.ParseStatements()).To(HaveLen(3))
		})

		It("reports an invalid result for a malformed statement", func() {
			Expect(f.UpdateDocument("SELECT FROM;")).To(Succeed())
			result, err := f.Validate(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Valid).To(BeFalse())
			Expect(result.Errors).NotTo(BeEmpty())
		})

		It("remembers the selected database across calls", func() {
			f.SetDatabaseContext("shop")
			Expect(f.UpdateDocument("SELECT 1;")).To(Succeed())
			Expect(f.State()).To(Equal(service.StateActive))
		})
	})

	Context("once disposed", func() {
		BeforeEach(func() {
			Expect(f.Initialize(context.Background())).To(Succeed())
			f.Dispose()
		})

		It("refuses further document updates", func() {
			Expect(f.UpdateDocument("SELECT 1;")).To(HaveOccurred())
		})

		It("tolerates a second Dispose call", func() {
			Expect(func() { f.Dispose() }).NotTo(Panic())
		})
	})
})
