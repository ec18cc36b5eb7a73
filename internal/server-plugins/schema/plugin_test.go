//go:build !integration

package schema_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/schemactl/schema-registry-mcp/internal/elicitation"
	"github.com/schemactl/schema-registry-mcp/internal/registry"
	schemaPlugin "github.com/schemactl/schema-registry-mcp/internal/server-plugins/schema"
	"github.com/schemactl/schema-registry-mcp/internal/workflow"
	"github.com/schemactl/schema-registry-mcp/pkg/config"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// recordingClient captures registry calls made by completion handlers.
type recordingClient struct {
	registered    []registry.RegisterSchemaInput
	compatibility map[string]registry.CompatibilityLevel
}

func newRecordingClient() *recordingClient {
	return &recordingClient{compatibility: make(map[string]registry.CompatibilityLevel)}
}

func (c *recordingClient) RegisterSchema(ctx context.Context, input registry.RegisterSchemaInput) (int, error) {
	c.registered = append(c.registered, input)
	return len(c.registered), nil
}

func (c *recordingClient) SetSubjectCompatibility(ctx context.Context, subject string, level registry.CompatibilityLevel) error {
	c.compatibility[subject] = level
	return nil
}

func (c *recordingClient) ListSubjects(ctx context.Context) ([]string, error) {
	return nil, nil
}

var _ = Describe("SchemaServerPlugin", func() {
	var (
		client  *recordingClient
		manager *workflow.Manager
		plugin  *schemaPlugin.SchemaServerPlugin
	)

	BeforeEach(func() {
		logger := createTestLogger()
		elicitations := elicitation.NewManager(config.ElicitationConfig{
			DefaultTimeout: time.Minute,
			MaxPending:     64,
		}, logger)
		manager = workflow.NewManager(
			workflow.NewDefinitionRegistry(),
			elicitations,
			config.WorkflowConfig{StepTimeout: time.Minute, MaxActiveInstances: 8},
			logger,
		)
		client = newRecordingClient()

		var err error
		plugin, err = schemaPlugin.NewSchemaServerPlugin(manager, client, logger)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should register both wizards as workflow definitions", func() {
		Expect(manager.Registry().Count()).To(Equal(2))

		_, err := manager.Registry().Get(schemaPlugin.RegisterSchemaWizardID)
		Expect(err).NotTo(HaveOccurred())
		_, err = manager.Registry().Get(schemaPlugin.MigrateCompatibilityWizardID)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should expose a resource describing the wizards", func() {
		resources, err := plugin.GetResources(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(resources).To(HaveLen(1))
		Expect(resources[0].URI).To(Equal("registry-mcp://schema/wizards"))
	})

	Describe("register schema wizard", func() {
		It("should register the schema once the run is confirmed", func() {
			state, _, err := manager.Start(schemaPlugin.RegisterSchemaWizardID, nil)
			Expect(err).NotTo(HaveOccurred())
			instanceID := state.InstanceID()

			for _, answers := range []map[string]string{
				{"subject": "orders-value"},
				{"schema_type": "AVRO"},
				{"schema": `{"type":"string"}`},
				{"compatibility": "FULL"},
			} {
				outcome, err := manager.HandleResponse(instanceID, answers)
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome.Completed).To(BeFalse())
			}

			outcome, err := manager.HandleResponse(instanceID, map[string]string{"confirm": "true"})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Completed).To(BeTrue())

			Expect(client.registered).To(HaveLen(1))
			Expect(client.registered[0]).To(Equal(registry.RegisterSchemaInput{
				Subject:    "orders-value",
				SchemaType: registry.SchemaTypeAvro,
				Schema:     `{"type":"string"}`,
			}))

			// The compatibility step's answer must reach the registry too.
			Expect(client.compatibility).To(HaveKeyWithValue("orders-value", registry.CompatibilityFull))
		})

		It("should loop back to the subject step when confirmation is declined", func() {
			state, _, err := manager.Start(schemaPlugin.RegisterSchemaWizardID, nil)
			Expect(err).NotTo(HaveOccurred())
			instanceID := state.InstanceID()

			for _, answers := range []map[string]string{
				{"subject": "orders-value"},
				{"schema_type": "AVRO"},
				{"schema": `{"type":"string"}`},
				{"compatibility": "BACKWARD"},
			} {
				_, err := manager.HandleResponse(instanceID, answers)
				Expect(err).NotTo(HaveOccurred())
			}

			outcome, err := manager.HandleResponse(instanceID, map[string]string{"confirm": "false"})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Completed).To(BeFalse())
			Expect(outcome.CurrentStepID).To(Equal("subject"))

			// The restored step offers the earlier answer as its default.
			Expect(outcome.Request.Fields()[0].Default).To(Equal("orders-value"))
			Expect(client.registered).To(BeEmpty())
		})
	})

	Describe("migrate compatibility wizard", func() {
		walkToDryRun := func(level string) string {
			state, _, err := manager.Start(schemaPlugin.MigrateCompatibilityWizardID, nil)
			Expect(err).NotTo(HaveOccurred())
			instanceID := state.InstanceID()

			_, err = manager.HandleResponse(instanceID, map[string]string{"subject": "orders-value"})
			Expect(err).NotTo(HaveOccurred())
			_, err = manager.HandleResponse(instanceID, map[string]string{"target_level": level})
			Expect(err).NotTo(HaveOccurred())
			return instanceID
		}

		It("should apply the change when dry run is declined", func() {
			instanceID := walkToDryRun("FULL")

			outcome, err := manager.HandleResponse(instanceID, map[string]string{"dry_run": "false"})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Completed).To(BeTrue())

			Expect(client.compatibility).To(HaveKeyWithValue("orders-value", registry.CompatibilityFull))
		})

		It("should not touch the registry on a dry run", func() {
			instanceID := walkToDryRun("FULL")

			outcome, err := manager.HandleResponse(instanceID, map[string]string{"dry_run": "true"})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Completed).To(BeTrue())

			Expect(client.compatibility).To(BeEmpty())
		})

		It("should route through the risk acknowledgement for NONE", func() {
			instanceID := walkToDryRun("NONE")

			state, err := manager.Status(instanceID)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.CurrentStepID()).To(Equal("confirm_none"))

			_, err = manager.HandleResponse(instanceID, map[string]string{"accept_risk": "true"})
			Expect(err).NotTo(HaveOccurred())

			outcome, err := manager.HandleResponse(instanceID, map[string]string{"dry_run": "false"})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Completed).To(BeTrue())

			Expect(client.compatibility).To(HaveKeyWithValue("orders-value", registry.CompatibilityNone))
		})

		It("should return to the level step when the risk is declined", func() {
			instanceID := walkToDryRun("NONE")

			outcome, err := manager.HandleResponse(instanceID, map[string]string{"accept_risk": "false"})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.CurrentStepID).To(Equal("target_level"))
		})
	})
})
