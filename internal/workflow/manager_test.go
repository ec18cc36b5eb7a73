//go:build !integration

package workflow_test

import (
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/schemactl/schema-registry-mcp/internal/elicitation"
	elicdomain "github.com/schemactl/schema-registry-mcp/internal/elicitation/domain"
	"github.com/schemactl/schema-registry-mcp/internal/workflow"
	"github.com/schemactl/schema-registry-mcp/internal/workflow/domain"
	"github.com/schemactl/schema-registry-mcp/pkg/config"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// linearWorkflow is a three step flow: name -> color -> confirm -> end.
func linearWorkflow() *domain.MultiStepWorkflow {
	return &domain.MultiStepWorkflow{
		ID:          "linear",
		Name:        "Linear Flow",
		InitialStep: "name",
		Steps: []domain.WorkflowStep{
			{
				ID:    "name",
				Title: "Name",
				Fields: []elicdomain.Field{
					{Name: "name", Kind: elicdomain.FieldKindText, Required: true},
				},
				Next: map[string]map[string]string{
					"name": {domain.DefaultTransition: "color"},
				},
			},
			{
				ID:    "color",
				Title: "Color",
				Fields: []elicdomain.Field{
					{Name: "color", Kind: elicdomain.FieldKindChoice, Required: true, Options: []string{"red", "blue"}},
				},
				Next: map[string]map[string]string{
					"color": {domain.DefaultTransition: "confirm"},
				},
			},
			{
				ID:    "confirm",
				Title: "Confirm",
				Fields: []elicdomain.Field{
					{Name: "confirm", Kind: elicdomain.FieldKindConfirmation, Required: true},
				},
			},
		},
	}
}

var _ = Describe("Manager", func() {
	var (
		elicitations *elicitation.Manager
		manager      *workflow.Manager
	)

	newManager := func(maxActive int) *workflow.Manager {
		registry := workflow.NewDefinitionRegistry()
		Expect(registry.Register(linearWorkflow())).To(Succeed())
		return workflow.NewManager(registry, elicitations, config.WorkflowConfig{
			StepTimeout:        time.Minute,
			MaxActiveInstances: maxActive,
		}, createTestLogger())
	}

	BeforeEach(func() {
		elicitations = elicitation.NewManager(config.ElicitationConfig{
			DefaultTimeout: time.Minute,
			MaxPending:     64,
		}, createTestLogger())
		manager = newManager(8)
	})

	Describe("Start", func() {
		It("should position the instance at the initial step and issue its request", func() {
			state, request, err := manager.Start("linear", map[string]string{"seed": "x"})
			Expect(err).NotTo(HaveOccurred())

			Expect(state.CurrentStepID()).To(Equal("name"))
			Expect(state.Status()).To(Equal(domain.InstanceStatusActive))
			Expect(manager.ActiveCount()).To(Equal(1))

			Expect(request.Status()).To(Equal(elicdomain.RequestStatusPending))
			instanceID, ok := request.ContextValue(workflow.ContextKeyInstanceID)
			Expect(ok).To(BeTrue())
			Expect(instanceID).To(Equal(state.InstanceID()))

			workflowID, _ := request.ContextValue(workflow.ContextKeyWorkflowID)
			Expect(workflowID).To(Equal("linear"))
			stepID, _ := request.ContextValue(workflow.ContextKeyStepID)
			Expect(stepID).To(Equal("name"))
		})

		It("should reject an unknown workflow id", func() {
			_, _, err := manager.Start("missing", nil)
			Expect(err).To(MatchError(domain.ErrWorkflowNotFound))
		})

		It("should enforce the active instance cap", func() {
			limited := newManager(1)

			_, _, err := limited.Start("linear", nil)
			Expect(err).NotTo(HaveOccurred())

			_, _, err = limited.Start("linear", nil)
			Expect(err).To(MatchError(domain.ErrTooManyInstances))
		})

		It("should free capacity when an instance terminates", func() {
			limited := newManager(1)

			state, _, err := limited.Start("linear", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(limited.Abort(state.InstanceID())).To(Succeed())

			_, _, err = limited.Start("linear", nil)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("HandleResponse", func() {
		var (
			instanceID   string
			firstRequest *elicdomain.ElicitationRequest
		)

		BeforeEach(func() {
			state, request, err := manager.Start("linear", nil)
			Expect(err).NotTo(HaveOccurred())
			instanceID = state.InstanceID()
			firstRequest = request
		})

		It("should advance through the steps and complete", func() {
			outcome, err := manager.HandleResponse(instanceID, map[string]string{"name": "orders"})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Completed).To(BeFalse())
			Expect(outcome.CurrentStepID).To(Equal("color"))
			Expect(outcome.Request).NotTo(BeNil())

			outcome, err = manager.HandleResponse(instanceID, map[string]string{"color": "red"})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.CurrentStepID).To(Equal("confirm"))

			outcome, err = manager.HandleResponse(instanceID, map[string]string{"confirm": "true"})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Completed).To(BeTrue())
			Expect(outcome.Values).To(Equal(map[string]string{
				"name.name":       "orders",
				"color.color":     "red",
				"confirm.confirm": "true",
			}))

			state, err := manager.Status(instanceID)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Status()).To(Equal(domain.InstanceStatusCompleted))
			Expect(state.History()).To(Equal([]string{"name", "color", "confirm"}))
		})

		It("should cancel the superseded step request on advance", func() {
			_, err := manager.HandleResponse(instanceID, map[string]string{"name": "orders"})
			Expect(err).NotTo(HaveOccurred())

			request, _, err := elicitations.Get(firstRequest.ID())
			Expect(err).NotTo(HaveOccurred())
			Expect(request.Status()).To(Equal(elicdomain.RequestStatusCancelled))
		})

		It("should fire completion handlers with the accumulated values", func() {
			var gotInstance string
			var gotValues map[string]string
			manager.OnComplete("linear", func(id string, values map[string]string) {
				gotInstance = id
				gotValues = values
			})

			_, err := manager.HandleResponse(instanceID, map[string]string{"name": "orders"})
			Expect(err).NotTo(HaveOccurred())
			_, err = manager.HandleResponse(instanceID, map[string]string{"color": "blue"})
			Expect(err).NotTo(HaveOccurred())
			_, err = manager.HandleResponse(instanceID, map[string]string{"confirm": "false"})
			Expect(err).NotTo(HaveOccurred())

			Expect(gotInstance).To(Equal(instanceID))
			Expect(gotValues).To(HaveKeyWithValue("color.color", "blue"))
		})

		It("should leave the instance untouched on a validation failure", func() {
			_, err := manager.HandleResponse(instanceID, map[string]string{"name": "orders"})
			Expect(err).NotTo(HaveOccurred())

			_, err = manager.HandleResponse(instanceID, map[string]string{"color": "green"})
			Expect(elicdomain.IsValidationError(err)).To(BeTrue())

			state, err := manager.Status(instanceID)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Status()).To(Equal(domain.InstanceStatusActive))
			Expect(state.CurrentStepID()).To(Equal("color"))

			_, err = manager.HandleResponse(instanceID, map[string]string{"color": "blue"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should ignore reserved underscore keys during validation", func() {
			outcome, err := manager.HandleResponse(instanceID, map[string]string{
				"name":  "orders",
				"_hint": "ignored",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.CurrentStepID).To(Equal("color"))

			state, err := manager.Status(instanceID)
			Expect(err).NotTo(HaveOccurred())
			_, ok := state.Value("name._hint")
			Expect(ok).To(BeFalse())
		})

		It("should return not-found for an unknown instance", func() {
			_, err := manager.HandleResponse("missing", map[string]string{"name": "x"})
			Expect(err).To(MatchError(domain.ErrInstanceNotFound))
		})

		Context("back navigation", func() {
			BeforeEach(func() {
				_, err := manager.HandleResponse(instanceID, map[string]string{"name": "orders"})
				Expect(err).NotTo(HaveOccurred())
			})

			It("should restore the previous step with prior answers as defaults", func() {
				outcome, err := manager.HandleResponse(instanceID, map[string]string{
					domain.ActionKey: domain.ActionBack,
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome.Completed).To(BeFalse())
				Expect(outcome.CurrentStepID).To(Equal("name"))

				fields := outcome.Request.Fields()
				Expect(fields).To(HaveLen(1))
				Expect(fields[0].Default).To(Equal("orders"))

				state, err := manager.Status(instanceID)
				Expect(err).NotTo(HaveOccurred())
				Expect(state.History()).To(BeEmpty())
			})

			It("should discard values submitted alongside the back action", func() {
				_, err := manager.HandleResponse(instanceID, map[string]string{
					domain.ActionKey: domain.ActionBack,
					"color":          "red",
				})
				Expect(err).NotTo(HaveOccurred())

				state, err := manager.Status(instanceID)
				Expect(err).NotTo(HaveOccurred())
				_, ok := state.Value("color.color")
				Expect(ok).To(BeFalse())
			})

			It("should refuse back navigation at the initial step", func() {
				_, err := manager.HandleResponse(instanceID, map[string]string{
					domain.ActionKey: domain.ActionBack,
				})
				Expect(err).NotTo(HaveOccurred())

				_, err = manager.HandleResponse(instanceID, map[string]string{
					domain.ActionKey: domain.ActionBack,
				})
				Expect(err).To(MatchError(domain.ErrNoHistory))
			})

			It("should allow moving forward again after going back", func() {
				_, err := manager.HandleResponse(instanceID, map[string]string{
					domain.ActionKey: domain.ActionBack,
				})
				Expect(err).NotTo(HaveOccurred())

				outcome, err := manager.HandleResponse(instanceID, map[string]string{"name": "payments"})
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome.CurrentStepID).To(Equal("color"))

				state, err := manager.Status(instanceID)
				Expect(err).NotTo(HaveOccurred())
				value, ok := state.Value("name.name")
				Expect(ok).To(BeTrue())
				Expect(value).To(Equal("payments"))
			})
		})

		Context("with a transition table gap", func() {
			var gappedManager *workflow.Manager
			var gappedInstance string

			BeforeEach(func() {
				registry := workflow.NewDefinitionRegistry()
				gapped := linearWorkflow()
				gapped.ID = "gapped"
				gapped.Steps[1].Next = map[string]map[string]string{
					"color": {"red": "confirm"},
				}
				Expect(registry.Register(gapped)).To(Succeed())

				gappedManager = workflow.NewManager(registry, elicitations, config.WorkflowConfig{
					StepTimeout:        time.Minute,
					MaxActiveInstances: 8,
				}, createTestLogger())

				state, _, err := gappedManager.Start("gapped", nil)
				Expect(err).NotTo(HaveOccurred())
				gappedInstance = state.InstanceID()

				_, err = gappedManager.HandleResponse(gappedInstance, map[string]string{"name": "orders"})
				Expect(err).NotTo(HaveOccurred())
			})

			It("should abort the instance on an unresolvable transition", func() {
				_, err := gappedManager.HandleResponse(gappedInstance, map[string]string{"color": "blue"})
				Expect(domain.IsTransitionError(err)).To(BeTrue())

				state, err := gappedManager.Status(gappedInstance)
				Expect(err).NotTo(HaveOccurred())
				Expect(state.Status()).To(Equal(domain.InstanceStatusAborted))

				_, err = gappedManager.HandleResponse(gappedInstance, map[string]string{"color": "red"})
				Expect(err).To(MatchError(domain.ErrInstanceNotActive))
			})
		})
	})

	Describe("Abort", func() {
		It("should terminate the instance and cancel its pending request", func() {
			state, request, err := manager.Start("linear", nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(manager.Abort(state.InstanceID())).To(Succeed())

			stored, err := manager.Status(state.InstanceID())
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status()).To(Equal(domain.InstanceStatusAborted))
			Expect(manager.ActiveCount()).To(BeZero())

			cancelled, _, err := elicitations.Get(request.ID())
			Expect(err).NotTo(HaveOccurred())
			Expect(cancelled.Status()).To(Equal(elicdomain.RequestStatusCancelled))
		})

		It("should reject aborting a terminal instance", func() {
			state, _, err := manager.Start("linear", nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(manager.Abort(state.InstanceID())).To(Succeed())
			Expect(manager.Abort(state.InstanceID())).To(MatchError(domain.ErrInstanceNotActive))
		})

		It("should return not-found for an unknown instance", func() {
			Expect(manager.Abort("missing")).To(MatchError(domain.ErrInstanceNotFound))
		})
	})

	Describe("Status", func() {
		It("should return a snapshot unaffected by later step handling", func() {
			state, _, err := manager.Start("linear", nil)
			Expect(err).NotTo(HaveOccurred())
			instanceID := state.InstanceID()

			snapshot, err := manager.Status(instanceID)
			Expect(err).NotTo(HaveOccurred())
			Expect(snapshot.CurrentStepID()).To(Equal("name"))
			Expect(snapshot.Values()).To(BeEmpty())

			_, err = manager.HandleResponse(instanceID, map[string]string{"name": "orders"})
			Expect(err).NotTo(HaveOccurred())

			// The earlier snapshot keeps the step and values it was taken with.
			Expect(snapshot.CurrentStepID()).To(Equal("name"))
			Expect(snapshot.History()).To(BeEmpty())
			Expect(snapshot.Values()).To(BeEmpty())

			fresh, err := manager.Status(instanceID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.CurrentStepID()).To(Equal("color"))
			Expect(fresh.Values()).To(HaveKeyWithValue("name.name", "orders"))
		})
	})

	Describe("PruneTerminated", func() {
		It("should evict terminal instances past the retention window", func() {
			registry := workflow.NewDefinitionRegistry()
			Expect(registry.Register(linearWorkflow())).To(Succeed())
			pruning := workflow.NewManager(registry, elicitations, config.WorkflowConfig{
				StepTimeout:        time.Minute,
				MaxActiveInstances: 8,
				Retention:          time.Millisecond,
			}, createTestLogger())

			aborted, _, err := pruning.Start("linear", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(pruning.Abort(aborted.InstanceID())).To(Succeed())

			active, _, err := pruning.Start("linear", nil)
			Expect(err).NotTo(HaveOccurred())

			time.Sleep(5 * time.Millisecond)

			Expect(pruning.PruneTerminated()).To(Equal(1))

			_, err = pruning.Status(aborted.InstanceID())
			Expect(err).To(MatchError(domain.ErrInstanceNotFound))

			state, err := pruning.Status(active.InstanceID())
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Status()).To(Equal(domain.InstanceStatusActive))
		})

		It("should keep recently terminated instances within the window", func() {
			state, _, err := manager.Start("linear", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(manager.Abort(state.InstanceID())).To(Succeed())

			// Default retention is far longer than this test.
			Expect(manager.PruneTerminated()).To(BeZero())

			_, err = manager.Status(state.InstanceID())
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("request shape", func() {
		It("should issue single-field steps as their field kind", func() {
			_, request, err := manager.Start("linear", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(request.Kind()).To(Equal(elicdomain.RequestKindText))
			Expect(request.AllowMultiple()).To(BeFalse())
		})

		It("should issue multi-field steps as incremental forms", func() {
			registry := workflow.NewDefinitionRegistry()
			Expect(registry.Register(&domain.MultiStepWorkflow{
				ID:          "form",
				Name:        "Form Flow",
				InitialStep: "details",
				Steps: []domain.WorkflowStep{
					{
						ID:    "details",
						Title: "Details",
						Fields: []elicdomain.Field{
							{Name: "subject", Kind: elicdomain.FieldKindText, Required: true},
							{Name: "schema", Kind: elicdomain.FieldKindText, Required: true},
						},
					},
				},
			})).To(Succeed())

			formManager := workflow.NewManager(registry, elicitations, config.WorkflowConfig{
				StepTimeout:        time.Minute,
				MaxActiveInstances: 8,
			}, createTestLogger())

			_, request, err := formManager.Start("form", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(request.Kind()).To(Equal(elicdomain.RequestKindForm))
			Expect(request.AllowMultiple()).To(BeTrue())
		})
	})
})
