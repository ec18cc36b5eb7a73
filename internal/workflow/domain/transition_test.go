//go:build !integration

package domain_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	elicitation "github.com/schemactl/schema-registry-mcp/internal/elicitation/domain"
	"github.com/schemactl/schema-registry-mcp/internal/workflow/domain"
)

var _ = Describe("ResolveNext", func() {
	step := domain.WorkflowStep{
		ID: "pick",
		Fields: []elicitation.Field{
			{Name: "choice", Kind: elicitation.FieldKindChoice, Options: []string{"a", "b", "c"}},
		},
		Next: map[string]map[string]string{
			"choice": {
				"a":                      "step_a",
				domain.DefaultTransition: "step_other",
			},
		},
	}

	It("should follow an exact value match", func() {
		next, err := domain.ResolveNext("wf", step, nil, map[string]string{"choice": "a"})
		Expect(err).NotTo(HaveOccurred())
		Expect(next).To(Equal("step_a"))
	})

	It("should fall back to the default entry for unmapped values", func() {
		next, err := domain.ResolveNext("wf", step, nil, map[string]string{"choice": "b"})
		Expect(err).NotTo(HaveOccurred())
		Expect(next).To(Equal("step_other"))
	})

	It("should end the workflow when the step has no transitions", func() {
		terminal := domain.WorkflowStep{
			ID:     "last",
			Fields: []elicitation.Field{{Name: "note", Kind: elicitation.FieldKindText}},
		}
		next, err := domain.ResolveNext("wf", terminal, nil, map[string]string{"note": "done"})
		Expect(err).NotTo(HaveOccurred())
		Expect(next).To(Equal(domain.TerminalStep))
	})

	It("should surface a transition error when no value or default matches", func() {
		gapped := domain.WorkflowStep{
			ID: "pick",
			Fields: []elicitation.Field{
				{Name: "choice", Kind: elicitation.FieldKindChoice, Options: []string{"a", "b"}},
			},
			Next: map[string]map[string]string{
				"choice": {"a": "step_a"},
			},
		}
		_, err := domain.ResolveNext("wf", gapped, nil, map[string]string{"choice": "b"})
		Expect(err).To(HaveOccurred())
		Expect(domain.IsTransitionError(err)).To(BeTrue())
	})

	Describe("condition rules", func() {
		conditioned := domain.WorkflowStep{
			ID: "target_level",
			Fields: []elicitation.Field{
				{Name: "target_level", Kind: elicitation.FieldKindChoice, Options: []string{"BACKWARD", "NONE"}},
			},
			Conditions: []domain.ConditionRule{
				{Field: "target_level", Op: domain.ConditionOpEq, Value: "NONE", Then: "confirm_none"},
			},
			Next: map[string]map[string]string{
				"target_level": {domain.DefaultTransition: "dry_run"},
			},
		}

		It("should let a firing condition override the transition table", func() {
			values := map[string]string{"target_level.target_level": "NONE"}
			next, err := domain.ResolveNext("wf", conditioned, values, map[string]string{"target_level": "NONE"})
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal("confirm_none"))
		})

		It("should fall through to the table when no condition fires", func() {
			values := map[string]string{"target_level.target_level": "BACKWARD"}
			next, err := domain.ResolveNext("wf", conditioned, values, map[string]string{"target_level": "BACKWARD"})
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal("dry_run"))
		})

		It("should evaluate rules in declaration order", func() {
			multi := domain.WorkflowStep{
				ID: "s",
				Fields: []elicitation.Field{
					{Name: "f", Kind: elicitation.FieldKindText},
				},
				Conditions: []domain.ConditionRule{
					{Field: "f", Op: domain.ConditionOpExists, Then: "first"},
					{Field: "f", Op: domain.ConditionOpEq, Value: "x", Then: "second"},
				},
			}
			values := map[string]string{"s.f": "x"}
			next, err := domain.ResolveNext("wf", multi, values, map[string]string{"f": "x"})
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal("first"))
		})

		It("should resolve namespaced keys across steps", func() {
			cross := domain.WorkflowStep{
				ID: "later",
				Fields: []elicitation.Field{
					{Name: "f", Kind: elicitation.FieldKindText},
				},
				Conditions: []domain.ConditionRule{
					{Field: "earlier.answer", Op: domain.ConditionOpEq, Value: "yes", Then: domain.TerminalStep},
				},
				Next: map[string]map[string]string{
					"f": {domain.DefaultTransition: "later"},
				},
			}
			values := map[string]string{"earlier.answer": "yes", "later.f": "whatever"}
			next, err := domain.ResolveNext("wf", cross, values, map[string]string{"f": "whatever"})
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal(domain.TerminalStep))
		})

		It("should treat absent as firing only when the key is missing", func() {
			rule := domain.ConditionRule{Field: "missing.key", Op: domain.ConditionOpAbsent, Then: "fallback"}
			gated := domain.WorkflowStep{
				ID:         "s",
				Fields:     []elicitation.Field{{Name: "f", Kind: elicitation.FieldKindText}},
				Conditions: []domain.ConditionRule{rule},
				Next: map[string]map[string]string{
					"f": {domain.DefaultTransition: "s"},
				},
			}

			next, err := domain.ResolveNext("wf", gated, map[string]string{}, map[string]string{"f": "v"})
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal("fallback"))

			next, err = domain.ResolveNext("wf", gated, map[string]string{"missing.key": "here"}, map[string]string{"f": "v"})
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal("s"))
		})
	})
})

var _ = Describe("NamespacedKey", func() {
	It("should join step and field with a dot", func() {
		Expect(domain.NamespacedKey("subject", "subject")).To(Equal("subject.subject"))
	})
})
