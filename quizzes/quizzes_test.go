package quizzes_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/solace-health/therapy/quizzes"
)

var _ = Describe("Quiz", func() {
	Describe("Active", func() {
		It("treats a missing flag as active", func() {
			Expect((&quizzes.Quiz{}).Active()).To(BeTrue())
		})

		It("respects an explicit flag", func() {
			active := false
			Expect((&quizzes.Quiz{IsActive: &active}).Active()).To(BeFalse())

			active = true
			Expect((&quizzes.Quiz{IsActive: &active}).Active()).To(BeTrue())
		})
	})

	Describe("DurationMinutes", func() {
		It("prefers the authored estimate", func() {
			minutes := 25
			quiz := &quizzes.Quiz{EstimatedMinutes: &minutes, QuestionCount: 100}
			Expect(quiz.DurationMinutes()).To(Equal(25))
		})

		It("estimates from the question count", func() {
			Expect((&quizzes.Quiz{QuestionCount: 10}).DurationMinutes()).To(Equal(15))
			Expect((&quizzes.Quiz{QuestionCount: 9}).DurationMinutes()).To(Equal(14))
		})

		It("never goes below five minutes", func() {
			Expect((&quizzes.Quiz{QuestionCount: 1}).DurationMinutes()).To(Equal(5))
			Expect((&quizzes.Quiz{}).DurationMinutes()).To(Equal(5))
		})
	})
})
