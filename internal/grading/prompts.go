package grading

import (
	"fmt"
	"strings"

	"github.com/noah-isme/mathgrade-go-api/internal/dto"
)

const gradingSystemPrompt = `You are an experienced math teacher grading student homework.
Read the submitted work carefully, identify every question and the student's answer,
and judge correctness. Show partial credit only when the answer key allows it.
Respond with a single strict JSON object matching this shape:
{"student_name": "<name if visible, else empty>",
 "name_confidence": <0 to 1, how sure you are about the detected name>,
 "extracted_text": "<transcription of the work>",
 "overall_feedback": "<short encouraging summary>",
 "questions": [{"question_number": 1, "question_text": "...",
   "student_answer": "...", "correct_answer": "...", "is_correct": true,
   "points_earned": 1, "points_possible": 1, "confidence": 0.95,
   "feedback": "..."}]}
Any text outside the JSON object is an error.`

// buildGradingPrompt assembles the user prompt from the OCR transcription,
// the answer key and the request options.
func buildGradingPrompt(req *dto.GradingRequest, extractedText string) string {
	var b strings.Builder

	b.WriteString("Grade the math homework in the attached image.\n")

	if extractedText != "" {
		b.WriteString("\nAn OCR pass produced this transcription of the work. ")
		b.WriteString("Trust the image where they disagree:\n")
		b.WriteString(extractedText)
		b.WriteString("\n")
	}

	if key := req.AnswerKey; key != nil && len(key.Answers) > 0 {
		b.WriteString("\nGrade against this answer key:\n")
		for _, a := range key.Answers {
			points := a.Points
			if points <= 0 {
				points = 1
			}
			fmt.Fprintf(&b, "  Q%d: %s (%.4g points)\n", a.QuestionNumber, a.CorrectAnswer, points)
		}
		if key.TotalQuestions > 0 {
			fmt.Fprintf(&b, "The submission should contain %d questions.\n", key.TotalQuestions)
		}
		b.WriteString("Treat mathematically equivalent forms as correct (1/2 equals 0.5 equals 50%).\n")
	} else {
		b.WriteString("\nNo answer key was provided. Work out the correct answer for each question yourself and grade independently.\n")
	}

	if req.Options.GenerateFeedback {
		b.WriteString("Write brief constructive feedback for each question and an overall summary.\n")
	} else {
		b.WriteString("Leave feedback fields empty.\n")
	}

	if req.Options.ExtractStudentName {
		b.WriteString("If a student name is written on the page, include it in student_name and report name_confidence between 0 and 1. Use 0 when no name is visible.\n")
	}

	b.WriteString("Return JSON only.")
	return b.String()
}
