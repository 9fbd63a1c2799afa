package grading

import "github.com/santhosh-tekuri/jsonschema/v5"

// gradingSchema constrains the model's grading payload. Validation happens
// before any score math so a malformed response fails loudly instead of
// producing a half-filled result.
const gradingSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["questions"],
  "properties": {
    "student_name": {"type": "string"},
    "name_confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "extracted_text": {"type": "string"},
    "overall_feedback": {"type": "string"},
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question_number", "student_answer", "is_correct"],
        "properties": {
          "question_number": {"type": "integer", "minimum": 1},
          "question_text": {"type": "string"},
          "student_answer": {"type": "string"},
          "correct_answer": {"type": "string"},
          "is_correct": {"type": "boolean"},
          "points_earned": {"type": "number", "minimum": 0},
          "points_possible": {"type": "number", "minimum": 0},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "feedback": {"type": "string"}
        }
      }
    }
  }
}`

var compiledGradingSchema = jsonschema.MustCompileString("grading.schema.json", gradingSchema)
