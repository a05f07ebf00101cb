package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// AnswerKey is the decoded form of Question.AnswerData. Each automatically
// gradable question type has its own variant; consumers switch exhaustively on
// the concrete type instead of probing raw JSON fields.
type AnswerKey interface {
	isAnswerKey()
}

type MultipleChoiceKey struct {
	CorrectAnswer int      `json:"correctAnswer"`
	Answers       []string `json:"answers"`
}

type TrueFalseKey struct {
	CorrectAnswer bool `json:"correctAnswer"`
}

type ParsonsProblemKey struct {
	Answers       []string `json:"answers"`
	CorrectAnswer []int    `json:"correctAnswer"`
}

func (MultipleChoiceKey) isAnswerKey() {}
func (TrueFalseKey) isAnswerKey()      {}
func (ParsonsProblemKey) isAnswerKey() {}

// DecodeAnswerKey decodes raw answer data for the given question type. Types
// without an answer key (short answer, coding) return nil with no error.
func DecodeAnswerKey(qType QuestionType, raw datatypes.JSON) (AnswerKey, error) {
	switch qType {
	case MultipleChoice:
		var key MultipleChoiceKey
		if err := json.Unmarshal(raw, &key); err != nil {
			return nil, fmt.Errorf("decode multiple choice answer data: %w", err)
		}
		return key, nil
	case TrueFalse:
		var key TrueFalseKey
		if err := json.Unmarshal(raw, &key); err != nil {
			return nil, fmt.Errorf("decode true/false answer data: %w", err)
		}
		return key, nil
	case ParsonsProblem:
		var key ParsonsProblemKey
		if err := json.Unmarshal(raw, &key); err != nil {
			return nil, fmt.Errorf("decode parsons problem answer data: %w", err)
		}
		return key, nil
	case ShortAnswer, CodingAnswer:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported question type: %s", qType)
	}
}

// PublicAnswerData strips the correct answer out of raw answer data so learner
// question payloads never leak the key. Choice options stay visible because the
// UI needs them to render the question.
func PublicAnswerData(qType QuestionType, raw datatypes.JSON) (datatypes.JSON, error) {
	key, err := DecodeAnswerKey(qType, raw)
	if err != nil {
		return nil, err
	}

	switch k := key.(type) {
	case MultipleChoiceKey:
		out, err := json.Marshal(map[string]any{"answers": k.Answers})
		return datatypes.JSON(out), err
	case ParsonsProblemKey:
		out, err := json.Marshal(map[string]any{"answers": k.Answers})
		return datatypes.JSON(out), err
	case TrueFalseKey:
		return datatypes.JSON([]byte(`{}`)), nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported answer key type %T", key)
	}
}
