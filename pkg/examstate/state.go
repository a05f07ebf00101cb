// Package examstate is the client-side mirror of the exam API: a normalized
// state value evolved by pure reducers, with a small store serializing
// mutations for UI consumers.
package examstate

import "encoding/json"

// StudentSentinel is the user key under which a learner's own submissions are
// filed when no explicit user id is known client-side.
const StudentSentinel = "student"

// Collection is a normalized entity set: insertion-ordered ids plus a lookup
// map. It is treated as immutable; reducers copy before writing.
type Collection[T any] struct {
	IDs  []string     `json:"ids"`
	ByID map[string]T `json:"by_id"`
}

// NewCollection returns an empty collection.
func NewCollection[T any]() Collection[T] {
	return Collection[T]{ByID: map[string]T{}}
}

// clone copies the collection one level deep.
func (c Collection[T]) clone() Collection[T] {
	out := Collection[T]{
		IDs:  make([]string, len(c.IDs)),
		ByID: make(map[string]T, len(c.ByID)),
	}
	copy(out.IDs, c.IDs)
	for k, v := range c.ByID {
		out.ByID[k] = v
	}
	return out
}

// set upserts an item under id, appending to IDs only when new.
func (c Collection[T]) set(id string, item T) Collection[T] {
	out := c.clone()
	if _, exists := out.ByID[id]; !exists {
		out.IDs = append(out.IDs, id)
	}
	out.ByID[id] = item
	return out
}

// Get returns the item under id.
func (c Collection[T]) Get(id string) (T, bool) {
	item, ok := c.ByID[id]
	return item, ok
}

// Len returns the number of items.
func (c Collection[T]) Len() int {
	return len(c.IDs)
}

// ===== ENTITIES =====

// Question mirrors the server's learner question payload.
type Question struct {
	ID             string          `json:"id"`
	Text           string          `json:"text"`
	Type           string          `json:"type"`
	AnswerData     json.RawMessage `json:"answer_data"`
	PointsPossible int             `json:"points_possible"`
}

// Response is one stored answer, keyed client-side by (user, question).
type Response struct {
	QuestionID     string `json:"question_id"`
	UserID         string `json:"user_id"`
	IsTextResponse bool   `json:"is_text_response"`
	TextResponse   string `json:"text_response"`
	AnswerResponse string `json:"answer_response"`
}

// Feedback is the grading state visible for one question.
type Feedback struct {
	QuestionID   string `json:"question_id"`
	Feedback     string `json:"feedback"`
	ScoredPoints *int   `json:"scored_points"`
}

// Confidence is a self-reported rating for one question.
type Confidence struct {
	QuestionID string `json:"question_id"`
	Rating     int    `json:"rating"`
}

// SubmissionKey files a response under its owning user, defaulting to the
// student sentinel.
func SubmissionKey(userID, questionID string) string {
	if userID == "" {
		userID = StudentSentinel
	}
	return userID + "/" + questionID
}

// State is the whole client state. It is a value; reducers return fresh
// copies and never mutate their input.
type State struct {
	Questions  Collection[Question]   `json:"questions"`
	Responses  Collection[Response]   `json:"responses"`
	Feedback   Collection[Feedback]   `json:"feedback"`
	Confidence Collection[Confidence] `json:"confidence"`

	// ResponseState tracks the submission workflow phase shown to the user.
	ResponseState string `json:"response_state"`

	// Token is the session bearer token. Reset keeps it.
	Token string `json:"token"`

	// Rev identifies the state value; the store bumps it once per visible
	// transition (a batch is one transition).
	Rev uint64 `json:"-"`
}

// NewState returns an empty state.
func NewState() State {
	return State{
		Questions:  NewCollection[Question](),
		Responses:  NewCollection[Response](),
		Feedback:   NewCollection[Feedback](),
		Confidence: NewCollection[Confidence](),
	}
}
