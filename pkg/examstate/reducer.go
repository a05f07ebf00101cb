package examstate

// Action is one state transition request.
type Action interface {
	isAction()
}

// ===== BULK LOADS =====

type ReplaceQuestions struct{ Questions []Question }

type ReplaceResponses struct{ Responses []Response }

type ReplaceFeedback struct{ Feedback []Feedback }

type ReplaceConfidence struct{ Confidence []Confidence }

// ===== SINGLE-ITEM MERGES =====

type UpsertResponse struct{ Response Response }

type UpsertFeedback struct{ Feedback Feedback }

type UpsertConfidence struct{ Confidence Confidence }

// ===== WORKFLOW / SESSION =====

type SetResponseState struct{ Value string }

type SetToken struct{ Token string }

// Reset clears every collection and the workflow phase but keeps the session
// token.
type Reset struct{}

// Batch applies its actions in order as one visible transition.
type Batch struct{ Actions []Action }

func (ReplaceQuestions) isAction()  {}
func (ReplaceResponses) isAction()  {}
func (ReplaceFeedback) isAction()   {}
func (ReplaceConfidence) isAction() {}
func (UpsertResponse) isAction()    {}
func (UpsertFeedback) isAction()    {}
func (UpsertConfidence) isAction()  {}
func (SetResponseState) isAction()  {}
func (SetToken) isAction()          {}
func (Reset) isAction()             {}
func (Batch) isAction()             {}

// Reduce returns the state after applying action. It is pure: the input state
// is never mutated, unknown actions return it unchanged.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case ReplaceQuestions:
		next := NewCollection[Question]()
		for _, q := range a.Questions {
			next = next.set(q.ID, q)
		}
		state.Questions = next
		return state

	case ReplaceResponses:
		next := NewCollection[Response]()
		for _, r := range a.Responses {
			next = next.set(SubmissionKey(r.UserID, r.QuestionID), r)
		}
		state.Responses = next
		return state

	case ReplaceFeedback:
		next := NewCollection[Feedback]()
		for _, f := range a.Feedback {
			next = next.set(f.QuestionID, f)
		}
		state.Feedback = next
		return state

	case ReplaceConfidence:
		next := NewCollection[Confidence]()
		for _, c := range a.Confidence {
			next = next.set(c.QuestionID, c)
		}
		state.Confidence = next
		return state

	case UpsertResponse:
		state.Responses = state.Responses.set(SubmissionKey(a.Response.UserID, a.Response.QuestionID), a.Response)
		return state

	case UpsertFeedback:
		state.Feedback = state.Feedback.set(a.Feedback.QuestionID, a.Feedback)
		return state

	case UpsertConfidence:
		state.Confidence = state.Confidence.set(a.Confidence.QuestionID, a.Confidence)
		return state

	case SetResponseState:
		state.ResponseState = a.Value
		return state

	case SetToken:
		state.Token = a.Token
		return state

	case Reset:
		token := state.Token
		rev := state.Rev
		next := NewState()
		next.Token = token
		next.Rev = rev
		return next

	case Batch:
		for _, inner := range a.Actions {
			state = Reduce(state, inner)
		}
		return state

	default:
		return state
	}
}
