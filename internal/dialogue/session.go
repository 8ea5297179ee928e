package dialogue

import (
	"slices"

	"github.com/google/uuid"
)

// Field is one collected value.
type Field struct {
	ID    string
	Value string
}

// Values is an insertion-ordered field map.
type Values struct {
	order []string
	byID  map[string]string
}

// NewValues returns an empty value set.
func NewValues() *Values {
	return &Values{byID: map[string]string{}}
}

// Set stores value under id, keeping the original position when id already exists.
func (v *Values) Set(id string, value string) {
	if _, ok := v.byID[id]; !ok {
		v.order = append(v.order, id)
	}
	v.byID[id] = value
}

// Get returns the value for id.
func (v *Values) Get(id string) (string, bool) {
	value, ok := v.byID[id]
	return value, ok
}

// Value returns the value for id or "".
func (v *Values) Value(id string) string {
	return v.byID[id]
}

// Len returns the number of collected fields.
func (v *Values) Len() int {
	return len(v.order)
}

// Fields returns the collected fields in collection order.
func (v *Values) Fields() []Field {
	fields := make([]Field, 0, len(v.order))
	for _, id := range v.order {
		fields = append(fields, Field{ID: id, Value: v.byID[id]})
	}
	return fields
}

// Delete removes ids.
func (v *Values) Delete(ids ...string) {
	for _, id := range ids {
		if _, ok := v.byID[id]; !ok {
			continue
		}
		delete(v.byID, id)
		v.order = slices.DeleteFunc(v.order, func(existing string) bool { return existing == id })
	}
}

// Clear removes every value.
func (v *Values) Clear() {
	v.order = nil
	v.byID = map[string]string{}
}

// Session is the mutable state of one flow run. It is owned by the controller
// and dropped when the run returns.
type Session struct {
	ID     string
	Flow   string
	Step   int
	Values *Values
}

func newSession(flow string) *Session {
	return &Session{ID: uuid.NewString(), Flow: flow, Values: NewValues()}
}

// restart clears everything and goes back to the first step.
func (s *Session) restart() {
	s.Step = 0
	s.Values.Clear()
}

// rewind re-enters at step index, clearing values collected from there on.
func (s *Session) rewind(steps []Step, index int) {
	if index < 0 {
		s.restart()
		return
	}
	for _, step := range steps[index:] {
		s.Values.Delete(step.ID)
	}
	s.Step = index
}

// displayFields returns the collected fields with masked steps obscured.
func (s *Session) displayFields(steps []Step) []Field {
	fields := s.Values.Fields()
	for i, field := range fields {
		for _, step := range steps {
			if step.ID == field.ID {
				fields[i].Value = step.display(field.Value)
			}
		}
	}
	return fields
}
