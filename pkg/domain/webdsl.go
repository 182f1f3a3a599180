package domain

// WebDSL is a declarative blueprint of a page: a flat element list forming a
// tree through ParentID, named states, event bindings and narrative flows.
type WebDSL struct {
	Description string       `json:"description"`
	Title       string       `json:"title"`
	Elements    []DSLElement `json:"elements"`
	States      []DSLState   `json:"states"`
	Flows       []DSLFlow    `json:"flows"`
}

// DSLElement is one node of the element tree.
type DSLElement struct {
	ID            string            `json:"id"`
	ParentID      string            `json:"parentId,omitempty"`
	ElementType   string            `json:"elementType"`
	Content       string            `json:"content,omitempty"`
	Functionality string            `json:"functionality,omitempty"`
	ClassName     []string          `json:"className,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Events        []DSLEvent        `json:"events,omitempty"`
}

// DSLState is a named piece of page state.
type DSLState struct {
	Name         string `json:"name"`
	InitialValue string `json:"initialValue"`
	Description  string `json:"description,omitempty"`
}

// DSLEvent binds a user event on an element to its effects.
type DSLEvent struct {
	Type               string      `json:"type"`
	HandlerDescription string      `json:"handlerDescription"`
	Affects            []DSLEffect `json:"affects,omitempty"`
}

// DSLEffect targets an element id or a state name.
type DSLEffect struct {
	Target  string `json:"target"`
	Action  string `json:"action"`
	Details string `json:"details,omitempty"`
}

// DSLFlow is a narrative user journey.
type DSLFlow struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Steps       []string `json:"steps"`
}

// Children returns the elements whose parent is id. An empty id selects roots.
func (d *WebDSL) Children(id string) []DSLElement {
	if d == nil {
		return nil
	}
	var out []DSLElement
	for _, e := range d.Elements {
		if e.ParentID == id {
			out = append(out, e)
		}
	}
	return out
}

// IsEmpty reports whether the blueprint describes nothing.
func (d *WebDSL) IsEmpty() bool {
	return d == nil || (len(d.Elements) == 0 && len(d.States) == 0 && len(d.Flows) == 0)
}
