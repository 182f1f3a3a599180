package domain

import "errors"

// ErrNextNotSet is returned by the router when the state carries no action.
var ErrNextNotSet = errors.New("'next' state field not set")

// ErrUnknownAction is returned when the router receives an action without a node.
var ErrUnknownAction = errors.New("unknown action")

// ErrNoHumanMessage is returned when a node needs the latest human turn and there is none.
var ErrNoHumanMessage = errors.New("no human message found")

// ErrNoArtifact is returned by nodes that rewrite an existing artifact.
var ErrNoArtifact = errors.New("no artifact found")

// ErrNoThemeSelected is returned when a theme rewrite carries no selector.
var ErrNoThemeSelected = errors.New("no theme selected")

// ErrNoCodeActionSelected is returned when a code rewrite carries no selector.
var ErrNoCodeActionSelected = errors.New("no code action selected")

// ErrAmbiguousSelection is returned when more than one selector variant is set.
var ErrAmbiguousSelection = errors.New("more than one selector set")

// ErrWrongContentKind is returned when an action targets the other content kind.
var ErrWrongContentKind = errors.New("artifact content has the wrong kind")

// ErrMissingAssistantID is returned when a memory operation has no assistant scope.
var ErrMissingAssistantID = errors.New("assistant id not found")

// ErrMissingUserID is returned when a quick action lookup has no user scope.
var ErrMissingUserID = errors.New("user id not found")

// ErrQuickActionNotFound is returned when a custom quick action id is unknown.
var ErrQuickActionNotFound = errors.New("quick action not found")

// ErrRevisionOutOfRange is returned when selecting a revision that does not exist.
var ErrRevisionOutOfRange = errors.New("revision out of range")

// ErrThreadNotFound is returned when a thread ID cannot be found in the store.
var ErrThreadNotFound = errors.New("thread not found")

// ErrNotFound is returned by memory stores for missing keys.
var ErrNotFound = errors.New("not found")
