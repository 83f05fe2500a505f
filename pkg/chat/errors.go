package chat

import (
	"errors"
	"fmt"
)

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrBranchNotFound  = errors.New("branch not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrRootBranch      = errors.New("root branch cannot be deleted")
	ErrValidation      = errors.New("validation error")
	ErrStreamActive    = errors.New("a stream is already active for this branch")
)

// NotFoundError reports a lookup miss for a chat, branch or message.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "not found"
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	switch e.Resource {
	case "chat":
		return target == ErrChatNotFound
	case "branch":
		return target == ErrBranchNotFound
	case "message":
		return target == ErrMessageNotFound
	}
	return false
}

// ValidationError reports invalid domain data.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ErrValidation.Error()
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s (%s): %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
