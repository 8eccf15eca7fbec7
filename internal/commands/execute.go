package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	EventAdd    func(EventAddArgs) (Result, error)
	EventDelete func(EventDeleteArgs) (Result, error)
	TaskAdd     func(TaskAddArgs) (Result, error)
	TaskDone    func(TaskDoneArgs) (Result, error)
	Undo        func() (Result, error)
	Redo        func() (Result, error)
	Free        func(FreeArgs) (Result, error)
	Show        func(ShowArgs) (Result, error)
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeEventAdd:
		if handlers.EventAdd == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.EventAdd(*cmd.EventAdd)
	case TypeEventDelete:
		if handlers.EventDelete == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.EventDelete(*cmd.EventDelete)
	case TypeTaskAdd:
		if handlers.TaskAdd == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.TaskAdd(*cmd.TaskAdd)
	case TypeTaskDone:
		if handlers.TaskDone == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.TaskDone(*cmd.TaskDone)
	case TypeUndo:
		if handlers.Undo == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Undo()
	case TypeRedo:
		if handlers.Redo == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Redo()
	case TypeFree:
		if handlers.Free == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Free(*cmd.Free)
	case TypeShow:
		if handlers.Show == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Show(*cmd.Show)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
